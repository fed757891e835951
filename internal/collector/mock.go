package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"InvestLogic/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price  float64                // used for any symbol missing from Quotes
	Quotes map[string]model.Quote // per-symbol overrides
	Series []model.PricePoint
	Err    error

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many fetches were served.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

func (m *MockFetcher) FetchQuote(_ context.Context, symbol string) (model.Quote, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return model.Quote{}, m.Err
	}
	if q, ok := m.Quotes[symbol]; ok {
		return q, nil
	}
	if m.Price <= 0 {
		return model.Quote{}, fmt.Errorf("mock: no quote for %s", symbol)
	}
	return model.Quote{Symbol: symbol, Price: m.Price, Time: time.Now().UTC()}, nil
}

func (m *MockFetcher) FetchDailyCloses(_ context.Context, _ string, days int) ([]model.PricePoint, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	series := m.Series
	if series == nil {
		series = generateMockSeries(m.Price, 365)
	}
	if days > 0 && len(series) > days {
		series = series[len(series)-days:]
	}
	out := make([]model.PricePoint, len(series))
	copy(out, series)
	return out, nil
}

func generateMockSeries(basePrice float64, count int) []model.PricePoint {
	if basePrice <= 0 {
		basePrice = 20000
	}
	start := time.Now().UTC().AddDate(0, 0, -count)
	points := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		points[i] = model.PricePoint{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Close: basePrice * (1 + float64(i-count/2)*0.001),
		}
	}
	return points
}
