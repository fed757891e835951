package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"InvestLogic/internal/model"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

var (
	ErrStooqEmpty     = errors.New("stooq: empty response")
	ErrStooqBadHeader = errors.New("stooq: missing Date or Close column")
	ErrStooqNoRows    = errors.New("stooq: no usable rows")
)

// StooqFetcher reads delayed daily history from the Stooq CSV endpoint.
type StooqFetcher struct {
	Client  *http.Client
	BaseURL string
}

func NewStooqFetcher(proxyURL string, timeout time.Duration) *StooqFetcher {
	return &StooqFetcher{Client: newHTTPClient(proxyURL, timeout), BaseURL: stooqBaseURL}
}

func (f *StooqFetcher) Name() string { return "stooq" }

// FetchDailyCloses returns the last days closes; days <= 0 returns all rows.
func (f *StooqFetcher) FetchDailyCloses(ctx context.Context, symbol string, days int) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("s", strings.ToLower(symbol))
	q.Set("i", "d")
	u := f.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stooq: status %d", resp.StatusCode)
	}

	points, err := parseStooqCSV(resp.Body)
	if err != nil {
		return nil, err
	}
	if days > 0 && len(points) > days {
		points = points[len(points)-days:]
	}
	return points, nil
}

// parseStooqCSV reads Date,Open,High,Low,Close,Volume rows, skipping any
// row without a date or a finite close.
func parseStooqCSV(r io.Reader) ([]model.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrStooqEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("stooq header: %w", err)
	}
	idxDate, idxClose := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Date":
			idxDate = i
		case "Close":
			idxClose = i
		}
	}
	if idxDate < 0 || idxClose < 0 {
		return nil, ErrStooqBadHeader
	}

	var points []model.PricePoint
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stooq row: %w", err)
		}
		if idxDate >= len(rec) || idxClose >= len(rec) {
			continue
		}
		date := strings.TrimSpace(rec[idxDate])
		c, err := strconv.ParseFloat(strings.TrimSpace(rec[idxClose]), 64)
		if date == "" || err != nil || math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		points = append(points, model.PricePoint{Date: date, Close: c})
	}
	if len(points) == 0 {
		return nil, ErrStooqNoRows
	}
	return points, nil
}
