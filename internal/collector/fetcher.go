package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"InvestLogic/internal/model"
)

// QuoteFetcher returns the latest quote of a symbol.
type QuoteFetcher interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (model.Quote, error)
}

// SeriesFetcher returns daily closes in ascending date order.
type SeriesFetcher interface {
	Name() string
	FetchDailyCloses(ctx context.Context, symbol string, days int) ([]model.PricePoint, error)
}

// Fetcher is a source that serves both quotes and series.
type Fetcher interface {
	QuoteFetcher
	SeriesFetcher
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
