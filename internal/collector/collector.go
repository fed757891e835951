package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"InvestLogic/internal/cache"
	"InvestLogic/internal/model"
)

const (
	MinSeriesDays     = 10
	MaxSeriesDays     = 365
	DefaultSeriesDays = 120
)

// Options tunes symbols and cache lifetimes.
type Options struct {
	MainSymbol   string            // headline futures quote, default NQ=F
	Indexes      map[string]string // snapshot key -> ticker, default ndx:^NDX sp500:^GSPC
	SeriesSymbol string            // index history ticker, default ^NDX
	QuoteTTL     time.Duration
	SeriesTTL    time.Duration
}

func (o *Options) applyDefaults() {
	if o.MainSymbol == "" {
		o.MainSymbol = "NQ=F"
	}
	if len(o.Indexes) == 0 {
		o.Indexes = map[string]string{"ndx": "^NDX", "sp500": "^GSPC"}
	}
	if o.SeriesSymbol == "" {
		o.SeriesSymbol = "^NDX"
	}
	if o.QuoteTTL <= 0 {
		o.QuoteTTL = time.Minute
	}
	if o.SeriesTTL <= 0 {
		o.SeriesTTL = 30 * time.Minute
	}
}

// Collector fetches market data through a read-through cache.
type Collector struct {
	quotes QuoteFetcher
	series SeriesFetcher
	cache  cache.Store
	opts   Options
	log    *zap.Logger
}

// New creates a Collector. A nil store disables caching.
func New(quotes QuoteFetcher, series SeriesFetcher, store cache.Store, opts Options, log *zap.Logger) *Collector {
	opts.applyDefaults()
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{quotes: quotes, series: series, cache: store, opts: opts, log: log}
}

// ClampDays bounds a requested series length; 0 selects the default.
func ClampDays(days int) int {
	if days == 0 {
		return DefaultSeriesDays
	}
	if days < MinSeriesDays {
		return MinSeriesDays
	}
	if days > MaxSeriesDays {
		return MaxSeriesDays
	}
	return days
}

// Snapshot returns the main quote and reference indexes, cached for QuoteTTL.
func (c *Collector) Snapshot(ctx context.Context) (*model.MarketSnapshot, error) {
	var snap model.MarketSnapshot
	if ok, err := cache.GetJSON(ctx, c.cache, "market:snapshot", &snap); err != nil {
		c.log.Warn("snapshot cache read failed", zap.Error(err))
	} else if ok {
		return &snap, nil
	}
	return c.RefreshSnapshot(ctx)
}

// RefreshSnapshot fetches all snapshot quotes concurrently and stores them.
func (c *Collector) RefreshSnapshot(ctx context.Context) (*model.MarketSnapshot, error) {
	keys := make([]string, 0, len(c.opts.Indexes))
	for k := range c.opts.Indexes {
		keys = append(keys, k)
	}
	results := make([]model.Quote, len(keys))
	var main model.Quote

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := c.quotes.FetchQuote(gctx, c.opts.MainSymbol)
		if err != nil {
			return fmt.Errorf("quote %s: %w", c.opts.MainSymbol, err)
		}
		main = q
		return nil
	})
	for i, k := range keys {
		g.Go(func() error {
			sym := c.opts.Indexes[k]
			q, err := c.quotes.FetchQuote(gctx, sym)
			if err != nil {
				return fmt.Errorf("quote %s: %w", sym, err)
			}
			results[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &model.MarketSnapshot{
		Main:      main,
		Indexes:   make(map[string]model.Quote, len(keys)),
		FetchedAt: time.Now().UTC(),
	}
	for i, k := range keys {
		snap.Indexes[k] = results[i]
	}
	if err := cache.SetJSON(ctx, c.cache, "market:snapshot", snap, c.opts.QuoteTTL); err != nil {
		c.log.Warn("snapshot cache write failed", zap.Error(err))
	}
	return snap, nil
}

// Quote returns the latest quote for one symbol, cached for QuoteTTL.
func (c *Collector) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	key := "quote:" + strings.ToUpper(symbol)
	var q model.Quote
	if ok, _ := cache.GetJSON(ctx, c.cache, key, &q); ok {
		return q, nil
	}
	q, err := c.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return model.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if err := cache.SetJSON(ctx, c.cache, key, q, c.opts.QuoteTTL); err != nil {
		c.log.Warn("quote cache write failed", zap.String("symbol", symbol), zap.Error(err))
	}
	return q, nil
}

// IndexSeries returns the last days closes of the series symbol. The full
// history is cached once and trimmed per request.
func (c *Collector) IndexSeries(ctx context.Context, days int) (*model.IndexSeries, error) {
	days = ClampDays(days)
	key := "series:" + strings.ToUpper(c.opts.SeriesSymbol)

	var points []model.PricePoint
	ok, err := cache.GetJSON(ctx, c.cache, key, &points)
	if err != nil {
		c.log.Warn("series cache read failed", zap.Error(err))
	}
	if !ok || len(points) == 0 {
		points, err = c.series.FetchDailyCloses(ctx, c.opts.SeriesSymbol, MaxSeriesDays)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", c.opts.SeriesSymbol, err)
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("series %s: no rows", c.opts.SeriesSymbol)
		}
		if err := cache.SetJSON(ctx, c.cache, key, points, c.opts.SeriesTTL); err != nil {
			c.log.Warn("series cache write failed", zap.Error(err))
		}
	}

	if len(points) > days {
		points = points[len(points)-days:]
	}
	last := points[len(points)-1]
	return &model.IndexSeries{
		Symbol:    c.opts.SeriesSymbol,
		LastClose: last.Close,
		LastDate:  last.Date,
		Series:    points,
		Source:    c.series.Name(),
		Delay:     "delayed",
	}, nil
}
