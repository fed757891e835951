package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PricePoint is one daily close of an index series.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Quote is the latest price of a symbol with its change against the previous close.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Time          time.Time `json:"time"`
}

// MarketSnapshot groups the headline futures quote with the reference indexes.
type MarketSnapshot struct {
	Main      Quote            `json:"main"`
	Indexes   map[string]Quote `json:"indexes"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// IndexSeries holds a trimmed daily close history.
type IndexSeries struct {
	Symbol    string       `json:"symbol"`
	LastClose float64      `json:"last_close"`
	LastDate  string       `json:"last_date"`
	Series    []PricePoint `json:"series"`
	Source    string       `json:"source"`
	Delay     string       `json:"delay"`
}
