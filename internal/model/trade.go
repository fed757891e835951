package model

import "time"

// TradeType is the side of a recorded trade. Only buys are produced.
type TradeType string

const (
	TradeBuy TradeType = "buy"
)

// TradeRecord is a persisted tranche execution.
type TradeRecord struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	Symbol string    `json:"symbol"`
	Type   TradeType `json:"type"`
	Round  int       `json:"round"`
	Amount float64   `json:"amount"`
	Price  float64   `json:"price"` // 0 means not entered yet
	Qty    float64   `json:"qty"`
	Date   time.Time `json:"date"`
	Memo   string    `json:"memo"`
}
