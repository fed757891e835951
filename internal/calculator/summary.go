package calculator

import "InvestLogic/internal/model"

// Realized is the actual cost basis of recorded fills.
type Realized struct {
	TotalInvested float64 `json:"total_invested"`
	TotalQty      float64 `json:"total_qty"`
	AvgPrice      float64 `json:"avg_price"`
}

// Realize sums the stored amount and quantity of every buy record for symbol.
// It uses the record's own price and quantity, which may differ from the
// tranche target once a real fill price has been entered.
func Realize(symbol string, trades []model.TradeRecord) Realized {
	var r Realized
	for _, t := range trades {
		if t.Symbol != symbol || t.Type != model.TradeBuy {
			continue
		}
		r.TotalInvested += t.Amount
		r.TotalQty += t.Qty
	}
	if r.TotalQty > 0 {
		r.AvgPrice = r.TotalInvested / r.TotalQty
	}
	return r
}

// NextEntry returns the highest executed round for symbol and the target price
// of the tranche after it. The price is nil when every tranche has executed or
// no plan rows exist.
func NextEntry(rows []model.PlanRow, trades []model.TradeRecord, symbol string) (int, *float64) {
	current := 0
	for _, t := range trades {
		if t.Symbol == symbol && t.Type == model.TradeBuy && t.Round > current {
			current = t.Round
		}
	}
	for _, row := range rows {
		if row.Turn == current+1 {
			price := row.TargetPrice
			return current, &price
		}
	}
	return current, nil
}
