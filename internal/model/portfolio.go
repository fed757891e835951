package model

// AllocationSetting is the per-symbol share of capital and its reference price.
type AllocationSetting struct {
	Percent   float64 `json:"percent"`
	BasePrice float64 `json:"base_price"`
}

// Portfolio is a user's capital and allocation table.
type Portfolio struct {
	UserID       string                       `json:"user_id"`
	TotalCapital float64                      `json:"total_capital"`
	Allocations  map[string]AllocationSetting `json:"allocations"`
}

// Setting returns the allocation for symbol, or the zero setting when none exists.
func (p Portfolio) Setting(symbol string) AllocationSetting {
	if p.Allocations == nil {
		return AllocationSetting{}
	}
	return p.Allocations[symbol]
}
