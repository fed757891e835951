package model

// StrategyTemplate is the fixed tranche table applied to every allocation.
// Ratios are percentages of the allocated budget, Drops are fractional
// drawdowns from the base price; both have one entry per tranche.
type StrategyTemplate struct {
	Name   string    `json:"name" yaml:"name"`
	Status string    `json:"status" yaml:"status"`
	Emoji  string    `json:"emoji" yaml:"emoji"`
	Ratios []float64 `json:"ratios" yaml:"ratios"`
	Drops  []float64 `json:"drops" yaml:"drops"`
}

// Tranches returns the number of tranches in the template.
func (t StrategyTemplate) Tranches() int {
	return len(t.Ratios)
}
