package model

// PlanRow is one computed tranche of a buy plan.
type PlanRow struct {
	Turn        int     `json:"turn"`
	DropRate    float64 `json:"drop_rate"`
	TargetPrice float64 `json:"target_price"`
	Percent     float64 `json:"percent"`
	Amount      float64 `json:"amount"`
	ExpectedQty float64 `json:"expected_qty"`
	ExpectedAvg float64 `json:"expected_avg"`
	Improvement float64 `json:"improvement"`
	IsExecuted  bool    `json:"is_executed"`
}

// Plan is the full calculator output for one symbol.
type Plan struct {
	Symbol           string            `json:"symbol"`
	TotalCapital     float64           `json:"total_capital"`
	Setting          AllocationSetting `json:"setting"`
	AllocatedBudget  float64           `json:"allocated_budget"`
	Template         string            `json:"template"`
	Rows             []PlanRow         `json:"rows"`
	RealAvgPrice     float64           `json:"real_avg_price"`
	TotalInvested    float64           `json:"total_invested"`
	TotalQty         float64           `json:"total_qty"`
	CurrentRound     int               `json:"current_round"`
	NextTargetPrice  *float64          `json:"next_target_price"`
	FinalExpectedAvg float64           `json:"final_expected_avg"`
}
