package calculator

import (
	"github.com/shopspring/decimal"

	"InvestLogic/internal/model"
)

// PlanInput is everything the plan calculator needs for one symbol.
type PlanInput struct {
	Symbol       string
	TotalCapital float64
	Setting      model.AllocationSetting
	Template     model.StrategyTemplate
	Trades       []model.TradeRecord
}

// Compute builds the tranche plan and the derived scalars for in.Symbol.
// It is pure: identical input always yields identical output, and degenerate
// input (zero percent, non-positive base price) yields zero-valued rows.
func Compute(in PlanInput) *model.Plan {
	allocated := in.TotalCapital * in.Setting.Percent / 100
	base := in.Setting.BasePrice
	executed := executedRounds(in.Symbol, in.Trades)

	rows := make([]model.PlanRow, 0, len(in.Template.Ratios))
	var accumAmount, accumQty float64
	for i, ratio := range in.Template.Ratios {
		drop := 0.0
		if i < len(in.Template.Drops) {
			drop = in.Template.Drops[i]
		}
		target := base * (1 - drop)
		amount := allocated * ratio / 100
		qty := 0.0
		if target > 0 {
			qty = amount / target
		}

		// Average of the prefix before this tranche; an empty prefix
		// compares against the base price.
		prevAvg := base
		if accumQty > 0 {
			prevAvg = accumAmount / accumQty
		}

		accumAmount += amount
		accumQty += qty
		avg := 0.0
		if accumQty > 0 {
			avg = accumAmount / accumQty
		}

		turn := i + 1
		row := model.PlanRow{
			Turn:        turn,
			DropRate:    drop,
			TargetPrice: target,
			Percent:     ratio,
			Amount:      amount,
			ExpectedQty: qty,
			ExpectedAvg: avg,
			IsExecuted:  executed[turn],
		}
		if !row.IsExecuted {
			row.Improvement = improvement(prevAvg, avg)
		}
		rows = append(rows, row)
	}

	plan := &model.Plan{
		Symbol:          in.Symbol,
		TotalCapital:    in.TotalCapital,
		Setting:         in.Setting,
		AllocatedBudget: allocated,
		Template:        in.Template.Name,
		Rows:            rows,
	}
	if len(rows) > 0 {
		plan.FinalExpectedAvg = rows[len(rows)-1].ExpectedAvg
	}

	r := Realize(in.Symbol, in.Trades)
	plan.TotalInvested = r.TotalInvested
	plan.TotalQty = r.TotalQty
	plan.RealAvgPrice = r.AvgPrice

	plan.CurrentRound, plan.NextTargetPrice = NextEntry(rows, in.Trades, in.Symbol)
	return plan
}

// improvement is the percent reduction from prev to avg, rounded to 1 decimal.
func improvement(prev, avg float64) float64 {
	if prev <= 0 {
		return 0
	}
	v, _ := decimal.NewFromFloat((prev - avg) / prev * 100).Round(1).Float64()
	return v
}

func executedRounds(symbol string, trades []model.TradeRecord) map[int]bool {
	out := make(map[int]bool)
	for _, t := range trades {
		if t.Symbol == symbol && t.Type == model.TradeBuy {
			out[t.Round] = true
		}
	}
	return out
}
