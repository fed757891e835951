package strategy

import (
	"errors"
	"fmt"
	"math"

	"InvestLogic/internal/model"
)

var (
	ErrEmptyTemplate  = errors.New("template has no tranches")
	ErrLengthMismatch = errors.New("ratios and drops differ in length")
)

// Validate checks the structural invariants of a template.
func Validate(t model.StrategyTemplate) error {
	if len(t.Ratios) == 0 {
		return ErrEmptyTemplate
	}
	if len(t.Ratios) != len(t.Drops) {
		return fmt.Errorf("%w: %d ratios, %d drops", ErrLengthMismatch, len(t.Ratios), len(t.Drops))
	}
	for i, r := range t.Ratios {
		if r < 0 {
			return fmt.Errorf("ratio %d is negative: %v", i+1, r)
		}
	}
	for i, d := range t.Drops {
		if d < 0 || d >= 1 {
			return fmt.Errorf("drop %d out of range [0,1): %v", i+1, d)
		}
		if i > 0 && d < t.Drops[i-1] {
			return fmt.Errorf("drop %d (%v) is below drop %d (%v)", i+1, d, i, t.Drops[i-1])
		}
	}
	return nil
}

// RatioSum returns the total of the template ratios and whether it is 100.
func RatioSum(t model.StrategyTemplate) (float64, bool) {
	sum := 0.0
	for _, r := range t.Ratios {
		sum += r
	}
	return sum, math.Abs(sum-100) < 1e-9
}
