package strategy

import (
	"fmt"
	"strings"

	"InvestLogic/internal/model"
)

// Market status labels as stored in the global settings.
const (
	StatusFear    = "공포 (Fear)"
	StatusCaution = "주의 (Caution)"
)

// FearTemplate is the default tranche table: light early buys, heavy buys
// from a 38% drawdown on.
var FearTemplate = model.StrategyTemplate{
	Name:   "fear",
	Status: StatusFear,
	Emoji:  "🥶",
	Ratios: []float64{4, 4, 4, 8, 8, 8, 12, 12, 20, 20},
	Drops:  []float64{0, 0.05, 0.10, 0.15, 0.20, 0.28, 0.33, 0.38, 0.43, 0.48},
}

// Registry is an immutable set of templates keyed by market status.
type Registry struct {
	byStatus map[string]model.StrategyTemplate
	statuses []string
	fallback model.StrategyTemplate
}

// NewRegistry validates templates and indexes them by status. The first
// template becomes the fallback for unknown statuses; an empty list yields a
// registry holding only FearTemplate.
func NewRegistry(templates []model.StrategyTemplate) (*Registry, error) {
	if len(templates) == 0 {
		templates = []model.StrategyTemplate{FearTemplate}
	}
	r := &Registry{byStatus: make(map[string]model.StrategyTemplate, len(templates))}
	for _, t := range templates {
		if strings.TrimSpace(t.Status) == "" {
			return nil, fmt.Errorf("template %q: status is required", t.Name)
		}
		if err := Validate(t); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.Name, err)
		}
		if _, dup := r.byStatus[t.Status]; dup {
			return nil, fmt.Errorf("duplicate template status %q", t.Status)
		}
		r.byStatus[t.Status] = clone(t)
		r.statuses = append(r.statuses, t.Status)
	}
	r.fallback = r.byStatus[templates[0].Status]
	return r, nil
}

// Lookup returns the template for status, falling back to the default.
func (r *Registry) Lookup(status string) model.StrategyTemplate {
	if t, ok := r.byStatus[status]; ok {
		return clone(t)
	}
	return clone(r.fallback)
}

// Has reports whether status has a registered template.
func (r *Registry) Has(status string) bool {
	_, ok := r.byStatus[status]
	return ok
}

// Statuses lists the registered statuses in configuration order.
func (r *Registry) Statuses() []string {
	out := make([]string, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Default returns the fallback template.
func (r *Registry) Default() model.StrategyTemplate {
	return clone(r.fallback)
}

func clone(t model.StrategyTemplate) model.StrategyTemplate {
	t.Ratios = append([]float64(nil), t.Ratios...)
	t.Drops = append([]float64(nil), t.Drops...)
	return t
}
