package strategy

import (
	"errors"
	"math"
	"testing"

	"InvestLogic/internal/model"
)

func TestNewRegistry_DefaultsToFear(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got := r.Lookup(StatusFear)
	if got.Name != "fear" || len(got.Ratios) != 10 {
		t.Fatalf("expected fear template with 10 tranches, got %q/%d", got.Name, len(got.Ratios))
	}
	if !r.Has(StatusFear) {
		t.Error("expected fear status to be registered")
	}
	if r.Has(StatusCaution) {
		t.Error("caution should not be registered by default")
	}
}

func TestRegistry_UnknownStatusFallsBack(t *testing.T) {
	r, _ := NewRegistry(nil)
	got := r.Lookup("탐욕 (Greed)")
	if got.Name != FearTemplate.Name {
		t.Errorf("expected fallback to fear, got %q", got.Name)
	}
}

func TestRegistry_LookupReturnsCopy(t *testing.T) {
	r, _ := NewRegistry(nil)
	got := r.Lookup(StatusFear)
	got.Ratios[0] = 99
	if r.Lookup(StatusFear).Ratios[0] != 4 {
		t.Error("mutating a looked-up template changed the registry")
	}
	if FearTemplate.Ratios[0] != 4 {
		t.Error("mutating a looked-up template changed FearTemplate")
	}
}

func TestNewRegistry_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		tmpl []model.StrategyTemplate
	}{
		{"missing status", []model.StrategyTemplate{{Name: "x", Ratios: []float64{100}, Drops: []float64{0}}}},
		{"length mismatch", []model.StrategyTemplate{{Name: "x", Status: "s", Ratios: []float64{50, 50}, Drops: []float64{0}}}},
		{"duplicate status", []model.StrategyTemplate{FearTemplate, FearTemplate}},
	}
	for _, tt := range tests {
		if _, err := NewRegistry(tt.tmpl); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    model.StrategyTemplate
		wantErr error
		ok      bool
	}{
		{"fear", FearTemplate, nil, true},
		{"empty", model.StrategyTemplate{}, ErrEmptyTemplate, false},
		{"mismatch", model.StrategyTemplate{Ratios: []float64{1, 2}, Drops: []float64{0}}, ErrLengthMismatch, false},
		{"decreasing drops", model.StrategyTemplate{Ratios: []float64{50, 50}, Drops: []float64{0.1, 0.05}}, nil, false},
		{"drop of 100%", model.StrategyTemplate{Ratios: []float64{100}, Drops: []float64{1}}, nil, false},
		{"negative ratio", model.StrategyTemplate{Ratios: []float64{-1}, Drops: []float64{0}}, nil, false},
	}
	for _, tt := range tests {
		err := Validate(tt.tmpl)
		if tt.ok {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestRatioSum(t *testing.T) {
	if sum, ok := RatioSum(FearTemplate); !ok || sum != 100 {
		t.Errorf("fear template: expected 100/true, got %.2f/%v", sum, ok)
	}
	if _, ok := RatioSum(model.StrategyTemplate{Ratios: []float64{10, 20}}); ok {
		t.Error("expected ratio sum 30 to be flagged")
	}
}

func TestGauge(t *testing.T) {
	tests := []struct {
		status string
		score  int
		angle  float64
	}{
		{StatusFear, 30, -36},
		{StatusCaution, 50, 0},
		{"unknown", 50, 0},
	}
	r, _ := NewRegistry(nil)
	for _, tt := range tests {
		g := r.ReadGauge(tt.status)
		if g.Score != tt.score {
			t.Errorf("%s: expected score %d, got %d", tt.status, tt.score, g.Score)
		}
		if math.Abs(g.Angle-tt.angle) > 1e-9 {
			t.Errorf("%s: expected angle %.1f, got %.4f", tt.status, tt.angle, g.Angle)
		}
	}
	if g := r.ReadGauge(StatusFear); g.Emoji != "🥶" {
		t.Errorf("expected fear emoji, got %q", g.Emoji)
	}
}

func TestProjectedProAverage(t *testing.T) {
	if got := ProjectedProAverage(100); math.Abs(got-94.4) > 1e-9 {
		t.Errorf("expected 94.4, got %.6f", got)
	}
	if got := ProDefensePercent(); math.Abs(got-5.6) > 1e-9 {
		t.Errorf("expected 5.6, got %.6f", got)
	}
}
