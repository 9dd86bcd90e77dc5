package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testBands() []Band {
	return []Band{
		{Low: 0, High: 0.2, Spacing: 0.01},
		{Low: 0.2, High: 0.4, Spacing: 0.02},
		{Low: 0.4, High: 0, Spacing: 0.04},
	}
}

func TestNewPolicyValidation(t *testing.T) {
	cases := []struct {
		name  string
		bands []Band
	}{
		{"empty", nil},
		{"gap", []Band{{0, 0.2, 0.01}, {0.3, 0, 0.02}}},
		{"overlap", []Band{{0, 0.2, 0.01}, {0.1, 0, 0.02}}},
		{"not from zero", []Band{{0.1, 0.2, 0.01}, {0.2, 0, 0.02}}},
		{"bounded top", []Band{{0, 0.2, 0.01}, {0.2, 0.4, 0.02}}},
		{"empty range", []Band{{0, 0, 0.01}, {0, 0, 0.02}}},
		{"zero spacing", []Band{{0, 0.2, 0}, {0.2, 0, 0.02}}},
	}
	for _, tc := range cases {
		if _, err := NewPolicy(tc.bands, 0.005, time.Hour); !errors.Is(err, ErrInvalidThresholdTable) {
			t.Fatalf("%s: expected ErrInvalidThresholdTable, got %v", tc.name, err)
		}
	}
	if _, err := NewPolicy(testBands(), -1, time.Hour); !errors.Is(err, ErrInvalidThresholdTable) {
		t.Fatal("negative hysteresis accepted")
	}
}

func TestRecommendStepFunction(t *testing.T) {
	p, err := NewPolicy(testBands(), 0.005, time.Hour)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}
	cases := map[float64]float64{
		0:    0.01,
		0.19: 0.01,
		0.2:  0.02,
		0.39: 0.02,
		0.4:  0.04,
		3.5:  0.04,
	}
	for vol, want := range cases {
		if got := p.Recommend(vol); got != want {
			t.Fatalf("Recommend(%g) = %g, want %g", vol, got, want)
		}
	}
}

func TestShouldRebuildHysteresis(t *testing.T) {
	p, err := NewPolicy(testBands(), 0.005, time.Hour)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}
	l, err := Build(decimal.NewFromInt(100), decimal.NewFromFloat(0.01), 3, time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	now := time.Now()
	price := decimal.NewFromInt(100)

	// Same band, within hysteresis: no rebuild.
	if ok, reason := p.ShouldRebuild(l, price, 0.1, now); ok {
		t.Fatalf("unexpected rebuild: %s", reason)
	}
	// Band change beyond hysteresis: rebuild.
	ok, reason := p.ShouldRebuild(l, price, 0.5, now)
	if !ok || reason != RebuildSpacingChange {
		t.Fatalf("expected spacing rebuild, got ok=%v reason=%s", ok, reason)
	}
	// Immediately after a spacing change the interval gate holds.
	if ok, _ := p.ShouldRebuild(l, price, 0.5, now.Add(time.Minute)); ok {
		t.Fatal("spacing rebuild not rate limited")
	}
	// High volatility shrinks the interval to a quarter.
	if ok, _ := p.ShouldRebuild(l, price, 0.9, now.Add(16*time.Minute)); !ok {
		t.Fatal("expected rebuild after scaled interval")
	}
}

func TestShouldRebuildPriceDrift(t *testing.T) {
	p, err := NewPolicy(testBands(), 0.005, time.Hour)
	if err != nil {
		t.Fatalf("policy failed: %v", err)
	}
	l, err := Build(decimal.NewFromInt(100), decimal.NewFromFloat(0.01), 3, time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	now := time.Now()

	// Outermost levels are 97 and 103.
	ok, reason := p.ShouldRebuild(l, decimal.NewFromFloat(96.5), 0.1, now)
	if !ok || reason != RebuildPriceDrift {
		t.Fatalf("expected drift rebuild below ladder, got ok=%v reason=%s", ok, reason)
	}
	ok, reason = p.ShouldRebuild(l, decimal.NewFromFloat(103.5), 0.1, now)
	if !ok || reason != RebuildPriceDrift {
		t.Fatalf("expected drift rebuild above ladder, got ok=%v reason=%s", ok, reason)
	}
	// Drift rebuilds are not rate limited.
	ok, reason = p.ShouldRebuild(l, decimal.NewFromFloat(96.5), 0.1, now.Add(time.Second))
	if !ok || reason != RebuildPriceDrift {
		t.Fatal("drift rebuild should not be rate limited")
	}
}
