package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBuildValidation(t *testing.T) {
	cases := []struct {
		name      string
		reference string
		spacing   string
		count     int
	}{
		{"zero spacing", "100", "0", 5},
		{"negative spacing", "100", "-0.01", 5},
		{"zero count", "100", "0.01", 0},
		{"negative count", "100", "0.01", -3},
		{"zero reference", "0", "0.01", 5},
		{"spacing reaches zero", "100", "0.25", 4},
	}
	for _, tc := range cases {
		_, err := Build(decimal.RequireFromString(tc.reference), decimal.RequireFromString(tc.spacing), tc.count, time.Minute)
		if !errors.Is(err, ErrInvalidSpacing) {
			t.Fatalf("%s: expected ErrInvalidSpacing, got %v", tc.name, err)
		}
	}
}

func TestBuildPricesExact(t *testing.T) {
	l, err := Build(decimal.NewFromInt(105000), decimal.NewFromFloat(0.005), 5, time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	cases := map[int]string{
		-1: "104475",
		1:  "105525",
		-5: "102375",
		5:  "107625",
		0:  "105000",
	}
	for index, want := range cases {
		lv, ok := l.Level(index)
		if !ok {
			t.Fatalf("level %d missing", index)
		}
		if !lv.Price.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("level %d price %s, want %s", index, lv.Price, want)
		}
	}
}

func TestBuildSidesAndContiguity(t *testing.T) {
	l, err := Build(decimal.NewFromInt(100), decimal.NewFromFloat(0.02), 3, time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	levels := l.Levels()
	if len(levels) != 7 {
		t.Fatalf("expected 7 levels, got %d", len(levels))
	}
	prev := decimal.Zero
	for i, lv := range levels {
		if lv.Index != i-3 {
			t.Fatalf("index gap: got %d at position %d", lv.Index, i)
		}
		if !lv.Price.GreaterThan(prev) {
			t.Fatalf("prices not strictly increasing at index %d", lv.Index)
		}
		prev = lv.Price
		if lv.Index < 0 && lv.Side != SideBuy {
			t.Fatalf("level %d should be a buy", lv.Index)
		}
		if lv.Index > 0 && lv.Side != SideSell {
			t.Fatalf("level %d should be a sell", lv.Index)
		}
	}
}

// Regression for the buy-above-market defect: a buy level whose price
// is at or above the market must never be eligible.
func TestPriceEligibilityGeometry(t *testing.T) {
	l, err := Build(decimal.NewFromInt(100), decimal.NewFromFloat(0.01), 2, time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	buy, _ := l.Level(-1) // 99
	sell, _ := l.Level(1) // 101

	if buy.PriceEligible(decimal.NewFromInt(99)) {
		t.Fatal("buy level at market price must not be eligible")
	}
	if buy.PriceEligible(decimal.NewFromInt(98)) {
		t.Fatal("buy level above market must not be eligible")
	}
	if !buy.PriceEligible(decimal.NewFromInt(100)) {
		t.Fatal("buy level below market should be eligible")
	}
	if sell.PriceEligible(decimal.NewFromInt(101)) {
		t.Fatal("sell level at market price must not be eligible")
	}
	if sell.PriceEligible(decimal.NewFromInt(102)) {
		t.Fatal("sell level below market must not be eligible")
	}
	if !sell.PriceEligible(decimal.NewFromInt(100)) {
		t.Fatal("sell level above market should be eligible")
	}
}

func TestCenterOutOrdering(t *testing.T) {
	l, err := Build(decimal.NewFromInt(100), decimal.NewFromFloat(0.01), 2, time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	var got []int
	for _, lv := range l.CenterOut() {
		got = append(got, lv.Index)
	}
	want := []int{-1, 1, -2, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("center-out order %v, want %v", got, want)
		}
	}
}

func TestPairedIndex(t *testing.T) {
	cases := map[int]int{-3: -2, -1: 1, 1: -1, 3: 2}
	for index, want := range cases {
		if got := PairedIndex(index); got != want {
			t.Fatalf("PairedIndex(%d) = %d, want %d", index, got, want)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	l, err := Build(decimal.NewFromInt(105000), decimal.NewFromFloat(0.005), 3, 5*time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	l.Generation = 4
	now := time.Now().Truncate(time.Millisecond)
	if _, err := l.Transition(-1, Event{Kind: EventAttemptSubmitted}, now); err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if _, err := l.Transition(-1, Event{Kind: EventSubmitSucceeded, OrderRef: "oid-7"}, now); err != nil {
		t.Fatalf("success failed: %v", err)
	}
	if _, err := l.Transition(2, Event{Kind: EventAttemptSubmitted}, now); err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if _, err := l.Transition(2, Event{Kind: EventSubmitFailed}, now); err != nil {
		t.Fatalf("failure failed: %v", err)
	}

	restored, err := Restore(l.Snapshot())
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Generation != 4 {
		t.Fatalf("generation %d, want 4", restored.Generation)
	}
	if !restored.ReferencePrice.Equal(l.ReferencePrice) || !restored.Spacing.Equal(l.Spacing) {
		t.Fatal("reference or spacing lost in round trip")
	}
	lv, _ := restored.Level(-1)
	if lv.State != StateResting || lv.OrderRef != "oid-7" {
		t.Fatalf("level -1 restored as %+v", lv)
	}
	lv, _ = restored.Level(2)
	if lv.State != StateCooldown {
		t.Fatalf("level 2 restored as %+v", lv)
	}
	if !lv.CooldownUntil.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("cooldown deadline lost: %v", lv.CooldownUntil)
	}
}
