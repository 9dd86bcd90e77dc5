package market

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFeedLast(t *testing.T) {
	f := NewFeed(24, 100)
	if _, _, ok := f.Last(); ok {
		t.Fatal("empty feed reported a price")
	}
	at := time.Now()
	f.Record(decimal.NewFromInt(100), at)
	price, got, ok := f.Last()
	if !ok || !price.Equal(decimal.NewFromInt(100)) || !got.Equal(at) {
		t.Fatalf("unexpected last: %s at %v ok=%v", price, got, ok)
	}
	// Non-positive prices are ignored.
	f.Record(decimal.Zero, at.Add(time.Second))
	price, _, _ = f.Last()
	if !price.Equal(decimal.NewFromInt(100)) {
		t.Fatal("zero price overwrote last")
	}
}

func TestVolatility(t *testing.T) {
	f := NewFeed(24, 100)
	if f.Volatility() != 0 {
		t.Fatal("volatility without samples")
	}
	at := time.Now()
	for _, p := range []int64{100, 101, 100, 101, 100} {
		f.Record(decimal.NewFromInt(p), at)
		at = at.Add(time.Minute)
	}
	got := f.Volatility()
	if got <= 0 {
		t.Fatalf("expected positive volatility, got %g", got)
	}

	// Flat prices have zero volatility.
	flat := NewFeed(24, 100)
	for i := 0; i < 10; i++ {
		flat.Record(decimal.NewFromInt(100), at)
		at = at.Add(time.Minute)
	}
	if v := flat.Volatility(); v != 0 {
		t.Fatalf("flat series volatility %g, want 0", v)
	}
}

func TestVolatilityWindowAndBound(t *testing.T) {
	f := NewFeed(4, 6)
	at := time.Now()
	// Old noisy samples fall outside both window and history bound.
	for _, p := range []int64{50, 200, 50, 200, 100, 100, 100, 100, 100, 100} {
		f.Record(decimal.NewFromInt(p), at)
		at = at.Add(time.Minute)
	}
	if v := f.Volatility(); v != 0 {
		t.Fatalf("windowed volatility %g, want 0 (noise aged out)", v)
	}
	if math.IsNaN(f.Volatility()) {
		t.Fatal("volatility is NaN")
	}
}
