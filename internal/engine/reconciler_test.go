package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridbot/internal/exchange"
	"gridbot/internal/grid"
)

func restingCoordinator(t *testing.T, client *mockClient) *Coordinator {
	t.Helper()
	c, feed := newTestCoordinator(t, testEngineConfig(), client, allowAll{})
	mustBootstrap(t, c)
	feed.Record(decimal.NewFromInt(100), time.Now())
	if err := c.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	return c
}

func TestReconcileKeepsOpenOrders(t *testing.T) {
	client := &mockClient{}
	c := restingCoordinator(t, client)
	open := openOrdersExcept(c, "")

	stats := c.ReconcileWith(context.Background(), time.Now(), open, nil)
	if stats != (ReconcileStats{}) {
		t.Fatalf("healthy state produced changes: %+v", stats)
	}
	if n := c.ActiveOrderCount(); n != 6 {
		t.Fatalf("active orders %d, want 6", n)
	}
}

func TestReconcileSettlesFillWithPairedPriority(t *testing.T) {
	client := &mockClient{}
	c := restingCoordinator(t, client)

	c.mu.Lock()
	lv, _ := c.ladder.Level(-1)
	ref := lv.OrderRef
	c.mu.Unlock()

	fill := exchange.Fill{
		OrderRef: ref,
		TradeID:  "t1",
		Side:     exchange.SideBuy,
		Price:    decimal.NewFromInt(99),
		Size:     decimal.NewFromInt(1),
		Time:     time.Now(),
	}
	stats := c.ReconcileWith(context.Background(), time.Now(), openOrdersExcept(c, ref), []exchange.Fill{fill})
	if stats.Filled != 1 {
		t.Fatalf("filled %d, want 1", stats.Filled)
	}
	if st := levelState(t, c, -1); st != grid.StateIdle {
		t.Fatalf("filled level state %s, want IDLE", st)
	}
	trades, realized := c.Stats()
	if trades != 1 {
		t.Fatalf("trades %d, want 1", trades)
	}
	// Buys realize nothing until the paired sell completes the trip.
	if !realized.IsZero() {
		t.Fatalf("realized %s after a buy fill, want 0", realized)
	}
	c.mu.Lock()
	_, prioritized := c.priority[grid.PairedIndex(-1)]
	c.mu.Unlock()
	if !prioritized {
		t.Fatal("paired level not prioritized after fill")
	}
}

func TestReconcileMismatchGrace(t *testing.T) {
	client := &mockClient{}
	c := restingCoordinator(t, client)

	c.mu.Lock()
	lv, _ := c.ladder.Level(2)
	ref := lv.OrderRef
	c.mu.Unlock()
	open := openOrdersExcept(c, ref)
	now := time.Now()

	// First sighting only starts the clock.
	stats := c.ReconcileWith(context.Background(), now, open, nil)
	if stats.Cancelled != 0 {
		t.Fatalf("cancelled before grace: %+v", stats)
	}
	if st := levelState(t, c, 2); st != grid.StateResting {
		t.Fatalf("level 2 state %s before grace, want RESTING", st)
	}
	// Still missing past the grace period: declared cancelled.
	stats = c.ReconcileWith(context.Background(), now.Add(2*time.Minute), open, nil)
	if stats.Cancelled != 1 {
		t.Fatalf("cancelled %d after grace, want 1", stats.Cancelled)
	}
	if st := levelState(t, c, 2); st != grid.StateIdle {
		t.Fatalf("level 2 state %s after grace, want IDLE", st)
	}
}

func TestReconcileMismatchClearsWhenOrderReappears(t *testing.T) {
	client := &mockClient{}
	c := restingCoordinator(t, client)

	c.mu.Lock()
	lv, _ := c.ladder.Level(2)
	ref := lv.OrderRef
	c.mu.Unlock()
	now := time.Now()

	c.ReconcileWith(context.Background(), now, openOrdersExcept(c, ref), nil)
	// The order shows up again before grace expires; the clock resets.
	c.ReconcileWith(context.Background(), now.Add(30*time.Second), openOrdersExcept(c, ""), nil)
	stats := c.ReconcileWith(context.Background(), now.Add(2*time.Minute), openOrdersExcept(c, ref), nil)
	if stats.Cancelled != 0 {
		t.Fatalf("order cancelled despite reappearing: %+v", stats)
	}
}

func TestReconcileAdoptsPendingByPrice(t *testing.T) {
	client := &mockClient{}
	c, feed := newTestCoordinator(t, testEngineConfig(), client, allowAll{})
	mustBootstrap(t, c)
	feed.Record(decimal.NewFromInt(100), time.Now())

	// Put level -1 into Pending with no ref, as after a submit timeout.
	now := time.Now()
	c.mu.Lock()
	if _, err := c.ladder.Transition(-1, grid.Event{Kind: grid.EventAttemptSubmitted}, now); err != nil {
		c.mu.Unlock()
		t.Fatalf("transition failed: %v", err)
	}
	lv, _ := c.ladder.Level(-1)
	price := lv.Price
	c.mu.Unlock()

	open := []exchange.OpenOrder{{Ref: "venue-1", Side: exchange.SideBuy, Price: price}}
	stats := c.ReconcileWith(context.Background(), now, open, nil)
	if stats.Promoted != 1 {
		t.Fatalf("promoted %d, want 1", stats.Promoted)
	}
	c.mu.Lock()
	lv, _ = c.ladder.Level(-1)
	st, ref := lv.State, lv.OrderRef
	c.mu.Unlock()
	if st != grid.StateResting || ref != "venue-1" {
		t.Fatalf("adoption failed: state %s ref %q", st, ref)
	}
}

func TestReconcilerRunOnce(t *testing.T) {
	client := &mockClient{}
	c := restingCoordinator(t, client)
	c.mu.Lock()
	lv, _ := c.ladder.Level(1)
	ref := lv.OrderRef
	c.mu.Unlock()
	client.mu.Lock()
	client.open = openOrdersExcept(c, ref)
	client.fills = []exchange.Fill{{
		OrderRef: ref,
		TradeID:  "t9",
		Side:     exchange.SideSell,
		Price:    decimal.NewFromInt(101),
		Size:     decimal.NewFromInt(1),
		Time:     time.Now(),
	}}
	client.mu.Unlock()

	r := NewReconciler(c, client, time.Minute, time.Hour, zap.NewNop())
	if err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	trades, realized := c.Stats()
	if trades != 1 {
		t.Fatalf("trades %d, want 1", trades)
	}
	if !realized.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("realized %s, want 2", realized)
	}
}
