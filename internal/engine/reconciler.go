package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gridbot/internal/exchange"
	"gridbot/internal/grid"
)

// ReconcileStats summarizes one reconciliation pass.
type ReconcileStats struct {
	Promoted  int
	Filled    int
	Cancelled int
	Failed    int
}

// Reconciler periodically compares the ladder's active orders with the
// venue's open orders and fill history. It is the only component that
// produces Filled and Cancelled events for orders whose outcome the
// coordinator does not already know.
type Reconciler struct {
	coord    *Coordinator
	client   exchange.Client
	log      *zap.Logger
	interval time.Duration
	lookback time.Duration
}

func NewReconciler(coord *Coordinator, client exchange.Client, interval, lookback time.Duration, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Reconciler{coord: coord, client: client, log: log, interval: interval, lookback: lookback}
}

// RunOnce fetches venue state and applies it to the ladder.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	now := time.Now()
	open, err := r.client.OpenOrders(ctx)
	if err != nil {
		r.log.Warn("open orders fetch failed", zap.Error(err))
		return err
	}
	fills, err := r.client.RecentFills(ctx, now.Add(-r.lookback))
	if err != nil {
		r.log.Warn("fills fetch failed", zap.Error(err))
		return err
	}
	stats := r.coord.ReconcileWith(ctx, now, open, fills)
	if stats != (ReconcileStats{}) {
		r.log.Info("reconciliation applied",
			zap.Int("promoted", stats.Promoted),
			zap.Int("filled", stats.Filled),
			zap.Int("cancelled", stats.Cancelled),
			zap.Int("failed", stats.Failed))
	}
	return nil
}

func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = r.RunOnce(ctx)
		}
	}
}

type levelKey struct {
	side  string
	price string
}

// ReconcileWith settles every active level against the venue's view.
// An active ref still open promotes Pending to Resting; a ref found in
// the fill history settles as Filled; a ref the venue knows nothing
// about is given a grace period and then declared Cancelled. Pending
// levels that never received a ref are matched to open orders and
// fills by side and price, since ladder prices are unique.
func (c *Coordinator) ReconcileWith(ctx context.Context, now time.Time, open []exchange.OpenOrder, fills []exchange.Fill) ReconcileStats {
	var stats ReconcileStats
	var notes []string

	openByRef := make(map[string]exchange.OpenOrder, len(open))
	openByLevel := make(map[levelKey]exchange.OpenOrder, len(open))
	for _, oo := range open {
		openByRef[oo.Ref] = oo
		openByLevel[levelKey{string(oo.Side), oo.Price.String()}] = oo
	}
	fillByRef := make(map[string]exchange.Fill, len(fills))
	fillByLevel := make(map[levelKey]exchange.Fill, len(fills))
	for _, f := range fills {
		if prev, ok := fillByRef[f.OrderRef]; !ok || f.Time.After(prev.Time) {
			fillByRef[f.OrderRef] = f
		}
		k := levelKey{string(f.Side), f.Price.String()}
		if prev, ok := fillByLevel[k]; !ok || f.Time.After(prev.Time) {
			fillByLevel[k] = f
		}
	}

	c.mu.Lock()
	if c.ladder == nil {
		c.mu.Unlock()
		return stats
	}
	active := make(map[string]struct{})
	for _, lv := range c.ladder.Levels() {
		if lv.Index == 0 || (lv.State != grid.StatePending && lv.State != grid.StateResting) {
			continue
		}
		if lv.OrderRef != "" {
			ref := lv.OrderRef
			active[ref] = struct{}{}
			if _, ok := openByRef[ref]; ok {
				if lv.State == grid.StatePending {
					if _, err := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventSubmitSucceeded, OrderRef: ref}, now); err == nil {
						stats.Promoted++
					}
				}
				delete(c.mismatchSince, ref)
				continue
			}
			if fill, ok := fillByRef[ref]; ok {
				c.handleFillLocked(lv, fill, now, &notes)
				stats.Filled++
				delete(c.mismatchSince, ref)
				continue
			}
			since, tracked := c.mismatchSince[ref]
			if !tracked {
				c.mismatchSince[ref] = now
				continue
			}
			if now.Sub(since) >= c.cfg.MismatchGrace {
				if _, err := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventCancelled}, now); err == nil {
					stats.Cancelled++
					c.metrics.ReconciliationMismatches.Inc()
					c.journal.ResolveByRef(ref, OutcomeCancelled, "reconciliation mismatch")
					c.log.Warn("order missing on venue past grace, marking cancelled",
						zap.Int("level", lv.Index),
						zap.String("ref", ref))
				}
				delete(c.mismatchSince, ref)
			}
			continue
		}

		// Pending with unknown ref: the submit response never arrived.
		key := levelKey{string(lv.Side), lv.Price.String()}
		trackKey := fmt.Sprintf("pending:%d", lv.Index)
		active[trackKey] = struct{}{}
		if oo, ok := openByLevel[key]; ok {
			if _, err := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventSubmitSucceeded, OrderRef: oo.Ref}, now); err == nil {
				stats.Promoted++
				c.journal.ResolveByLevel(lv.Index, oo.Ref, OutcomeResting, "adopted by reconciliation")
				c.log.Info("adopted venue order for pending level",
					zap.Int("level", lv.Index),
					zap.String("ref", oo.Ref))
			}
			delete(c.mismatchSince, trackKey)
			continue
		}
		if fill, ok := fillByLevel[key]; ok {
			c.journal.ResolveByLevel(lv.Index, fill.OrderRef, OutcomeFilled, "adopted by reconciliation")
			c.handleFillLocked(lv, fill, now, &notes)
			stats.Filled++
			delete(c.mismatchSince, trackKey)
			continue
		}
		since, tracked := c.mismatchSince[trackKey]
		if !tracked {
			c.mismatchSince[trackKey] = now
			continue
		}
		if now.Sub(since) >= c.cfg.MismatchGrace {
			if _, err := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventSubmitFailed}, now); err == nil {
				stats.Failed++
				c.metrics.ReconciliationMismatches.Inc()
				c.journal.ResolveByLevel(lv.Index, "", OutcomeFailed, "order never appeared on venue")
				c.log.Warn("pending order never appeared on venue, marking failed",
					zap.Int("level", lv.Index))
			}
			delete(c.mismatchSince, trackKey)
		}
	}
	for key := range c.mismatchSince {
		if _, ok := active[key]; !ok {
			delete(c.mismatchSince, key)
		}
	}
	c.updateGaugesLocked()
	c.mu.Unlock()

	c.sendNotes(ctx, notes)
	c.persist(ctx)
	return stats
}
