package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridbot/internal/exchange"
	"gridbot/internal/grid"
	"gridbot/internal/history"
	"gridbot/internal/market"
	"gridbot/internal/metrics"
	"gridbot/internal/risk"
	"gridbot/internal/state"
)

// Authorizer approves or denies a single order placement.
type Authorizer interface {
	Authorize(ctx context.Context, side exchange.Side, price, size decimal.Decimal) risk.Decision
}

// Notifier delivers operator alerts without ever failing the caller.
type Notifier interface {
	Notify(ctx context.Context, format string, args ...any)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, ...any) {}

// Config is the engine-facing slice of the application configuration,
// with percents already converted to fractions and prices to decimals.
type Config struct {
	Symbol           string
	OrderNotional    decimal.Decimal
	MinNotional      decimal.Decimal
	SizePrecision    int32
	LevelCount       int
	Cooldown         time.Duration
	AuthorizeTimeout time.Duration
	PlacementTimeout time.Duration
	MaxInFlight      int
	MismatchGrace    time.Duration
	InitialSpacing   decimal.Decimal
	ReferencePrice   decimal.Decimal
}

// Coordinator owns the ladder and the full order lifecycle. All ladder
// mutation happens under one mutex; the mutex is never held across a
// network call. Placement results carry the ladder generation they were
// issued under and are discarded when a rebuild has happened in
// between.
type Coordinator struct {
	cfg     Config
	client  exchange.Client
	feed    *market.Feed
	policy  *grid.Policy
	gate    Authorizer
	store   state.Store
	journal *AttemptJournal
	metrics *metrics.Metrics
	notify  Notifier
	hist    *history.Writer
	log     *zap.Logger

	sem chan struct{}
	seq atomic.Uint64

	mu            sync.Mutex
	ladder        *grid.Ladder
	halted        bool
	haltReason    string
	paused        bool
	tradeCount    int
	realized      decimal.Decimal
	priority      map[int]struct{}
	mismatchSince map[string]time.Time
	rebuildWanted grid.RebuildReason
}

func NewCoordinator(
	cfg Config,
	client exchange.Client,
	feed *market.Feed,
	policy *grid.Policy,
	gate Authorizer,
	store state.Store,
	m *metrics.Metrics,
	notify Notifier,
	hist *history.Writer,
	log *zap.Logger,
) *Coordinator {
	if m == nil {
		m = metrics.NewNoop()
	}
	if notify == nil {
		notify = noopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	if cfg.AuthorizeTimeout <= 0 {
		cfg.AuthorizeTimeout = time.Second
	}
	if cfg.PlacementTimeout <= 0 {
		cfg.PlacementTimeout = 10 * time.Second
	}
	if cfg.MismatchGrace <= 0 {
		cfg.MismatchGrace = 2 * time.Minute
	}
	return &Coordinator{
		cfg:           cfg,
		client:        client,
		feed:          feed,
		policy:        policy,
		gate:          gate,
		store:         store,
		journal:       NewAttemptJournal(0),
		metrics:       m,
		notify:        notify,
		hist:          hist,
		log:           log,
		sem:           make(chan struct{}, cfg.MaxInFlight),
		priority:      make(map[int]struct{}),
		mismatchSince: make(map[string]time.Time),
	}
}

// Bootstrap restores the ladder from the state store or builds a fresh
// one around the reference price. Callers must run one reconciliation
// pass before the first Tick so restored Pending levels get resolved
// against the venue.
func (c *Coordinator) Bootstrap(ctx context.Context, now time.Time) error {
	snap, found, err := state.LoadLadderSnapshot(ctx, c.store)
	if err != nil {
		c.log.Warn("ladder snapshot load failed, starting fresh", zap.Error(err))
		found = false
	}
	if found {
		ladder, err := grid.Restore(snap.Grid)
		if err != nil {
			c.log.Warn("ladder snapshot restore failed, starting fresh", zap.Error(err))
		} else {
			realized, perr := decimal.NewFromString(snap.RealizedProfit)
			if perr != nil {
				realized = decimal.Zero
			}
			c.mu.Lock()
			c.ladder = ladder
			c.tradeCount = snap.TradeCount
			c.realized = realized
			c.mu.Unlock()
			if err := c.journal.Load(ctx, c.store); err != nil {
				c.log.Warn("attempt journal load failed", zap.Error(err))
			}
			spacing, _ := ladder.Spacing.Float64()
			c.metrics.SpacingPercent.Set(spacing * 100)
			c.log.Info("ladder restored",
				zap.String("reference", ladder.ReferencePrice.String()),
				zap.String("spacing", ladder.Spacing.String()),
				zap.Uint64("generation", ladder.Generation),
				zap.Int("trades", snap.TradeCount))
			return nil
		}
	}

	reference := c.cfg.ReferencePrice
	if reference.LessThanOrEqual(decimal.Zero) {
		price, _, ok := c.feed.Last()
		if !ok {
			return errors.New("no reference price: configure one or wait for market data")
		}
		reference = price
	}
	ladder, err := grid.Build(reference, c.cfg.InitialSpacing, c.cfg.LevelCount, c.cfg.Cooldown)
	if err != nil {
		return fmt.Errorf("build initial ladder: %w", err)
	}
	c.mu.Lock()
	c.ladder = ladder
	c.mu.Unlock()
	spacing, _ := ladder.Spacing.Float64()
	c.metrics.SpacingPercent.Set(spacing * 100)
	c.log.Info("ladder built",
		zap.String("reference", reference.String()),
		zap.String("spacing", c.cfg.InitialSpacing.String()),
		zap.Int("levels", 2*c.cfg.LevelCount))
	return nil
}

// Tick runs one engine step: decide on a rebuild, otherwise place
// orders on every eligible level up to the in-flight bound.
func (c *Coordinator) Tick(ctx context.Context, now time.Time) error {
	price, _, ok := c.feed.Last()
	if !ok {
		return nil
	}
	vol := c.feed.Volatility()

	c.mu.Lock()
	if c.halted || c.paused || c.ladder == nil {
		c.mu.Unlock()
		return nil
	}
	if c.rebuildWanted == grid.RebuildNone {
		if rebuild, reason := c.policy.ShouldRebuild(c.ladder, price, vol, now); rebuild {
			c.rebuildWanted = reason
			c.log.Info("rebuild requested",
				zap.String("reason", string(reason)),
				zap.String("price", price.String()),
				zap.Float64("volatility", vol))
		}
	}
	if c.rebuildWanted != grid.RebuildNone {
		if c.ladder.HasActiveOrders() {
			refs := c.cancellableRefsLocked()
			c.mu.Unlock()
			// Levels in Pending without a ref stay until reconciliation
			// resolves them; the rebuild waits as long as it has to.
			c.cancelOrders(ctx, refs, "rebuild")
			c.persist(ctx)
			return nil
		}
		var notes []string
		c.rebuildLocked(price, vol, now, &notes)
		c.mu.Unlock()
		c.sendNotes(ctx, notes)
		c.persist(ctx)
		return nil
	}

	plan := c.planLocked(ctx, price, now)
	gen := c.ladder.Generation
	c.updateGaugesLocked()
	c.mu.Unlock()

	if len(plan) == 0 {
		c.persist(ctx)
		return nil
	}
	results := c.placeOrders(ctx, plan, gen)
	notes := c.applyResults(results, now)
	c.sendNotes(ctx, notes)
	c.persist(ctx)
	return nil
}

type placement struct {
	index         int
	side          exchange.Side
	price         decimal.Decimal
	size          decimal.Decimal
	clientOrderID string
}

type placementResult struct {
	placement
	generation uint64
	ref        string
	err        error
}

// planLocked walks levels center-out, fill-paired levels first, and
// marks each chosen level Pending before its network call is issued.
func (c *Coordinator) planLocked(ctx context.Context, price decimal.Decimal, now time.Time) []placement {
	ordered := c.ladder.CenterOut()
	candidates := make([]*grid.Level, 0, len(ordered))
	for _, lv := range ordered {
		if _, ok := c.priority[lv.Index]; ok {
			candidates = append(candidates, lv)
		}
	}
	for _, lv := range ordered {
		if _, ok := c.priority[lv.Index]; !ok {
			candidates = append(candidates, lv)
		}
	}

	plan := make([]placement, 0, c.cfg.MaxInFlight)
	for _, lv := range candidates {
		if len(plan) >= c.cfg.MaxInFlight {
			break
		}
		if !lv.AcceptsAttempt(now) || !lv.PriceEligible(price) {
			continue
		}
		side := exchange.Side(lv.Side)
		size := c.cfg.OrderNotional.Div(lv.Price).Truncate(c.cfg.SizePrecision)
		if size.LessThanOrEqual(decimal.Zero) || lv.Price.Mul(size).LessThan(c.cfg.MinNotional) {
			// Fail fast without touching the venue so the level cools
			// down instead of spinning every tick.
			c.failPlacementLocked(lv, now, "order below venue minimum notional")
			continue
		}

		authCtx, cancel := context.WithTimeout(ctx, c.cfg.AuthorizeTimeout)
		decision := c.gate.Authorize(authCtx, side, lv.Price, size)
		cancel()
		if !decision.Allowed {
			c.log.Debug("placement denied by risk gate",
				zap.Int("level", lv.Index),
				zap.String("reason", decision.Reason))
			continue
		}

		if _, err := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventAttemptSubmitted}, now); err != nil {
			c.log.Warn("attempt transition failed", zap.Int("level", lv.Index), zap.Error(err))
			continue
		}
		delete(c.priority, lv.Index)
		clientOrderID := fmt.Sprintf("grid-%d-%d", c.ladder.Generation, c.seq.Add(1))
		c.journal.Record(OrderAttempt{
			ClientOrderID: clientOrderID,
			LevelIndex:    lv.Index,
			Side:          string(side),
			Price:         lv.Price.String(),
			Size:          size.String(),
			Generation:    c.ladder.Generation,
			Outcome:       OutcomePending,
			At:            now,
		})
		plan = append(plan, placement{
			index:         lv.Index,
			side:          side,
			price:         lv.Price,
			size:          size,
			clientOrderID: clientOrderID,
		})
	}
	return plan
}

func (c *Coordinator) failPlacementLocked(lv *grid.Level, now time.Time, reason string) {
	if _, err := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventAttemptSubmitted}, now); err != nil {
		return
	}
	_, _ = c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventSubmitFailed}, now)
	c.metrics.OrdersFailed.Inc()
	c.journal.Record(OrderAttempt{
		ClientOrderID: fmt.Sprintf("grid-%d-%d", c.ladder.Generation, c.seq.Add(1)),
		LevelIndex:    lv.Index,
		Side:          string(lv.Side),
		Price:         lv.Price.String(),
		Generation:    c.ladder.Generation,
		Outcome:       OutcomeFailed,
		Reason:        reason,
		At:            now,
	})
	c.log.Warn("placement skipped",
		zap.Int("level", lv.Index),
		zap.String("price", lv.Price.String()),
		zap.String("reason", reason))
}

func (c *Coordinator) placeOrders(ctx context.Context, plan []placement, gen uint64) []placementResult {
	results := make([]placementResult, len(plan))
	var wg sync.WaitGroup
	for i, p := range plan {
		wg.Add(1)
		go func(i int, p placement) {
			defer wg.Done()
			c.sem <- struct{}{}
			defer func() { <-c.sem }()
			callCtx, cancel := context.WithTimeout(ctx, c.cfg.PlacementTimeout)
			defer cancel()
			ref, err := c.client.PlaceLimitOrder(callCtx, exchange.Order{
				Side:          p.side,
				Price:         p.price,
				Size:          p.size,
				ClientOrderID: p.clientOrderID,
			})
			results[i] = placementResult{placement: p, generation: gen, ref: ref, err: err}
		}(i, p)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) applyResults(results []placementResult, now time.Time) []string {
	var notes []string
	var strays []string

	c.mu.Lock()
	for _, r := range results {
		if c.ladder == nil || r.generation != c.ladder.Generation {
			// The ladder was rebuilt while this call was in flight; the
			// level no longer exists. Any order that did land is a stray.
			if r.ref != "" {
				strays = append(strays, r.ref)
			}
			c.journal.Resolve(r.clientOrderID, r.ref, OutcomeCancelled, "stale generation")
			continue
		}
		switch {
		case r.err == nil:
			if _, err := c.ladder.Transition(r.index, grid.Event{Kind: grid.EventSubmitSucceeded, OrderRef: r.ref}, now); err != nil {
				c.log.Error("submit success transition failed", zap.Int("level", r.index), zap.Error(err))
				continue
			}
			c.metrics.OrdersPlaced.Inc()
			c.journal.Resolve(r.clientOrderID, r.ref, OutcomeResting, "")
			c.log.Info("order resting",
				zap.Int("level", r.index),
				zap.String("side", string(r.side)),
				zap.String("price", r.price.String()),
				zap.String("size", r.size.String()),
				zap.String("ref", r.ref))
		case exchange.IsUnknownOutcome(r.err):
			// The venue may or may not have the order. The level stays
			// Pending until reconciliation settles it.
			c.journal.Resolve(r.clientOrderID, "", OutcomePending, "outcome unknown")
			c.log.Warn("placement outcome unknown",
				zap.Int("level", r.index),
				zap.Error(r.err))
		case exchange.IsPermanent(r.err):
			_, _ = c.ladder.Transition(r.index, grid.Event{Kind: grid.EventSubmitFailed}, now)
			c.metrics.OrdersFailed.Inc()
			c.journal.Resolve(r.clientOrderID, "", OutcomeFailed, r.err.Error())
			c.halted = true
			c.haltReason = r.err.Error()
			c.log.Error("permanent venue error, halting ladder",
				zap.Int("level", r.index),
				zap.Error(r.err))
			notes = append(notes, fmt.Sprintf("%s halted: %v", c.cfg.Symbol, r.err))
		default:
			_, _ = c.ladder.Transition(r.index, grid.Event{Kind: grid.EventSubmitFailed}, now)
			c.metrics.OrdersFailed.Inc()
			c.journal.Resolve(r.clientOrderID, "", OutcomeFailed, r.err.Error())
			if exchange.IsMinimumNotMet(r.err) {
				c.log.Warn("venue rejected order below minimum",
					zap.Int("level", r.index),
					zap.Error(r.err))
			} else {
				c.log.Warn("placement failed",
					zap.Int("level", r.index),
					zap.String("kind", string(exchange.Classify(r.err))),
					zap.Error(r.err))
			}
		}
	}
	c.updateGaugesLocked()
	c.mu.Unlock()

	if len(strays) > 0 {
		go c.cancelOrders(context.Background(), strays, "stale generation")
	}
	return notes
}

// rebuildLocked replaces the ladder around the current price with the
// policy-recommended spacing and bumps the generation counter.
func (c *Coordinator) rebuildLocked(price decimal.Decimal, vol float64, now time.Time, notes *[]string) {
	reason := c.rebuildWanted
	spacing := decimal.NewFromFloat(c.policy.Recommend(vol))
	next, err := grid.Build(price, spacing, c.cfg.LevelCount, c.cfg.Cooldown)
	if err != nil {
		c.log.Error("ladder rebuild failed", zap.Error(err))
		c.rebuildWanted = grid.RebuildNone
		return
	}
	next.Generation = c.ladder.Generation + 1
	c.ladder = next
	c.rebuildWanted = grid.RebuildNone
	c.priority = make(map[int]struct{})
	c.mismatchSince = make(map[string]time.Time)
	c.metrics.Rebuilds.Inc()
	spacingF, _ := spacing.Float64()
	c.metrics.SpacingPercent.Set(spacingF * 100)
	c.updateGaugesLocked()
	priceF, _ := price.Float64()
	c.hist.EnqueueRebuild(history.RebuildRecord{
		Time:           now,
		Symbol:         c.cfg.Symbol,
		Reason:         string(reason),
		ReferencePrice: priceF,
		SpacingPercent: spacingF * 100,
		Volatility:     vol,
		Generation:     next.Generation,
	})
	c.log.Info("ladder rebuilt",
		zap.String("reason", string(reason)),
		zap.String("reference", price.String()),
		zap.String("spacing", spacing.String()),
		zap.Uint64("generation", next.Generation))
	*notes = append(*notes, fmt.Sprintf("%s ladder rebuilt (%s): ref %s spacing %s gen %d",
		c.cfg.Symbol, reason, price.String(), spacing.String(), next.Generation))
}

func (c *Coordinator) cancellableRefsLocked() []string {
	refs := make([]string, 0)
	for ref := range c.ladder.ActiveOrders() {
		refs = append(refs, ref)
	}
	return refs
}

// cancelOrders cancels venue orders and applies the Cancelled event
// only for refs the venue confirmed cancelled. An order the venue no
// longer knows may have filled in the race; its level is left alone
// for reconciliation to settle as Filled or Cancelled. Transient
// cancel failures are left for the next tick.
func (c *Coordinator) cancelOrders(ctx context.Context, refs []string, reason string) {
	for _, ref := range refs {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.PlacementTimeout)
		err := c.client.CancelOrder(callCtx, ref)
		cancel()
		if errors.Is(err, exchange.ErrOrderGone) {
			c.log.Info("cancel target already gone, leaving for reconciliation",
				zap.String("ref", ref))
			continue
		}
		if err != nil {
			c.log.Warn("cancel failed", zap.String("ref", ref), zap.Error(err))
			continue
		}
		c.mu.Lock()
		if c.ladder != nil {
			if lv, ok := c.ladder.LevelByRef(ref); ok {
				if _, terr := c.ladder.Transition(lv.Index, grid.Event{Kind: grid.EventCancelled}, time.Now()); terr != nil {
					c.log.Warn("cancel transition failed", zap.Int("level", lv.Index), zap.Error(terr))
				}
			}
		}
		c.mu.Unlock()
		c.journal.ResolveByRef(ref, OutcomeCancelled, reason)
	}
}

// handleFillLocked settles one fill: state transition, trade stats,
// priority for the paired level, metrics and history.
func (c *Coordinator) handleFillLocked(lv *grid.Level, fill exchange.Fill, now time.Time, notes *[]string) {
	index := lv.Index
	side := lv.Side
	levelPrice := lv.Price
	if _, err := c.ladder.Transition(index, grid.Event{Kind: grid.EventFilled}, now); err != nil {
		c.log.Warn("fill transition failed", zap.Int("level", index), zap.Error(err))
		return
	}
	c.tradeCount++
	profit := decimal.Zero
	if side == grid.SideSell {
		if paired, ok := c.ladder.Level(grid.PairedIndex(index)); ok {
			profit = fill.Price.Sub(paired.Price).Mul(fill.Size)
			c.realized = c.realized.Add(profit)
		}
	}
	c.priority[grid.PairedIndex(index)] = struct{}{}
	c.metrics.OrdersFilled.Inc()
	c.journal.ResolveByRef(fill.OrderRef, OutcomeFilled, "")
	priceF, _ := fill.Price.Float64()
	sizeF, _ := fill.Size.Float64()
	profitF, _ := profit.Float64()
	c.hist.EnqueueFill(history.FillRecord{
		Time:       fill.Time,
		Symbol:     c.cfg.Symbol,
		OrderRef:   fill.OrderRef,
		TradeID:    fill.TradeID,
		Side:       string(side),
		LevelIndex: index,
		Price:      priceF,
		Size:       sizeF,
		Profit:     profitF,
	})
	c.log.Info("level filled",
		zap.Int("level", index),
		zap.String("side", string(side)),
		zap.String("level_price", levelPrice.String()),
		zap.String("fill_price", fill.Price.String()),
		zap.String("size", fill.Size.String()),
		zap.Int("trades", c.tradeCount),
		zap.String("realized", c.realized.String()))
	*notes = append(*notes, fmt.Sprintf("%s fill: level %d %s %s @ %s (trades %d, realized %s)",
		c.cfg.Symbol, index, side, fill.Size.String(), fill.Price.String(), c.tradeCount, c.realized.String()))
}

func (c *Coordinator) updateGaugesLocked() {
	if c.ladder == nil {
		return
	}
	c.metrics.ActiveLevels.Set(float64(len(c.ladder.ActiveOrders())))
}

func (c *Coordinator) sendNotes(ctx context.Context, notes []string) {
	for _, note := range notes {
		c.notify.Notify(ctx, "%s", note)
	}
}

// persist writes the ladder snapshot and the attempt journal in one
// batch so they can never diverge on disk.
func (c *Coordinator) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	c.mu.Lock()
	if c.ladder == nil {
		c.mu.Unlock()
		return
	}
	snap := state.LadderSnapshot{
		Grid:           c.ladder.Snapshot(),
		TradeCount:     c.tradeCount,
		RealizedProfit: c.realized.String(),
		UpdatedAtMS:    time.Now().UnixMilli(),
	}
	c.mu.Unlock()

	encodedSnap, err := state.EncodeLadderSnapshot(snap)
	if err != nil {
		c.log.Error("snapshot encode failed", zap.Error(err))
		return
	}
	encodedJournal, err := c.journal.Encode()
	if err != nil {
		c.log.Error("attempt journal encode failed", zap.Error(err))
		return
	}
	if err := c.store.SetBatch(ctx, map[string]string{
		state.LadderSnapshotKey: encodedSnap,
		attemptsKey:             encodedJournal,
	}); err != nil {
		c.log.Error("state persist failed", zap.Error(err))
	}
}

// SetOrderNotional adjusts the per-order notional, used to keep order
// sizing within the configured fraction of the available balance.
func (c *Coordinator) SetOrderNotional(n decimal.Decimal) {
	if n.LessThanOrEqual(decimal.Zero) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.OrderNotional = n
}

// OutOfRange reports whether price has drifted past the outermost
// ladder level. Callers use it to trigger an immediate tick instead of
// waiting for the next scheduled one.
func (c *Coordinator) OutOfRange(price decimal.Decimal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ladder == nil || c.halted || c.paused {
		return false
	}
	low, high := c.ladder.Outermost()
	return price.LessThan(low) || price.GreaterThan(high)
}

// Halted reports whether a permanent venue error stopped the ladder.
func (c *Coordinator) Halted() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted, c.haltReason
}

// Pause stops new placements and rebuilds. Resting orders stay on the
// venue and the reconciler keeps settling their outcomes.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume lifts a pause. A halt caused by a permanent venue error is
// also cleared so the operator can restart after fixing the cause.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.halted = false
	c.haltReason = ""
}

// Status renders a one-message operator summary of the ladder.
func (c *Coordinator) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ladder == nil {
		return fmt.Sprintf("%s: no ladder yet", c.cfg.Symbol)
	}
	var resting, pending, cooling int
	for _, lv := range c.ladder.Levels() {
		switch lv.State {
		case grid.StateResting:
			resting++
		case grid.StatePending:
			pending++
		case grid.StateCooldown:
			cooling++
		}
	}
	state := "running"
	switch {
	case c.halted:
		state = "halted: " + c.haltReason
	case c.paused:
		state = "paused"
	}
	return fmt.Sprintf("%s %s | gen %d ref %s spacing %s | resting %d pending %d cooldown %d | trades %d realized %s",
		c.cfg.Symbol, state,
		c.ladder.Generation, c.ladder.ReferencePrice.String(), c.ladder.Spacing.String(),
		resting, pending, cooling,
		c.tradeCount, c.realized.String())
}

// ActiveOrderCount is consumed by the risk gate's portfolio updates.
func (c *Coordinator) ActiveOrderCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ladder == nil {
		return 0
	}
	return len(c.ladder.ActiveOrders())
}

// Stats returns the running trade statistics.
func (c *Coordinator) Stats() (trades int, realized decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tradeCount, c.realized
}
