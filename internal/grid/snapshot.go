package grid

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type LevelSnapshot struct {
	Index           int    `json:"index"`
	Price           string `json:"price"`
	Side            string `json:"side"`
	State           string `json:"state"`
	OrderRef        string `json:"order_ref,omitempty"`
	LastAttemptAtMS int64  `json:"last_attempt_at_ms,omitempty"`
	CooldownUntilMS int64  `json:"cooldown_until_ms,omitempty"`
}

type Snapshot struct {
	ReferencePrice string          `json:"reference_price"`
	Spacing        string          `json:"spacing"`
	Generation     uint64          `json:"generation"`
	CooldownMS     int64           `json:"cooldown_ms"`
	Levels         []LevelSnapshot `json:"levels"`
}

// Snapshot captures every level's state, order reference and cooldown
// plus the ladder's reference price, spacing and generation counter,
// sufficient to resume after a restart.
func (l *Ladder) Snapshot() Snapshot {
	snap := Snapshot{
		ReferencePrice: l.ReferencePrice.String(),
		Spacing:        l.Spacing.String(),
		Generation:     l.Generation,
		CooldownMS:     l.Cooldown.Milliseconds(),
		Levels:         make([]LevelSnapshot, 0, len(l.indices)),
	}
	for _, i := range l.indices {
		lv := l.levels[i]
		ls := LevelSnapshot{
			Index:    lv.Index,
			Price:    lv.Price.String(),
			Side:     string(lv.Side),
			State:    string(lv.State),
			OrderRef: lv.OrderRef,
		}
		if !lv.LastAttemptAt.IsZero() {
			ls.LastAttemptAtMS = lv.LastAttemptAt.UnixMilli()
		}
		if !lv.CooldownUntil.IsZero() {
			ls.CooldownUntilMS = lv.CooldownUntil.UnixMilli()
		}
		snap.Levels = append(snap.Levels, ls)
	}
	return snap
}

// Restore rebuilds a ladder from a snapshot, then overlays the
// persisted per-level lifecycle state.
func Restore(snap Snapshot) (*Ladder, error) {
	reference, err := decimal.NewFromString(snap.ReferencePrice)
	if err != nil {
		return nil, fmt.Errorf("snapshot reference price: %w", err)
	}
	spacing, err := decimal.NewFromString(snap.Spacing)
	if err != nil {
		return nil, fmt.Errorf("snapshot spacing: %w", err)
	}
	if len(snap.Levels) == 0 || len(snap.Levels)%2 != 1 {
		return nil, fmt.Errorf("snapshot has %d levels, want odd count", len(snap.Levels))
	}
	count := (len(snap.Levels) - 1) / 2
	l, err := Build(reference, spacing, count, time.Duration(snap.CooldownMS)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	l.Generation = snap.Generation
	for _, ls := range snap.Levels {
		lv, ok := l.levels[ls.Index]
		if !ok {
			return nil, fmt.Errorf("%w: snapshot index %d", ErrUnknownLevel, ls.Index)
		}
		switch State(ls.State) {
		case StateIdle, StatePending, StateResting, StateCooldown:
			lv.State = State(ls.State)
		default:
			return nil, fmt.Errorf("snapshot level %d has unknown state %q", ls.Index, ls.State)
		}
		lv.OrderRef = ls.OrderRef
		if ls.LastAttemptAtMS > 0 {
			lv.LastAttemptAt = time.UnixMilli(ls.LastAttemptAtMS)
		}
		if ls.CooldownUntilMS > 0 {
			lv.CooldownUntil = time.UnixMilli(ls.CooldownUntilMS)
		}
	}
	return l, nil
}
