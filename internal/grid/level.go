package grid

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type State string

const (
	StateIdle     State = "IDLE"
	StatePending  State = "PENDING"
	StateResting  State = "RESTING"
	StateCooldown State = "COOLDOWN"
)

type EventKind string

const (
	EventAttemptSubmitted EventKind = "ATTEMPT_SUBMITTED"
	EventSubmitSucceeded  EventKind = "SUBMIT_SUCCEEDED"
	EventSubmitFailed     EventKind = "SUBMIT_FAILED"
	EventFilled           EventKind = "FILLED"
	EventCancelled        EventKind = "CANCELLED"
)

type Event struct {
	Kind     EventKind
	OrderRef string
}

var ErrInvalidTransition = errors.New("invalid level transition")

// Level is one rung of the ladder. Index 0 is the reference and holds
// no order; negative indices are buy levels, positive are sell levels.
type Level struct {
	Index         int
	Price         decimal.Decimal
	Side          Side
	State         State
	OrderRef      string
	LastAttemptAt time.Time
	CooldownUntil time.Time
}

// AcceptsAttempt reports whether the level may receive a new placement
// attempt at the given time. Idle always qualifies; Cooldown qualifies
// only once cooldownUntil has elapsed.
func (lv *Level) AcceptsAttempt(now time.Time) bool {
	switch lv.State {
	case StateIdle:
		return true
	case StateCooldown:
		return !now.Before(lv.CooldownUntil)
	default:
		return false
	}
}

// PriceEligible reports whether the level geometry still permits a
// resting order: a buy must rest below the market, a sell above it. A
// level the market has crossed fails this check and is left for the
// next rebuild.
func (lv *Level) PriceEligible(current decimal.Decimal) bool {
	switch lv.Side {
	case SideBuy:
		return current.GreaterThan(lv.Price)
	case SideSell:
		return current.LessThan(lv.Price)
	default:
		return false
	}
}

func (lv *Level) hasActiveOrder() bool {
	return lv.State == StatePending || lv.State == StateResting
}

func (lv *Level) apply(ev Event, now time.Time, cooldown time.Duration) error {
	switch ev.Kind {
	case EventAttemptSubmitted:
		if !lv.AcceptsAttempt(now) {
			return transitionErr(lv, ev)
		}
		lv.State = StatePending
		lv.OrderRef = ""
		lv.LastAttemptAt = now
		lv.CooldownUntil = time.Time{}
	case EventSubmitSucceeded:
		if lv.State != StatePending {
			return transitionErr(lv, ev)
		}
		if ev.OrderRef == "" {
			return fmt.Errorf("%w: submit success without order ref on level %d", ErrInvalidTransition, lv.Index)
		}
		lv.State = StateResting
		lv.OrderRef = ev.OrderRef
	case EventSubmitFailed:
		if lv.State != StatePending {
			return transitionErr(lv, ev)
		}
		lv.State = StateCooldown
		lv.OrderRef = ""
		lv.CooldownUntil = now.Add(cooldown)
	case EventFilled:
		// Pending is allowed here: a submit whose response timed out can
		// be discovered filled by reconciliation.
		if lv.State != StateResting && lv.State != StatePending {
			return transitionErr(lv, ev)
		}
		lv.State = StateIdle
		lv.OrderRef = ""
	case EventCancelled:
		if lv.State != StateResting && lv.State != StatePending {
			return transitionErr(lv, ev)
		}
		lv.State = StateIdle
		lv.OrderRef = ""
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev.Kind)
	}
	return nil
}

func transitionErr(lv *Level, ev Event) error {
	return fmt.Errorf("%w: %s on level %d in state %s", ErrInvalidTransition, ev.Kind, lv.Index, lv.State)
}

func sideForIndex(index int) Side {
	if index < 0 {
		return SideBuy
	}
	return SideSell
}
