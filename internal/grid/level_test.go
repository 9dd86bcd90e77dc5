package grid

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testLadder(t *testing.T) *Ladder {
	t.Helper()
	l, err := Build(decimal.NewFromInt(100), decimal.NewFromFloat(0.01), 3, 5*time.Minute)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return l
}

func TestLevelLifecycle(t *testing.T) {
	l := testLadder(t)
	now := time.Now()

	lv, err := l.Transition(-1, Event{Kind: EventAttemptSubmitted}, now)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if lv.State != StatePending {
		t.Fatalf("expected %s, got %s", StatePending, lv.State)
	}
	lv, err = l.Transition(-1, Event{Kind: EventSubmitSucceeded, OrderRef: "oid-1"}, now)
	if err != nil {
		t.Fatalf("submit success failed: %v", err)
	}
	if lv.State != StateResting || lv.OrderRef != "oid-1" {
		t.Fatalf("unexpected level after success: %+v", lv)
	}
	lv, err = l.Transition(-1, Event{Kind: EventFilled}, now)
	if err != nil {
		t.Fatalf("fill failed: %v", err)
	}
	if lv.State != StateIdle || lv.OrderRef != "" {
		t.Fatalf("unexpected level after fill: %+v", lv)
	}
}

func TestLevelSubmitFailureCooldown(t *testing.T) {
	l := testLadder(t)
	now := time.Now()

	if _, err := l.Transition(1, Event{Kind: EventAttemptSubmitted}, now); err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	lv, err := l.Transition(1, Event{Kind: EventSubmitFailed}, now)
	if err != nil {
		t.Fatalf("submit failure failed: %v", err)
	}
	if lv.State != StateCooldown {
		t.Fatalf("expected %s, got %s", StateCooldown, lv.State)
	}
	if !lv.CooldownUntil.Equal(now.Add(5 * time.Minute)) {
		t.Fatalf("unexpected cooldown deadline: %v", lv.CooldownUntil)
	}

	// Resubmission before cooldown expiry is rejected.
	if _, err := l.Transition(1, Event{Kind: EventAttemptSubmitted}, now.Add(time.Minute)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// After expiry the level accepts a new attempt.
	if _, err := l.Transition(1, Event{Kind: EventAttemptSubmitted}, now.Add(5*time.Minute)); err != nil {
		t.Fatalf("attempt after cooldown failed: %v", err)
	}
}

func TestLevelIllegalEvents(t *testing.T) {
	l := testLadder(t)
	now := time.Now()

	cases := []struct {
		name  string
		setup []EventKind
		event EventKind
	}{
		{"fill on idle", nil, EventFilled},
		{"cancel on idle", nil, EventCancelled},
		{"success on idle", nil, EventSubmitSucceeded},
		{"double attempt", []EventKind{EventAttemptSubmitted}, EventAttemptSubmitted},
		{"attempt on resting", []EventKind{EventAttemptSubmitted, EventSubmitSucceeded}, EventAttemptSubmitted},
		{"failure on resting", []EventKind{EventAttemptSubmitted, EventSubmitSucceeded}, EventSubmitFailed},
	}
	for _, tc := range cases {
		lv := &Level{Index: -1, Side: SideBuy, State: StateIdle}
		for _, kind := range tc.setup {
			if err := lv.apply(Event{Kind: kind, OrderRef: "oid"}, now, time.Minute); err != nil {
				t.Fatalf("%s: setup event %s failed: %v", tc.name, kind, err)
			}
		}
		if err := lv.apply(Event{Kind: tc.event, OrderRef: "oid"}, now, time.Minute); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", tc.name, err)
		}
	}

	if _, err := l.Transition(0, Event{Kind: EventAttemptSubmitted}, now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reference level traded: %v", err)
	}
	if _, err := l.Transition(99, Event{Kind: EventAttemptSubmitted}, now); !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel, got %v", err)
	}
}

// Randomized event sequences must never leave a level holding more
// than one in-flight or resting order, and every accepted event must
// land in a legal state.
func TestLevelFuzzSingleActiveOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	kinds := []EventKind{
		EventAttemptSubmitted, EventSubmitSucceeded, EventSubmitFailed,
		EventFilled, EventCancelled,
	}
	for run := 0; run < 200; run++ {
		lv := &Level{Index: 1, Side: SideSell, State: StateIdle}
		now := time.Unix(1_700_000_000, 0)
		active := 0
		for step := 0; step < 100; step++ {
			kind := kinds[rng.Intn(len(kinds))]
			now = now.Add(time.Duration(rng.Intn(120)) * time.Second)
			before := lv.State
			err := lv.apply(Event{Kind: kind, OrderRef: "oid"}, now, time.Minute)
			if err != nil {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("run %d step %d: unexpected error %v", run, step, err)
				}
				if lv.State != before {
					t.Fatalf("run %d step %d: rejected event mutated state %s -> %s", run, step, before, lv.State)
				}
				continue
			}
			switch lv.State {
			case StatePending, StateResting:
				active = 1
			default:
				active = 0
			}
			if active > 1 {
				t.Fatalf("run %d step %d: more than one active order", run, step)
			}
			if lv.State == StateResting && lv.OrderRef == "" {
				t.Fatalf("run %d step %d: resting without order ref", run, step)
			}
			if (lv.State == StateIdle || lv.State == StateCooldown) && lv.OrderRef != "" {
				t.Fatalf("run %d step %d: inactive level kept order ref", run, step)
			}
		}
	}
}
