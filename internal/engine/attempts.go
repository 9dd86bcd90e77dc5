package engine

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gridbot/internal/state"
)

const (
	attemptsKey        = "grid:order_attempts"
	defaultAttemptSize = 512
)

// OrderAttempt is one entry in the placement journal: every submission
// the coordinator ever made, with its outcome once known. The journal
// is what lets an operator audit why a level sits in cooldown and lets
// reconciliation after a restart tell its own orders from strangers.
type OrderAttempt struct {
	ClientOrderID string    `msgpack:"client_order_id"`
	OrderRef      string    `msgpack:"order_ref,omitempty"`
	LevelIndex    int       `msgpack:"level_index"`
	Side          string    `msgpack:"side"`
	Price         string    `msgpack:"price"`
	Size          string    `msgpack:"size"`
	Generation    uint64    `msgpack:"generation"`
	Outcome       string    `msgpack:"outcome"`
	Reason        string    `msgpack:"reason,omitempty"`
	At            time.Time `msgpack:"at"`
}

// Attempt outcomes.
const (
	OutcomePending   = "pending"
	OutcomeResting   = "resting"
	OutcomeFailed    = "failed"
	OutcomeFilled    = "filled"
	OutcomeCancelled = "cancelled"
)

// AttemptJournal keeps a bounded window of order attempts, persisted
// through the state store as a base64 msgpack blob.
type AttemptJournal struct {
	mu       sync.Mutex
	attempts []OrderAttempt
	max      int
}

func NewAttemptJournal(max int) *AttemptJournal {
	if max <= 0 {
		max = defaultAttemptSize
	}
	return &AttemptJournal{max: max}
}

func (j *AttemptJournal) Record(attempt OrderAttempt) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = append(j.attempts, attempt)
	if len(j.attempts) > j.max {
		j.attempts = j.attempts[len(j.attempts)-j.max:]
	}
}

// Resolve updates the newest attempt matching the client order ID.
func (j *AttemptJournal) Resolve(clientOrderID, orderRef, outcome, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.attempts) - 1; i >= 0; i-- {
		if j.attempts[i].ClientOrderID == clientOrderID {
			if orderRef != "" {
				j.attempts[i].OrderRef = orderRef
			}
			j.attempts[i].Outcome = outcome
			j.attempts[i].Reason = reason
			return
		}
	}
}

// ResolveByLevel updates the newest unresolved attempt for a level.
// Used when reconciliation settles a submission whose response never
// arrived, so no venue ref was ever recorded.
func (j *AttemptJournal) ResolveByLevel(levelIndex int, orderRef, outcome, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.attempts) - 1; i >= 0; i-- {
		if j.attempts[i].LevelIndex == levelIndex && j.attempts[i].Outcome == OutcomePending {
			if orderRef != "" {
				j.attempts[i].OrderRef = orderRef
			}
			j.attempts[i].Outcome = outcome
			j.attempts[i].Reason = reason
			return
		}
	}
}

// ResolveByRef updates the newest attempt holding the venue order ref.
// Used by reconciliation, which only knows venue identifiers.
func (j *AttemptJournal) ResolveByRef(orderRef, outcome, reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.attempts) - 1; i >= 0; i-- {
		if j.attempts[i].OrderRef == orderRef {
			j.attempts[i].Outcome = outcome
			j.attempts[i].Reason = reason
			return
		}
	}
}

func (j *AttemptJournal) Attempts() []OrderAttempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]OrderAttempt, len(j.attempts))
	copy(out, j.attempts)
	return out
}

// Encode serializes the journal for inclusion in a batch write.
func (j *AttemptJournal) Encode() (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	payload, err := msgpack.Marshal(j.attempts)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

func (j *AttemptJournal) Save(ctx context.Context, store state.Store) error {
	if store == nil {
		return nil
	}
	encoded, err := j.Encode()
	if err != nil {
		return err
	}
	return store.Set(ctx, attemptsKey, encoded)
}

func (j *AttemptJournal) Load(ctx context.Context, store state.Store) error {
	if store == nil {
		return nil
	}
	raw, ok, err := store.Get(ctx, attemptsKey)
	if err != nil || !ok || raw == "" {
		return err
	}
	payload, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return err
	}
	var attempts []OrderAttempt
	if err := msgpack.Unmarshal(payload, &attempts); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = attempts
	if len(j.attempts) > j.max {
		j.attempts = j.attempts[len(j.attempts)-j.max:]
	}
	return nil
}
