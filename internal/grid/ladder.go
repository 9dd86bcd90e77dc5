package grid

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSpacing = errors.New("invalid ladder spacing")
	ErrUnknownLevel   = errors.New("unknown ladder level")
)

var one = decimal.NewFromInt(1)

// Ladder owns the full set of price levels around a reference price.
// It is pure data plus invariants; all mutation goes through Transition.
type Ladder struct {
	ReferencePrice decimal.Decimal
	Spacing        decimal.Decimal // per-level distance as a fraction
	Generation     uint64
	Cooldown       time.Duration

	levels  map[int]*Level
	indices []int
}

// Build constructs a ladder of levels -count..+count around the
// reference price with price = reference * (1 + index*spacing).
// Index 0 exists but is never traded.
func Build(reference, spacing decimal.Decimal, count int, cooldown time.Duration) (*Ladder, error) {
	if spacing.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: spacing %s must be > 0", ErrInvalidSpacing, spacing)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: level count %d must be > 0", ErrInvalidSpacing, count)
	}
	if reference.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: reference price %s must be > 0", ErrInvalidSpacing, reference)
	}
	// The lowest buy level must keep a positive price.
	if spacing.Mul(decimal.NewFromInt(int64(count))).GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("%w: spacing %s over %d levels reaches zero", ErrInvalidSpacing, spacing, count)
	}

	l := &Ladder{
		ReferencePrice: reference,
		Spacing:        spacing,
		Cooldown:       cooldown,
		levels:         make(map[int]*Level, 2*count+1),
		indices:        make([]int, 0, 2*count+1),
	}
	for i := -count; i <= count; i++ {
		price := reference.Mul(one.Add(spacing.Mul(decimal.NewFromInt(int64(i)))))
		lv := &Level{
			Index: i,
			Price: price,
			Side:  sideForIndex(i),
			State: StateIdle,
		}
		if i < 0 && !price.LessThan(reference) {
			return nil, fmt.Errorf("%w: buy level %d price %s not below reference %s", ErrInvalidSpacing, i, price, reference)
		}
		if i > 0 && !price.GreaterThan(reference) {
			return nil, fmt.Errorf("%w: sell level %d price %s not above reference %s", ErrInvalidSpacing, i, price, reference)
		}
		l.levels[i] = lv
		l.indices = append(l.indices, i)
	}
	sort.Ints(l.indices)
	return l, nil
}

// Transition applies one lifecycle event to the level at index and
// returns the updated level. The zero index never trades.
func (l *Ladder) Transition(index int, ev Event, now time.Time) (*Level, error) {
	lv, ok := l.levels[index]
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrUnknownLevel, index)
	}
	if index == 0 {
		return nil, fmt.Errorf("%w: reference level is never traded", ErrInvalidTransition)
	}
	if err := lv.apply(ev, now, l.Cooldown); err != nil {
		return nil, err
	}
	return lv, nil
}

// Level returns the level at index.
func (l *Ladder) Level(index int) (*Level, bool) {
	lv, ok := l.levels[index]
	return lv, ok
}

// Levels returns all levels in ascending index order, reference
// included.
func (l *Ladder) Levels() []*Level {
	out := make([]*Level, 0, len(l.indices))
	for _, i := range l.indices {
		out = append(out, l.levels[i])
	}
	return out
}

// CenterOut returns tradable levels ordered by distance from the
// reference, buys before sells at equal distance.
func (l *Ladder) CenterOut() []*Level {
	out := make([]*Level, 0, len(l.indices)-1)
	for _, i := range l.indices {
		if i == 0 {
			continue
		}
		out = append(out, l.levels[i])
	}
	sort.SliceStable(out, func(a, b int) bool {
		da, db := abs(out[a].Index), abs(out[b].Index)
		if da != db {
			return da < db
		}
		return out[a].Index < out[b].Index
	})
	return out
}

// ActiveOrders returns the order refs currently attached to Pending or
// Resting levels, keyed by ref.
func (l *Ladder) ActiveOrders() map[string]*Level {
	out := make(map[string]*Level)
	for _, i := range l.indices {
		lv := l.levels[i]
		if lv.hasActiveOrder() && lv.OrderRef != "" {
			out[lv.OrderRef] = lv
		}
	}
	return out
}

// HasActiveOrders reports whether any level holds a Pending or Resting
// order, including Pending levels whose ref is still unknown.
func (l *Ladder) HasActiveOrders() bool {
	for _, i := range l.indices {
		if l.levels[i].hasActiveOrder() {
			return true
		}
	}
	return false
}

// LevelByRef finds the level holding the given order ref.
func (l *Ladder) LevelByRef(ref string) (*Level, bool) {
	for _, i := range l.indices {
		if l.levels[i].OrderRef == ref {
			return l.levels[i], true
		}
	}
	return nil, false
}

// Outermost returns the lowest buy and highest sell level prices.
func (l *Ladder) Outermost() (low, high decimal.Decimal) {
	return l.levels[l.indices[0]].Price, l.levels[l.indices[len(l.indices)-1]].Price
}

// PairedIndex maps a filled level to the opposite-side level one step
// toward the reference, skipping the untraded zero index. A filled buy
// seeds the sell leg of the round trip and vice versa.
func PairedIndex(index int) int {
	var paired int
	if index < 0 {
		paired = index + 1
		if paired == 0 {
			paired = 1
		}
	} else {
		paired = index - 1
		if paired == 0 {
			paired = -1
		}
	}
	return paired
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
