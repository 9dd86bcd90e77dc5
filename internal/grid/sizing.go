package grid

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidThresholdTable = errors.New("invalid volatility threshold table")

// Band maps one volatility range [Low, High) to a ladder spacing
// fraction. A High of zero marks the unbounded top band.
type Band struct {
	Low     float64
	High    float64
	Spacing float64
}

// RebuildReason explains why ShouldRebuild fired.
type RebuildReason string

const (
	RebuildNone          RebuildReason = ""
	RebuildSpacingChange RebuildReason = "spacing_change"
	RebuildPriceDrift    RebuildReason = "price_drift"
)

// Policy maps a volatility metric to a ladder spacing and decides when
// the ladder must be rebuilt around a new reference price. Spacing
// changes are rate limited by a volatility-scaled adjustment interval
// so noisy volatility does not thrash the ladder; price drift past the
// outermost level always triggers.
type Policy struct {
	bands        []Band
	hysteresis   float64
	baseInterval time.Duration

	mu           sync.Mutex
	lastSpacingT time.Time
}

// NewPolicy validates the threshold table: bands must be contiguous and
// non-overlapping from zero up to a single unbounded top band, each
// with a positive spacing.
func NewPolicy(bands []Band, hysteresis float64, adjustmentInterval time.Duration) (*Policy, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no bands", ErrInvalidThresholdTable)
	}
	if hysteresis < 0 {
		return nil, fmt.Errorf("%w: hysteresis must be >= 0", ErrInvalidThresholdTable)
	}
	expectedLow := 0.0
	for i, b := range bands {
		if b.Low != expectedLow {
			return nil, fmt.Errorf("%w: band %d starts at %g, want %g", ErrInvalidThresholdTable, i, b.Low, expectedLow)
		}
		last := i == len(bands)-1
		if last {
			if b.High != 0 {
				return nil, fmt.Errorf("%w: top band must be unbounded", ErrInvalidThresholdTable)
			}
		} else {
			if b.High <= b.Low {
				return nil, fmt.Errorf("%w: band %d range [%g, %g) is empty", ErrInvalidThresholdTable, i, b.Low, b.High)
			}
			expectedLow = b.High
		}
		if b.Spacing <= 0 {
			return nil, fmt.Errorf("%w: band %d spacing must be > 0", ErrInvalidThresholdTable, i)
		}
	}
	if adjustmentInterval <= 0 {
		adjustmentInterval = time.Hour
	}
	return &Policy{bands: bands, hysteresis: hysteresis, baseInterval: adjustmentInterval}, nil
}

// Recommend returns the spacing fraction for the given volatility.
func (p *Policy) Recommend(volatility float64) float64 {
	for i, b := range p.bands {
		if i == len(p.bands)-1 {
			return b.Spacing
		}
		if volatility >= b.Low && volatility < b.High {
			return b.Spacing
		}
	}
	return p.bands[len(p.bands)-1].Spacing
}

// ShouldRebuild reports whether the ladder must be rebuilt, and why.
func (p *Policy) ShouldRebuild(l *Ladder, currentPrice decimal.Decimal, volatility float64, now time.Time) (bool, RebuildReason) {
	low, high := l.Outermost()
	if currentPrice.LessThan(low) || currentPrice.GreaterThan(high) {
		return true, RebuildPriceDrift
	}
	recommended := p.Recommend(volatility)
	current, _ := l.Spacing.Float64()
	if diff := recommended - current; diff > p.hysteresis || -diff > p.hysteresis {
		p.mu.Lock()
		defer p.mu.Unlock()
		if now.Sub(p.lastSpacingT) < p.interval(volatility) {
			return false, RebuildNone
		}
		p.lastSpacingT = now
		return true, RebuildSpacingChange
	}
	return false, RebuildNone
}

// interval scales the base adjustment interval down as volatility
// rises, mirroring how fast the ladder must react.
func (p *Policy) interval(volatility float64) time.Duration {
	switch {
	case volatility > 0.8:
		return p.baseInterval / 4
	case volatility > 0.4:
		return p.baseInterval / 2
	case volatility > 0.2:
		return p.baseInterval * 3 / 4
	default:
		return p.baseInterval
	}
}
