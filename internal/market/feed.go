package market

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// hoursPerYear annualizes the return stddev assuming hourly samples.
const hoursPerYear = 24 * 365

// Feed holds the latest observed price and a bounded history used to
// derive the volatility metric consumed by the sizing policy.
type Feed struct {
	mu      sync.Mutex
	window  int
	history []float64
	max     int
	last    decimal.Decimal
	lastAt  time.Time
}

func NewFeed(window, maxHistory int) *Feed {
	if window < 2 {
		window = 2
	}
	if maxHistory < window {
		maxHistory = window
	}
	return &Feed{window: window, max: maxHistory}
}

func (f *Feed) Record(price decimal.Decimal, at time.Time) {
	if price.LessThanOrEqual(decimal.Zero) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = price
	f.lastAt = at
	v, _ := price.Float64()
	f.history = append(f.history, v)
	if len(f.history) > f.max {
		f.history = f.history[len(f.history)-f.max:]
	}
}

// Last returns the most recent price and its observation time.
func (f *Feed) Last() (decimal.Decimal, time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastAt.IsZero() {
		return decimal.Decimal{}, time.Time{}, false
	}
	return f.last, f.lastAt, true
}

// Volatility is the annualized standard deviation of simple returns
// over the configured window. Returns zero until two samples exist.
func (f *Feed) Volatility() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	prices := f.history
	if len(prices) > f.window {
		prices = prices[len(prices)-f.window:]
	}
	if len(prices) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)))
	return std * math.Sqrt(hoursPerYear)
}
