package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/internal/config"
	"gridbot/internal/exchange"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Gate authorizes each order placement against the configured limits.
// It works entirely from portfolio metrics pushed by the engine, so
// Authorize never blocks on I/O; an expired context is treated as a
// denial.
type Gate struct {
	cfg config.RiskConfig

	mu           sync.RWMutex
	equity       float64
	peakEquity   float64
	dayStart     float64
	dayStartedAt time.Time
	baseExposure float64
	openOrders   int
}

func NewGate(cfg config.RiskConfig) *Gate {
	return &Gate{cfg: cfg}
}

// UpdatePortfolio feeds the gate the latest equity and base-asset
// exposure, both in quote terms, plus the open order count.
func (g *Gate) UpdatePortfolio(equity, baseExposure float64, openOrders int, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.equity = equity
	g.baseExposure = baseExposure
	g.openOrders = openOrders
	if equity > g.peakEquity {
		g.peakEquity = equity
	}
	if g.dayStartedAt.IsZero() || now.Sub(g.dayStartedAt) >= 24*time.Hour {
		g.dayStart = equity
		g.dayStartedAt = now
	}
}

// Authorize is consulted before every submission. A denial leaves the
// level untouched; it is reconsidered on the next tick.
func (g *Gate) Authorize(ctx context.Context, side exchange.Side, price, size decimal.Decimal) Decision {
	if err := ctx.Err(); err != nil {
		return deny(fmt.Sprintf("authorization context: %v", err))
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.cfg.MaxOpenOrders > 0 && g.openOrders >= g.cfg.MaxOpenOrders {
		return deny(fmt.Sprintf("open orders %d at limit %d", g.openOrders, g.cfg.MaxOpenOrders))
	}
	if g.peakEquity > 0 {
		drawdown := (g.equity - g.peakEquity) / g.peakEquity
		if drawdown < g.cfg.MaxDrawdown {
			return deny(fmt.Sprintf("drawdown %.2f%% beyond limit %.2f%%", drawdown*100, g.cfg.MaxDrawdown*100))
		}
	}
	if g.dayStart > 0 {
		dailyPnL := (g.equity - g.dayStart) / g.dayStart
		if dailyPnL < g.cfg.DailyLossLimit {
			return deny(fmt.Sprintf("daily pnl %.2f%% beyond limit %.2f%%", dailyPnL*100, g.cfg.DailyLossLimit*100))
		}
	}
	if g.equity > 0 {
		notional, _ := price.Mul(size).Float64()
		switch side {
		case exchange.SideBuy:
			after := (g.baseExposure + notional) / g.equity
			if g.cfg.MaxPositionRatio > 0 && after > g.cfg.MaxPositionRatio {
				return deny(fmt.Sprintf("position ratio %.2f would exceed %.2f", after, g.cfg.MaxPositionRatio))
			}
		case exchange.SideSell:
			after := (g.baseExposure - notional) / g.equity
			if after < g.cfg.MinPositionRatio {
				return deny(fmt.Sprintf("position ratio %.2f would fall below %.2f", after, g.cfg.MinPositionRatio))
			}
		}
	}
	return allow()
}
