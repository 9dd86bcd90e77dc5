package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridbot/internal/alerts"
	"gridbot/internal/config"
	"gridbot/internal/engine"
	"gridbot/internal/exchange"
	"gridbot/internal/grid"
	"gridbot/internal/history"
	"gridbot/internal/market"
	"gridbot/internal/metrics"
	"gridbot/internal/risk"
	"gridbot/internal/state/sqlite"
)

const (
	firstPriceTimeout = 30 * time.Second
	portfolioInterval = 30 * time.Second
)

type App struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *sqlite.Store
	client *exchange.BinanceClient
	stream *exchange.TickerStream
	feed   *market.Feed
	gate   *risk.Gate
	coord  *engine.Coordinator
	recon  *engine.Reconciler
	prom   *metrics.Prometheus
	alerts *alerts.Telegram
	hist   *history.Writer
	nudge  chan struct{}
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.SQLitePath), 0o755); err != nil {
		return nil, err
	}
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(os.Getenv("BINANCE_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("BINANCE_API_KEY is required")
	}
	apiSecret := strings.TrimSpace(os.Getenv("BINANCE_API_SECRET"))
	if apiSecret == "" {
		return nil, errors.New("BINANCE_API_SECRET is required")
	}
	client := exchange.NewBinance(
		cfg.Exchange.BaseURL,
		cfg.Trading.Symbol,
		cfg.Trading.BaseAsset,
		cfg.Trading.QuoteAsset,
		apiKey,
		apiSecret,
		cfg.Exchange.Timeout,
		log,
	)

	feed := market.NewFeed(cfg.Grid.VolatilityWindow, cfg.Grid.PriceHistoryLimit)
	stream := exchange.NewTickerStream(cfg.WS.URL, cfg.Trading.Symbol, cfg.WS.ReconnectDelay, cfg.WS.PingInterval, log)
	gate := risk.NewGate(cfg.Risk)

	policy, err := grid.NewPolicy(policyBands(cfg.Grid.Bands), cfg.Grid.HysteresisPercent/100, cfg.Grid.AdjustmentInterval)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	var prom *metrics.Prometheus
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		m = prom.Metrics
	} else {
		m = metrics.NewNoop()
	}
	alertsClient := alerts.NewTelegram(cfg.Telegram, log)
	hist, err := history.New(cfg.History, log)
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		Symbol:           cfg.Trading.Symbol,
		OrderNotional:    decimal.NewFromFloat(cfg.Trading.OrderNotional),
		MinNotional:      decimal.NewFromFloat(cfg.Trading.MinNotional),
		SizePrecision:    cfg.Trading.SizePrecision,
		LevelCount:       cfg.Grid.LevelCount,
		Cooldown:         cfg.Grid.Cooldown,
		AuthorizeTimeout: cfg.Risk.AuthorizeTimeout,
		PlacementTimeout: cfg.Trading.PlacementTimeout,
		MaxInFlight:      cfg.Trading.MaxInFlight,
		MismatchGrace:    cfg.Trading.MismatchGrace,
		InitialSpacing:   decimal.NewFromFloat(cfg.Grid.InitialSpacingPercent / 100),
		ReferencePrice:   decimal.NewFromFloat(cfg.Grid.ReferencePrice),
	}
	coord := engine.NewCoordinator(engineCfg, client, feed, policy, gate, store, m, alertsClient, hist, log)
	recon := engine.NewReconciler(coord, client, cfg.Trading.ReconcileInterval, cfg.Trading.FillLookback, log)

	return &App{
		cfg:    cfg,
		log:    log,
		store:  store,
		client: client,
		stream: stream,
		feed:   feed,
		gate:   gate,
		coord:  coord,
		recon:  recon,
		prom:   prom,
		alerts: alertsClient,
		hist:   hist,
		nudge:  make(chan struct{}, 1),
	}, nil
}

// policyBands converts the configured volatility boundaries, expressed
// in percent spacing, into the contiguous fraction bands the policy
// expects.
func policyBands(bands []config.Band) []grid.Band {
	out := make([]grid.Band, 0, len(bands))
	low := 0.0
	for _, b := range bands {
		out = append(out, grid.Band{Low: low, High: b.UpToVolatility, Spacing: b.SpacingPercent / 100})
		low = b.UpToVolatility
	}
	return out
}

func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()
	defer a.hist.Close()
	a.hist.Start(ctx)

	go func() {
		if err := a.stream.Run(ctx, a.onPrice); err != nil && ctx.Err() == nil {
			a.log.Error("ticker stream stopped", zap.Error(err))
		}
	}()

	if a.cfg.Grid.ReferencePrice <= 0 {
		if err := a.waitForPrice(ctx); err != nil {
			return err
		}
	}

	a.updatePortfolio(ctx)
	if err := a.coord.Bootstrap(ctx, time.Now()); err != nil {
		return err
	}
	// One reconciliation pass before trading resumes so restored levels
	// reflect what actually happened on the venue while we were down.
	if err := a.recon.RunOnce(ctx); err != nil {
		a.log.Warn("initial reconciliation failed", zap.Error(err))
	}

	if a.prom != nil {
		go a.serveMetrics(ctx)
	}
	go a.recon.Run(ctx)
	go a.portfolioLoop(ctx)
	if a.alerts.Enabled() {
		op := &operator{coord: a.coord, alerts: a.alerts, log: a.log}
		go op.run(ctx)
	}

	a.log.Info("grid engine running",
		zap.String("symbol", a.cfg.Trading.Symbol),
		zap.Duration("tick", a.cfg.Trading.TickInterval))
	ticker := time.NewTicker(a.cfg.Trading.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.coord.Tick(ctx, time.Now()); err != nil {
				a.log.Error("tick failed", zap.Error(err))
			}
		case <-a.nudge:
			// Price left the ladder's range; react now rather than on
			// the next scheduled tick.
			if err := a.coord.Tick(ctx, time.Now()); err != nil {
				a.log.Error("tick failed", zap.Error(err))
			}
		}
	}
}

func (a *App) onPrice(price string, at time.Time) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		a.log.Warn("bad ticker price", zap.String("price", price))
		return
	}
	a.feed.Record(p, at)
	if a.coord.OutOfRange(p) {
		select {
		case a.nudge <- struct{}{}:
		default:
		}
	}
}

func (a *App) waitForPrice(ctx context.Context) error {
	deadline := time.Now().Add(firstPriceTimeout)
	for {
		if _, _, ok := a.feed.Last(); ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("no market data: ticker stream produced no price")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// updatePortfolio refreshes the risk gate's view of equity and
// exposure from venue balances.
func (a *App) updatePortfolio(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Exchange.Timeout)
	defer cancel()
	balances, err := a.client.Balances(callCtx)
	if err != nil {
		a.log.Warn("balance fetch failed", zap.Error(err))
		return
	}
	price, _, ok := a.feed.Last()
	if !ok {
		return
	}
	exposure, _ := balances.Base.Mul(price).Float64()
	quote, _ := balances.Quote.Float64()
	a.gate.UpdatePortfolio(quote+exposure, exposure, a.coord.ActiveOrderCount(), time.Now())

	// Keep the per-order notional within the configured fraction of the
	// free quote balance.
	configured := decimal.NewFromFloat(a.cfg.Trading.OrderNotional)
	limit := balances.Quote.Mul(decimal.NewFromFloat(a.cfg.Trading.BalanceFraction))
	if limit.GreaterThan(decimal.Zero) && limit.LessThan(configured) {
		a.coord.SetOrderNotional(limit)
	} else {
		a.coord.SetOrderNotional(configured)
	}
}

func (a *App) portfolioLoop(ctx context.Context) {
	ticker := time.NewTicker(portfolioInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.updatePortfolio(ctx)
		}
	}
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.prom.Handler())
	server := &http.Server{Addr: a.cfg.Metrics.Listen, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.log.Error("metrics server failed", zap.Error(err))
	}
}
