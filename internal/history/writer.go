package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"gridbot/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

// FillRecord is one executed grid order, written for later analysis.
type FillRecord struct {
	Time       time.Time
	Symbol     string
	OrderRef   string
	TradeID    string
	Side       string
	LevelIndex int
	Price      float64
	Size       float64
	Profit     float64
}

// RebuildRecord captures each ladder rebuild with its trigger.
type RebuildRecord struct {
	Time           time.Time
	Symbol         string
	Reason         string
	ReferencePrice float64
	SpacingPercent float64
	Volatility     float64
	Generation     uint64
}

// Writer persists fills and rebuilds to Postgres asynchronously. A nil
// Writer is valid and drops everything, so call sites never branch on
// whether history is enabled.
type Writer struct {
	db          *sql.DB
	log         *zap.Logger
	schema      string
	fills       chan FillRecord
	rebuilds    chan RebuildRecord
	started     atomic.Bool
	dropFill    atomic.Uint64
	dropRebuild atomic.Uint64
}

func New(cfg config.HistoryConfig, log *zap.Logger) (*Writer, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}
	schema := strings.TrimSpace(cfg.Schema)
	if schema == "" {
		schema = "public"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	writer := &Writer{
		db:       db,
		log:      log,
		schema:   schema,
		fills:    make(chan FillRecord, queueSize),
		rebuilds: make(chan RebuildRecord, queueSize),
	}
	if err := writer.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return writer, nil
}

func (w *Writer) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) EnqueueFill(fill FillRecord) {
	if w == nil {
		return
	}
	select {
	case w.fills <- fill:
		return
	default:
		if w.dropFill.Add(1) == 1 && w.log != nil {
			w.log.Warn("history fill queue full")
		}
	}
}

func (w *Writer) EnqueueRebuild(rebuild RebuildRecord) {
	if w == nil {
		return
	}
	select {
	case w.rebuilds <- rebuild:
		return
	default:
		if w.dropRebuild.Add(1) == 1 && w.log != nil {
			w.log.Warn("history rebuild queue full")
		}
	}
}

func (w *Writer) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fill := <-w.fills:
			w.writeFill(ctx, fill)
		case rebuild := <-w.rebuilds:
			w.writeRebuild(ctx, rebuild)
		}
	}
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.db == nil {
		return errors.New("history db not initialized")
	}
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		order_ref TEXT NOT NULL,
		trade_id TEXT NOT NULL,
		side TEXT NOT NULL,
		level_index INTEGER NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		size DOUBLE PRECISION NOT NULL,
		profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (ts, symbol, trade_id)
	)`, w.table("grid_fills"))); err != nil {
		return err
	}
	if err := w.exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		symbol TEXT NOT NULL,
		reason TEXT NOT NULL,
		reference_price DOUBLE PRECISION NOT NULL,
		spacing_percent DOUBLE PRECISION NOT NULL,
		volatility DOUBLE PRECISION NOT NULL,
		generation BIGINT NOT NULL
	)`, w.table("grid_rebuilds"))); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		if w.log != nil {
			w.log.Warn("timescale extension ensure failed", zap.Error(err))
		}
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("grid_fills"))); err != nil && w.log != nil {
		w.log.Warn("grid_fills hypertable create failed", zap.Error(err))
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table("grid_rebuilds"))); err != nil && w.log != nil {
		w.log.Warn("grid_rebuilds hypertable create failed", zap.Error(err))
	}
	return nil
}

func (w *Writer) writeFill(ctx context.Context, fill FillRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, order_ref, trade_id, side, level_index, price, size, profit
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9
	) ON CONFLICT (ts, symbol, trade_id) DO NOTHING`, w.table("grid_fills"))
	if _, err := w.db.ExecContext(ctx, query,
		fill.Time,
		fill.Symbol,
		fill.OrderRef,
		fill.TradeID,
		fill.Side,
		fill.LevelIndex,
		fill.Price,
		fill.Size,
		fill.Profit,
	); err != nil && w.log != nil {
		w.log.Warn("history fill insert failed", zap.Error(err))
	}
}

func (w *Writer) writeRebuild(ctx context.Context, rebuild RebuildRecord) {
	if w.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	query := fmt.Sprintf(`INSERT INTO %s (
		ts, symbol, reason, reference_price, spacing_percent, volatility, generation
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7
	)`, w.table("grid_rebuilds"))
	if _, err := w.db.ExecContext(ctx, query,
		rebuild.Time,
		rebuild.Symbol,
		rebuild.Reason,
		rebuild.ReferencePrice,
		rebuild.SpacingPercent,
		rebuild.Volatility,
		rebuild.Generation,
	); err != nil && w.log != nil {
		w.log.Warn("history rebuild insert failed", zap.Error(err))
	}
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table(name string) string {
	return w.schema + "." + name
}
