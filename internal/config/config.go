package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LoggingConfig  `yaml:"log"`
	Exchange ExchangeConfig `yaml:"exchange"`
	WS       WSConfig       `yaml:"ws"`
	State    StateConfig    `yaml:"state"`
	Trading  TradingConfig  `yaml:"trading"`
	Grid     GridConfig     `yaml:"grid"`
	Risk     RiskConfig     `yaml:"risk"`
	Telegram TelegramConfig `yaml:"telegram"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	History  HistoryConfig  `yaml:"history"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ExchangeConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type WSConfig struct {
	URL            string        `yaml:"url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type TradingConfig struct {
	Symbol            string        `yaml:"symbol"`
	BaseAsset         string        `yaml:"base_asset"`
	QuoteAsset        string        `yaml:"quote_asset"`
	OrderNotional     float64       `yaml:"order_notional"`
	MinNotional       float64       `yaml:"min_notional"`
	BalanceFraction   float64       `yaml:"balance_fraction"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	PlacementTimeout  time.Duration `yaml:"placement_timeout"`
	MaxInFlight       int           `yaml:"max_in_flight"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	MismatchGrace     time.Duration `yaml:"mismatch_grace"`
	FillLookback      time.Duration `yaml:"fill_lookback"`
	SizePrecision     int32         `yaml:"size_precision"`
}

type Band struct {
	UpToVolatility float64 `yaml:"up_to_volatility"` // 0 marks the unbounded top band
	SpacingPercent float64 `yaml:"spacing_percent"`
}

type GridConfig struct {
	LevelCount            int           `yaml:"level_count"`
	InitialSpacingPercent float64       `yaml:"initial_spacing_percent"`
	HysteresisPercent     float64       `yaml:"hysteresis_percent"`
	Cooldown              time.Duration `yaml:"cooldown"`
	AdjustmentInterval    time.Duration `yaml:"adjustment_interval"`
	VolatilityWindow      int           `yaml:"volatility_window"`
	PriceHistoryLimit     int           `yaml:"price_history_limit"`
	ReferencePrice        float64       `yaml:"reference_price"` // 0 = use market price at startup
	Bands                 []Band        `yaml:"volatility_bands"`
}

type RiskConfig struct {
	MaxOpenOrders    int           `yaml:"max_open_orders"`
	MaxDrawdown      float64       `yaml:"max_drawdown"`       // negative fraction, e.g. -0.15
	DailyLossLimit   float64       `yaml:"daily_loss_limit"`   // negative fraction
	MaxPositionRatio float64       `yaml:"max_position_ratio"` // base exposure / equity
	MinPositionRatio float64       `yaml:"min_position_ratio"`
	AuthorizeTimeout time.Duration `yaml:"authorize_timeout"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	QueueSize       int           `yaml:"queue_size"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Exchange.BaseURL == "" {
		cfg.Exchange.BaseURL = "https://api.binance.com"
	}
	if cfg.Exchange.Timeout == 0 {
		cfg.Exchange.Timeout = 10 * time.Second
	}
	if cfg.WS.URL == "" {
		cfg.WS.URL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.WS.ReconnectDelay == 0 {
		cfg.WS.ReconnectDelay = 3 * time.Second
	}
	if cfg.WS.PingInterval == 0 {
		cfg.WS.PingInterval = 30 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/gridbot.db"
	}
	if cfg.Trading.MinNotional == 0 {
		cfg.Trading.MinNotional = 10
	}
	if cfg.Trading.BalanceFraction == 0 {
		cfg.Trading.BalanceFraction = 0.1
	}
	if cfg.Trading.TickInterval == 0 {
		cfg.Trading.TickInterval = 5 * time.Second
	}
	if cfg.Trading.PlacementTimeout == 0 {
		cfg.Trading.PlacementTimeout = 10 * time.Second
	}
	if cfg.Trading.MaxInFlight == 0 {
		cfg.Trading.MaxInFlight = 3
	}
	if cfg.Trading.ReconcileInterval == 0 {
		cfg.Trading.ReconcileInterval = time.Minute
	}
	if cfg.Trading.MismatchGrace == 0 {
		cfg.Trading.MismatchGrace = 2 * time.Minute
	}
	if cfg.Trading.FillLookback == 0 {
		cfg.Trading.FillLookback = 24 * time.Hour
	}
	if cfg.Trading.SizePrecision == 0 {
		cfg.Trading.SizePrecision = 6
	}
	if cfg.Grid.LevelCount == 0 {
		cfg.Grid.LevelCount = 5
	}
	if cfg.Grid.InitialSpacingPercent == 0 {
		cfg.Grid.InitialSpacingPercent = 2.0
	}
	if cfg.Grid.HysteresisPercent == 0 {
		cfg.Grid.HysteresisPercent = 0.5
	}
	if cfg.Grid.Cooldown == 0 {
		cfg.Grid.Cooldown = 5 * time.Minute
	}
	if cfg.Grid.AdjustmentInterval == 0 {
		cfg.Grid.AdjustmentInterval = time.Hour
	}
	if cfg.Grid.VolatilityWindow == 0 {
		cfg.Grid.VolatilityWindow = 24
	}
	if cfg.Grid.PriceHistoryLimit == 0 {
		cfg.Grid.PriceHistoryLimit = 288
	}
	if len(cfg.Grid.Bands) == 0 {
		cfg.Grid.Bands = []Band{
			{UpToVolatility: 0.2, SpacingPercent: 1.0},
			{UpToVolatility: 0.4, SpacingPercent: 2.0},
			{UpToVolatility: 0.8, SpacingPercent: 3.0},
			{UpToVolatility: 0, SpacingPercent: 4.0},
		}
	}
	if cfg.Risk.MaxOpenOrders == 0 {
		cfg.Risk.MaxOpenOrders = 12
	}
	if cfg.Risk.MaxDrawdown == 0 {
		cfg.Risk.MaxDrawdown = -0.15
	}
	if cfg.Risk.DailyLossLimit == 0 {
		cfg.Risk.DailyLossLimit = -0.05
	}
	if cfg.Risk.MaxPositionRatio == 0 {
		cfg.Risk.MaxPositionRatio = 0.9
	}
	if cfg.Risk.AuthorizeTimeout == 0 {
		cfg.Risk.AuthorizeTimeout = time.Second
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9090"
	}
	if cfg.History.Schema == "" {
		cfg.History.Schema = "public"
	}
	if cfg.History.QueueSize == 0 {
		cfg.History.QueueSize = 256
	}
}

func validate(cfg *Config) error {
	if cfg.Trading.Symbol == "" {
		return errors.New("trading.symbol is required")
	}
	if cfg.Trading.BaseAsset == "" || cfg.Trading.QuoteAsset == "" {
		return errors.New("trading.base_asset and trading.quote_asset are required")
	}
	if cfg.Trading.OrderNotional <= 0 {
		return errors.New("trading.order_notional must be > 0")
	}
	if cfg.Trading.OrderNotional < cfg.Trading.MinNotional {
		return fmt.Errorf("trading.order_notional %.2f is below trading.min_notional %.2f", cfg.Trading.OrderNotional, cfg.Trading.MinNotional)
	}
	if cfg.Trading.BalanceFraction <= 0 || cfg.Trading.BalanceFraction > 1 {
		return errors.New("trading.balance_fraction must be in (0, 1]")
	}
	if cfg.Grid.LevelCount <= 0 {
		return errors.New("grid.level_count must be > 0")
	}
	if cfg.Grid.InitialSpacingPercent <= 0 {
		return errors.New("grid.initial_spacing_percent must be > 0")
	}
	if cfg.Grid.ReferencePrice < 0 {
		return errors.New("grid.reference_price must be >= 0")
	}
	if cfg.Risk.MaxDrawdown > 0 || cfg.Risk.DailyLossLimit > 0 {
		return errors.New("risk drawdown and daily loss limits are expressed as negative fractions")
	}
	if cfg.Risk.MinPositionRatio >= cfg.Risk.MaxPositionRatio {
		return errors.New("risk.min_position_ratio must be less than risk.max_position_ratio")
	}
	if cfg.Telegram.Enabled && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram.token and telegram.chat_id are required when telegram is enabled")
	}
	if cfg.History.Enabled && cfg.History.DSN == "" {
		return errors.New("history.dsn is required when history is enabled")
	}
	return nil
}
