package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gridbot/internal/config"
	"gridbot/internal/exchange"
	"gridbot/internal/grid"
	"gridbot/internal/logging"
	"gridbot/internal/state"
	"gridbot/internal/state/sqlite"
)

const defaultVerifyEnvFile = ".env"

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	preview := flag.Bool("preview", false, "print the ladder the config would build and exit")
	reference := flag.Float64("reference", 0, "reference price for the preview (overrides config)")
	snapshot := flag.Bool("snapshot", false, "print the persisted ladder snapshot and exit")
	venue := flag.Bool("venue", false, "check venue connectivity: balances and open orders")
	flag.Parse()

	if err := config.LoadEnv(defaultVerifyEnvFile); err != nil {
		fatal(err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	log := logging.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	switch {
	case *preview:
		if err := printPreview(cfg, *reference); err != nil {
			fatal(err)
		}
	case *snapshot:
		if err := printSnapshot(cfg); err != nil {
			fatal(err)
		}
	case *venue:
		if err := checkVenue(cfg); err != nil {
			fatal(err)
		}
	default:
		fmt.Fprintln(os.Stderr, "nothing to do: pass -preview, -snapshot or -venue")
		os.Exit(2)
	}
}

func printPreview(cfg *config.Config, referenceOverride float64) error {
	ref := cfg.Grid.ReferencePrice
	if referenceOverride > 0 {
		ref = referenceOverride
	}
	if ref <= 0 {
		return fmt.Errorf("no reference price: set grid.reference_price or pass -reference")
	}
	ladder, err := grid.Build(
		decimal.NewFromFloat(ref),
		decimal.NewFromFloat(cfg.Grid.InitialSpacingPercent/100),
		cfg.Grid.LevelCount,
		cfg.Grid.Cooldown,
	)
	if err != nil {
		return err
	}
	notional := decimal.NewFromFloat(cfg.Trading.OrderNotional)
	fmt.Printf("%s ladder: reference %s, spacing %.2f%%, %d levels per side\n",
		cfg.Trading.Symbol, decimal.NewFromFloat(ref), cfg.Grid.InitialSpacingPercent, cfg.Grid.LevelCount)
	for _, lv := range ladder.Levels() {
		if lv.Index == 0 {
			fmt.Printf("  %3d  ---   %s  (reference, never traded)\n", lv.Index, lv.Price)
			continue
		}
		size := notional.Div(lv.Price).Truncate(cfg.Trading.SizePrecision)
		fmt.Printf("  %3d  %-4s  %s  size %s\n", lv.Index, lv.Side, lv.Price, size)
	}
	return nil
}

func printSnapshot(cfg *config.Config) error {
	store, err := sqlite.New(cfg.State.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, ok, err := state.LoadLadderSnapshot(ctx, store)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no ladder snapshot persisted")
		return nil
	}
	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func checkVenue(cfg *config.Config) error {
	apiKey := strings.TrimSpace(os.Getenv("BINANCE_API_KEY"))
	apiSecret := strings.TrimSpace(os.Getenv("BINANCE_API_SECRET"))
	if apiKey == "" || apiSecret == "" {
		return fmt.Errorf("BINANCE_API_KEY and BINANCE_API_SECRET are required")
	}
	client := exchange.NewBinance(
		cfg.Exchange.BaseURL,
		cfg.Trading.Symbol,
		cfg.Trading.BaseAsset,
		cfg.Trading.QuoteAsset,
		apiKey,
		apiSecret,
		cfg.Exchange.Timeout,
		nil,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	balances, err := client.Balances(ctx)
	if err != nil {
		return fmt.Errorf("balances: %w", err)
	}
	fmt.Printf("balances: %s %s, %s %s\n",
		cfg.Trading.BaseAsset, balances.Base, cfg.Trading.QuoteAsset, balances.Quote)
	open, err := client.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("open orders: %w", err)
	}
	fmt.Printf("open orders: %d\n", len(open))
	for _, oo := range open {
		fmt.Printf("  %s %s %s @ %s\n", oo.Ref, oo.Side, oo.Size, oo.Price)
	}
	return nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
