package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
trading:
  symbol: BNBUSDT
  base_asset: BNB
  quote_asset: USDT
  order_notional: 25
grid:
  level_count: 5
  initial_spacing_percent: 2.0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Trading.TickInterval != 5*time.Second {
		t.Fatalf("tick interval default %s", cfg.Trading.TickInterval)
	}
	if cfg.Grid.Cooldown != 5*time.Minute {
		t.Fatalf("cooldown default %s", cfg.Grid.Cooldown)
	}
	if len(cfg.Grid.Bands) != 4 || cfg.Grid.Bands[3].UpToVolatility != 0 {
		t.Fatalf("default band table wrong: %+v", cfg.Grid.Bands)
	}
	if cfg.Risk.MaxDrawdown != -0.15 {
		t.Fatalf("drawdown default %g", cfg.Risk.MaxDrawdown)
	}
	if cfg.Exchange.BaseURL != "https://api.binance.com" {
		t.Fatalf("base url default %s", cfg.Exchange.BaseURL)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing symbol", `
trading:
  base_asset: BNB
  quote_asset: USDT
  order_notional: 25
`},
		{"notional below minimum", `
trading:
  symbol: BNBUSDT
  base_asset: BNB
  quote_asset: USDT
  order_notional: 5
  min_notional: 10
`},
		{"positive drawdown", `
trading:
  symbol: BNBUSDT
  base_asset: BNB
  quote_asset: USDT
  order_notional: 25
risk:
  max_drawdown: 0.15
`},
		{"telegram without token", `
trading:
  symbol: BNBUSDT
  base_asset: BNB
  quote_asset: USDT
  order_notional: 25
telegram:
  enabled: true
`},
		{"history without dsn", `
trading:
  symbol: BNBUSDT
  base_asset: BNB
  quote_asset: USDT
  order_notional: 25
history:
  enabled: true
`},
	}
	for _, tc := range cases {
		if _, err := Load(writeConfig(t, tc.yaml)); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nBINANCE_API_KEY=abc\nexport QUOTED='v a l'\nNOVALUE\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("BINANCE_API_KEY", "preset")
	os.Unsetenv("QUOTED")
	defer os.Unsetenv("QUOTED")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env failed: %v", err)
	}
	if got := os.Getenv("BINANCE_API_KEY"); got != "preset" {
		t.Fatalf("existing env overwritten: %s", got)
	}
	if got := os.Getenv("QUOTED"); got != "v a l" {
		t.Fatalf("quoted value %q", got)
	}
	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}
