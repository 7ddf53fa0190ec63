// Package config loads the bot configuration. A Config is read once at
// startup and treated as immutable for the life of the run; changing it
// means restarting with a new engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Strategy kinds form a closed set; adding a strategy means adding a
// variant, not a string branch somewhere else.
const (
	KindRSIReversal = "rsi_reversal"
	KindStochCross  = "stoch_cross"
	KindADXBreakout = "adx_breakout"
)

// Config is the complete bot configuration.
type Config struct {
	Capital    CapitalConfig    `json:"capital" yaml:"capital"`
	Engine     EngineConfig     `json:"engine" yaml:"engine"`
	Exchange   ExchangeConfig   `json:"exchange" yaml:"exchange"`
	Journal    JournalConfig    `json:"journal" yaml:"journal"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Strategies []StrategyConfig `json:"strategies" yaml:"strategies"`
}

// CapitalConfig seeds the shared capital pool and its risk limits.
type CapitalConfig struct {
	Initial          float64 `json:"initial" yaml:"initial"`
	MinTradeNotional float64 `json:"min_trade_notional" yaml:"min_trade_notional"`
	FeeRate          float64 `json:"fee_rate" yaml:"fee_rate"` // per side
	MaxDrawdownPct   float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	MaxDailyLossPct  float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
}

// EngineConfig controls the tick loop.
type EngineConfig struct {
	Interval     string `json:"interval" yaml:"interval"` // e.g. "60s"
	CandlePeriod string `json:"candle_period" yaml:"candle_period"`
	FetchBars    int    `json:"fetch_bars" yaml:"fetch_bars"`
	WindowBars   int    `json:"window_bars" yaml:"window_bars"`
	WarmupBars   int    `json:"warmup_bars" yaml:"warmup_bars"`
	SummaryEvery int    `json:"summary_every" yaml:"summary_every"` // ticks between summary log lines
}

// ParseInterval converts the interval string to a time.Duration.
func (e EngineConfig) ParseInterval() (time.Duration, error) {
	return time.ParseDuration(e.Interval)
}

// ExchangeConfig selects the execution venue. API credentials are read from
// the named environment variables, never stored in the file.
type ExchangeConfig struct {
	Mode         string `json:"mode" yaml:"mode"` // "binance" or "sim"
	Testnet      bool   `json:"testnet" yaml:"testnet"`
	APIKeyEnv    string `json:"api_key_env" yaml:"api_key_env"`
	APISecretEnv string `json:"api_secret_env" yaml:"api_secret_env"`
	Slippage     float64 `json:"slippage,omitempty" yaml:"slippage,omitempty"` // sim mode only
}

// JournalConfig selects the persistence backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or console
}

// StrategyConfig holds everything one strategy variant needs. The threshold
// fields are empirically tuned defaults, not derived values; treat them as
// data.
type StrategyConfig struct {
	ID      string `json:"id" yaml:"id"`
	Kind    string `json:"kind" yaml:"kind"`
	Symbol  string `json:"symbol" yaml:"symbol"`
	Enabled bool   `json:"enabled" yaml:"enabled"`

	// Position sizing.
	Leverage         float64 `json:"leverage" yaml:"leverage"`
	MaxAllocationPct float64 `json:"max_allocation_pct" yaml:"max_allocation_pct"`
	StopLossPct      float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct    float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	TrailingStopPct  float64 `json:"trailing_stop_pct" yaml:"trailing_stop_pct"`

	// Shared filters. Zero disables a filter.
	WarmupBars     int     `json:"warmup_bars,omitempty" yaml:"warmup_bars,omitempty"`
	EMAFast        int     `json:"ema_fast,omitempty" yaml:"ema_fast,omitempty"`
	EMASlow        int     `json:"ema_slow,omitempty" yaml:"ema_slow,omitempty"`
	TrendLookback  int     `json:"trend_lookback,omitempty" yaml:"trend_lookback,omitempty"`
	VolumePeriod   int     `json:"volume_period,omitempty" yaml:"volume_period,omitempty"`
	MinVolumeRatio float64 `json:"min_volume_ratio,omitempty" yaml:"min_volume_ratio,omitempty"`

	// rsi_reversal
	RSIPeriod int     `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`
	RSIEntry  float64 `json:"rsi_entry,omitempty" yaml:"rsi_entry,omitempty"`
	RSIExit   float64 `json:"rsi_exit,omitempty" yaml:"rsi_exit,omitempty"`

	// stoch_cross
	StochKPeriod int     `json:"stoch_k_period,omitempty" yaml:"stoch_k_period,omitempty"`
	StochDPeriod int     `json:"stoch_d_period,omitempty" yaml:"stoch_d_period,omitempty"`
	StochEntry   float64 `json:"stoch_entry,omitempty" yaml:"stoch_entry,omitempty"`
	StochExit    float64 `json:"stoch_exit,omitempty" yaml:"stoch_exit,omitempty"`

	// adx_breakout
	ADXPeriod    int     `json:"adx_period,omitempty" yaml:"adx_period,omitempty"`
	ADXEntry     float64 `json:"adx_entry,omitempty" yaml:"adx_entry,omitempty"`
	ADXExit      float64 `json:"adx_exit,omitempty" yaml:"adx_exit,omitempty"`
	ADXRiseBars  int     `json:"adx_rise_bars,omitempty" yaml:"adx_rise_bars,omitempty"`
	BreakoutBars int     `json:"breakout_bars,omitempty" yaml:"breakout_bars,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML (or JSON for .json paths).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Capital.Initial <= 0 {
		return fmt.Errorf("capital.initial must be positive")
	}
	if c.Capital.MinTradeNotional < 0 {
		return fmt.Errorf("capital.min_trade_notional must not be negative")
	}
	if c.Capital.FeeRate < 0 || c.Capital.FeeRate >= 0.1 {
		return fmt.Errorf("capital.fee_rate must be in [0, 0.1)")
	}
	if _, err := c.Engine.ParseInterval(); err != nil {
		return fmt.Errorf("engine.interval: %w", err)
	}
	if c.Engine.FetchBars < 1 {
		return fmt.Errorf("engine.fetch_bars must be positive")
	}
	if c.Engine.WindowBars < 1 {
		return fmt.Errorf("engine.window_bars must be positive")
	}
	switch c.Exchange.Mode {
	case "binance", "sim":
	default:
		return fmt.Errorf("exchange.mode must be 'binance' or 'sim', got %q", c.Exchange.Mode)
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none', got %q", c.Journal.Type)
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		if s.ID == "" {
			return fmt.Errorf("strategies[%d]: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("strategies[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.Symbol == "" {
			return fmt.Errorf("strategy %s: symbol is required", s.ID)
		}
		switch s.Kind {
		case KindRSIReversal, KindStochCross, KindADXBreakout:
		default:
			return fmt.Errorf("strategy %s: unknown kind %q", s.ID, s.Kind)
		}
		if s.MaxAllocationPct <= 0 || s.MaxAllocationPct > 1 {
			return fmt.Errorf("strategy %s: max_allocation_pct must be in (0, 1]", s.ID)
		}
		if s.StopLossPct <= 0 || s.StopLossPct >= 1 {
			return fmt.Errorf("strategy %s: stop_loss_pct must be in (0, 1)", s.ID)
		}
		if s.TakeProfitPct <= 0 {
			return fmt.Errorf("strategy %s: take_profit_pct must be positive", s.ID)
		}
		if s.TrailingStopPct < 0 || s.TrailingStopPct >= 1 {
			return fmt.Errorf("strategy %s: trailing_stop_pct must be in [0, 1)", s.ID)
		}
		if s.Leverage < 0 {
			return fmt.Errorf("strategy %s: leverage must not be negative", s.ID)
		}
	}
	return nil
}

// Default returns a configuration mirroring the three stock strategies on
// the binance testnet.
func Default() *Config {
	return &Config{
		Capital: CapitalConfig{
			Initial:          10000,
			MinTradeNotional: 10,
			FeeRate:          0.001,
			MaxDrawdownPct:   0.15,
			MaxDailyLossPct:  0.03,
		},
		Engine: EngineConfig{
			Interval:     "60s",
			CandlePeriod: "1h",
			FetchBars:    300,
			WindowBars:   300,
			WarmupBars:   50,
			SummaryEvery: 60,
		},
		Exchange: ExchangeConfig{
			Mode:         "binance",
			Testnet:      true,
			APIKeyEnv:    "BINANCE_API_KEY",
			APISecretEnv: "BINANCE_SECRET",
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Strategies: []StrategyConfig{
			{
				ID:               "ADA_RSI",
				Kind:             KindRSIReversal,
				Symbol:           "ADA/USDT",
				Enabled:          true,
				Leverage:         2.0,
				MaxAllocationPct: 0.25,
				StopLossPct:      0.08,
				TakeProfitPct:    0.15,
				TrailingStopPct:  0.10,
				WarmupBars:       50,
				EMAFast:          20,
				EMASlow:          50,
				TrendLookback:    10,
				VolumePeriod:     20,
				MinVolumeRatio:   0.8,
				RSIPeriod:        14,
				RSIEntry:         35,
				RSIExit:          60,
			},
			{
				ID:               "SOL_STOCH",
				Kind:             KindStochCross,
				Symbol:           "SOL/USDT",
				Enabled:          true,
				Leverage:         2.0,
				MaxAllocationPct: 0.25,
				StopLossPct:      0.08,
				TakeProfitPct:    0.12,
				TrailingStopPct:  0.10,
				WarmupBars:       50,
				EMAFast:          20,
				EMASlow:          50,
				StochKPeriod:     14,
				StochDPeriod:     3,
				StochEntry:       30,
				StochExit:        80,
			},
			{
				ID:               "XRP_ADX",
				Kind:             KindADXBreakout,
				Symbol:           "XRP/USDT",
				Enabled:          true,
				Leverage:         2.5,
				MaxAllocationPct: 0.30,
				StopLossPct:      0.10,
				TakeProfitPct:    0.20,
				TrailingStopPct:  0.12,
				WarmupBars:       50,
				ADXPeriod:        14,
				ADXEntry:         25,
				ADXExit:          20,
				ADXRiseBars:      3,
				BreakoutBars:     20,
			},
		},
	}
}
