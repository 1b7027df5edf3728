// Package config exposes strongly typed application configuration structs loaded
// from YAML. Defaults are applied exactly once through Resolve, never at call sites.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gravbot-go/internal/engine"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Trading gathers the knobs of the execution loop. Pointer fields distinguish
// "absent" from zero so Resolve can default them.
type Trading struct {
	DryRun           *bool    `yaml:"dry_run"`
	MinTradeSize     float64  `yaml:"min_trade_size"`
	MaxNotional      float64  `yaml:"max_notional_per_trade"`
	Pairs            []string `yaml:"pairs"`
	UpdateIntervalMs int      `yaml:"update_interval_ms"`
	SlippageBps      int      `yaml:"slippage_bps"`
	HistoryCap       int      `yaml:"history_cap"`
	QuoteTimeoutMs   int      `yaml:"quote_timeout_ms"`
	PortfolioValue   float64  `yaml:"portfolio_value"`
	FillsPath        string   `yaml:"fills_path"`
}

// Feed configures the price source backing the indicator pipeline.
type Feed struct {
	Provider       string `yaml:"provider"` // stub|binance|dexscreener
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	BaseURL        string `yaml:"base_url"`
	DefaultChain   string `yaml:"default_chain"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App               `yaml:"app"`
	Engine  engine.Patch      `yaml:"engine"`
	Trading Trading           `yaml:"trading"`
	Dex     Dex               `yaml:"dex"`
	Markets map[string]Market `yaml:"markets"`
	Feed    Feed              `yaml:"feed"`
}

// Resolved is the fully defaulted, immutable-per-session view handed to the rest of
// the process.
type Resolved struct {
	App            App
	Engine         engine.Config
	DryRun         bool
	MinTradeSize   float64
	MaxNotional    float64
	Pairs          []string
	UpdateInterval time.Duration
	SlippageBps    int
	HistoryCap     int
	QuoteTimeout   time.Duration
	PortfolioValue float64
	FillsPath      string
	Dex            Dex
	Markets        map[string]Market
	Feed           Feed
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Resolve fills every gap with its default, producing the single source of truth for
// the session.
func (c *Config) Resolve() Resolved {
	r := Resolved{
		App:            c.App,
		Engine:         engine.ResolveConfig(c.Engine),
		DryRun:         true,
		MinTradeSize:   c.Trading.MinTradeSize,
		MaxNotional:    c.Trading.MaxNotional,
		Pairs:          append([]string(nil), c.Trading.Pairs...),
		UpdateInterval: 5 * time.Second,
		SlippageBps:    c.Trading.SlippageBps,
		HistoryCap:     c.Trading.HistoryCap,
		QuoteTimeout:   8 * time.Second,
		PortfolioValue: c.Trading.PortfolioValue,
		FillsPath:      c.Trading.FillsPath,
		Dex:            c.Dex,
		Markets:        c.Markets,
		Feed:           c.Feed,
	}
	if c.Trading.DryRun != nil {
		r.DryRun = *c.Trading.DryRun
	}
	if r.App.MetricsAddr == "" {
		r.App.MetricsAddr = ":9109"
	}
	if r.App.LogLevel == "" {
		r.App.LogLevel = "info"
	}
	if r.MinTradeSize <= 0 {
		r.MinTradeSize = 0.01
	}
	if c.Trading.UpdateIntervalMs > 0 {
		r.UpdateInterval = time.Duration(c.Trading.UpdateIntervalMs) * time.Millisecond
	}
	if r.SlippageBps <= 0 {
		r.SlippageBps = 100
	}
	if r.HistoryCap <= 0 {
		r.HistoryCap = 1000
	}
	if c.Trading.QuoteTimeoutMs > 0 {
		r.QuoteTimeout = time.Duration(c.Trading.QuoteTimeoutMs) * time.Millisecond
	}
	if r.PortfolioValue <= 0 {
		r.PortfolioValue = 10000
	}
	if r.Dex.Network == "" {
		// Default to a non-primary network so a blank config can never trade live.
		r.Dex.Network = "devnet"
	}
	if r.Dex.Commitment == "" {
		r.Dex.Commitment = "confirmed"
	}
	if r.Dex.JupiterBase == "" {
		r.Dex.JupiterBase = "https://quote-api.jup.ag"
	}
	if r.Feed.Provider == "" {
		r.Feed.Provider = "stub"
	}
	if r.Feed.PollIntervalMs <= 0 {
		r.Feed.PollIntervalMs = 2000
	}
	return r
}
