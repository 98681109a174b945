// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSCAN_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Cache      CacheConfig      `toml:"cache"`
	Redis      RedisConfig      `toml:"redis"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Gamma API endpoint and listing parameters. The
// Gamma API is publicly readable; no key is needed.
type PolymarketConfig struct {
	Enabled      bool    `toml:"enabled"`
	GammaHost    string  `toml:"gamma_host"`
	PageSize     int     `toml:"page_size"`
	MinLiquidity float64 `toml:"min_liquidity"`
}

// KalshiConfig holds the Kalshi markets API endpoint and listing parameters.
// Only public read endpoints are used.
type KalshiConfig struct {
	Enabled      bool    `toml:"enabled"`
	BaseURL      string  `toml:"base_url"`
	PageSize     int     `toml:"page_size"`
	MinVolume24h float64 `toml:"min_volume_24h"`
}

// GatewayConfig holds the outbound rate-limit parameters, applied per
// upstream host.
type GatewayConfig struct {
	RequestsPerWindow int      `toml:"requests_per_window"`
	Window            duration `toml:"window"`
	MinDelay          duration `toml:"min_delay"`
}

// CacheConfig selects and sizes the response cache.
type CacheConfig struct {
	Backend    string   `toml:"backend"` // "memory" or "redis"
	TTL        duration `toml:"ttl"`
	MaxEntries int      `toml:"max_entries"` // memory backend only
}

// RedisConfig holds Redis connection parameters for the redis cache backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// ScannerConfig holds the scan-cycle and detection parameters.
type ScannerConfig struct {
	ScanInterval duration `toml:"scan_interval"`
	FetchWindow  duration `toml:"fetch_window"`
	// StakeSize is the nominal capital each opportunity is sized against.
	StakeSize float64 `toml:"stake_size"`
}

// NotifyConfig holds alerting parameters. The process log is always a
// delivery channel; Telegram and Discord are added when configured.
type NotifyConfig struct {
	MinMarginPct   float64 `toml:"min_margin_pct"`
	TelegramToken  string  `toml:"telegram_token"`
	TelegramChatID string  `toml:"telegram_chat_id"`
	DiscordWebhook string  `toml:"discord_webhook"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: quota 100 requests/minute,
// 5-minute cache TTL, 1000-unit liquidity floor, 500-contract 24h volume
// floor, 60-second scan interval.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			Enabled:      true,
			GammaHost:    "https://gamma-api.polymarket.com",
			PageSize:     100,
			MinLiquidity: 1000,
		},
		Kalshi: KalshiConfig{
			Enabled:      true,
			BaseURL:      "https://api.elections.kalshi.com/trade-api/v2",
			PageSize:     200,
			MinVolume24h: 500,
		},
		Gateway: GatewayConfig{
			RequestsPerWindow: 100,
			Window:            duration{time.Minute},
			MinDelay:          duration{100 * time.Millisecond},
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     duration{5 * time.Minute},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Scanner: ScannerConfig{
			ScanInterval: duration{time.Minute},
			FetchWindow:  duration{30 * time.Second},
			StakeSize:    1000,
		},
		Notify: NotifyConfig{
			MinMarginPct: 1.0,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// Validate checks the configuration for construction-time errors. These are
// the only failures that propagate out of the pipeline as startup errors.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "scan", "once":
	default:
		return fmt.Errorf("config: unsupported mode %q (want scan or once)", c.Mode)
	}

	if !c.Polymarket.Enabled && !c.Kalshi.Enabled {
		return fmt.Errorf("config: at least one source must be enabled")
	}
	if c.Polymarket.Enabled && c.Polymarket.GammaHost == "" {
		return fmt.Errorf("config: polymarket.gamma_host is required")
	}
	if c.Kalshi.Enabled && c.Kalshi.BaseURL == "" {
		return fmt.Errorf("config: kalshi.base_url is required")
	}

	if c.Gateway.RequestsPerWindow <= 0 {
		return fmt.Errorf("config: gateway.requests_per_window must be positive")
	}
	if c.Gateway.Window.Duration <= 0 {
		return fmt.Errorf("config: gateway.window must be positive")
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("config: unsupported cache backend %q (want memory or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration <= 0 {
		return fmt.Errorf("config: cache.ttl must be positive")
	}

	if c.Scanner.ScanInterval.Duration <= 0 {
		return fmt.Errorf("config: scanner.scan_interval must be positive")
	}
	if c.Scanner.StakeSize <= 0 {
		return fmt.Errorf("config: scanner.stake_size must be positive")
	}

	return nil
}
