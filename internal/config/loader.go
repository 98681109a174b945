package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads configuration in three layers: built-in defaults, then the TOML
// file at path (skipped when the file does not exist), then ARBSCAN_*
// environment variables. A .env file in the working directory is loaded
// first so local development can keep secrets out of the TOML file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr("ARBSCAN_MODE", &cfg.Mode)
	setStr("ARBSCAN_LOG_LEVEL", &cfg.LogLevel)

	setBool("ARBSCAN_POLYMARKET_ENABLED", &cfg.Polymarket.Enabled)
	setStr("ARBSCAN_POLYMARKET_GAMMA_HOST", &cfg.Polymarket.GammaHost)
	setInt("ARBSCAN_POLYMARKET_PAGE_SIZE", &cfg.Polymarket.PageSize)
	setFloat64("ARBSCAN_POLYMARKET_MIN_LIQUIDITY", &cfg.Polymarket.MinLiquidity)

	setBool("ARBSCAN_KALSHI_ENABLED", &cfg.Kalshi.Enabled)
	setStr("ARBSCAN_KALSHI_BASE_URL", &cfg.Kalshi.BaseURL)
	setInt("ARBSCAN_KALSHI_PAGE_SIZE", &cfg.Kalshi.PageSize)
	setFloat64("ARBSCAN_KALSHI_MIN_VOLUME_24H", &cfg.Kalshi.MinVolume24h)

	setInt("ARBSCAN_GATEWAY_REQUESTS_PER_WINDOW", &cfg.Gateway.RequestsPerWindow)
	setDuration("ARBSCAN_GATEWAY_WINDOW", &cfg.Gateway.Window)
	setDuration("ARBSCAN_GATEWAY_MIN_DELAY", &cfg.Gateway.MinDelay)

	setStr("ARBSCAN_CACHE_BACKEND", &cfg.Cache.Backend)
	setDuration("ARBSCAN_CACHE_TTL", &cfg.Cache.TTL)
	setInt("ARBSCAN_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)

	setStr("ARBSCAN_REDIS_ADDR", &cfg.Redis.Addr)
	setStr("ARBSCAN_REDIS_PASSWORD", &cfg.Redis.Password)
	setInt("ARBSCAN_REDIS_DB", &cfg.Redis.DB)

	setDuration("ARBSCAN_SCAN_INTERVAL", &cfg.Scanner.ScanInterval)
	setDuration("ARBSCAN_FETCH_WINDOW", &cfg.Scanner.FetchWindow)
	setFloat64("ARBSCAN_STAKE_SIZE", &cfg.Scanner.StakeSize)

	setFloat64("ARBSCAN_NOTIFY_MIN_MARGIN_PCT", &cfg.Notify.MinMarginPct)
	setStr("ARBSCAN_TELEGRAM_TOKEN", &cfg.Notify.TelegramToken)
	setStr("ARBSCAN_TELEGRAM_CHAT_ID", &cfg.Notify.TelegramChatID)
	setStr("ARBSCAN_DISCORD_WEBHOOK", &cfg.Notify.DiscordWebhook)
}

func setStr(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(key string, dst *float64) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *duration) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
