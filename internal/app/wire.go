package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/oddslab/arbscan/internal/arbitrage"
	"github.com/oddslab/arbscan/internal/cache"
	"github.com/oddslab/arbscan/internal/config"
	"github.com/oddslab/arbscan/internal/gateway"
	"github.com/oddslab/arbscan/internal/notify"
	"github.com/oddslab/arbscan/internal/pipeline"
	"github.com/oddslab/arbscan/internal/platform/kalshi"
	"github.com/oddslab/arbscan/internal/platform/polymarket"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Orchestrator *pipeline.Orchestrator
	Notifier     *notify.Notifier
	Cache        cache.Store
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// --- Response cache ---
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis ping: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		store = cache.NewRedis(rdb, logger)
	default:
		store = cache.NewMemory(cfg.Cache.MaxEntries)
	}

	// --- Sources, each behind its own gateway ---
	var sources []pipeline.Source
	gateways := make(map[string]*gateway.Gateway)

	if cfg.Polymarket.Enabled {
		gw := gateway.New(
			cfg.Gateway.RequestsPerWindow,
			cfg.Gateway.Window.Duration,
			cfg.Gateway.MinDelay.Duration,
			logger,
		)
		transform := polymarket.NewTransformer(cfg.Polymarket.MinLiquidity, logger)
		client := polymarket.NewClient(polymarket.Config{
			BaseURL:  cfg.Polymarket.GammaHost,
			PageSize: cfg.Polymarket.PageSize,
			CacheTTL: cfg.Cache.TTL.Duration,
		}, gw, store, transform, logger)
		sources = append(sources, client)
		gateways[client.Name()] = gw
	}

	if cfg.Kalshi.Enabled {
		gw := gateway.New(
			cfg.Gateway.RequestsPerWindow,
			cfg.Gateway.Window.Duration,
			cfg.Gateway.MinDelay.Duration,
			logger,
		)
		client := kalshi.NewClient(kalshi.Config{
			BaseURL:      cfg.Kalshi.BaseURL,
			PageSize:     cfg.Kalshi.PageSize,
			CacheTTL:     cfg.Cache.TTL.Duration,
			MinVolume24h: cfg.Kalshi.MinVolume24h,
		}, gw, store, logger)
		sources = append(sources, client)
		gateways[client.Name()] = gw
	}

	// --- Notifications ---
	senders := []notify.Sender{notify.NewLogSender(logger)}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	notifier := notify.NewNotifier(senders, cfg.Notify.MinMarginPct, logger)

	// --- Detection and orchestration ---
	detector := arbitrage.New(cfg.Scanner.StakeSize, logger)
	orch := pipeline.NewOrchestrator(pipeline.Options{
		Sources:     sources,
		Store:       pipeline.NewStore(),
		Finder:      detector,
		Gateways:    gateways,
		FetchWindow: cfg.Scanner.FetchWindow.Duration,
		OnDetected:  notifier.OpportunitiesDetected,
		Logger:      logger,
	})

	return &Dependencies{
		Orchestrator: orch,
		Notifier:     notifier,
		Cache:        store,
	}, cleanup, nil
}
