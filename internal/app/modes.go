package app

import (
	"context"
	"fmt"
	"log/slog"
)

// ScanMode runs continuous scan cycles at the configured interval until the
// context is cancelled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.Duration("interval", a.cfg.Scanner.ScanInterval.Duration),
	)
	if err := deps.Orchestrator.RunLoop(ctx, a.cfg.Scanner.ScanInterval.Duration); err != nil && ctx.Err() == nil {
		return fmt.Errorf("scan mode: %w", err)
	}
	return nil
}

// OnceMode runs a single scan cycle, logs the outcome, and exits. Useful for
// cron-style invocations and smoke checks.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting once mode")

	if err := deps.Orchestrator.ScanAll(ctx); err != nil {
		return fmt.Errorf("once mode: %w", err)
	}

	markets := deps.Orchestrator.Markets()
	opps := deps.Orchestrator.Opportunities()
	a.logger.InfoContext(ctx, "scan complete",
		slog.Int("markets", len(markets)),
		slog.Int("opportunities", len(opps)),
	)
	for name, st := range deps.Orchestrator.GatewayStatus() {
		a.logger.InfoContext(ctx, "gateway status",
			slog.String("source", name),
			slog.Int("queue_length", st.QueueLength),
			slog.Int("requests_in_window", st.RequestsInWindow),
		)
	}
	for _, opp := range opps {
		a.logger.InfoContext(ctx, "opportunity",
			slog.String("id", opp.ID),
			slog.String("leg_a", opp.LegA.SourceID+"/"+opp.LegA.MarketID),
			slog.String("leg_b", opp.LegB.SourceID+"/"+opp.LegB.MarketID),
			slog.Float64("profit_margin_pct", opp.ProfitMarginPct),
			slog.Float64("estimated_profit", opp.EstimatedProfit),
		)
	}
	return nil
}
