// Package pipeline coordinates the fetch-and-normalize cycle across all
// configured upstream sources and owns the shared scan state.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddslab/arbscan/internal/domain"
	"github.com/oddslab/arbscan/internal/gateway"
)

// Source is one upstream prediction-market platform. Fetch returns the full
// normalized batch for a scan cycle.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.Market, map[string][]domain.Position, error)
}

// OpportunityFinder computes the opportunity set from the flattened positions.
type OpportunityFinder interface {
	Detect(positions []domain.Position, now time.Time) []domain.Opportunity
}

// OpportunityHandler receives the freshly detected opportunity set after each
// cycle. The serving/notification layer hooks in here.
type OpportunityHandler func(ctx context.Context, opps []domain.Opportunity)

// Orchestrator runs scan cycles: concurrent per-source fetches, merge into the
// shared store, then detection. One source failing never prevents the others
// from running or detection from proceeding with whatever data arrived.
type Orchestrator struct {
	sources     []Source
	store       *Store
	finder      OpportunityFinder
	gateways    map[string]*gateway.Gateway
	fetchWindow time.Duration
	onDetected  OpportunityHandler
	logger      *slog.Logger

	scanning    atomic.Bool
	lastSuccess atomic.Int64 // unix nanos of the last cycle with >= 1 successful source
	interval    atomic.Int64 // loop interval in nanos, set by RunLoop
}

// Options configures the Orchestrator.
type Options struct {
	Sources  []Source
	Store    *Store
	Finder   OpportunityFinder
	Gateways map[string]*gateway.Gateway // keyed by source name, for status reporting
	// FetchWindow bounds one source's fetch within a cycle. Zero means 30s.
	FetchWindow time.Duration
	OnDetected  OpportunityHandler
	Logger      *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	window := opts.FetchWindow
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Orchestrator{
		sources:     opts.Sources,
		store:       opts.Store,
		finder:      opts.Finder,
		gateways:    opts.Gateways,
		fetchWindow: window,
		onDetected:  opts.OnDetected,
		logger:      opts.Logger.With(slog.String("component", "orchestrator")),
	}
}

// sourceResult carries one source's batch from the fan-out to the single
// merge writer.
type sourceResult struct {
	source    string
	markets   []domain.Market
	positions map[string][]domain.Position
}

// ScanAll runs one full cycle: fan out one fetch per source, fan in, merge
// successful batches into the store, then run detection. Per-source failures
// are logged and absorbed; the cycle itself only errors when another cycle is
// already in flight.
func (o *Orchestrator) ScanAll(ctx context.Context) error {
	if !o.scanning.CompareAndSwap(false, true) {
		return domain.ErrScanInProgress
	}
	defer o.scanning.Store(false)

	started := time.Now()

	var mu sync.Mutex
	var results []sourceResult

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range o.sources {
		src := src
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, o.fetchWindow)
			defer cancel()

			markets, positions, err := src.Fetch(fctx)
			if err != nil {
				// Isolated: a failed source yields less data this cycle,
				// nothing more.
				o.logger.Error("source scan failed",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}

			mu.Lock()
			results = append(results, sourceResult{source: src.Name(), markets: markets, positions: positions})
			mu.Unlock()
			return nil
		})
	}
	// Fan-in; the per-source closures never return errors.
	_ = g.Wait()

	for _, r := range results {
		o.store.ApplyBatch(r.markets, r.positions)
		o.logger.Info("merged source batch",
			slog.String("source", r.source),
			slog.Int("markets", len(r.markets)),
		)
	}

	if len(results) > 0 {
		o.lastSuccess.Store(time.Now().UnixNano())
	} else if len(o.sources) > 0 {
		o.logger.Warn("every source failed this cycle, detection runs on stale data")
	}

	now := time.Now().UTC()
	opps := o.finder.Detect(o.store.AllPositions(), now)
	o.store.SetOpportunities(opps)

	if o.onDetected != nil && len(opps) > 0 {
		o.onDetected(ctx, opps)
	}

	o.logger.Info("scan cycle complete",
		slog.Int("sources_ok", len(results)),
		slog.Int("sources_total", len(o.sources)),
		slog.Int("opportunities", len(opps)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// RunLoop runs scan cycles on a repeating interval until the context is
// cancelled. A tick that fires while the previous cycle is still running is
// skipped rather than overlapped.
func (o *Orchestrator) RunLoop(ctx context.Context, interval time.Duration) error {
	o.interval.Store(int64(interval))

	// Run immediately on start.
	if err := o.ScanAll(ctx); err != nil {
		o.logger.Error("scan cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-ticker.C:
			err := o.ScanAll(ctx)
			switch {
			case err == nil:
			case err == domain.ErrScanInProgress:
				o.logger.Warn("previous scan cycle still running, skipping tick")
			default:
				o.logger.Error("scan cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Markets returns all known markets.
func (o *Orchestrator) Markets() []domain.Market {
	return o.store.Markets()
}

// PositionsForMarket returns the position pair for a market key.
func (o *Orchestrator) PositionsForMarket(key string) []domain.Position {
	return o.store.PositionsForMarket(key)
}

// Opportunities returns the current opportunity list.
func (o *Orchestrator) Opportunities() []domain.Opportunity {
	return o.store.Opportunities()
}

// HealthCheck reports whether the pipeline has produced data recently: at
// least one source succeeded within the last three scan intervals, or no
// cycle has run yet.
func (o *Orchestrator) HealthCheck() bool {
	last := o.lastSuccess.Load()
	if last == 0 {
		return true
	}
	window := 3 * time.Duration(o.interval.Load())
	if window <= 0 {
		window = 3 * o.fetchWindow
	}
	return time.Since(time.Unix(0, last)) < window
}

// GatewayStatus reports the rate-limiter status per source for external
// health reporting.
func (o *Orchestrator) GatewayStatus() map[string]gateway.Status {
	out := make(map[string]gateway.Status, len(o.gateways))
	for name, gw := range o.gateways {
		out[name] = gw.Status()
	}
	return out
}
