package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddslab/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource returns a fixed batch, a fixed error, or blocks until release.
type fakeSource struct {
	name      string
	markets   []domain.Market
	positions map[string][]domain.Position
	err       error
	block     chan struct{}

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]domain.Market, map[string][]domain.Position, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.markets, f.positions, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fixedFinder returns a canned opportunity list and records its input.
type fixedFinder struct {
	opps []domain.Opportunity

	mu        sync.Mutex
	lastInput []domain.Position
}

func (f *fixedFinder) Detect(positions []domain.Position, now time.Time) []domain.Opportunity {
	f.mu.Lock()
	f.lastInput = positions
	f.mu.Unlock()
	return f.opps
}

func newOrchestrator(finder OpportunityFinder, onDetected OpportunityHandler, sources ...Source) *Orchestrator {
	return NewOrchestrator(Options{
		Sources:     sources,
		Store:       NewStore(),
		Finder:      finder,
		FetchWindow: time.Second,
		OnDetected:  onDetected,
		Logger:      testLogger(),
	})
}

func TestScanAll_MergesAllSources(t *testing.T) {
	now := time.Now()
	a := &fakeSource{
		name:      "polymarket",
		markets:   []domain.Market{mkt("m1", "polymarket", now)},
		positions: map[string][]domain.Position{"m1": pair("m1", "polymarket", 0.55, 0.45)},
	}
	b := &fakeSource{
		name:      "kalshi",
		markets:   []domain.Market{mkt("k1", "kalshi", now)},
		positions: map[string][]domain.Position{"k1": pair("k1", "kalshi", 0.40, 0.60)},
	}
	finder := &fixedFinder{}

	o := newOrchestrator(finder, nil, a, b)
	require.NoError(t, o.ScanAll(context.Background()))

	assert.Len(t, o.Markets(), 2)

	finder.mu.Lock()
	defer finder.mu.Unlock()
	assert.Len(t, finder.lastInput, 4, "detection must see the flattened positions of both sources")
}

func TestScanAll_SourceFailureIsIsolated(t *testing.T) {
	now := time.Now()
	healthy := &fakeSource{
		name:      "polymarket",
		markets:   []domain.Market{mkt("m1", "polymarket", now)},
		positions: map[string][]domain.Position{"m1": pair("m1", "polymarket", 0.5, 0.5)},
	}
	broken := &fakeSource{name: "kalshi", err: errors.New("connection refused")}
	finder := &fixedFinder{}

	o := newOrchestrator(finder, nil, healthy, broken)
	require.NoError(t, o.ScanAll(context.Background()), "one failed source must not fail the cycle")

	assert.Len(t, o.Markets(), 1)
	finder.mu.Lock()
	defer finder.mu.Unlock()
	assert.Len(t, finder.lastInput, 2, "detection still runs on the healthy source's data")
}

func TestScanAll_AllSourcesFailing(t *testing.T) {
	broken := &fakeSource{name: "kalshi", err: errors.New("down")}
	o := newOrchestrator(&fixedFinder{}, nil, broken)

	require.NoError(t, o.ScanAll(context.Background()))
	assert.Empty(t, o.Markets())
	assert.Empty(t, o.Opportunities())
}

func TestScanAll_ConcurrentCycleRejected(t *testing.T) {
	release := make(chan struct{})
	slow := &fakeSource{name: "polymarket", block: release}
	o := newOrchestrator(&fixedFinder{}, nil, slow)

	done := make(chan error, 1)
	go func() { done <- o.ScanAll(context.Background()) }()

	// Wait until the first cycle is inside Fetch.
	require.Eventually(t, func() bool { return slow.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	err := o.ScanAll(context.Background())
	require.ErrorIs(t, err, domain.ErrScanInProgress)

	close(release)
	require.NoError(t, <-done)

	// A later cycle is admitted again.
	require.NoError(t, o.ScanAll(context.Background()))
}

func TestScanAll_StoresAndHandsOffOpportunities(t *testing.T) {
	now := time.Now()
	src := &fakeSource{
		name:      "polymarket",
		markets:   []domain.Market{mkt("m1", "polymarket", now)},
		positions: map[string][]domain.Position{"m1": pair("m1", "polymarket", 0.45, 0.40)},
	}
	want := []domain.Opportunity{{ID: "opp-1", ProfitMarginPct: 17.6}}

	var handedOff []domain.Opportunity
	handler := func(ctx context.Context, opps []domain.Opportunity) { handedOff = opps }

	o := newOrchestrator(&fixedFinder{opps: want}, handler, src)
	require.NoError(t, o.ScanAll(context.Background()))

	assert.Equal(t, want, o.Opportunities())
	assert.Equal(t, want, handedOff)
}

func TestScanAll_FetchWindowCancelsSlowSource(t *testing.T) {
	stuck := &fakeSource{name: "kalshi", block: make(chan struct{})} // never released
	o := NewOrchestrator(Options{
		Sources:     []Source{stuck},
		Store:       NewStore(),
		Finder:      &fixedFinder{},
		FetchWindow: 20 * time.Millisecond,
		Logger:      testLogger(),
	})

	start := time.Now()
	require.NoError(t, o.ScanAll(context.Background()))
	assert.Less(t, time.Since(start), time.Second, "cycle must not hang on a stuck source")
}

func TestHealthCheck(t *testing.T) {
	now := time.Now()
	src := &fakeSource{name: "polymarket", markets: []domain.Market{mkt("m1", "polymarket", now)}}
	o := newOrchestrator(&fixedFinder{}, nil, src)

	// Healthy before the first cycle and after a successful one.
	assert.True(t, o.HealthCheck())
	require.NoError(t, o.ScanAll(context.Background()))
	assert.True(t, o.HealthCheck())
}
