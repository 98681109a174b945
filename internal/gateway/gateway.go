// Package gateway serializes outbound API calls to one upstream host behind a
// sliding-window quota. Bursts are queued FIFO rather than rejected; a single
// drain worker dispatches queued operations as capacity allows.
package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Operation is a queued outbound call. The gateway invokes it once admission
// is granted and relays its result to the enqueuer unchanged.
type Operation func(ctx context.Context) ([]byte, error)

// Status is a point-in-time snapshot of the gateway for health reporting.
type Status struct {
	QueueLength      int  `json:"queue_length"`
	RequestsInWindow int  `json:"requests_in_window"`
	Draining         bool `json:"draining"`
}

// windowBuffer is added to computed waits so a re-check lands just after the
// oldest timestamp has slid out of the window.
const windowBuffer = 50 * time.Millisecond

type result struct {
	body []byte
	err  error
}

type item struct {
	ctx  context.Context
	op   Operation
	done chan result
}

// Gateway throttles calls to a single upstream host. Create one per host; the
// window state is shared mutable and only ever mutated under mu by the one
// active drain worker.
type Gateway struct {
	limit   int
	window  time.Duration
	spacing *rate.Limiter
	logger  *slog.Logger

	mu         sync.Mutex
	queue      []*item
	dispatched []time.Time
	draining   bool
}

// New creates a Gateway allowing at most limit dispatches within any rolling
// window, with minDelay enforced between consecutive dispatches even under
// quota. A minDelay of zero disables spacing.
func New(limit int, window, minDelay time.Duration, logger *slog.Logger) *Gateway {
	spacing := rate.NewLimiter(rate.Inf, 1)
	if minDelay > 0 {
		spacing = rate.NewLimiter(rate.Every(minDelay), 1)
	}
	return &Gateway{
		limit:   limit,
		window:  window,
		spacing: spacing,
		logger:  logger.With(slog.String("component", "gateway")),
	}
}

// Do enqueues op and blocks until it has been dispatched and completed, or
// until ctx is cancelled. Queued operations execute in enqueue order. A
// failure of one operation is surfaced only to its own caller; the drain
// worker proceeds to the next item regardless.
func (g *Gateway) Do(ctx context.Context, op Operation) ([]byte, error) {
	it := &item{ctx: ctx, op: op, done: make(chan result, 1)}

	g.mu.Lock()
	g.queue = append(g.queue, it)
	start := !g.draining
	if start {
		g.draining = true
	}
	g.mu.Unlock()

	if start {
		go g.drain()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-it.done:
		return r.body, r.err
	}
}

// Status reports the current queue length, the number of dispatches counted
// in the trailing window, and whether the drain worker is active.
func (g *Gateway) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(time.Now())
	return Status{
		QueueLength:      len(g.queue),
		RequestsInWindow: len(g.dispatched),
		Draining:         g.draining,
	}
}

// drain is the single in-flight worker. Do never double-starts it: the
// draining flag flips under mu and is only cleared here once the queue is
// observed empty under the same lock.
func (g *Gateway) drain() {
	for {
		g.mu.Lock()
		if len(g.queue) == 0 {
			g.draining = false
			g.mu.Unlock()
			return
		}
		it := g.queue[0]
		g.queue = g.queue[1:]
		g.mu.Unlock()

		// Skip items whose caller has already given up.
		if err := it.ctx.Err(); err != nil {
			it.done <- result{err: err}
			continue
		}

		if err := g.awaitSlot(it.ctx); err != nil {
			it.done <- result{err: err}
			continue
		}

		body, err := it.op(it.ctx)
		if err != nil {
			g.logger.Warn("queued operation failed",
				slog.String("error", err.Error()),
			)
		}
		it.done <- result{body: body, err: err}
	}
}

// awaitSlot blocks until the sliding window admits one more dispatch, then
// records the dispatch timestamp. The wait loops because the window keeps
// sliding while we sleep.
func (g *Gateway) awaitSlot(ctx context.Context) error {
	// Minimum inter-request spacing first, so bursts are smoothed even when
	// the quota has headroom.
	if err := g.spacing.Wait(ctx); err != nil {
		return err
	}

	for {
		g.mu.Lock()
		now := time.Now()
		g.prune(now)
		if len(g.dispatched) < g.limit {
			g.dispatched = append(g.dispatched, now)
			g.mu.Unlock()
			return nil
		}
		wait := g.dispatched[0].Add(g.window).Sub(now) + windowBuffer
		g.mu.Unlock()

		g.logger.Debug("quota reached, waiting for window to slide",
			slog.Duration("wait", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// prune drops dispatch timestamps older than the window. Callers must hold mu.
func (g *Gateway) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.dispatched) && !g.dispatched[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.dispatched = append(g.dispatched[:0], g.dispatched[i:]...)
	}
}
