// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gateway is the single chokepoint for all provider calls.
// Implements: prd102-gateway (R1-R4);
//
//	docs/ARCHITECTURE § Data Source Gateway.
//
// Every adapter fetch passes through here and picks up caching (per-source
// TTL plus a stale-while-revalidate window), a shared bounded concurrency
// gate, a per-attempt timeout race, a bounded retry budget for
// timeout-class failures, and a per-source circuit breaker. Failures never
// escape as errors to the orchestrator: an unavailable source resolves to
// a nil result and the orchestrator redistributes its weight.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"

	"github.com/versusly/compare-engine/internal/metrics"
	"github.com/versusly/compare-engine/pkg/types"
)

// Failure classes surfaced by the fetch path.
var (
	// ErrUpstreamTimeout marks a fetch attempt that lost its timeout
	// race. Retryable.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrUpstreamRejected marks a non-timeout upstream failure (error
	// payload, bad request, auth). Never retried.
	ErrUpstreamRejected = errors.New("upstream rejected request")
)

// backgroundBudget bounds one background revalidation end to end,
// including its wait for a gate slot.
const backgroundBudget = time.Minute

// FetchFunc performs one upstream fetch. The gateway owns timeout and
// retry; implementations just honor ctx.
type FetchFunc func(ctx context.Context) (*types.SourceResult, error)

// CallOptions tunes a single gateway call. Zero fields fall back to the
// gateway's configured defaults.
type CallOptions struct {
	// Timeout bounds each fetch attempt.
	Timeout time.Duration

	// MaxRetries is the extra-attempt budget for timeout failures.
	MaxRetries int

	// TTL is the fresh window for the cached result.
	TTL time.Duration

	// StaleTTL is the additional stale-while-revalidate window.
	StaleTTL time.Duration

	// BypassCache skips the lookup (not the store) for forced refreshes.
	BypassCache bool
}

// entry is one cache slot. Invariant: storedAt <= freshUntil <= staleUntil.
// Entries are replaced whole, never mutated, so concurrent readers always
// see a consistent SourceResult.
type entry struct {
	value      *types.SourceResult
	storedAt   time.Time
	freshUntil time.Time
	staleUntil time.Time
}

// Gateway wraps adapter calls with caching, bounded concurrency, timeout,
// retry, and circuit breaking. Construct with New; safe for concurrent use.
type Gateway struct {
	cfg types.GatewayConfig
	log zerolog.Logger
	met *metrics.Gateway

	// sem is the shared upstream slot gate. Waiters queue FIFO, so
	// callers beyond the limit are delayed, never rejected.
	sem *semaphore.Weighted

	mu         sync.Mutex
	entries    map[string]entry
	refreshing map[string]struct{}

	bmu      sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*types.SourceResult]

	// now is the clock; tests substitute it to drive TTL math.
	now func() time.Time

	// background tracks in-flight revalidations so Close can drain them.
	background sync.WaitGroup
}

// New returns a Gateway. met may be nil to skip metrics.
func New(cfg types.GatewayConfig, log zerolog.Logger, met *metrics.Gateway) *Gateway {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 8 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}

	return &Gateway{
		cfg:        cfg,
		log:        log,
		met:        met,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		entries:    make(map[string]entry),
		refreshing: make(map[string]struct{}),
		breakers:   make(map[string]*gobreaker.CircuitBreaker[*types.SourceResult]),
		now:        time.Now,
	}
}

// Call serves key from cache or fetches through the concurrency gate.
//
// A fresh hit returns immediately with no upstream call. A stale hit
// (past freshUntil, before staleUntil) returns the old value immediately
// and schedules exactly one background revalidation for the key. Anything
// past staleUntil is a hard miss.
//
// On exhausted retries or a non-retryable failure Call returns (nil, nil):
// the source is simply unavailable for this request, and the failure has
// already been logged and counted. The only non-nil errors are the
// caller's own context ending.
func (g *Gateway) Call(ctx context.Context, sourceID, key string, fetch FetchFunc, opts CallOptions) (*types.SourceResult, error) {
	opts = g.withDefaults(opts)

	if !opts.BypassCache {
		if res, ok := g.serveCached(sourceID, key, fetch, opts); ok {
			return res, nil
		}
	}
	g.met.CacheEvent(sourceID, metrics.CacheMiss)

	res, err := g.fetchGated(ctx, sourceID, fetch, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.log.Warn().Str("source", sourceID).Str("key", key).Err(err).
			Msg("source unavailable for this request")
		return nil, nil
	}

	g.store(key, res, opts)
	return res, nil
}

// serveCached returns the cached value when it is inside the fresh or
// stale window, triggering a background revalidation for stale hits.
func (g *Gateway) serveCached(sourceID, key string, fetch FetchFunc, opts CallOptions) (*types.SourceResult, bool) {
	now := g.now()

	g.mu.Lock()
	e, ok := g.entries[key]
	g.mu.Unlock()
	if !ok || !now.Before(e.staleUntil) {
		return nil, false
	}

	if now.Before(e.freshUntil) {
		g.met.CacheEvent(sourceID, metrics.CacheHit)
		return e.value, true
	}

	g.met.CacheEvent(sourceID, metrics.CacheStale)
	g.revalidate(sourceID, key, fetch, opts)
	return e.value, true
}

// revalidate schedules one background refresh for key. A refresh already
// in flight for the same key makes this a no-op, so a burst of stale hits
// costs one upstream call.
func (g *Gateway) revalidate(sourceID, key string, fetch FetchFunc, opts CallOptions) {
	g.mu.Lock()
	if _, busy := g.refreshing[key]; busy {
		g.mu.Unlock()
		return
	}
	g.refreshing[key] = struct{}{}
	g.mu.Unlock()

	g.background.Add(1)
	go func() {
		defer g.background.Done()
		defer func() {
			g.mu.Lock()
			delete(g.refreshing, key)
			g.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), backgroundBudget)
		defer cancel()

		res, err := g.fetchGated(ctx, sourceID, fetch, opts)
		if err != nil {
			// Logged, never re-thrown: the stale value keeps serving.
			g.log.Warn().Str("source", sourceID).Str("key", key).Err(err).
				Msg("background revalidation failed")
			return
		}
		g.store(key, res, opts)
	}()
}

// fetchGated acquires a gate slot and runs the bounded retry loop.
// The retry budget decrements explicitly; only timeout-class failures
// consume it, everything else fails fast.
func (g *Gateway) fetchGated(ctx context.Context, sourceID string, fetch FetchFunc, opts CallOptions) (*types.SourceResult, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	br := g.breaker(sourceID)

	var lastErr error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		start := time.Now()
		res, err := br.Execute(func() (*types.SourceResult, error) {
			return g.fetchOnce(ctx, fetch, opts.Timeout)
		})
		elapsed := time.Since(start)

		if err == nil {
			g.met.Fetch(sourceID, metrics.FetchOK, elapsed)
			return res, nil
		}
		lastErr = err

		if errors.Is(err, ErrUpstreamTimeout) {
			g.met.Fetch(sourceID, metrics.FetchTimeout, elapsed)
			g.log.Debug().Str("source", sourceID).Int("attempt", attempt+1).
				Msg("fetch attempt timed out")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		g.met.Fetch(sourceID, metrics.FetchFailed, elapsed)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamRejected, err)
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

// fetchOnce races one fetch attempt against its timeout. A timed-out
// attempt's underlying network call may still complete in the background;
// its result lands in the buffered channel and is discarded.
func (g *Gateway) fetchOnce(ctx context.Context, fetch FetchFunc, timeout time.Duration) (*types.SourceResult, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res *types.SourceResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fetch(fctx)
		done <- outcome{res, err}
	}()

	select {
	case <-fctx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrUpstreamTimeout
	case o := <-done:
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) {
				return nil, ErrUpstreamTimeout
			}
			return nil, o.err
		}
		if o.res == nil {
			return nil, errors.New("adapter returned no result")
		}
		return o.res, nil
	}
}

// store replaces the cache entry for key. Last writer wins on overlapping
// refresh races; acceptable for a cache.
func (g *Gateway) store(key string, res *types.SourceResult, opts CallOptions) {
	now := g.now()
	e := entry{
		value:      res,
		storedAt:   now,
		freshUntil: now.Add(opts.TTL),
		staleUntil: now.Add(opts.TTL + opts.StaleTTL),
	}

	g.mu.Lock()
	g.entries[key] = e
	g.mu.Unlock()
}

// breaker returns the circuit breaker for sourceID, creating it on first
// use. Consecutive failures past the configured threshold open it; an
// open breaker fails calls instantly until the cooldown elapses.
func (g *Gateway) breaker(sourceID string) *gobreaker.CircuitBreaker[*types.SourceResult] {
	g.bmu.Lock()
	defer g.bmu.Unlock()

	if br, ok := g.breakers[sourceID]; ok {
		return br
	}

	threshold := g.cfg.BreakerThreshold
	br := gobreaker.NewCircuitBreaker[*types.SourceResult](gobreaker.Settings{
		Name:    sourceID,
		Timeout: g.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn().Str("source", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	g.breakers[sourceID] = br
	return br
}

func (g *Gateway) withDefaults(opts CallOptions) CallOptions {
	if opts.Timeout <= 0 {
		opts.Timeout = g.cfg.FetchTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = g.cfg.MaxRetries
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.StaleTTL < 0 {
		opts.StaleTTL = 0
	}
	return opts
}

// Drain blocks until all background revalidations have settled. Called on
// shutdown and by tests asserting refresh counts.
func (g *Gateway) Drain() {
	g.background.Wait()
}
