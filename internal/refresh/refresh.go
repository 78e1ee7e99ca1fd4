// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refresh coordinates forced comparison rebuilds.
// Implements: prd104-refresh (R1-R4);
//
//	docs/ARCHITECTURE § Refresh Coordination.
//
// A process-wide registry of tickets keyed by comparison identity prevents
// duplicate concurrent rebuilds, enforces a global in-flight ceiling, and
// lets callers await an in-flight rebuild instead of starting their own.
// Tickets move idle → in-flight → cooldown → idle; the cooldown keeps the
// ticket around briefly after settling to absorb re-trigger storms. The
// registry is memory-only: a restart forgets it, costing at most one
// redundant refresh.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/versusly/compare-engine/pkg/types"
)

// Admission failures returned by Begin.
var (
	// ErrDuplicate means a rebuild for the key is in flight or cooling
	// down.
	ErrDuplicate = errors.New("refresh already in progress for key")

	// ErrCeiling means the process-wide in-flight ceiling is reached.
	ErrCeiling = errors.New("refresh concurrency ceiling reached")
)

// ticket is the registry's internal record. done closes when the rebuild
// settles, success or failure.
type ticket struct {
	id        string
	key       string
	typ       types.RefreshType
	startedAt time.Time
	done      chan struct{}

	// settledAt is zero while in flight; set on settle to start cooldown.
	settledAt time.Time
}

// Coordinator is the process-wide refresh registry. Construct with New;
// safe for concurrent use. All read-modify-write on the registry happens
// under one mutex, which the low operation rate makes plenty.
type Coordinator struct {
	cfg types.RefreshConfig
	log zerolog.Logger

	mu      sync.Mutex
	tickets map[string]*ticket

	// now is the clock; tests substitute it to drive cooldown and
	// staleness math.
	now func() time.Time
}

// New returns a Coordinator, applying defaults for zero config fields.
func New(cfg types.RefreshConfig, log zerolog.Logger) *Coordinator {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 3
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	return &Coordinator{
		cfg:     cfg,
		log:     log,
		tickets: make(map[string]*ticket),
		now:     time.Now,
	}
}

// Begin registers a rebuild for key. It refuses with ErrDuplicate when a
// ticket for the key is in flight or cooling down, and with ErrCeiling
// when the global in-flight count is at the ceiling. Refusals carry a
// structured reason, never a silent drop. On success the caller owns the
// rebuild and must settle it via Finish.
func (c *Coordinator) Begin(key string, typ types.RefreshType) (types.RefreshTicket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()

	if existing, ok := c.tickets[key]; ok {
		state := "in flight"
		if !existing.settledAt.IsZero() {
			state = "cooling down"
		}
		return types.RefreshTicket{}, fmt.Errorf("%w (%s since %s)",
			ErrDuplicate, state, existing.startedAt.Format(time.RFC3339))
	}

	if inFlight := c.inFlightLocked(); inFlight >= c.cfg.MaxInFlight {
		return types.RefreshTicket{}, fmt.Errorf("%w (%d of %d slots busy)",
			ErrCeiling, inFlight, c.cfg.MaxInFlight)
	}

	t := &ticket{
		id:        uuid.New().String(),
		key:       key,
		typ:       typ,
		startedAt: c.now(),
		done:      make(chan struct{}),
	}
	c.tickets[key] = t

	c.log.Info().Str("key", key).Str("type", string(typ)).Str("ticket", t.id).
		Msg("refresh registered")
	return publicView(t), nil
}

// Finish settles the rebuild for key. The ticket enters cooldown and is
// purged once the cooldown window elapses. Settling an unknown key is a
// no-op (the ticket may have been purged as stale).
func (c *Coordinator) Finish(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tickets[key]
	if !ok || !t.settledAt.IsZero() {
		return
	}
	t.settledAt = c.now()
	close(t.done)

	evt := c.log.Info()
	if err != nil {
		evt = c.log.Warn().Err(err)
	}
	evt.Str("key", key).Str("ticket", t.id).Msg("refresh settled")
}

// Do wraps a whole rebuild: admission, execution, settle. Admission
// failures come back typed (ErrDuplicate, ErrCeiling) so the caller can
// decide between waiting and surfacing state.
func (c *Coordinator) Do(ctx context.Context, key string, typ types.RefreshType, fn func(context.Context) error) error {
	if _, err := c.Begin(key, typ); err != nil {
		return err
	}
	err := fn(ctx)
	c.Finish(key, err)
	return err
}

// InProgress reports whether a rebuild for key is currently in flight.
// Advisory only, and self-healing: a ticket older than the staleness
// ceiling is purged first, so a crashed rebuild cannot wedge its key.
// Cooldown tickets report false; they only block Begin.
func (c *Coordinator) InProgress(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()

	t, ok := c.tickets[key]
	return ok && t.settledAt.IsZero()
}

// Wait blocks until the rebuild for key settles, the timeout elapses, or
// ctx ends. It returns true when the rebuild settled (or none was in
// flight) and false on timeout; timeouts are swallowed so the caller can
// simply re-poll.
func (c *Coordinator) Wait(ctx context.Context, key string, timeout time.Duration) bool {
	c.mu.Lock()
	c.purgeLocked()
	t, ok := c.tickets[key]
	// settledAt is written by Finish under the same lock; read it here,
	// not after unlocking.
	settled := ok && !t.settledAt.IsZero()
	c.mu.Unlock()

	if !ok || settled {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Tickets returns a snapshot of the live registry for status surfaces.
func (c *Coordinator) Tickets() []types.RefreshTicket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purgeLocked()

	out := make([]types.RefreshTicket, 0, len(c.tickets))
	for _, t := range c.tickets {
		out = append(out, publicView(t))
	}
	return out
}

// purgeLocked removes cooled-down tickets past the cooldown window and
// any ticket past the hard staleness ceiling. Caller holds c.mu.
func (c *Coordinator) purgeLocked() {
	now := c.now()
	for key, t := range c.tickets {
		switch {
		case !t.settledAt.IsZero() && now.Sub(t.settledAt) >= c.cfg.Cooldown:
			delete(c.tickets, key)
		case now.Sub(t.startedAt) >= c.cfg.StaleAfter:
			if t.settledAt.IsZero() {
				// Hung or crashed rebuild; release waiters and forget it.
				close(t.done)
				c.log.Warn().Str("key", key).Str("ticket", t.id).
					Msg("purging stale refresh ticket")
			}
			delete(c.tickets, key)
		}
	}
}

// inFlightLocked counts unsettled tickets. Caller holds c.mu.
func (c *Coordinator) inFlightLocked() int {
	n := 0
	for _, t := range c.tickets {
		if t.settledAt.IsZero() {
			n++
		}
	}
	return n
}

func publicView(t *ticket) types.RefreshTicket {
	return types.RefreshTicket{
		ID:        t.id,
		Key:       t.key,
		Type:      t.typ,
		StartedAt: t.startedAt,
	}
}

// Key canonicalizes a comparison identity for the registry.
func Key(termA, termB string, tf types.Timeframe, geo string) string {
	return termA + "|" + termB + "|" + string(tf) + "|" + geo
}
