package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryGovernor keeps one x/time/rate limiter per (class, key) with
// periodic cleanup of idle entries.
type MemoryGovernor struct {
	mu           sync.Mutex
	policies     Policies
	entries      map[string]*entry
	now          func() time.Time
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type MemoryOption func(*MemoryGovernor)

// WithClock replaces time.Now, e.g. with a simulated clock in tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(g *MemoryGovernor) { g.now = now }
}

func WithIdleTTL(d time.Duration) MemoryOption {
	return func(g *MemoryGovernor) { g.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(g *MemoryGovernor) { g.cleanupEvery = d }
}

func NewMemoryGovernor(policies Policies, opts ...MemoryOption) *MemoryGovernor {
	g := &MemoryGovernor{
		policies:     policies,
		entries:      make(map[string]*entry),
		now:          time.Now,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit takes one token from the (class, key) bucket. Classes without a
// policy are always admitted.
func (g *MemoryGovernor) Admit(_ context.Context, class, key string) (Decision, error) {
	pol, ok := g.policies[class]
	if !ok {
		return Decision{Allowed: true}, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	lim := g.limiter(class, key, pol, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, RetryAfter: pol.Period}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		// Give the token back: a rejected call must not push later callers further out.
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

func (g *MemoryGovernor) limiter(class, key string, pol Policy, now time.Time) *rate.Limiter {
	k := bucketKey(class, key)
	if ent, ok := g.entries[k]; ok {
		ent.lastSeen = now
		return ent.lim
	}
	lim := rate.NewLimiter(rate.Limit(pol.PerSecond()), pol.Capacity)
	g.entries[k] = &entry{lim: lim, lastSeen: now}
	return lim
}

// Len returns the number of live buckets.
func (g *MemoryGovernor) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Cleanup drops buckets not used for idleTTL. A dropped bucket restarts full,
// so idleTTL should be at least the longest refill time.
func (g *MemoryGovernor) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.idleTTL)
	for k, ent := range g.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(g.entries, k)
		}
	}
}

// StartJanitor runs Cleanup every cleanupEvery until ctx is done.
func (g *MemoryGovernor) StartJanitor(ctx context.Context) {
	if g.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(g.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.Cleanup()
			}
		}
	}()
}
