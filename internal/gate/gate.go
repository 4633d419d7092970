package gate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"newsanalyst/internal/model"
)

// Outcome is the single result every caller for a fingerprint receives.
type Outcome struct {
	Report *model.AnalysisReport
	Err    error
}

// completed wraps an outcome with its production time for eviction order.
type completed struct {
	Outcome    Outcome
	ProducedAt time.Time
}

// pending is an in-flight computation. Waiters block on done; the owner
// closes it exactly once via Complete.
type pending struct {
	done    chan struct{}
	outcome Outcome
}

// Gate guarantees at most one in-flight computation per fingerprint.
// Completed outcomes are cached with a TTL; pending entries hold waiters
// that suspend (never poll) until the owner completes.
type Gate struct {
	mu       sync.Mutex
	inflight map[string]*pending

	done       *gocache.Cache
	ttl        time.Duration
	maxEntries int
}

// New creates a gate. TTL expiry of completed entries is handled lazily
// by the cache and by its background janitor sweep; maxEntries bounds the
// completed set, evicting least-recently-produced entries first.
func New(cfg model.CacheConfig) *Gate {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &Gate{
		inflight:   make(map[string]*pending),
		done:       gocache.New(ttl, ttl/2),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// Acquire resolves a fingerprint to one of three cases:
//   - no entry: a new pending entry is created and the caller becomes the
//     owner (owner=true); it must call Complete on every exit path.
//   - completed and unexpired: the recorded outcome returns immediately.
//   - pending: the caller suspends until the owner completes, then
//     receives the identical outcome. A context expiry releases the
//     waiter with ctx.Err() without disturbing the computation.
func (g *Gate) Acquire(ctx context.Context, key string) (Outcome, bool, error) {
	g.mu.Lock()

	if v, ok := g.done.Get(key); ok {
		g.mu.Unlock()
		return v.(*completed).Outcome, false, nil
	}

	if p, ok := g.inflight[key]; ok {
		g.mu.Unlock()
		select {
		case <-p.done:
			return p.outcome, false, nil
		case <-ctx.Done():
			return Outcome{}, false, ctx.Err()
		}
	}

	g.inflight[key] = &pending{done: make(chan struct{})}
	g.mu.Unlock()
	return Outcome{}, true, nil
}

// Complete transitions a pending entry to its terminal outcome exactly
// once, releases every waiter with that outcome, and starts the TTL
// clock. A second Complete for the same key is a no-op, which keeps
// abnormal-exit completion paths safe to layer with defer.
func (g *Gate) Complete(key string, out Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.inflight[key]
	if !ok {
		return
	}
	delete(g.inflight, key)

	p.outcome = out
	g.done.Set(key, &completed{Outcome: out, ProducedAt: time.Now()}, g.ttl)
	g.evictOverCapacity()

	close(p.done)
}

// Invalidate drops a completed entry so the next Acquire starts fresh.
func (g *Gate) Invalidate(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done.Delete(key)
}

// InFlight reports the number of pending computations.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}

// evictOverCapacity removes least-recently-produced completed entries
// until the completed set fits. Called with g.mu held.
func (g *Gate) evictOverCapacity() {
	for g.done.ItemCount() > g.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, item := range g.done.Items() {
			c, ok := item.Object.(*completed)
			if !ok {
				continue
			}
			if oldestKey == "" || c.ProducedAt.Before(oldest) {
				oldestKey = k
				oldest = c.ProducedAt
			}
		}
		if oldestKey == "" {
			return
		}
		g.done.Delete(oldestKey)
	}
}
