// Package dedup suppresses duplicate concurrent handling of a single
// physical user interaction. The guard is purely a latency and
// throughput optimization; aggregate correctness never depends on it
// because delivery is at-least-once and the mutator recomputes state.
package dedup

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long an in-flight marker survives.
const DefaultTTL = time.Second

// Guard tracks in-flight interaction signatures. It is owned by the
// handler instance and injected via constructor, never a process-wide
// singleton. Entries expire after the TTL so memory stays bounded.
type Guard struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]time.Time

	now func() time.Time
}

// NewGuard returns a guard with the given marker TTL. A non-positive
// ttl falls back to DefaultTTL.
func NewGuard(ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Guard{ttl: ttl, m: make(map[string]time.Time), now: time.Now}
}

// Begin reports whether the interaction identified by actorID and
// signature should be processed now. The first caller wins and the
// signature is marked in-flight until it expires or is cleared.
func (g *Guard) Begin(actorID, signature string) bool {
	key := actorID + "\x00" + signature
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(now)
	if exp, ok := g.m[key]; ok && now.Before(exp) {
		return false
	}
	g.m[key] = now.Add(g.ttl)
	return true
}

// Clear drops the in-flight marker so a user retry is not blocked,
// e.g. after a terminal store failure.
func (g *Guard) Clear(actorID, signature string) {
	key := actorID + "\x00" + signature
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
}

// Len returns the number of live markers. Used by telemetry and tests.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(g.now())
	return len(g.m)
}

func (g *Guard) sweepLocked(now time.Time) {
	for k, exp := range g.m {
		if !now.Before(exp) {
			delete(g.m, k)
		}
	}
}
