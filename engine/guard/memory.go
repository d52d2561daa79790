// Package guard contains the interpreter's process safety nets: the per
// (session, node) loop guard and the inbound duplicate-message filter. Both
// have an in-memory implementation for tests and single-instance deploys and
// a Redis implementation for multi-instance correctness.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/chatflow/engine"
	"github.com/Abraxas-365/chatflow/pkg/kernel"
)

const (
	DefaultLoopCeiling = 5
	DefaultLoopWindow  = 10 * time.Minute
	DefaultDedupTTL    = time.Hour
)

// ============================================================================
// In-Memory Loop Guard
// ============================================================================

type loopCounter struct {
	count       int
	windowStart time.Time
}

// MemoryLoopGuard acota re-entradas a un nodo con contadores en memoria
type MemoryLoopGuard struct {
	mu       sync.Mutex
	ceiling  int
	window   time.Duration
	counters map[string]*loopCounter
}

var _ engine.LoopGuard = (*MemoryLoopGuard)(nil)

func NewMemoryLoopGuard(ceiling int, window time.Duration) *MemoryLoopGuard {
	if ceiling <= 0 {
		ceiling = DefaultLoopCeiling
	}
	if window <= 0 {
		window = DefaultLoopWindow
	}
	return &MemoryLoopGuard{
		ceiling:  ceiling,
		window:   window,
		counters: make(map[string]*loopCounter),
	}
}

func (g *MemoryLoopGuard) Admit(ctx context.Context, sessionID kernel.SessionID, nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := loopKey(sessionID, nodeID)
	now := time.Now()

	c, ok := g.counters[key]
	if !ok || now.Sub(c.windowStart) > g.window {
		c = &loopCounter{windowStart: now}
		g.counters[key] = c
	}

	c.count++
	return c.count <= g.ceiling
}

func (g *MemoryLoopGuard) Reset(ctx context.Context, sessionID kernel.SessionID, nodeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.counters, loopKey(sessionID, nodeID))
}

// ============================================================================
// In-Memory Duplicate Filter
// ============================================================================

// MemoryDuplicateFilter cache de message ids ya vistos con expiración perezosa
type MemoryDuplicateFilter struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

var _ engine.DuplicateFilter = (*MemoryDuplicateFilter)(nil)

func NewMemoryDuplicateFilter(ttl time.Duration) *MemoryDuplicateFilter {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &MemoryDuplicateFilter{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

func (f *MemoryDuplicateFilter) Seen(ctx context.Context, sessionID kernel.SessionID, messageID string) bool {
	if messageID == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	key := dedupKey(sessionID, messageID)

	if at, ok := f.seen[key]; ok && now.Sub(at) <= f.ttl {
		return true
	}

	// barrido perezoso para acotar memoria
	if len(f.seen) > 4096 {
		for k, at := range f.seen {
			if now.Sub(at) > f.ttl {
				delete(f.seen, k)
			}
		}
	}

	f.seen[key] = now
	return false
}

func loopKey(sessionID kernel.SessionID, nodeID string) string {
	return sessionID.String() + ":" + nodeID
}

func dedupKey(sessionID kernel.SessionID, messageID string) string {
	return sessionID.String() + ":" + messageID
}
