// Package dedupe remembers which events were already applied so replays
// of overlapping input files are skipped.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// Deduper reports whether an id was seen before and records it.
type Deduper interface {
	// Seen returns true when id is a duplicate.
	Seen(ctx context.Context, id string) (bool, error)
	// Forget drops id so a later Seen reports it as new. It releases the
	// mark of an event that failed to apply.
	Forget(ctx context.Context, id string) error
}

// Memory is a process-local deduper. Entries expire after ttl; a zero ttl
// keeps them for the life of the process.
type Memory struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (m *Memory) Seen(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if at, ok := m.seen[id]; ok {
		if m.ttl == 0 || now.Sub(at) < m.ttl {
			return true, nil
		}
	}
	m.seen[id] = now
	return false, nil
}

func (m *Memory) Forget(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.seen, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of remembered ids.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
