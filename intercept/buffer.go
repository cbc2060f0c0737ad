package intercept

import (
	"sync"

	"github.com/ysmood/gson"
)

// Buffer holds the most recently captured ranking list for one session.
// Each qualifying payload replaces the previous one; an empty list never
// replaces anything. Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	entries  []gson.JSON
	strategy string
	writes   int
}

// Replace stores entries if non-empty and reports whether it did.
func (b *Buffer) Replace(entries []gson.JSON, strategy string) bool {
	if len(entries) == 0 {
		return false
	}
	cp := make([]gson.JSON, len(entries))
	copy(cp, entries)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = cp
	b.strategy = strategy
	b.writes++
	return true
}

// Snapshot returns the current list and the strategy that produced it.
func (b *Buffer) Snapshot() ([]gson.JSON, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entries, b.strategy
}

// Len returns the number of entries currently held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Writes returns how many payloads have replaced the buffer so far.
func (b *Buffer) Writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}
