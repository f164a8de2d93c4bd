// Package journal keeps a bounded, newest-first record of operational events
// for the admin dashboard.
package journal

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/webitel/message-wall/internal/domain/model"
)

const DefaultCapacity = 50

// Journal is a fixed-size ring buffer; the oldest entry is overwritten first.
type Journal struct {
	mu      sync.RWMutex
	entries []model.LogEntry
	head    int // next write position
	size    int
	clock   clockwork.Clock
}

func New(capacity int, clock clockwork.Clock) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Journal{
		entries: make([]model.LogEntry, capacity),
		clock:   clock,
	}
}

// Append records an entry and returns it with its timestamp filled in.
func (j *Journal) Append(kind model.LogKind, message string, data map[string]any) model.LogEntry {
	if data == nil {
		data = map[string]any{}
	}
	entry := model.LogEntry{
		Type:      kind,
		Message:   message,
		Data:      data,
		Timestamp: j.clock.Now(),
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.head] = entry
	j.head = (j.head + 1) % len(j.entries)
	if j.size < len(j.entries) {
		j.size++
	}
	return entry
}

// Tail returns up to limit entries, newest first. A non-positive limit returns everything.
func (j *Journal) Tail(limit int) []model.LogEntry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > j.size {
		limit = j.size
	}
	out := make([]model.LogEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.head - i + len(j.entries)) % len(j.entries)
		out = append(out, j.entries[idx])
	}
	return out
}

// Last returns the most recent entry, if any.
func (j *Journal) Last() (model.LogEntry, bool) {
	if tail := j.Tail(1); len(tail) == 1 {
		return tail[0], true
	}
	return model.LogEntry{}, false
}

func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.size
}
