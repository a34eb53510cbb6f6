package logger

import "sync"

// ring is the fixed-size window of recent log entries the dashboard
// fetches when a client connects. Once full, each push overwrites the
// oldest entry.
type ring struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

func newRing(capacity int) *ring {
	return &ring{entries: make([]LogEntry, capacity)}
}

func (r *ring) push(e LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
}

// snapshot copies the window out, oldest entry first.
func (r *ring) snapshot() []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		out := make([]LogEntry, r.next)
		copy(out, r.entries[:r.next])
		return out
	}
	out := make([]LogEntry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	out = append(out, r.entries[:r.next]...)
	return out
}
