package audit

import "sync"

// DefaultRetention is the bounded retention count for the in-memory trail.
const DefaultRetention = 1000

// Log is the append-only, capacity-bounded audit trail. When the cap is
// reached the oldest entries are evicted first.
type Log struct {
	mu     sync.Mutex
	cap    int
	events []Event
}

// NewLog creates a Log retaining at most capacity events.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultRetention
	}
	return &Log{cap: capacity}
}

// Append records event, evicting the oldest entry on overflow.
func (l *Log) Append(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) >= l.cap {
		overflow := len(l.events) - l.cap + 1
		l.events = append(l.events[:0], l.events[overflow:]...)
	}
	l.events = append(l.events, event)
}

// Snapshot returns a copy of the retained events, oldest first.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the retained event count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear drops all retained events.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
