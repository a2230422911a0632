package event

import (
	"sort"
	"sync"
	"time"
)

// History keeps the most recent events in timestamp order.
type History struct {
	mu     sync.RWMutex
	events []Event
	limit  int
}

// NewHistory creates a History holding at most limit events.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{
		events: make([]Event, 0, limit),
		limit:  limit,
	}
}

// Append inserts evt by timestamp, evicting the oldest event when full.
// Events usually arrive in order, so the common case is an append.
func (h *History) Append(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.events)
	if n == 0 || !evt.Timestamp.Before(h.events[n-1].Timestamp) {
		h.events = append(h.events, evt)
	} else {
		i := sort.Search(n, func(i int) bool {
			return h.events[i].Timestamp.After(evt.Timestamp)
		})
		h.events = append(h.events, Event{})
		copy(h.events[i+1:], h.events[i:])
		h.events[i] = evt
	}

	if over := len(h.events) - h.limit; over > 0 {
		h.events = append(h.events[:0], h.events[over:]...)
	}
}

// Last returns up to n most recent events, oldest first.
func (h *History) Last(n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	if n > len(h.events) {
		n = len(h.events)
	}
	out := make([]Event, n)
	copy(out, h.events[len(h.events)-n:])
	return out
}

// Since returns events with timestamps at or after t.
func (h *History) Since(t time.Time) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	i := sort.Search(len(h.events), func(i int) bool {
		return !h.events[i].Timestamp.Before(t)
	})
	out := make([]Event, len(h.events)-i)
	copy(out, h.events[i:])
	return out
}

// Len returns the number of stored events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Record drains sub into the history until the subscription closes.
func (h *History) Record(sub Subscription) {
	for evt := range sub.Events() {
		h.Append(evt)
	}
}
