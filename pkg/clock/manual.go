package clock

import (
	"sync"
	"time"
)

// Manual is a Clock whose time only moves when told to.
// It can also replay a pre-loaded sequence of deltas, one per Step.
type Manual struct {
	mu      sync.RWMutex
	current time.Time
	deltas  []time.Duration
	index   int
}

// NewManual creates a Manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{current: start}
}

// Now returns the clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.current.Add(d)
}

// Load replaces the replay sequence and rewinds it.
func (m *Manual) Load(deltas []time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = make([]time.Duration, len(deltas))
	copy(m.deltas, deltas)
	m.index = 0
}

// Step applies the next loaded delta. It reports false when the
// sequence is exhausted.
func (m *Manual) Step() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index >= len(m.deltas) {
		return false
	}
	m.current = m.current.Add(m.deltas[m.index])
	m.index++
	return true
}

// HasNext returns true if there are more deltas to step through.
func (m *Manual) HasNext() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index < len(m.deltas)
}

// Remaining returns the number of deltas left to replay.
func (m *Manual) Remaining() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.deltas) - m.index
}
