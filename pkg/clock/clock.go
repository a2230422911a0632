package clock

import "time"

// Clock provides wall-clock time for the watch face.
// Alignment of redraw ticks is computed from Unix milliseconds, so
// implementations must report real wall time, not a process-relative epoch.
type Clock interface {
	// Now returns the current wall-clock time
	Now() time.Time
}

// EpochMillis converts a wall-clock time to milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis converts milliseconds since the Unix epoch to a UTC time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// SystemClock reads the operating system's wall clock.
type SystemClock struct{}

// NewSystemClock creates a new SystemClock.
func NewSystemClock() *SystemClock {
	return &SystemClock{}
}

// Now returns time.Now().
func (s *SystemClock) Now() time.Time {
	return time.Now()
}
