package clock

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownZone is returned when a timezone identifier cannot be loaded.
var ErrUnknownZone = errors.New("clock: unknown timezone")

// ZoneFunc reports the host's current default timezone.
type ZoneFunc func() *time.Location

// Source turns wall-clock readings into TimeSamples in the active timezone.
//
// The active zone starts as the host default. It is replaced when the host
// reports a timezone change (SetZone) and re-read from the host when the
// display becomes visible again (ResetZone), since changes may have been
// missed while hidden.
type Source struct {
	mu     sync.RWMutex
	clk    Clock
	system ZoneFunc
	loc    *time.Location
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithSystemZone sets the function used to read the host default zone.
func WithSystemZone(fn ZoneFunc) SourceOption {
	return func(s *Source) {
		s.system = fn
	}
}

// NewSource creates a Source reading from clk.
// The default system zone is time.Local.
func NewSource(clk Clock, opts ...SourceOption) *Source {
	s := &Source{
		clk:    clk,
		system: func() *time.Location { return time.Local },
	}

	for _, opt := range opts {
		opt(s)
	}

	s.loc = s.systemZone()
	return s
}

// Now samples the clock in the active zone.
func (s *Source) Now() TimeSample {
	return Sample(s.Time())
}

// Time returns the current time in the active zone.
func (s *Source) Time() time.Time {
	s.mu.RLock()
	loc := s.loc
	s.mu.RUnlock()
	return s.clk.Now().In(loc)
}

// Clock returns the underlying wall clock.
func (s *Source) Clock() Clock {
	return s.clk
}

// Zone returns the name of the active zone.
func (s *Source) Zone() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc.String()
}

// SetZone switches the active zone to the IANA zone named id.
// On failure the active zone is left unchanged.
func (s *Source) SetZone(id string) error {
	loc, err := time.LoadLocation(id)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrUnknownZone, id, err)
	}

	s.mu.Lock()
	s.loc = loc
	s.mu.Unlock()
	return nil
}

// ResetZone re-reads the host default zone and makes it active.
func (s *Source) ResetZone() {
	loc := s.systemZone()
	s.mu.Lock()
	s.loc = loc
	s.mu.Unlock()
}

func (s *Source) systemZone() *time.Location {
	if s.system == nil {
		return time.Local
	}
	if loc := s.system(); loc != nil {
		return loc
	}
	return time.Local
}
