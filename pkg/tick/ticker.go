// Package tick drives periodic redraws aligned to wall-clock second
// boundaries.
//
// A Ticker owns at most one pending wake-up. Update always cancels the
// pending wake-up before deciding whether to schedule a new one, so a
// missed cancellation can never produce overlapping tick chains. When a
// tick fires it requests a redraw and, if ticking is still wanted,
// schedules the next tick for the next whole interval boundary measured
// in Unix milliseconds. Scheduling latency therefore never accumulates.
package tick

import (
	"time"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/loop"
)

// DefaultInterval is the interactive update rate.
const DefaultInterval = time.Second

// NextDelay returns the time from now to the next multiple of interval
// since the Unix epoch. The result is in (0, interval]; a time exactly on
// a boundary waits a full interval.
func NextDelay(now time.Time, interval time.Duration) time.Duration {
	step := interval.Milliseconds()
	if step <= 0 {
		return interval
	}
	ms := clock.EpochMillis(now)
	return time.Duration(step-mod(ms, step)) * time.Millisecond
}

// mod is the non-negative remainder, so pre-1970 clocks still align.
func mod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// Observer receives scheduling notifications (metrics, tracing).
type Observer interface {
	// TickScheduled is called when a tick is queued with the given delay.
	TickScheduled(delay time.Duration)
	// TickCanceled is called when a pending tick is discarded.
	TickCanceled()
	// TickFired is called when a tick is delivered; lateness is how far
	// past its target boundary it arrived.
	TickFired(lateness time.Duration)
}

// Ticker schedules redraw ticks while its running predicate holds.
type Ticker struct {
	sched    loop.Scheduler
	clk      clock.Clock
	interval time.Duration
	redraw   func()
	running  func() bool
	observer Observer

	pending bool
	handle  loop.Handle
	target  time.Time
	fired   uint64
}

// Option configures a Ticker.
type Option func(*Ticker)

// WithInterval sets the tick interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(t *Ticker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithObserver attaches a scheduling observer.
func WithObserver(o Observer) Option {
	return func(t *Ticker) {
		t.observer = o
	}
}

// New creates a Ticker.
//
// Parameters:
//   - sched: delivers tick callbacks on the engine's event queue
//   - clk: wall clock used for boundary alignment
//   - redraw: invoked on every tick
//   - running: re-evaluated when a tick fires; false stops the chain
func New(sched loop.Scheduler, clk clock.Clock, redraw func(), running func() bool, opts ...Option) *Ticker {
	t := &Ticker{
		sched:    sched,
		clk:      clk,
		interval: DefaultInterval,
		redraw:   redraw,
		running:  running,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Update cancels any pending tick and, if shouldTick is true, schedules
// one to fire immediately.
func (t *Ticker) Update(shouldTick bool) {
	t.cancel()
	if shouldTick {
		t.schedule(0)
	}
}

// Stop cancels any pending tick.
func (t *Ticker) Stop() {
	t.cancel()
}

// Pending reports whether a tick is outstanding.
func (t *Ticker) Pending() bool {
	return t.pending
}

// Fired returns the number of ticks delivered.
func (t *Ticker) Fired() uint64 {
	return t.fired
}

// Interval returns the tick interval.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

func (t *Ticker) schedule(delay time.Duration) {
	t.target = t.clk.Now().Add(delay)
	t.handle = t.sched.ScheduleOnce(delay, t.fire)
	t.pending = true
	if t.observer != nil {
		t.observer.TickScheduled(delay)
	}
}

func (t *Ticker) cancel() {
	if !t.pending {
		return
	}
	t.sched.Cancel(t.handle)
	t.pending = false
	if t.observer != nil {
		t.observer.TickCanceled()
	}
}

func (t *Ticker) fire() {
	t.pending = false
	t.fired++

	now := t.clk.Now()
	if t.observer != nil {
		t.observer.TickFired(now.Sub(t.target))
	}

	if t.redraw != nil {
		t.redraw()
	}

	if t.running != nil && t.running() && !t.pending {
		t.schedule(NextDelay(t.clk.Now(), t.interval))
	}
}
