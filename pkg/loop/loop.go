// Package loop provides the single logical event queue the watch face
// engine runs on.
//
// Every host callback, tick and redraw is delivered as a discrete event on
// one goroutine, so engine state needs no locking. The only asynchronous
// boundary is between scheduling a delayed callback and its delivery, and
// that boundary is cancellable: once Cancel returns, the callback will not
// run even if its timer has already expired.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Run when the loop has already been stopped.
var ErrStopped = errors.New("loop: stopped")

// Handle identifies a callback registered with ScheduleOnce.
// The zero Handle is never issued.
type Handle uint64

// Scheduler registers one-shot delayed callbacks.
type Scheduler interface {
	// ScheduleOnce runs fn once after delay. A delay <= 0 runs fn as
	// soon as the queue reaches it.
	ScheduleOnce(delay time.Duration, fn func()) Handle

	// Cancel prevents a scheduled callback from running.
	// Cancelling an unknown or already-run handle is a no-op.
	Cancel(h Handle)
}

// Poster enqueues work onto the loop from any goroutine.
type Poster interface {
	Post(fn func())
}

// Timer is the subset of *time.Timer the loop needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a runtime timer. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Loop is a real-time event loop backed by runtime timers.
type Loop struct {
	mu        sync.Mutex
	queue     chan func()
	overflow  []func()
	afterFunc AfterFunc
	pending   map[Handle]Timer
	nextID    Handle
	stopped   bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(size int) Option {
	return func(l *Loop) {
		if size > 0 {
			l.queue = make(chan func(), size)
		}
	}
}

// WithAfterFunc replaces the timer factory (tests).
func WithAfterFunc(fn AfterFunc) Option {
	return func(l *Loop) {
		l.afterFunc = fn
	}
}

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// New creates a Loop. Call Run to start delivering events.
func New(opts ...Option) *Loop {
	l := &Loop{
		queue:     make(chan func(), 64),
		afterFunc: systemAfterFunc,
		pending:   make(map[Handle]Timer),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Post enqueues fn. It never blocks, so callbacks on the loop may post:
// once the queue is full, work spills into an overflow list that Run
// delivers after the queue, keeping call order. fn is dropped once the
// loop has stopped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	if len(l.overflow) > 0 {
		l.overflow = append(l.overflow, fn)
		return
	}
	select {
	case l.queue <- fn:
	default:
		l.overflow = append(l.overflow, fn)
	}
}

// ScheduleOnce runs fn on the loop after delay.
func (l *Loop) ScheduleOnce(delay time.Duration, fn func()) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	h := l.nextID

	if delay < 0 {
		delay = 0
	}
	l.pending[h] = l.afterFunc(delay, func() {
		l.Post(func() { l.fire(h, fn) })
	})
	return h
}

// Cancel stops the callback registered under h.
func (l *Loop) Cancel(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.pending[h]; ok {
		t.Stop()
		delete(l.pending, h)
	}
}

// Pending returns the number of scheduled callbacks not yet run.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// fire runs fn if h is still registered. A timer that expired before
// Cancel may still have posted; the registration check drops it.
func (l *Loop) fire(h Handle, fn func()) {
	l.mu.Lock()
	_, ok := l.pending[h]
	delete(l.pending, h)
	l.mu.Unlock()

	if ok {
		fn()
	}
}

// Run delivers events until ctx is cancelled. Pending timers are stopped
// on return.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return ErrStopped
	}
	l.mu.Unlock()

	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.queue:
			fn()
			l.runOverflow()
		}
	}
}

// runOverflow runs spilled work once the queue ahead of it has drained.
func (l *Loop) runOverflow() {
	for {
		l.mu.Lock()
		if len(l.queue) > 0 || len(l.overflow) == 0 {
			l.mu.Unlock()
			return
		}
		batch := l.overflow
		l.overflow = nil
		l.mu.Unlock()

		for _, fn := range batch {
			fn()
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	l.overflow = nil
	for h, t := range l.pending {
		t.Stop()
		delete(l.pending, h)
	}
}
