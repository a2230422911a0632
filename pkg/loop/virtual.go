package loop

import (
	"container/heap"
	"sync"
	"time"
)

// Virtual is a deterministic event loop driven by simulated time.
//
// Nothing runs until the caller advances time. Callbacks run in due-time
// order (FIFO on ties) and observe Now() equal to their firing time.
// Virtual also satisfies clock.Clock, so the same instance can drive the
// wall clock and the scheduler in tests and simulations.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	events  eventQueue
	live    map[Handle]*virtualEvent
	nextID  Handle
	seq     uint64
	latency func(n uint64) time.Duration
	fired   uint64
}

type virtualEvent struct {
	due    time.Time
	seq    uint64
	handle Handle
	fn     func()
	index  int
}

// VirtualOption configures a Virtual loop.
type VirtualOption func(*Virtual)

// WithLatency adds fn(n) to the delay of the n-th ScheduleOnce call,
// modelling delivery latency of the host's timer queue.
func WithLatency(fn func(n uint64) time.Duration) VirtualOption {
	return func(v *Virtual) {
		v.latency = fn
	}
}

// NewVirtual creates a Virtual loop whose clock reads start.
func NewVirtual(start time.Time, opts ...VirtualOption) *Virtual {
	v := &Virtual{
		now:  start,
		live: make(map[Handle]*virtualEvent),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Now returns the simulated time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// ScheduleOnce runs fn after delay of simulated time.
func (v *Virtual) ScheduleOnce(delay time.Duration, fn func()) Handle {
	v.mu.Lock()
	defer v.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	if v.latency != nil {
		v.seq++
		delay += v.latency(v.seq)
	}
	return v.push(delay, fn)
}

// Post runs fn at the current simulated time, after anything already due.
func (v *Virtual) Post(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.push(0, fn)
}

// Cancel removes the callback registered under h.
func (v *Virtual) Cancel(h Handle) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if ev, ok := v.live[h]; ok {
		heap.Remove(&v.events, ev.index)
		delete(v.live, h)
	}
}

// Pending returns the number of callbacks waiting to run.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.live)
}

// Fired returns the number of callbacks run so far.
func (v *Virtual) Fired() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fired
}

// NextDue returns the due time of the earliest pending callback.
func (v *Virtual) NextDue() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.events) == 0 {
		return time.Time{}, false
	}
	return v.events[0].due, true
}

// Advance moves simulated time forward by d, running every callback that
// falls due on the way, including ones scheduled by earlier callbacks.
func (v *Virtual) Advance(d time.Duration) {
	v.RunFor(d)
}

// RunFor is Advance that also reports how many callbacks ran.
func (v *Virtual) RunFor(d time.Duration) int {
	v.mu.Lock()
	target := v.now.Add(d)
	v.mu.Unlock()

	n := 0
	for v.runNext(target) {
		n++
	}

	v.mu.Lock()
	if v.now.Before(target) {
		v.now = target
	}
	v.mu.Unlock()
	return n
}

// RunUntilIdle runs callbacks in order, jumping time forward as needed,
// until none are pending or limit callbacks have run. It returns the
// number of callbacks run.
func (v *Virtual) RunUntilIdle(limit int) int {
	n := 0
	for n < limit {
		due, ok := v.NextDue()
		if !ok || !v.runNext(due) {
			break
		}
		n++
	}
	return n
}

// runNext runs the earliest callback due at or before target.
func (v *Virtual) runNext(target time.Time) bool {
	v.mu.Lock()
	if len(v.events) == 0 || v.events[0].due.After(target) {
		v.mu.Unlock()
		return false
	}

	ev := heap.Pop(&v.events).(*virtualEvent)
	delete(v.live, ev.handle)
	if ev.due.After(v.now) {
		v.now = ev.due
	}
	v.fired++
	v.mu.Unlock()

	ev.fn()
	return true
}

// push must be called with v.mu held.
func (v *Virtual) push(delay time.Duration, fn func()) Handle {
	v.nextID++
	ev := &virtualEvent{
		due:    v.now.Add(delay),
		seq:    uint64(v.nextID),
		handle: v.nextID,
		fn:     fn,
	}
	heap.Push(&v.events, ev)
	v.live[ev.handle] = ev
	return ev.handle
}

// eventQueue orders events by due time, then by registration order.
type eventQueue []*virtualEvent

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q eventQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *eventQueue) Push(x any) {
	ev := x.(*virtualEvent)
	ev.index = len(*q)
	*q = append(*q, ev)
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*q = old[:n-1]
	return ev
}
