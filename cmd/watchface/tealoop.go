package main

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/BYTE-6D65/watchface/pkg/loop"
)

// fireMsg delivers a scheduled callback to the program's update loop.
type fireMsg struct {
	handle loop.Handle
}

// postMsg delivers posted work to the program's update loop.
type postMsg struct {
	fn func()
}

type teaTimer struct {
	timer *time.Timer
	fn    func()
}

// teaLoop makes a bubbletea program the engine's event loop: timers and
// posted work arrive as messages, so every callback runs inside Update.
type teaLoop struct {
	mu         sync.Mutex
	send       func(tea.Msg)
	pending    map[loop.Handle]*teaTimer
	nextID     loop.Handle
	posts      []func()
	forwarding bool
	stopped    bool
}

func newTeaLoop() *teaLoop {
	return &teaLoop{pending: make(map[loop.Handle]*teaTimer)}
}

// ScheduleOnce implements loop.Scheduler.
func (l *teaLoop) ScheduleOnce(delay time.Duration, fn func()) loop.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	h := l.nextID
	if l.stopped {
		return h
	}

	if delay < 0 {
		delay = 0
	}
	l.pending[h] = &teaTimer{
		fn:    fn,
		timer: time.AfterFunc(delay, func() { l.send(fireMsg{handle: h}) }),
	}
	return h
}

// Cancel implements loop.Scheduler.
func (l *teaLoop) Cancel(h loop.Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t, ok := l.pending[h]; ok {
		t.timer.Stop()
		delete(l.pending, h)
	}
}

// Post implements loop.Poster. Posted work reaches Update in call order.
// Send blocks until Update reads the message, so a single forwarder
// goroutine delivers the queue and the caller never waits on it.
func (l *teaLoop) Post(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	l.posts = append(l.posts, fn)
	if !l.forwarding {
		l.forwarding = true
		go l.forward()
	}
}

// forward sends queued posts one at a time until the queue is empty.
func (l *teaLoop) forward() {
	for {
		l.mu.Lock()
		if len(l.posts) == 0 || l.stopped {
			l.posts = nil
			l.forwarding = false
			l.mu.Unlock()
			return
		}
		fn := l.posts[0]
		l.posts[0] = nil
		l.posts = l.posts[1:]
		l.mu.Unlock()

		l.send(postMsg{fn: fn})
	}
}

// fire runs the callback for h unless it was cancelled after its timer
// expired.
func (l *teaLoop) fire(h loop.Handle) {
	l.mu.Lock()
	t, ok := l.pending[h]
	delete(l.pending, h)
	l.mu.Unlock()

	if ok {
		t.fn()
	}
}

// stop cancels every timer and drops later work.
func (l *teaLoop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	l.posts = nil
	for h, t := range l.pending {
		t.timer.Stop()
		delete(l.pending, h)
	}
}
