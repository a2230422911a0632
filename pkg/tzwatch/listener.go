package tzwatch

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/BYTE-6D65/watchface/pkg/event"
	"github.com/BYTE-6D65/watchface/pkg/loop"
)

// Listener delivers timezone changes from a bus to one callback. The
// callback always runs on the poster's goroutine (the engine loop), and
// never after Unsubscribe returns on that goroutine.
type Listener struct {
	bus    event.Bus
	poster loop.Poster
	logger *log.Logger

	mu     sync.Mutex
	sub    event.Subscription
	cb     func(zone string)
	gen    uint64
	active bool
}

// NewListener creates an unsubscribed Listener.
func NewListener(bus event.Bus, poster loop.Poster, logger *log.Logger) *Listener {
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{bus: bus, poster: poster, logger: logger}
}

// Subscribe starts delivering changes to cb. Subscribing while already
// subscribed only replaces the callback.
func (l *Listener) Subscribe(cb func(zone string)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cb = cb
	if l.active {
		return nil
	}

	sub, err := l.bus.Subscribe(context.Background(), event.Filter{
		Types: []string{event.TypeTimezoneChanged},
	})
	if err != nil {
		return fmt.Errorf("tzwatch: subscribe: %w", err)
	}

	l.gen++
	l.sub = sub
	l.active = true
	go l.forward(sub, l.gen)
	return nil
}

// Unsubscribe stops delivery. It is a no-op when not subscribed.
func (l *Listener) Unsubscribe() {
	l.mu.Lock()
	sub := l.sub
	wasActive := l.active
	l.active = false
	l.sub = nil
	l.gen++
	l.mu.Unlock()

	if wasActive && sub != nil {
		_ = sub.Close()
	}
}

// Subscribed reports whether the listener is active.
func (l *Listener) Subscribed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *Listener) forward(sub event.Subscription, gen uint64) {
	for evt := range sub.Events() {
		var payload event.TimezoneChanged
		if err := evt.Decode(&payload, event.JSONCodec{}); err != nil {
			l.logger.Printf("tzwatch: bad payload id=%s: %v", evt.ID, err)
			continue
		}

		zone := payload.Zone
		l.poster.Post(func() {
			l.deliver(gen, zone)
		})
	}
}

// deliver runs on the poster goroutine and drops callbacks from a
// subscription that has since been closed.
func (l *Listener) deliver(gen uint64, zone string) {
	l.mu.Lock()
	cb := l.cb
	current := l.active && l.gen == gen
	l.mu.Unlock()

	if current && cb != nil {
		cb(zone)
	}
}
