package event

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrBusClosed is returned by Publish and Subscribe after Close.
var ErrBusClosed = errors.New("event: bus closed")

// Bus is a publish/subscribe channel for events.
type Bus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, evt Event) error

	// Subscribe creates a subscription. It is closed when ctx is done.
	Subscribe(ctx context.Context, filter Filter) (Subscription, error)

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Filter selects events. Empty fields match everything; patterns use
// path.Match syntax, so "display.*" matches every display event.
type Filter struct {
	Types    []string
	Sources  []string
	Metadata map[string]string
}

// Subscription is an active subscription.
type Subscription interface {
	// ID identifies the subscription.
	ID() string

	// Events returns the channel of matching events. It is closed when the
	// subscription or the bus closes.
	Events() <-chan Event

	// Close unsubscribes.
	Close() error
}

// InMemoryBus fans events out to in-process subscribers.
type InMemoryBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	closed        bool
	bufferSize    int
	dropSlow      bool
	dropped       atomic.Uint64
}

// BusOption configures an InMemoryBus.
type BusOption func(*InMemoryBus)

// WithBufferSize sets the per-subscription channel capacity.
func WithBufferSize(size int) BusOption {
	return func(b *InMemoryBus) {
		if size >= 0 {
			b.bufferSize = size
		}
	}
}

// WithDropSlow drops events for subscribers whose buffer is full instead
// of blocking the publisher.
func WithDropSlow(drop bool) BusOption {
	return func(b *InMemoryBus) {
		b.dropSlow = drop
	}
}

// NewInMemoryBus creates a bus. By default each subscription buffers 16
// events and slow subscribers are dropped.
func NewInMemoryBus(opts ...BusOption) *InMemoryBus {
	b := &InMemoryBus{
		subscriptions: make(map[string]*subscription),
		bufferSize:    16,
		dropSlow:      true,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Publish sends evt to all matching subscribers.
func (b *InMemoryBus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subscriptions {
		if !sub.filter.matches(evt) {
			continue
		}
		if err := sub.send(ctx, evt, b.dropSlow); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe registers a subscription for events matching filter.
func (b *InMemoryBus) Subscribe(ctx context.Context, filter Filter) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &subscription{
		id:     uuid.New().String(),
		bus:    b,
		filter: filter,
		ch:     make(chan Event, b.bufferSize),
		done:   make(chan struct{}),
	}
	b.subscriptions[sub.id] = sub

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = sub.Close()
			case <-sub.done:
			}
		}()
	}

	return sub, nil
}

// Close shuts down the bus. Closing twice is a no-op.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for id, sub := range b.subscriptions {
		sub.closeChannel()
		delete(b.subscriptions, id)
	}
	return nil
}

// Subscribers returns the number of open subscriptions.
func (b *InMemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// Dropped returns how many deliveries were dropped for slow subscribers.
func (b *InMemoryBus) Dropped() uint64 {
	return b.dropped.Load()
}

type subscription struct {
	id     string
	bus    *InMemoryBus
	filter Filter
	ch     chan Event

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Events() <-chan Event {
	return s.ch
}

func (s *subscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.subscriptions, s.id)
	s.closeChannel()
	return nil
}

// closeChannel must be called with the bus lock held.
func (s *subscription) closeChannel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
		close(s.done)
	}
}

// send is called with the bus read lock held, so the subscription cannot
// be closed concurrently.
func (s *subscription) send(ctx context.Context, evt Event, dropSlow bool) error {
	if dropSlow {
		select {
		case s.ch <- evt:
		default:
			s.bus.dropped.Add(1)
		}
		return nil
	}

	select {
	case s.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f Filter) matches(evt Event) bool {
	if len(f.Types) > 0 && !matchesAny(evt.Type, f.Types) {
		return false
	}
	if len(f.Sources) > 0 && !matchesAny(evt.Source, f.Sources) {
		return false
	}
	for key, value := range f.Metadata {
		if evt.Metadata[key] != value {
			return false
		}
	}
	return true
}

func matchesAny(s string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, s); err == nil && ok {
			return true
		}
	}
	return false
}
