package tzwatch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/BYTE-6D65/watchface/pkg/event"
)

// Common errors returned by sources.
var (
	ErrAlreadyStarted = errors.New("tzwatch: already started")
	ErrNotStarted     = errors.New("tzwatch: not started")
)

// Source translates an external notification stream into bus events.
type Source interface {
	// ID identifies the source instance.
	ID() string

	// Start begins publishing to bus until ctx is done or Stop is called.
	// Returns ErrAlreadyStarted if already running.
	Start(ctx context.Context, bus event.Bus) error

	// Stop halts publishing. Returns ErrNotStarted if not running.
	Stop() error
}

// DefaultPollInterval is how often the Watcher re-reads the system zone.
const DefaultPollInterval = 5 * time.Second

// Watcher polls the system zone and publishes a
// event.TypeTimezoneChanged event whenever it changes.
type Watcher struct {
	read     ZoneReader
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	bus     event.Bus
	last    string
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithPollInterval sets the polling period. Non-positive values are ignored.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithZoneReader replaces SystemZone as the zone source.
func WithZoneReader(r ZoneReader) WatcherOption {
	return func(w *Watcher) {
		if r != nil {
			w.read = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a stopped Watcher.
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		read:     SystemZone,
		interval: DefaultPollInterval,
		logger:   log.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// ID implements Source.
func (w *Watcher) ID() string {
	return "tzwatch:system"
}

// Start records the current zone and begins polling.
func (w *Watcher) Start(ctx context.Context, bus event.Bus) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	w.bus = bus
	w.last = w.read()
	w.running = true
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, w.done)
	return nil
}

// Stop halts polling and waits for the poller to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotStarted
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Zone returns the last observed zone.
func (w *Watcher) Zone() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Poll re-reads the zone once and publishes if it changed. It reports
// whether a change was published.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	zone := w.read()

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return false, ErrNotStarted
	}
	if zone == w.last {
		w.mu.Unlock()
		return false, nil
	}
	prev := w.last
	w.last = zone
	bus := w.bus
	w.mu.Unlock()

	evt, err := event.New(event.TypeTimezoneChanged, w.ID(), event.TimezoneChanged{Zone: zone}, event.JSONCodec{})
	if err != nil {
		return false, err
	}
	evt.WithMetadata("previous", prev)

	if err := bus.Publish(ctx, *evt); err != nil {
		return false, err
	}
	w.logger.Printf("tzwatch: zone changed from=%s to=%s", prev, zone)
	return true, nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil && !errors.Is(err, ErrNotStarted) && ctx.Err() == nil {
				w.logger.Printf("tzwatch: publish failed: %v", err)
			}
		}
	}
}
