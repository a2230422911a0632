package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/engine"
	"github.com/BYTE-6D65/watchface/pkg/event"
	"github.com/BYTE-6D65/watchface/pkg/loop"
	"github.com/BYTE-6D65/watchface/pkg/power"
	"github.com/BYTE-6D65/watchface/pkg/telemetry"
	"github.com/BYTE-6D65/watchface/pkg/tick"
	"github.com/BYTE-6D65/watchface/pkg/tzwatch"
)

// hostSource is the event source name used by the simulated host.
const hostSource = "host"

// host wires the engine to a bus, a display power machine and the
// timezone listener. All methods except stop run on the loop goroutine.
type host struct {
	cfg     engine.Config
	logger  *log.Logger
	sched   loop.Scheduler
	clk     clock.Clock
	bus     *event.InMemoryBus
	history *event.History
	watcher *tzwatch.Watcher
	tz      *tzwatch.Listener
	engine  *engine.Engine
	power   *power.Machine

	timeTick loop.Handle
	recorded sync.WaitGroup
}

type hostOptions struct {
	cfg        engine.Config
	sched      loop.Scheduler
	poster     loop.Poster
	clk        clock.Clock
	invalidate func()
	metrics    *telemetry.Metrics
	logger     *log.Logger
	ambient    bool
	watchZone  bool
	history    int
}

func newHost(opts hostOptions) (*host, error) {
	if opts.logger == nil {
		opts.logger = log.Default()
	}
	if opts.clk == nil {
		opts.clk = clock.NewSystemClock()
	}
	if opts.history <= 0 {
		opts.history = 64
	}

	h := &host{
		cfg:     opts.cfg,
		logger:  opts.logger,
		sched:   opts.sched,
		clk:     opts.clk,
		bus:     event.NewInMemoryBus(event.WithBufferSize(64)),
		history: event.NewHistory(opts.history),
	}

	if opts.watchZone {
		h.watcher = tzwatch.NewWatcher(
			tzwatch.WithPollInterval(opts.cfg.ZonePollInterval),
			tzwatch.WithLogger(opts.logger),
		)
	}
	h.tz = tzwatch.NewListener(h.bus, opts.poster, opts.logger)

	engineOpts := []engine.EngineOption{
		engine.WithClock(opts.clk),
		engine.WithScheduler(opts.sched),
		engine.WithTimezoneListener(h.tz),
		engine.WithInvalidator(opts.invalidate),
		engine.WithMetrics(opts.metrics),
		engine.WithLogger(opts.logger),
	}
	if opts.watchZone {
		engineOpts = append(engineOpts, engine.WithSystemZone(tzwatch.SystemLocation))
	}

	e, err := engine.New(opts.cfg, engineOpts...)
	if err != nil {
		return nil, err
	}
	h.engine = e

	h.power = power.New(e, power.WithAmbient(opts.ambient), power.WithBus(h.bus, hostSource))
	h.power.OnTransition(h.onTransition)

	return h, nil
}

// start begins recording bus traffic, starts the zone watcher and brings
// the display up in the interactive state.
func (h *host) start(ctx context.Context) error {
	sub, err := h.bus.Subscribe(ctx, event.Filter{})
	if err != nil {
		return fmt.Errorf("history subscribe: %w", err)
	}
	h.recorded.Add(1)
	go func() {
		defer h.recorded.Done()
		h.history.Record(sub)
	}()

	if h.watcher != nil {
		if err := h.watcher.Start(ctx, h.bus); err != nil {
			return fmt.Errorf("zone watcher: %w", err)
		}
	}

	h.engine.OnCreate()
	return h.power.Trigger(ctx, power.Show)
}

// stop tears the engine down and closes the bus. It must run on the loop
// goroutine, or after the loop has exited.
func (h *host) stop() {
	h.cancelTimeTick()
	h.engine.OnDestroy()
	if h.watcher != nil {
		_ = h.watcher.Stop()
	}
	_ = h.bus.Close()
	h.recorded.Wait()
}

// trigger applies a power event, logging rejected ones.
func (h *host) trigger(ctx context.Context, ev power.Event) {
	if err := h.power.Trigger(ctx, ev); err != nil {
		h.logger.Printf("host: %v", err)
	}
}

// toggleVisible hides a visible face or shows a hidden one.
func (h *host) toggleVisible(ctx context.Context) {
	if h.power.Current() == power.Off {
		h.trigger(ctx, power.Show)
		return
	}
	h.trigger(ctx, power.Hide)
}

// toggleAmbient moves between the interactive and ambient states.
func (h *host) toggleAmbient(ctx context.Context) {
	switch h.power.Current() {
	case power.Interactive:
		h.trigger(ctx, power.Idle)
	case power.Ambient:
		h.trigger(ctx, power.Wake)
	}
}

// setZone publishes a timezone change as the system would.
func (h *host) setZone(ctx context.Context, zone string) error {
	evt, err := event.New(event.TypeTimezoneChanged, hostSource,
		event.TimezoneChanged{Zone: zone}, event.JSONCodec{})
	if err != nil {
		return err
	}
	return h.bus.Publish(ctx, *evt)
}

func (h *host) onTransition(from, to power.State, ev power.Event) {
	h.logger.Printf("host: %s --%s--> %s", from, ev, to)
	if to == power.Ambient {
		h.scheduleTimeTick()
		return
	}
	h.cancelTimeTick()
}

// scheduleTimeTick queues the once-a-minute ambient time tick on the next
// minute boundary.
func (h *host) scheduleTimeTick() {
	h.cancelTimeTick()
	delay := tick.NextDelay(h.clk.Now(), time.Minute)
	h.timeTick = h.sched.ScheduleOnce(delay, func() {
		h.timeTick = 0
		h.deliverTimeTick()
		if h.power.Current() == power.Ambient {
			h.scheduleTimeTick()
		}
	})
}

func (h *host) cancelTimeTick() {
	if h.timeTick != 0 {
		h.sched.Cancel(h.timeTick)
		h.timeTick = 0
	}
}

func (h *host) deliverTimeTick() {
	evt, err := event.NewAt(h.clk.Now(), event.TypeTimeTick, hostSource, nil, event.JSONCodec{})
	if err == nil {
		err = h.bus.Publish(context.Background(), *evt)
	}
	if err != nil {
		h.logger.Printf("host: time tick not published: %v", err)
	}
	h.engine.OnTimeTick()
}
