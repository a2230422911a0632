// Package engine is the watch face's lifecycle and mode tracker.
//
// The host delivers lifecycle callbacks (OnCreate, OnVisibilityChanged,
// OnModeChanged, OnDraw, ...) on a single event loop. The engine keeps
// the visible and mode flags, derives whether periodic ticks should run,
// and drives a tick.Ticker on the same loop. Every tick asks the host to
// redraw; the host answers with OnDraw, which samples the clock and runs
// the render pass.
//
// None of the methods are safe for concurrent use. Call them from the
// goroutine that runs the scheduler's callbacks.
package engine

import (
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/loop"
	"github.com/BYTE-6D65/watchface/pkg/render"
	"github.com/BYTE-6D65/watchface/pkg/telemetry"
	"github.com/BYTE-6D65/watchface/pkg/tick"
)

// Lifecycle errors reported by Err and in log lines for ignored callbacks.
var (
	ErrNotCreated = errors.New("engine: not created")
	ErrDestroyed  = errors.New("engine: destroyed")
)

// Reasons recorded when a redraw cannot be served.
const (
	SkipNoSurface     = "no-surface"
	SkipNoInvalidator = "no-invalidator"
	SkipNotAlive      = "not-alive"
)

var _ tick.Observer = (*telemetry.Metrics)(nil)

// TimezoneListener notifies the engine of system timezone changes.
type TimezoneListener interface {
	// Subscribe registers cb. Subscribing again replaces the callback.
	Subscribe(cb func(zone string)) error

	// Unsubscribe stops delivery. No-op when not subscribed.
	Unsubscribe()
}

// Engine tracks visibility and display mode for one display session.
type Engine struct {
	cfg        Config
	logger     *log.Logger
	metrics    *telemetry.Metrics
	sched      loop.Scheduler
	clk        clock.Clock
	zoneFn     clock.ZoneFunc
	tz         TimezoneListener
	invalidate func()

	source *clock.Source
	pass   *render.Pass
	ticker *tick.Ticker

	session    string
	created    bool
	destroyed  bool
	visible    bool
	mode       render.Mode
	lowBit     bool
	subscribed bool
	last       clock.TimeSample
	styleWidth int
	frames     uint64
	warned     bool
}

// EngineOption configures an Engine instance.
type EngineOption func(*Engine)

// WithClock sets the wall clock. Defaults to clock.SystemClock.
func WithClock(clk clock.Clock) EngineOption {
	return func(e *Engine) {
		e.clk = clk
	}
}

// WithSystemZone sets how the host's default zone is read.
func WithSystemZone(fn clock.ZoneFunc) EngineOption {
	return func(e *Engine) {
		e.zoneFn = fn
	}
}

// WithScheduler sets the event loop that delivers ticks. Defaults to a
// new loop.Loop, which the host must Run.
func WithScheduler(s loop.Scheduler) EngineOption {
	return func(e *Engine) {
		e.sched = s
	}
}

// WithTimezoneListener sets the timezone change source.
func WithTimezoneListener(l TimezoneListener) EngineOption {
	return func(e *Engine) {
		e.tz = l
	}
}

// WithInvalidator sets the host's redraw request. The host must respond
// by calling OnDraw on the engine loop.
func WithInvalidator(fn func()) EngineOption {
	return func(e *Engine) {
		e.invalidate = fn
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine from cfg. The engine does nothing until OnCreate.
func New(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		logger: log.Default(),
		clk:    clock.NewSystemClock(),
		mode:   render.ModeNormal,
		lowBit: cfg.LowBitAmbient,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.sched == nil {
		e.sched = loop.New()
	}

	var sourceOpts []clock.SourceOption
	if e.zoneFn != nil {
		sourceOpts = append(sourceOpts, clock.WithSystemZone(e.zoneFn))
	}
	e.source = clock.NewSource(e.clk, sourceOpts...)

	e.pass = render.NewPass(cfg.Style)
	e.pass.SetLowBitAmbient(e.lowBit)

	e.ticker = tick.New(e.sched, e.clk, e.requestRedraw, e.running,
		tick.WithInterval(cfg.TickInterval),
		tick.WithObserver(e.metrics),
	)

	return e, nil
}

// OnCreate starts the display session.
func (e *Engine) OnCreate() {
	if e.created {
		e.ignored("OnCreate", errors.New("engine: already created"))
		return
	}

	e.created = true
	e.session = uuid.New().String()
	e.applyZone()
	e.last = e.source.Now()
	e.metrics.SetState(e.visible, e.ShouldTick())
	e.logger.Printf("engine: created session=%s zone=%s", e.session, e.source.Zone())
}

// OnDestroy ends the session, cancelling any pending tick and releasing
// the timezone subscription. Later callbacks are ignored.
func (e *Engine) OnDestroy() {
	if err := e.Err(); err != nil {
		e.ignored("OnDestroy", err)
		return
	}

	e.ticker.Stop()
	e.unsubscribe()
	e.destroyed = true
	e.visible = false
	e.metrics.SetState(false, false)
	e.logger.Printf("engine: destroyed session=%s frames=%d ticks=%d", e.session, e.frames, e.ticker.Fired())
}

// OnVisibilityChanged records whether the face is on screen. Becoming
// visible re-subscribes to timezone changes and resamples the time
// basis; becoming hidden unsubscribes. Ticking is re-evaluated either way.
func (e *Engine) OnVisibilityChanged(visible bool) {
	if err := e.Err(); err != nil {
		e.ignored("OnVisibilityChanged", err)
		return
	}

	e.visible = visible
	if visible {
		e.subscribe()
		e.applyZone()
		e.last = e.source.Now()
	} else {
		e.unsubscribe()
	}

	e.updateTimer()
}

// OnModeChanged switches between normal and low-power mode. A change
// requests an immediate redraw; repeating the current mode is a no-op.
func (e *Engine) OnModeChanged(mode render.Mode) {
	if err := e.Err(); err != nil {
		e.ignored("OnModeChanged", err)
		return
	}
	if mode == e.mode {
		return
	}

	e.mode = mode
	e.metrics.ModeChanged(mode.String())
	e.requestRedraw()
	e.updateTimer()
}

// OnPropertiesDiscovered records display capabilities.
func (e *Engine) OnPropertiesDiscovered(lowBitAmbient bool) {
	if err := e.Err(); err != nil {
		e.ignored("OnPropertiesDiscovered", err)
		return
	}

	e.lowBit = lowBitAmbient
	e.pass.SetLowBitAmbient(lowBitAmbient)
}

// OnTimeTick handles the host's periodic (typically once a minute) time
// tick, which arrives in low-power mode when the engine is not ticking.
func (e *Engine) OnTimeTick() {
	if err := e.Err(); err != nil {
		e.ignored("OnTimeTick", err)
		return
	}
	e.requestRedraw()
}

// OnDraw samples the clock and renders into bounds of surface. A nil
// surface or empty bounds is skipped. With Config.ScaleStyle the style is
// rescaled whenever the bounds width changes.
func (e *Engine) OnDraw(surface render.Surface, bounds image.Rectangle) {
	if err := e.Err(); err != nil {
		e.metrics.Skipped(SkipNotAlive)
		e.ignored("OnDraw", err)
		return
	}
	if surface == nil || bounds.Empty() {
		e.metrics.Skipped(SkipNoSurface)
		e.logger.Printf("engine: redraw skipped reason=%s session=%s", SkipNoSurface, e.session)
		return
	}

	if w := bounds.Dx(); e.cfg.ScaleStyle && w != e.styleWidth {
		e.styleWidth = w
		e.pass.SetStyle(e.cfg.Style.ScaleTo(w))
	}

	start := time.Now()
	e.last = e.source.Now()
	e.pass.Render(surface, bounds, e.mode, e.last)
	e.frames++
	e.metrics.Redrawn(e.mode.String(), time.Since(start))
}

// Err reports why callbacks are being ignored: ErrNotCreated before
// OnCreate, ErrDestroyed after OnDestroy, nil in between.
func (e *Engine) Err() error {
	switch {
	case !e.created:
		return ErrNotCreated
	case e.destroyed:
		return ErrDestroyed
	default:
		return nil
	}
}

// ShouldTick reports whether periodic ticks should run.
func (e *Engine) ShouldTick() bool {
	return e.visible && e.mode == render.ModeNormal
}

// Visible returns the visibility flag.
func (e *Engine) Visible() bool { return e.visible }

// Mode returns the display mode.
func (e *Engine) Mode() render.Mode { return e.mode }

// LowBitAmbient returns the discovered low-bit capability.
func (e *Engine) LowBitAmbient() bool { return e.lowBit }

// TickPending reports whether a tick is outstanding.
func (e *Engine) TickPending() bool { return e.ticker.Pending() }

// Ticks returns the number of ticks delivered.
func (e *Engine) Ticks() uint64 { return e.ticker.Fired() }

// Frames returns the number of frames rendered.
func (e *Engine) Frames() uint64 { return e.frames }

// LastSample returns the most recent time sample.
func (e *Engine) LastSample() clock.TimeSample { return e.last }

// Session returns the session ID assigned by OnCreate.
func (e *Engine) Session() string { return e.session }

// Zone returns the active timezone name.
func (e *Engine) Zone() string { return e.source.Zone() }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) running() bool {
	return e.Err() == nil && e.ShouldTick()
}

func (e *Engine) updateTimer() {
	e.ticker.Update(e.ShouldTick())
	e.metrics.SetState(e.visible, e.ShouldTick())
}

func (e *Engine) requestRedraw() {
	if e.invalidate == nil {
		e.metrics.Skipped(SkipNoInvalidator)
		if !e.warned {
			e.warned = true
			e.logger.Printf("engine: redraw skipped reason=%s session=%s", SkipNoInvalidator, e.session)
		}
		return
	}
	e.invalidate()
}

// applyZone sets the configured zone, or re-reads the system zone when
// none is configured.
func (e *Engine) applyZone() {
	if e.cfg.Zone == "" {
		e.source.ResetZone()
		return
	}
	if err := e.source.SetZone(e.cfg.Zone); err != nil {
		e.logger.Printf("engine: %v, using system zone", err)
		e.source.ResetZone()
	}
}

func (e *Engine) subscribe() {
	if e.tz == nil || e.subscribed {
		return
	}
	if err := e.tz.Subscribe(e.onTimezoneChanged); err != nil {
		e.logger.Printf("engine: timezone subscribe failed: %v", err)
		return
	}
	e.subscribed = true
}

func (e *Engine) unsubscribe() {
	if e.tz == nil || !e.subscribed {
		return
	}
	e.tz.Unsubscribe()
	e.subscribed = false
}

// onTimezoneChanged switches the sample zone to zone and redraws. An
// unknown zone falls back to the system zone.
func (e *Engine) onTimezoneChanged(zone string) {
	if e.Err() != nil {
		return
	}

	e.metrics.TimezoneChanged()
	if err := e.source.SetZone(zone); err != nil {
		e.logger.Printf("engine: %v, using system zone", err)
		e.source.ResetZone()
	}
	e.last = e.source.Now()
	e.logger.Printf("engine: timezone changed zone=%s session=%s", e.source.Zone(), e.session)
	e.requestRedraw()
}

func (e *Engine) ignored(op string, err error) {
	e.logger.Printf("engine: %s ignored: %v", op, err)
}
