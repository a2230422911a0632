package engine

import (
	"bytes"
	"errors"
	"image"
	"log"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BYTE-6D65/watchface/pkg/face"
	"github.com/BYTE-6D65/watchface/pkg/loop"
	"github.com/BYTE-6D65/watchface/pkg/render"
	"github.com/BYTE-6D65/watchface/pkg/telemetry"
)

var (
	noonHalf = time.Date(2026, time.October, 17, 12, 0, 0, 500*int(time.Millisecond), time.UTC)
	face320  = image.Rect(0, 0, 320, 320)
)

// fakeListener records subscription calls and lets tests fire changes.
type fakeListener struct {
	cb           func(string)
	subscribes   int
	unsubscribes int
	err          error
}

func (l *fakeListener) Subscribe(cb func(string)) error {
	if l.err != nil {
		return l.err
	}
	l.cb = cb
	l.subscribes++
	return nil
}

func (l *fakeListener) Unsubscribe() {
	l.cb = nil
	l.unsubscribes++
}

func (l *fakeListener) fire(zone string) {
	if l.cb != nil {
		l.cb(zone)
	}
}

// harness plays the host: invalidations post an OnDraw onto the loop.
type harness struct {
	t       *testing.T
	v       *loop.Virtual
	e       *Engine
	rec     *render.Recorder
	tz      *fakeListener
	logs    *bytes.Buffer
	metrics *telemetry.Metrics

	invalidations int
}

func newHarness(t *testing.T, start time.Time, cfg Config, opts ...EngineOption) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		v:       loop.NewVirtual(start),
		rec:     render.NewRecorder(),
		tz:      &fakeListener{},
		logs:    &bytes.Buffer{},
		metrics: telemetry.InitMetrics(prometheus.NewRegistry()),
	}

	base := []EngineOption{
		WithClock(h.v),
		WithScheduler(h.v),
		WithSystemZone(func() *time.Location { return time.UTC }),
		WithTimezoneListener(h.tz),
		WithMetrics(h.metrics),
		WithLogger(log.New(h.logs, "", 0)),
		WithInvalidator(func() {
			h.invalidations++
			h.v.Post(func() { h.e.OnDraw(h.rec, face320) })
		}),
	}

	e, err := New(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.e = e
	return h
}

func (h *harness) nextDue() time.Time {
	h.t.Helper()
	due, ok := h.v.NextDue()
	if !ok {
		h.t.Fatal("nothing scheduled")
	}
	return due
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickInterval = 0

	if _, err := New(cfg); err == nil {
		t.Error("New with zero tick interval should fail")
	}
}

func TestEngine_InitialState(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())

	if !errors.Is(h.e.Err(), ErrNotCreated) {
		t.Errorf("Err before OnCreate = %v, want ErrNotCreated", h.e.Err())
	}
	if h.e.Mode() != render.ModeNormal || h.e.Visible() || h.e.ShouldTick() {
		t.Error("engine should start hidden in normal mode")
	}

	h.e.OnCreate()
	if h.e.Err() != nil {
		t.Errorf("Err after OnCreate = %v", h.e.Err())
	}
	if h.e.Session() == "" {
		t.Error("session ID should be set")
	}
	if h.e.TickPending() {
		t.Error("no tick should be pending while hidden")
	}
}

func TestEngine_CallbacksBeforeCreateIgnored(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())

	h.e.OnVisibilityChanged(true)
	h.e.OnModeChanged(render.ModeLowPower)
	h.e.OnTimeTick()

	if h.e.Visible() || h.e.Mode() != render.ModeNormal {
		t.Error("state changed before OnCreate")
	}
	if h.e.TickPending() || h.invalidations != 0 {
		t.Error("work scheduled before OnCreate")
	}
	if !strings.Contains(h.logs.String(), "OnVisibilityChanged ignored: engine: not created") {
		t.Errorf("log = %q", h.logs.String())
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())

	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)
	h.e.OnModeChanged(render.ModeNormal)

	if !h.e.TickPending() {
		t.Fatal("visible normal engine should have a pending tick")
	}
	if due := h.nextDue(); !due.Equal(noonHalf) {
		t.Fatalf("first tick due %v, want immediately", due)
	}

	// immediate tick at 12:00:00.500 aligns the next one 500ms out
	h.v.Advance(0)
	if h.invalidations != 1 || h.e.Frames() != 1 {
		t.Fatalf("invalidations/frames = %d/%d, want 1/1", h.invalidations, h.e.Frames())
	}
	next := noonHalf.Add(500 * time.Millisecond)
	if due := h.nextDue(); !due.Equal(next) {
		t.Fatalf("second tick due %v, want %v", due, next)
	}

	h.v.Advance(500 * time.Millisecond)
	got := h.e.LastSample()
	if got.Hour != 12 || got.Minute != 0 || got.Second != 1 {
		t.Errorf("sample = %02d:%02d:%02d, want 12:00:01", got.Hour, got.Minute, got.Second)
	}
	if g := face.ComputeGeometry(got); math.Abs(g.Second-math.Pi/30) > 1e-12 {
		t.Errorf("second angle = %v, want π/30", g.Second)
	}
	if due := h.nextDue(); !due.Equal(next.Add(time.Second)) {
		t.Errorf("third tick due %v, want %v", due, next.Add(time.Second))
	}
	if !h.e.TickPending() {
		t.Error("tick chain stopped")
	}
}

func TestEngine_VisibilityOffStopsTicks(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)
	h.v.Advance(3 * time.Second)

	h.e.OnVisibilityChanged(false)
	before := h.invalidations
	if h.e.TickPending() {
		t.Fatal("tick pending after hide")
	}

	h.v.Advance(time.Hour)
	if h.invalidations != before {
		t.Errorf("invalidations grew from %d to %d while hidden", before, h.invalidations)
	}
	if h.v.Pending() != 0 {
		t.Errorf("loop has %d pending callbacks", h.v.Pending())
	}

	h.e.OnVisibilityChanged(true)
	h.v.Advance(2 * time.Second)
	if h.invalidations <= before {
		t.Error("ticks did not resume after becoming visible")
	}
}

func TestEngine_LowPowerMode(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)
	h.v.Advance(0)

	h.e.OnModeChanged(render.ModeLowPower)
	if h.invalidations != 2 {
		t.Errorf("mode change should redraw immediately, invalidations = %d", h.invalidations)
	}
	if h.e.TickPending() || h.e.ShouldTick() {
		t.Error("ticks should stop in low-power mode")
	}

	h.v.Advance(10 * time.Second)
	if h.invalidations != 2 {
		t.Errorf("invalidations = %d after 10s ambient, want 2", h.invalidations)
	}

	// the frame drawn after the mode change has no date text
	if n := h.rec.Count(render.OpText); n != 1 {
		t.Errorf("text ops = %d, want 1 (first frame only)", n)
	}

	h.e.OnTimeTick()
	if h.invalidations != 3 {
		t.Errorf("OnTimeTick should redraw, invalidations = %d", h.invalidations)
	}

	h.e.OnModeChanged(render.ModeLowPower)
	if h.invalidations != 3 {
		t.Error("repeating the current mode should be a no-op")
	}

	h.e.OnModeChanged(render.ModeNormal)
	if !h.e.TickPending() {
		t.Error("returning to normal should restart ticking")
	}

	if v := testutil.ToFloat64(h.metrics.ModeChanges.WithLabelValues("low_power")); v != 1 {
		t.Errorf("mode changes{low_power} = %v, want 1", v)
	}
}

func TestEngine_TimezoneSubscription(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()

	h.e.OnVisibilityChanged(true)
	h.e.OnVisibilityChanged(true)
	if h.tz.subscribes != 1 {
		t.Errorf("subscribes = %d, want 1", h.tz.subscribes)
	}

	h.e.OnVisibilityChanged(false)
	h.e.OnVisibilityChanged(false)
	if h.tz.unsubscribes != 1 {
		t.Errorf("unsubscribes = %d, want 1", h.tz.unsubscribes)
	}

	h.e.OnVisibilityChanged(true)
	if h.tz.subscribes != 2 {
		t.Errorf("subscribes after re-show = %d, want 2", h.tz.subscribes)
	}
}

func TestEngine_TimezoneChange(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)
	h.v.Advance(0)
	before := h.invalidations

	h.tz.fire("Asia/Tokyo")
	if h.e.Zone() != "Asia/Tokyo" {
		t.Errorf("Zone = %q, want Asia/Tokyo", h.e.Zone())
	}
	if h.e.LastSample().Hour != 21 {
		t.Errorf("hour = %d, want 21", h.e.LastSample().Hour)
	}
	if h.invalidations != before+1 {
		t.Error("timezone change should redraw")
	}

	h.tz.fire("Mars/Olympus_Mons")
	if h.e.Zone() != "UTC" {
		t.Errorf("unknown zone: Zone = %q, want fallback UTC", h.e.Zone())
	}
	if !strings.Contains(h.logs.String(), "unknown timezone") {
		t.Errorf("unknown zone not logged: %q", h.logs.String())
	}

	// becoming visible again re-reads the system zone
	h.tz.fire("Europe/Rome")
	h.e.OnVisibilityChanged(false)
	h.e.OnVisibilityChanged(true)
	if h.e.Zone() != "UTC" {
		t.Errorf("Zone after re-show = %q, want UTC", h.e.Zone())
	}

	if v := testutil.ToFloat64(h.metrics.TimezoneChanges); v != 3 {
		t.Errorf("timezone changes = %v, want 3", v)
	}
}

func TestEngine_ConfiguredZone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Zone = "America/New_York"
	h := newHarness(t, noonHalf, cfg)

	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)
	if h.e.Zone() != "America/New_York" {
		t.Errorf("Zone = %q", h.e.Zone())
	}
	if h.e.LastSample().Hour != 8 {
		t.Errorf("hour = %d, want 8 (EDT)", h.e.LastSample().Hour)
	}
}

func TestEngine_SubscribeFailureLogged(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.tz.err = errors.New("bus closed")
	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)

	if !strings.Contains(h.logs.String(), "timezone subscribe failed") {
		t.Errorf("log = %q", h.logs.String())
	}
	if !h.e.TickPending() {
		t.Error("subscribe failure should not stop ticking")
	}
}

func TestEngine_Destroy(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()
	h.e.OnVisibilityChanged(true)
	h.v.Advance(time.Second)

	h.e.OnDestroy()
	if !errors.Is(h.e.Err(), ErrDestroyed) {
		t.Errorf("Err = %v, want ErrDestroyed", h.e.Err())
	}
	if h.e.TickPending() || h.v.Pending() != 0 {
		t.Error("destroy should cancel the pending tick")
	}
	if h.tz.unsubscribes != 1 {
		t.Errorf("unsubscribes = %d, want 1", h.tz.unsubscribes)
	}

	frames := h.e.Frames()
	h.e.OnVisibilityChanged(true)
	h.e.OnDraw(h.rec, face320)
	h.e.OnDestroy()
	h.v.Advance(time.Minute)

	if h.e.Frames() != frames || h.e.TickPending() {
		t.Error("callbacks after destroy had an effect")
	}
	if v := testutil.ToFloat64(h.metrics.RedrawsSkipped.WithLabelValues(SkipNotAlive)); v != 1 {
		t.Errorf("skipped{not-alive} = %v, want 1", v)
	}
}

func TestEngine_DrawWithoutSurface(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()

	h.e.OnDraw(nil, face320)
	h.e.OnDraw(h.rec, image.Rectangle{})

	if h.e.Frames() != 0 {
		t.Errorf("frames = %d, want 0", h.e.Frames())
	}
	if v := testutil.ToFloat64(h.metrics.RedrawsSkipped.WithLabelValues(SkipNoSurface)); v != 2 {
		t.Errorf("skipped{no-surface} = %v, want 2", v)
	}
}

func TestEngine_NoInvalidator(t *testing.T) {
	v := loop.NewVirtual(noonHalf)
	var logs bytes.Buffer
	metrics := telemetry.InitMetrics(prometheus.NewRegistry())

	e, err := New(DefaultConfig(),
		WithClock(v), WithScheduler(v), WithMetrics(metrics), WithLogger(log.New(&logs, "", 0)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	e.OnCreate()
	e.OnVisibilityChanged(true)
	v.Advance(3 * time.Second)

	if e.Ticks() != 4 {
		t.Errorf("ticks = %d, want 4", e.Ticks())
	}
	if got := testutil.ToFloat64(metrics.RedrawsSkipped.WithLabelValues(SkipNoInvalidator)); got != 4 {
		t.Errorf("skipped{no-invalidator} = %v, want 4", got)
	}
	if n := strings.Count(logs.String(), "reason=no-invalidator"); n != 1 {
		t.Errorf("no-invalidator logged %d times, want once", n)
	}
}

func TestEngine_LowBitAmbient(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()
	h.e.OnPropertiesDiscovered(true)
	h.e.OnVisibilityChanged(true)
	h.e.OnModeChanged(render.ModeLowPower)
	h.v.Advance(0)

	if !h.e.LowBitAmbient() {
		t.Fatal("LowBitAmbient not recorded")
	}

	ops := h.rec.Ops()
	last := ops[len(ops)-4:] // back-plate, minute, hour, cap of the last frame
	for _, op := range last {
		if op.Kind == render.OpLine && op.Paint.AntiAlias {
			t.Error("hands anti-aliased in low-bit ambient mode")
		}
	}
}

func TestEngine_FixedOffsetsAtAnySize(t *testing.T) {
	noon := time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

	for _, size := range []int{320, 400, 454} {
		h := newHarness(t, noon, DefaultConfig())
		h.e.OnCreate()

		rec := render.NewRecorder()
		h.e.OnDraw(rec, image.Rect(0, 0, size, size))
		ops := rec.Ops()
		c := float64(size) / 2

		length := func(op render.Op) float64 { return math.Hypot(op.X1-op.X0, op.Y1-op.Y0) }
		if got, want := length(ops[3]), c-50; math.Abs(got-want) > 1e-9 {
			t.Errorf("%dpx: minute hand length = %v, want %v", size, got, want)
		}
		if got, want := length(ops[4]), c-100; math.Abs(got-want) > 1e-9 {
			t.Errorf("%dpx: hour hand length = %v, want %v", size, got, want)
		}

		// second dot at 0s sits straight up, centerY-20 from the top edge
		dot := ops[6]
		if math.Abs(dot.X0-c) > 1e-9 || math.Abs(dot.Y0-20) > 1e-9 {
			t.Errorf("%dpx: second dot at (%v,%v), want (%v,20)", size, dot.X0, dot.Y0, c)
		}
		if dot.Radius != 6 || ops[2].Radius != 20 {
			t.Errorf("%dpx: radii dot=%v plate=%v, want 6/20", size, dot.Radius, ops[2].Radius)
		}
	}
}

func TestEngine_ScaleStyleOptIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleStyle = true
	h := newHarness(t, noonHalf, cfg)
	h.e.OnCreate()

	rec := render.NewRecorder()
	h.e.OnDraw(rec, image.Rect(0, 0, 160, 160))

	if r := rec.Ops()[2].Radius; r != 10 {
		t.Errorf("back-plate radius at 160px = %v, want 10", r)
	}

	rec.Reset()
	h.e.OnDraw(rec, face320)
	if r := rec.Ops()[2].Radius; r != 20 {
		t.Errorf("back-plate radius at 320px = %v, want 20", r)
	}
}

func TestEngine_AtMostOnePendingTick(t *testing.T) {
	h := newHarness(t, noonHalf, DefaultConfig())
	h.e.OnCreate()
	rng := rand.New(rand.NewSource(3))

	for i := 0; i < 1000; i++ {
		switch rng.Intn(5) {
		case 0:
			h.e.OnVisibilityChanged(rng.Intn(2) == 0)
		case 1:
			h.e.OnModeChanged(render.Mode(rng.Intn(2)))
		case 2:
			h.e.OnTimeTick()
		default:
			h.v.Advance(time.Duration(rng.Intn(1500)) * time.Millisecond)
		}

		// drain posted draws, then only the tick may remain
		h.v.Advance(0)
		if n := h.v.Pending(); n > 1 {
			t.Fatalf("step %d: %d callbacks pending", i, n)
		}
		if h.e.TickPending() != h.e.ShouldTick() {
			t.Fatalf("step %d: pending=%v shouldTick=%v", i, h.e.TickPending(), h.e.ShouldTick())
		}
	}
}
