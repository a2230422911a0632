package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the watch face.
type Metrics struct {
	// Tick Scheduler Metrics
	TicksScheduled prometheus.Counter
	TicksFired     prometheus.Counter
	TicksCanceled  prometheus.Counter
	TickLateness   prometheus.Histogram

	// Render Metrics
	Redraws        *prometheus.CounterVec
	RedrawsSkipped *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec

	// Tracker Metrics
	ModeChanges     *prometheus.CounterVec
	Visible         prometheus.Gauge
	Ticking         prometheus.Gauge
	TimezoneChanges prometheus.Counter
}

var (
	defaultMetrics *Metrics
)

// InitMetrics registers the metrics with registry (the default registerer
// when nil). Call it once per registry.
func InitMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	// Lateness buckets: 100µs to 1s
	latenessBuckets := []float64{
		0.0001, // 100µs
		0.0005, // 500µs
		0.001,  // 1ms
		0.002,  // 2ms
		0.005,  // 5ms
		0.01,   // 10ms
		0.02,   // 20ms
		0.05,   // 50ms
		0.1,    // 100ms
		0.25,   // 250ms
		0.5,    // 500ms
		1,      // 1s
	}

	// Render buckets: 10µs to 50ms
	renderBuckets := prometheus.ExponentialBuckets(0.00001, 2.5, 10)

	f := promauto.With(registry)
	m := &Metrics{
		TicksScheduled: f.NewCounter(prometheus.CounterOpts{
			Name: "watchface_ticks_scheduled_total",
			Help: "Total number of ticks scheduled",
		}),

		TicksFired: f.NewCounter(prometheus.CounterOpts{
			Name: "watchface_ticks_fired_total",
			Help: "Total number of ticks delivered",
		}),

		TicksCanceled: f.NewCounter(prometheus.CounterOpts{
			Name: "watchface_ticks_canceled_total",
			Help: "Total number of pending ticks canceled before delivery",
		}),

		TickLateness: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "watchface_tick_lateness_seconds",
			Help:    "Delay between a tick's target time and its delivery",
			Buckets: latenessBuckets,
		}),

		Redraws: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchface_redraws_total",
				Help: "Total number of frames rendered",
			},
			[]string{"mode"},
		),

		RedrawsSkipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchface_redraws_skipped_total",
				Help: "Redraw requests that could not be served",
			},
			[]string{"reason"},
		),

		RenderDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "watchface_render_duration_seconds",
				Help:    "Time taken by one render pass",
				Buckets: renderBuckets,
			},
			[]string{"mode"},
		),

		ModeChanges: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchface_mode_changes_total",
				Help: "Display mode changes applied",
			},
			[]string{"mode"},
		),

		Visible: f.NewGauge(prometheus.GaugeOpts{
			Name: "watchface_visible",
			Help: "1 while the face is visible",
		}),

		Ticking: f.NewGauge(prometheus.GaugeOpts{
			Name: "watchface_ticking",
			Help: "1 while periodic ticks should run",
		}),

		TimezoneChanges: f.NewCounter(prometheus.CounterOpts{
			Name: "watchface_timezone_changes_total",
			Help: "Timezone change notifications received",
		}),
	}

	defaultMetrics = m
	return m
}

// Default returns the default metrics instance.
// If InitMetrics hasn't been called, it will initialize with the default registry.
func Default() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics(nil)
	}
	return defaultMetrics
}

// TickScheduled counts a scheduled tick. Safe on a nil receiver, as are
// the other recording helpers.
func (m *Metrics) TickScheduled(time.Duration) {
	if m == nil {
		return
	}
	m.TicksScheduled.Inc()
}

// TickCanceled counts a canceled tick.
func (m *Metrics) TickCanceled() {
	if m == nil {
		return
	}
	m.TicksCanceled.Inc()
}

// TickFired counts a delivered tick and records its lateness.
func (m *Metrics) TickFired(lateness time.Duration) {
	if m == nil {
		return
	}
	m.TicksFired.Inc()
	if lateness < 0 {
		lateness = 0
	}
	m.TickLateness.Observe(lateness.Seconds())
}

// Redrawn records a rendered frame.
func (m *Metrics) Redrawn(mode string, took time.Duration) {
	if m == nil {
		return
	}
	m.Redraws.WithLabelValues(mode).Inc()
	m.RenderDuration.WithLabelValues(mode).Observe(took.Seconds())
}

// Skipped records a redraw that could not be served.
func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.RedrawsSkipped.WithLabelValues(reason).Inc()
}

// ModeChanged records a mode change.
func (m *Metrics) ModeChanged(mode string) {
	if m == nil {
		return
	}
	m.ModeChanges.WithLabelValues(mode).Inc()
}

// TimezoneChanged records a timezone notification.
func (m *Metrics) TimezoneChanged() {
	if m == nil {
		return
	}
	m.TimezoneChanges.Inc()
}

// SetState publishes the tracker state.
func (m *Metrics) SetState(visible, ticking bool) {
	if m == nil {
		return
	}
	m.Visible.Set(boolGauge(visible))
	m.Ticking.Set(boolGauge(ticking))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the time elapsed since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
