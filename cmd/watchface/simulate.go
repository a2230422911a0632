package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/loop"
	"github.com/BYTE-6D65/watchface/pkg/power"
	"github.com/BYTE-6D65/watchface/pkg/render"
	"github.com/BYTE-6D65/watchface/pkg/telemetry"
)

// scriptStep is one scheduled power event of a simulation.
type scriptStep struct {
	at time.Duration
	ev power.Event
}

// parseScript reads comma-separated event@offset steps, e.g.
// "idle@30s,wake@1m,hide@2m".
func parseScript(s string) ([]scriptStep, error) {
	var steps []scriptStep
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, offset, ok := strings.Cut(part, "@")
		if !ok {
			return nil, fmt.Errorf("script step %q: want event@offset", part)
		}
		ev := power.Event(strings.TrimSpace(name))
		switch ev {
		case power.Idle, power.Wake, power.Hide, power.Show:
		default:
			return nil, fmt.Errorf("script step %q: unknown event %q", part, ev)
		}
		at, err := time.ParseDuration(strings.TrimSpace(offset))
		if err != nil || at < 0 {
			return nil, fmt.Errorf("script step %q: bad offset %q", part, offset)
		}

		steps = append(steps, scriptStep{at: at, ev: ev})
	}
	return steps, nil
}

// boundaries counts multiples of interval since the Unix epoch in (from, to].
func boundaries(from, to time.Time, interval time.Duration) int {
	step := interval.Milliseconds()
	a := floorDiv(clock.EpochMillis(from), step)
	b := floorDiv(clock.EpochMillis(to), step)
	return int(b - a)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// simReport summarizes a simulated run.
type simReport struct {
	Start, End    time.Time
	Ticks         uint64
	Expected      int
	Runs          int
	Frames        uint64
	Invalidations int
	Lateness      time.Duration
	MeanLateness  time.Duration
	Events        int
}

// Drifted reports whether the tick count strays from the boundary count by
// more than one tick per interactive run.
func (r simReport) Drifted() bool {
	diff := int(r.Ticks) - r.Expected
	if diff < 0 {
		diff = -diff
	}
	return diff > r.Runs
}

func (r simReport) write(w io.Writer, jitter time.Duration) {
	drift := "none"
	if r.Drifted() {
		drift = fmt.Sprintf("DETECTED (%d ticks, %d expected)", r.Ticks, r.Expected)
	}

	fmt.Fprintf(w, "Simulated:  %s (%s → %s)\n", r.End.Sub(r.Start), r.Start.Format("15:04:05.000"), r.End.Format("15:04:05.000"))
	fmt.Fprintf(w, "Ticks:      %d (expected %d over %d interactive runs)\n", r.Ticks, r.Expected, r.Runs)
	fmt.Fprintf(w, "Frames:     %d (%d redraw requests)\n", r.Frames, r.Invalidations)
	fmt.Fprintf(w, "Lateness:   mean %v, max <= %v (jitter %v)\n", r.MeanLateness, r.Lateness, jitter)
	fmt.Fprintf(w, "Events:     %d on the bus\n", r.Events)
	fmt.Fprintf(w, "Drift:      %s\n", drift)
}

type simOptions struct {
	start    time.Time
	duration time.Duration
	jitter   time.Duration
	seed     int64
	steps    []scriptStep
	logger   *log.Logger
}

// simulate drives a host on virtual time.
func simulate(o simOptions) (simReport, error) {
	rng := rand.New(rand.NewSource(o.seed))
	v := loop.NewVirtual(o.start, loop.WithLatency(func(uint64) time.Duration {
		if o.jitter <= 0 {
			return 0
		}
		return time.Duration(rng.Int63n(int64(o.jitter) + 1))
	}))

	reg := prometheus.NewRegistry()
	metrics := telemetry.InitMetrics(reg)

	var (
		report   = simReport{Start: o.start}
		h        *host
		rec      = render.NewRecorder()
		bounds   = image.Rect(0, 0, render.ReferenceSize, render.ReferenceSize)
		runStart time.Time
		inRun    bool
	)

	cfg, err := loadConfig("")
	if err != nil {
		return report, err
	}

	h, err = newHost(hostOptions{
		cfg:    cfg,
		sched:  v,
		poster: v,
		clk:    v,
		invalidate: func() {
			report.Invalidations++
			v.Post(func() {
				rec.Reset()
				h.engine.OnDraw(rec, bounds)
			})
		},
		metrics: metrics,
		logger:  o.logger,
		ambient: true,
	})
	if err != nil {
		return report, err
	}

	closeRun := func(at time.Time) {
		if inRun {
			report.Expected += boundaries(runStart, at, cfg.TickInterval) + 1
			report.Runs++
			inRun = false
		}
	}
	h.power.OnTransition(func(_, to power.State, _ power.Event) {
		if to == power.Interactive {
			closeRun(v.Now())
			runStart, inRun = v.Now(), true
			return
		}
		closeRun(v.Now())
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.start(ctx); err != nil {
		return report, err
	}
	for _, step := range o.steps {
		v.ScheduleOnce(step.at, func() { h.trigger(ctx, step.ev) })
	}

	v.RunFor(o.duration)
	report.End = v.Now()
	closeRun(report.End)

	report.Ticks = h.engine.Ticks()
	report.Frames = h.engine.Frames()
	h.stop()
	report.Events = h.history.Len()

	report.MeanLateness, report.Lateness = latency(reg, "watchface_tick_lateness_seconds")
	return report, nil
}

// latency returns the mean and the upper bound of the highest occupied
// bucket of the named histogram.
func latency(g prometheus.Gatherer, name string) (mean, peak time.Duration) {
	families, err := g.Gather()
	if err != nil {
		return 0, 0
	}

	for _, mf := range families {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		for _, m := range mf.GetMetric() {
			hist := m.GetHistogram()
			if hist.GetSampleCount() == 0 {
				continue
			}
			mean = seconds(hist.GetSampleSum() / float64(hist.GetSampleCount()))

			var below uint64
			for _, b := range hist.GetBucket() {
				if b.GetCumulativeCount() > below {
					peak = seconds(b.GetUpperBound())
				}
				below = b.GetCumulativeCount()
				if below == hist.GetSampleCount() {
					break
				}
			}
		}
	}
	return mean, peak
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}

func runSimulate(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	duration := fs.Duration("duration", time.Hour, "simulated run time")
	jitter := fs.Duration("jitter", 20*time.Millisecond, "maximum timer delivery latency")
	at := fs.String("start", "", "simulated start time, HH:MM[:SS] or RFC 3339 (default now)")
	script := fs.String("script", "", "power events, e.g. idle@30s,wake@1m,hide@2m")
	seed := fs.Int64("seed", 1, "jitter random seed")
	verbose := fs.Bool("v", false, "log host and engine activity")
	fs.Parse(args)

	start, err := parseAt(*at, time.Now())
	if err != nil {
		return err
	}
	steps, err := parseScript(*script)
	if err != nil {
		return err
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.Default()
	}

	report, err := simulate(simOptions{
		start:    start,
		duration: *duration,
		jitter:   *jitter,
		seed:     *seed,
		steps:    steps,
		logger:   logger,
	})
	if err != nil {
		return err
	}

	report.write(w, *jitter)
	if report.Drifted() {
		return fmt.Errorf("tick drift detected")
	}
	return nil
}
