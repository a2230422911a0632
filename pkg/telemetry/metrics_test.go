package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)

	m.TickScheduled(500 * time.Millisecond)
	m.TickFired(3 * time.Millisecond)
	m.Redrawn("normal", time.Millisecond)
	m.Skipped("no-surface")
	m.ModeChanged("low_power")
	m.TimezoneChanged()
	m.SetState(true, false)

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n == 0 {
		t.Error("no metrics gathered")
	}

	if v := testutil.ToFloat64(m.TicksFired); v != 1 {
		t.Errorf("ticks fired = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.RedrawsSkipped.WithLabelValues("no-surface")); v != 1 {
		t.Errorf("skipped{no-surface} = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.Visible); v != 1 {
		t.Errorf("visible = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.Ticking); v != 0 {
		t.Errorf("ticking = %v, want 0", v)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.TickScheduled(time.Second)
	m.TickCanceled()
	m.TickFired(time.Second)
	m.Redrawn("normal", 0)
	m.Skipped("x")
	m.ModeChanged("normal")
	m.TimezoneChanged()
	m.SetState(true, true)
}

func TestTickFired_NegativeLatenessClamped(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := InitMetrics(reg)

	m.TickFired(-time.Millisecond)

	if n := testutil.CollectAndCount(m.TickLateness); n != 1 {
		t.Errorf("lateness series = %d, want 1", n)
	}
	if v := testutil.ToFloat64(m.TicksFired); v != 1 {
		t.Errorf("ticks fired = %v, want 1", v)
	}
}
