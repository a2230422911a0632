package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BYTE-6D65/watchface/pkg/engine"
	"github.com/BYTE-6D65/watchface/pkg/render"
	"github.com/BYTE-6D65/watchface/pkg/telemetry"
)

// clockLayouts are accepted by -at in addition to RFC 3339.
var clockLayouts = []string{"15:04:05", "15:04"}

// parseAt resolves -at against base. A bare clock time keeps base's
// date and zone; an empty value returns base.
func parseAt(value string, base time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return base, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		y, m, d := base.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, base.Location()), nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q (want HH:MM[:SS] or RFC 3339)", value)
}

// modeFlag maps -ambient onto a display mode.
func modeFlag(ambient bool) render.Mode {
	if ambient {
		return render.ModeLowPower
	}
	return render.ModeNormal
}

// loadConfig reads the -config file (or WATCHFACE_CONFIG when empty)
// with env overrides applied.
func loadConfig(path string) (engine.Config, error) {
	if path == "" {
		return engine.LoadFromEnv()
	}
	return engine.Load(path)
}

// newMetrics creates a private registry with the watch face and runtime
// collectors.
func newMetrics() (*prometheus.Registry, *telemetry.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, telemetry.InitMetrics(reg)
}

// serveMetrics exposes reg on addr until ctx is cancelled. An empty addr
// disables the endpoint.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *log.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	}()

	go func() {
		logger.Printf("metrics: serving addr=%s path=/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("metrics: server failed: %v", err)
		}
	}()
}
