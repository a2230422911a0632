package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	periphhost "periph.io/x/host/v3"

	"github.com/BYTE-6D65/watchface/pkg/loop"
	"github.com/BYTE-6D65/watchface/pkg/power"
	"github.com/BYTE-6D65/watchface/pkg/raster"
	"github.com/BYTE-6D65/watchface/pkg/render"
)

// Panel contrast per power state.
const (
	contrastInteractive byte = 0xff
	contrastAmbient     byte = 0x08
)

// monoStyle adapts a style to a 1-bit panel: white on black, with the
// accent colour lit so the back-plate and second dot stay visible.
func monoStyle(s render.Style) render.Style {
	s.Background = render.Black
	s.Hands = render.White
	s.BackgroundDark = render.White
	s.Shadow = render.Transparent
	return s
}

// centerSquare returns the largest square centred in r.
func centerSquare(r image.Rectangle) image.Rectangle {
	side := min(r.Dx(), r.Dy())
	x := r.Min.X + (r.Dx()-side)/2
	y := r.Min.Y + (r.Dy()-side)/2
	return image.Rect(x, y, x+side, y+side)
}

func runOLED(args []string) error {
	fs := flag.NewFlagSet("oled", flag.ExitOnError)
	busName := fs.String("bus", "", "I2C bus name (default first available)")
	width := fs.Int("width", ssd1306.DefaultOpts.W, "panel width in pixels")
	height := fs.Int("height", ssd1306.DefaultOpts.H, "panel height in pixels")
	idle := fs.Duration("idle", 30*time.Second, "enter ambient after this long without a wake (0 disables)")
	configPath := fs.String("config", "", "YAML config file (default $WATCHFACE_CONFIG)")
	metricsAddr := fs.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9090")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Style = monoStyle(cfg.Style)
	cfg.LowBitAmbient = true
	cfg.ScaleStyle = true

	if _, err := periphhost.Init(); err != nil {
		return fmt.Errorf("periph init: %w", err)
	}

	bus, err := i2creg.Open(*busName)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", *busName, err)
	}
	defer bus.Close()

	opts := ssd1306.DefaultOpts
	opts.W, opts.H = *width, *height
	dev, err := ssd1306.NewI2C(bus, &opts)
	if err != nil {
		return fmt.Errorf("ssd1306: %w", err)
	}
	defer dev.Halt()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, metrics := newMetrics()
	serveMetrics(ctx, *metricsAddr, reg, log.Default())

	img := image1bit.NewVerticalLSB(dev.Bounds())
	canvas := raster.New(img)
	face := centerSquare(dev.Bounds())
	l := loop.New()

	var h *host
	h, err = newHost(hostOptions{
		cfg:    cfg,
		sched:  l,
		poster: l,
		invalidate: func() {
			l.Post(func() {
				h.engine.OnDraw(canvas, face)
				if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
					log.Printf("oled: draw failed: %v", err)
				}
			})
		},
		metrics:   metrics,
		logger:    log.Default(),
		ambient:   true,
		watchZone: true,
	})
	if err != nil {
		return err
	}

	h.power.OnTransition(func(_, to power.State, _ power.Event) {
		level := contrastInteractive
		if to == power.Ambient {
			level = contrastAmbient
		}
		if err := dev.SetContrast(level); err != nil {
			log.Printf("oled: set contrast failed: %v", err)
		}
	})

	// SIGUSR1 wakes the face, like a wrist raise
	wake := make(chan os.Signal, 1)
	signal.Notify(wake, syscall.SIGUSR1)
	defer signal.Stop(wake)

	idler := &idleTimer{sched: l, after: *idle, fire: func() { h.trigger(ctx, power.Idle) }}

	l.Post(func() {
		if err := h.start(ctx); err != nil {
			log.Printf("oled: start failed: %v", err)
			stop()
			return
		}
		idler.reset()
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-wake:
				l.Post(func() {
					if h.power.Can(power.Wake) {
						h.trigger(ctx, power.Wake)
					}
					idler.reset()
				})
			}
		}
	}()

	log.Printf("oled: running on %s (%dx%d)", dev, *width, *height)
	err = l.Run(ctx)
	h.stop()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// idleTimer fires once after a quiet period. Reset restarts the period.
type idleTimer struct {
	sched  loop.Scheduler
	after  time.Duration
	fire   func()
	handle loop.Handle
}

func (t *idleTimer) reset() {
	if t.after <= 0 {
		return
	}
	if t.handle != 0 {
		t.sched.Cancel(t.handle)
	}
	t.handle = t.sched.ScheduleOnce(t.after, func() {
		t.handle = 0
		t.fire()
	})
}
