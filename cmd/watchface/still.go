package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"time"

	"github.com/BYTE-6D65/watchface/pkg/engine"
	"github.com/BYTE-6D65/watchface/pkg/loop"
	"github.com/BYTE-6D65/watchface/pkg/raster"
	"github.com/BYTE-6D65/watchface/pkg/render"
)

// stillOptions are shared by the single-frame commands.
type stillOptions struct {
	config  string
	at      string
	zone    string
	size    int
	ambient bool
	lowBit  bool
	scale   bool
}

func (o *stillOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.config, "config", "", "YAML config file (default $WATCHFACE_CONFIG)")
	fs.StringVar(&o.at, "at", "", "time to draw, HH:MM[:SS] or RFC 3339 (default now)")
	fs.StringVar(&o.zone, "zone", "", "IANA timezone (default config or system)")
	fs.IntVar(&o.size, "size", render.ReferenceSize, "face size in pixels")
	fs.BoolVar(&o.ambient, "ambient", false, "draw the low-power face")
	fs.BoolVar(&o.lowBit, "lowbit", false, "display has low-bit ambient")
	fs.BoolVar(&o.scale, "scale", false, "scale the style from 320px to -size")
}

// drawStill renders one frame through the engine at the requested time.
func drawStill(o stillOptions, surface render.Surface) (image.Rectangle, error) {
	if o.size <= 0 {
		return image.Rectangle{}, fmt.Errorf("size must be > 0, got %d", o.size)
	}

	cfg, err := loadConfig(o.config)
	if err != nil {
		return image.Rectangle{}, err
	}
	if o.zone != "" {
		cfg.Zone = o.zone
	}
	if o.scale {
		cfg.ScaleStyle = true
	}

	loc := time.Local
	if cfg.Zone != "" {
		if loc, err = time.LoadLocation(cfg.Zone); err != nil {
			return image.Rectangle{}, err
		}
	}
	at, err := parseAt(o.at, time.Now().In(loc))
	if err != nil {
		return image.Rectangle{}, err
	}

	v := loop.NewVirtual(at)
	e, err := engine.New(cfg,
		engine.WithClock(v),
		engine.WithScheduler(v),
		engine.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		return image.Rectangle{}, err
	}

	bounds := image.Rect(0, 0, o.size, o.size)
	e.OnCreate()
	e.OnPropertiesDiscovered(o.lowBit || cfg.LowBitAmbient)
	e.OnModeChanged(modeFlag(o.ambient))
	e.OnDraw(surface, bounds)
	e.OnDestroy()

	return bounds, nil
}

func runPNG(args []string) error {
	fs := flag.NewFlagSet("png", flag.ExitOnError)
	var o stillOptions
	o.register(fs)
	out := fs.String("o", "face.png", "output file")
	fs.Parse(args)

	img := image.NewRGBA(image.Rect(0, 0, max(o.size, 1), max(o.size, 1)))
	if _, err := drawStill(o, raster.New(img)); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", *out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("wrote %s (%dx%d)", *out, o.size, o.size)
	return nil
}

func runFrame(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	var o stillOptions
	o.register(fs)
	fs.Parse(args)

	rec := render.NewRecorder()
	bounds, err := drawStill(o, rec)
	if err != nil {
		return err
	}
	return rec.WriteJSON(w, modeFlag(o.ambient), bounds)
}
