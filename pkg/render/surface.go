// Package render draws the analog watch face.
//
// A Pass turns a display mode and a clock.TimeSample into an ordered
// sequence of primitives on a Surface. Surfaces are supplied by hosts:
// pkg/raster draws into images, pkg/termcanvas into a terminal, and the
// Recorder in this package captures the primitives for inspection.
package render

import (
	"fmt"
	"image"
)

// Surface is a drawing target owned by the host. Coordinates are in
// pixels with the origin at the top-left of the surface.
type Surface interface {
	// FillRect fills r with p.Color.
	FillRect(r image.Rectangle, p Paint)

	// DrawLine strokes a segment using p.StrokeWidth and p.Cap.
	DrawLine(x0, y0, x1, y1 float64, p Paint)

	// DrawCircle fills a disc.
	DrawCircle(cx, cy, radius float64, p Paint)

	// DrawText draws text with its baseline at y, positioned horizontally
	// around x according to p.Align.
	DrawText(text string, x, y float64, p Paint)
}

// Mode is the display mode.
type Mode int

const (
	// ModeNormal is the interactive, full-detail mode.
	ModeNormal Mode = iota

	// ModeLowPower is the reduced-detail ambient mode.
	ModeLowPower
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeLowPower:
		return "low_power"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "normal", "low_power" and "ambient".
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*m = ModeNormal
	case "low_power", "ambient":
		*m = ModeLowPower
	default:
		return fmt.Errorf("render: unknown mode %q", text)
	}
	return nil
}
