// Package face maps clock readings to analog hand positions.
//
// Angles are in radians, measured clockwise from 12 o'clock, so a point at
// angle a and radius r from the centre is (cx + r*sin(a), cy - r*cos(a)).
package face

import (
	"math"

	"github.com/BYTE-6D65/watchface/pkg/clock"
)

// Geometry holds the hand angles for one TimeSample.
type Geometry struct {
	Hour   float64 `json:"hour"`
	Minute float64 `json:"minute"`
	Second float64 `json:"second"`
}

// MarkerAngles are the eight decorative dots at the cardinal and
// intercardinal positions of the dial.
var MarkerAngles = [8]float64{
	0,
	math.Pi / 4,
	math.Pi / 2,
	math.Pi / 4 * 3,
	math.Pi,
	math.Pi + math.Pi/4,
	math.Pi + math.Pi/2,
	math.Pi*2 - math.Pi/4,
}

// ComputeGeometry converts a TimeSample into hand angles.
// The second hand angle is always computed; whether it is drawn is up to
// the render pass.
func ComputeGeometry(now clock.TimeSample) Geometry {
	minute := float64(now.Minute)
	return Geometry{
		Hour:   (float64(now.Hour) + minute/60) / 6 * math.Pi,
		Minute: minute / 30 * math.Pi,
		Second: float64(now.Second) / 30 * math.Pi,
	}
}

// PointAt returns the point at angle and radii (rx, ry) from (cx, cy).
// Separate radii let dots follow an elliptical track on non-square faces.
func PointAt(cx, cy, angle, rx, ry float64) (x, y float64) {
	return cx + math.Sin(angle)*rx, cy - math.Cos(angle)*ry
}
