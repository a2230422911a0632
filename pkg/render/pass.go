package render

import (
	"image"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/face"
)

// Pass draws one frame of the face. It holds only configuration, so
// rendering the same inputs twice produces the same primitives.
type Pass struct {
	style  Style
	lowBit bool
}

// NewPass creates a Pass using style.
func NewPass(style Style) *Pass {
	return &Pass{style: style}
}

// Style returns the configured style.
func (p *Pass) Style() Style {
	return p.style
}

// SetStyle replaces the style.
func (p *Pass) SetStyle(s Style) {
	p.style = s
}

// SetLowBitAmbient records whether the display can only show a few
// colour levels in low-power mode. When set, hands are drawn without
// anti-aliasing in ModeLowPower.
func (p *Pass) SetLowBitAmbient(lowBit bool) {
	p.lowBit = lowBit
}

// LowBitAmbient reports the value set by SetLowBitAmbient.
func (p *Pass) LowBitAmbient() bool {
	return p.lowBit
}

// Render draws the face for sample into bounds.
//
// Order: background, date text (normal only), back-plate, minute hand,
// hour hand, cap, then the second dot and eight marker dots (normal only).
func (p *Pass) Render(s Surface, bounds image.Rectangle, mode Mode, sample clock.TimeSample) {
	st := p.style
	g := face.ComputeGeometry(sample)
	normal := mode == ModeNormal
	handAA := !(mode == ModeLowPower && p.lowBit)

	halfW := float64(bounds.Dx()) / 2
	halfH := float64(bounds.Dy()) / 2
	cx := float64(bounds.Min.X) + halfW
	cy := float64(bounds.Min.Y) + halfH

	s.FillRect(bounds, Paint{Color: st.Background})

	if normal {
		s.DrawText(sample.DateText(), cx, float64(bounds.Max.Y)-st.DateOffsetY, Paint{
			Color:     st.BackgroundDark,
			AntiAlias: true,
			TextSize:  st.DateTextSize,
			Align:     AlignCenter,
		})
	}

	s.DrawCircle(cx, cy, st.BackPlateRadius, Paint{Color: st.BackgroundDark, AntiAlias: true})

	hand := Paint{
		Color:       st.Hands,
		StrokeWidth: st.HandStroke,
		AntiAlias:   handAA,
		Cap:         CapRound,
	}
	mx, my := face.PointAt(cx, cy, g.Minute, halfW-st.MinuteInset, halfW-st.MinuteInset)
	s.DrawLine(cx, cy, mx, my, hand)
	hx, hy := face.PointAt(cx, cy, g.Hour, halfW-st.HourInset, halfW-st.HourInset)
	s.DrawLine(cx, cy, hx, hy, hand)

	s.DrawCircle(cx, cy, st.CapRadius, Paint{
		Color:        st.Hands,
		AntiAlias:    true,
		ShadowRadius: st.CapShadow,
		ShadowColor:  st.Shadow,
	})

	if !normal {
		return
	}

	rx, ry := halfW-st.DotInset, halfH-st.DotInset
	sx, sy := face.PointAt(cx, cy, g.Second, rx, ry)
	s.DrawCircle(sx, sy, st.DotRadius, Paint{Color: st.BackgroundDark, AntiAlias: handAA})

	marker := Paint{Color: st.Hands, AntiAlias: true}
	for _, a := range face.MarkerAngles {
		x, y := face.PointAt(cx, cy, a, rx, ry)
		s.DrawCircle(x, y, st.DotRadius, marker)
	}
}
