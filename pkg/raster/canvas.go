// Package raster implements render.Surface over any draw.Image.
//
// Shapes are scan-converted with golang.org/x/image/vector into an alpha
// mask and composited with image/draw. When a Paint disables
// anti-aliasing the mask is thresholded, giving hard-edged pixels suited
// to low-bit ambient displays. Text uses a bitmap font.Face scaled to
// the requested size.
package raster

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/BYTE-6D65/watchface/pkg/render"
)

// circleSegments is the polygon resolution used for discs.
const circleSegments = 64

// Canvas draws render primitives onto a draw.Image.
type Canvas struct {
	dst    draw.Image
	bounds image.Rectangle
	face   font.Face
	z      *vector.Rasterizer
	mask   *image.Alpha
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithFace sets the font used by DrawText. The default is
// basicfont.Face7x13.
func WithFace(f font.Face) Option {
	return func(c *Canvas) {
		if f != nil {
			c.face = f
		}
	}
}

// New creates a Canvas drawing onto dst.
func New(dst draw.Image, opts ...Option) *Canvas {
	b := dst.Bounds()
	c := &Canvas{
		dst:    dst,
		bounds: b,
		face:   basicfont.Face7x13,
		z:      vector.NewRasterizer(b.Dx(), b.Dy()),
		mask:   image.NewAlpha(image.Rect(0, 0, b.Dx(), b.Dy())),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Image returns the destination image.
func (c *Canvas) Image() draw.Image {
	return c.dst
}

// FillRect fills r, clipped to the destination.
func (c *Canvas) FillRect(r image.Rectangle, p render.Paint) {
	r = r.Intersect(c.bounds)
	if r.Empty() {
		return
	}
	draw.Draw(c.dst, r, image.NewUniform(p.Color), image.Point{}, draw.Over)
}

// DrawLine strokes a segment; round caps add a disc at each end.
func (c *Canvas) DrawLine(x0, y0, x1, y1 float64, p render.Paint) {
	half := p.StrokeWidth / 2
	if half <= 0 {
		half = 0.5
	}

	c.begin()
	dx, dy := x1-x0, y1-y0
	if length := math.Hypot(dx, dy); length > 0 {
		nx, ny := -dy/length*half, dx/length*half
		c.polygon([][2]float64{
			{x0 + nx, y0 + ny},
			{x1 + nx, y1 + ny},
			{x1 - nx, y1 - ny},
			{x0 - nx, y0 - ny},
		})
	}
	if p.Cap == render.CapRound {
		c.circle(x0, y0, half)
		c.circle(x1, y1, half)
	}
	c.composite(p.Color, p.AntiAlias)
}

// DrawCircle fills a disc, preceded by a soft shadow when
// p.ShadowRadius is positive.
func (c *Canvas) DrawCircle(cx, cy, radius float64, p render.Paint) {
	if p.ShadowRadius > 0 && p.ShadowColor.A() > 0 {
		c.shadow(cx, cy, radius, p)
	}

	c.begin()
	c.circle(cx, cy, radius)
	c.composite(p.Color, p.AntiAlias)
}

// DrawText draws text with its baseline at y. The face is scaled so its
// line height matches p.TextSize.
func (c *Canvas) DrawText(text string, x, y float64, p render.Paint) {
	if text == "" {
		return
	}

	m := c.face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	width := font.MeasureString(c.face, text).Ceil()
	if width <= 0 || ascent+descent <= 0 {
		return
	}

	glyphs := image.NewAlpha(image.Rect(0, 0, width, ascent+descent))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: c.face,
		Dot:  fixed.P(0, ascent),
	}
	d.DrawString(text)

	scale := 1.0
	if p.TextSize > 0 {
		scale = p.TextSize / float64(ascent+descent)
	}
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(ascent+descent) * scale))
	if w <= 0 || h <= 0 {
		return
	}

	left := x
	switch p.Align {
	case render.AlignCenter:
		left -= float64(w) / 2
	case render.AlignRight:
		left -= float64(w)
	}
	top := y - float64(ascent)*scale

	scaled := image.NewAlpha(image.Rect(0, 0, w, h))
	var interp xdraw.Interpolator = xdraw.NearestNeighbor
	if p.AntiAlias {
		interp = xdraw.ApproxBiLinear
	}
	interp.Scale(scaled, scaled.Bounds(), glyphs, glyphs.Bounds(), xdraw.Src, nil)

	origin := image.Pt(int(math.Round(left)), int(math.Round(top)))
	dr := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(w, h))}
	draw.DrawMask(c.dst, dr, image.NewUniform(p.Color), image.Point{}, scaled, image.Point{}, draw.Over)
}

// shadow draws concentric rings of decreasing opacity out to
// radius+p.ShadowRadius.
func (c *Canvas) shadow(cx, cy, radius float64, p render.Paint) {
	steps := int(math.Ceil(p.ShadowRadius))
	base := float64(p.ShadowColor.A())

	for i := steps; i >= 1; i-- {
		r := radius + p.ShadowRadius*float64(i)/float64(steps)
		alpha := base * (1 - float64(i)/float64(steps+1)) / float64(steps)
		if alpha < 1 {
			continue
		}
		col := render.ARGB(uint8(alpha), p.ShadowColor.R(), p.ShadowColor.G(), p.ShadowColor.B())

		c.begin()
		c.circle(cx, cy, r)
		c.composite(col, true)
	}
}

func (c *Canvas) begin() {
	c.z.Reset(c.bounds.Dx(), c.bounds.Dy())
}

func (c *Canvas) circle(cx, cy, r float64) {
	if r <= 0 {
		return
	}
	pts := make([][2]float64, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = [2]float64{cx + r*math.Cos(a), cy + r*math.Sin(a)}
	}
	c.polygon(pts)
}

// polygon adds a closed path. Every path is wound the same way so that
// overlapping shapes in one mask combine as a union.
func (c *Canvas) polygon(pts [][2]float64) {
	if len(pts) < 3 {
		return
	}
	if signedArea(pts) < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	ox, oy := float64(c.bounds.Min.X), float64(c.bounds.Min.Y)
	c.z.MoveTo(float32(pts[0][0]-ox), float32(pts[0][1]-oy))
	for _, pt := range pts[1:] {
		c.z.LineTo(float32(pt[0]-ox), float32(pt[1]-oy))
	}
	c.z.ClosePath()
}

// composite rasterizes the current path into the mask and draws col
// through it.
func (c *Canvas) composite(col render.Color, antiAlias bool) {
	clear(c.mask.Pix)
	c.z.Draw(c.mask, c.mask.Bounds(), image.Opaque, image.Point{})

	if !antiAlias {
		for i, a := range c.mask.Pix {
			if a >= 0x80 {
				c.mask.Pix[i] = 0xFF
			} else {
				c.mask.Pix[i] = 0
			}
		}
	}

	draw.DrawMask(c.dst, c.bounds, image.NewUniform(col), image.Point{}, c.mask, image.Point{}, draw.Over)
}

func signedArea(pts [][2]float64) float64 {
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
	}
	return sum / 2
}
