// Package termcanvas is a render.Surface for terminals.
//
// Each terminal cell shows two vertically stacked pixels using the upper
// half block glyph: the foreground colour paints the top pixel and the
// background colour the bottom one. Drawing goes through pkg/raster onto
// an off-screen image; View converts that image to styled text.
package termcanvas

import (
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/watchface/pkg/raster"
	"github.com/BYTE-6D65/watchface/pkg/render"
)

const halfBlock = "▀"

// Canvas is a terminal drawing surface of cols by rows cells.
type Canvas struct {
	*raster.Canvas

	img    *image.RGBA
	cols   int
	rows   int
	styles map[[2]render.Color]lipgloss.Style
}

// New creates a canvas of cols by rows cells, which is cols by 2*rows
// pixels.
func New(cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	return &Canvas{
		Canvas: raster.New(img),
		img:    img,
		cols:   cols,
		rows:   rows,
		styles: make(map[[2]render.Color]lipgloss.Style),
	}
}

// Bounds returns the pixel bounds.
func (c *Canvas) Bounds() image.Rectangle {
	return c.img.Bounds()
}

// Square returns the largest square centred in the pixel bounds.
func (c *Canvas) Square() image.Rectangle {
	b := c.img.Bounds()
	side := min(b.Dx(), b.Dy())
	x := (b.Dx() - side) / 2
	y := (b.Dy() - side) / 2
	return image.Rect(x, y, x+side, y+side)
}

// Pixel returns the colour of pixel (x, y).
func (c *Canvas) Pixel(x, y int) render.Color {
	p := c.img.RGBAAt(x, y)
	return render.ARGB(p.A, p.R, p.G, p.B)
}

// View renders the canvas as rows lines of styled half blocks.
func (c *Canvas) View() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			top := c.Pixel(col, row*2)
			bottom := c.Pixel(col, row*2+1)
			b.WriteString(c.style(top, bottom).Render(halfBlock))
		}
	}
	return b.String()
}

func (c *Canvas) style(top, bottom render.Color) lipgloss.Style {
	key := [2]render.Color{top, bottom}
	if s, ok := c.styles[key]; ok {
		return s
	}

	s := lipgloss.NewStyle().
		Foreground(lipgloss.Color(top.WithAlpha(0xFF).String())).
		Background(lipgloss.Color(bottom.WithAlpha(0xFF).String()))
	c.styles[key] = s
	return s
}
