package termcanvas

import (
	"image"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/BYTE-6D65/watchface/pkg/clock"
	"github.com/BYTE-6D65/watchface/pkg/render"
)

func TestNew_PixelGrid(t *testing.T) {
	c := New(40, 12)

	if got := c.Bounds(); got != image.Rect(0, 0, 40, 24) {
		t.Errorf("Bounds = %v, want 40x24", got)
	}
	if got := c.Square(); got != image.Rect(8, 0, 32, 24) {
		t.Errorf("Square = %v, want (8,0)-(32,24)", got)
	}
}

func TestNew_ClampsSize(t *testing.T) {
	c := New(0, -3)
	if got := c.Bounds(); got != image.Rect(0, 0, 1, 2) {
		t.Errorf("Bounds = %v, want 1x2", got)
	}
}

func TestView_Shape(t *testing.T) {
	c := New(30, 10)
	render.NewPass(render.DefaultStyle().ScaleTo(20)).Render(c, c.Square(), render.ModeNormal,
		clock.TimeSample{Hour: 10, Minute: 10, Second: 30, DayOfMonth: 17, MonthName: "Oct"})

	lines := strings.Split(c.View(), "\n")
	if len(lines) != 10 {
		t.Fatalf("View has %d lines, want 10", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 30 {
			t.Errorf("line %d width = %d, want 30", i, w)
		}
	}
}

func TestPixel_TopAndBottomHalves(t *testing.T) {
	c := New(4, 2)
	red := render.RGB(0xFF, 0, 0)
	blue := render.RGB(0, 0, 0xFF)

	c.FillRect(image.Rect(0, 0, 4, 1), render.Paint{Color: red})
	c.FillRect(image.Rect(0, 1, 4, 2), render.Paint{Color: blue})

	if c.Pixel(2, 0) != red || c.Pixel(2, 1) != blue {
		t.Errorf("cell pixels = %v/%v, want red/blue", c.Pixel(2, 0), c.Pixel(2, 1))
	}
}
