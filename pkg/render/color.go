package render

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is stored as ARGB (0xAARRGGBB).
type Color uint32

// ARGB constructs a Color from alpha, red, green, blue bytes.
func ARGB(a, r, g, b uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// RGB constructs an opaque Color.
func RGB(r, g, b uint8) Color {
	return ARGB(0xFF, r, g, b)
}

// Common colors.
var (
	Transparent = Color(0x00000000)
	Black       = Color(0xFF000000)
	White       = Color(0xFFFFFFFF)
)

// A returns the alpha byte.
func (c Color) A() uint8 { return uint8(c >> 24) }

// R returns the red byte.
func (c Color) R() uint8 { return uint8(c >> 16) }

// G returns the green byte.
func (c Color) G() uint8 { return uint8(c >> 8) }

// B returns the blue byte.
func (c Color) B() uint8 { return uint8(c) }

// RGBA implements image/color.Color with alpha-premultiplied components.
func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A())
	a |= a << 8
	r = uint32(c.R())
	r |= r << 8
	g = uint32(c.G())
	g |= g << 8
	b = uint32(c.B())
	b |= b << 8
	return r * a / 0xFFFF, g * a / 0xFFFF, b * a / 0xFFFF, a
}

// WithAlpha returns a copy of the color with the given alpha.
func (c Color) WithAlpha(a uint8) Color {
	return Color(uint32(a)<<24 | uint32(c)&0x00FFFFFF)
}

// Luma returns the perceived brightness in [0, 255], ignoring alpha.
func (c Color) Luma() uint8 {
	return uint8((299*uint32(c.R()) + 587*uint32(c.G()) + 114*uint32(c.B())) / 1000)
}

// String formats opaque colors as #rrggbb and others as #aarrggbb.
func (c Color) String() string {
	if c.A() == 0xFF {
		return fmt.Sprintf("#%06x", uint32(c)&0x00FFFFFF)
	}
	return fmt.Sprintf("#%08x", uint32(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts #rrggbb, #aarrggbb and their forms without '#'.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor parses a hex color.
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("render: invalid color %q: %w", s, err)
	}

	switch len(hex) {
	case 6:
		return Color(0xFF000000 | uint32(v)), nil
	case 8:
		return Color(uint32(v)), nil
	default:
		return 0, fmt.Errorf("render: invalid color %q: want 6 or 8 hex digits", s)
	}
}
