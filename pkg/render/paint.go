package render

import "fmt"

// StrokeCap describes how line endpoints are drawn.
type StrokeCap int

const (
	CapButt  StrokeCap = iota // Flat edge at endpoint (default)
	CapRound                  // Semicircle at endpoint
)

// String returns a human-readable representation of the stroke cap.
func (c StrokeCap) String() string {
	switch c {
	case CapButt:
		return "butt"
	case CapRound:
		return "round"
	default:
		return fmt.Sprintf("StrokeCap(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c StrokeCap) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// TextAlign positions text horizontally relative to its anchor.
type TextAlign int

const (
	AlignLeft   TextAlign = iota // Anchor is the left edge
	AlignCenter                  // Anchor is the horizontal centre
	AlignRight                   // Anchor is the right edge
)

// String returns a human-readable representation of the alignment.
func (a TextAlign) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	default:
		return fmt.Sprintf("TextAlign(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a TextAlign) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Paint describes how a primitive is drawn. Surfaces may ignore fields
// they cannot honour (a 1-bit panel has no anti-aliasing).
type Paint struct {
	Color        Color     `json:"color"`
	StrokeWidth  float64   `json:"stroke_width,omitzero"`
	AntiAlias    bool      `json:"anti_alias"`
	Cap          StrokeCap `json:"cap,omitzero"`
	TextSize     float64   `json:"text_size,omitzero"`
	Align        TextAlign `json:"align,omitzero"`
	ShadowRadius float64   `json:"shadow_radius,omitzero"`
	ShadowColor  Color     `json:"shadow_color,omitzero"`
}
