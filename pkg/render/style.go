package render

// Style holds the face's colours and dimensions. Lengths are in pixels
// for a face ReferenceSize wide; use Scale for other sizes.
type Style struct {
	Background     Color `yaml:"background" json:"background"`
	Hands          Color `yaml:"hands" json:"hands"`
	BackgroundDark Color `yaml:"background_dark" json:"background_dark"`
	Shadow         Color `yaml:"shadow" json:"shadow"`

	HandStroke   float64 `yaml:"hand_stroke" json:"hand_stroke"`
	DateTextSize float64 `yaml:"date_text_size" json:"date_text_size"`
	DateOffsetY  float64 `yaml:"date_offset_y" json:"date_offset_y"`

	BackPlateRadius float64 `yaml:"back_plate_radius" json:"back_plate_radius"`
	CapRadius       float64 `yaml:"cap_radius" json:"cap_radius"`
	CapShadow       float64 `yaml:"cap_shadow" json:"cap_shadow"`
	DotRadius       float64 `yaml:"dot_radius" json:"dot_radius"`

	MinuteInset float64 `yaml:"minute_inset" json:"minute_inset"`
	HourInset   float64 `yaml:"hour_inset" json:"hour_inset"`
	DotInset    float64 `yaml:"dot_inset" json:"dot_inset"`
}

// ReferenceSize is the face width the default style is laid out for.
const ReferenceSize = 320

// DefaultStyle returns the stock face.
func DefaultStyle() Style {
	return Style{
		Background:     RGB(0xEC, 0xEF, 0xF1),
		Hands:          RGB(0x26, 0x32, 0x38),
		BackgroundDark: RGB(0x00, 0x96, 0x88),
		Shadow:         Black,

		HandStroke:   5,
		DateTextSize: 24,
		DateOffsetY:  60,

		BackPlateRadius: 20,
		CapRadius:       10,
		CapShadow:       5,
		DotRadius:       6,

		MinuteInset: 50,
		HourInset:   100,
		DotInset:    20,
	}
}

// Scale returns a copy with every length multiplied by f.
func (s Style) Scale(f float64) Style {
	s.HandStroke *= f
	s.DateTextSize *= f
	s.DateOffsetY *= f
	s.BackPlateRadius *= f
	s.CapRadius *= f
	s.CapShadow *= f
	s.DotRadius *= f
	s.MinuteInset *= f
	s.HourInset *= f
	s.DotInset *= f
	return s
}

// ScaleTo scales the style for a face width pixels wide.
func (s Style) ScaleTo(width int) Style {
	if width <= 0 || width == ReferenceSize {
		return s
	}
	return s.Scale(float64(width) / ReferenceSize)
}
