package render

import (
	"image/color"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#009688", 0xFF009688, true},
		{"ffffff", White, true},
		{"#80000000", 0x80000000, true},
		{"#fff", 0, false},
		{"purple", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseColor(%q) error = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestColor_StringAndRGBA(t *testing.T) {
	if s := RGB(0x26, 0x32, 0x38).String(); s != "#263238" {
		t.Errorf("String = %q, want #263238", s)
	}
	if s := Color(0x80FF0000).String(); s != "#80ff0000" {
		t.Errorf("String = %q, want #80ff0000", s)
	}

	var c color.Color = RGB(0xFF, 0x00, 0x80)
	r, g, b, a := c.RGBA()
	if r != 0xFFFF || g != 0 || b != 0x8080 || a != 0xFFFF {
		t.Errorf("RGBA = %x %x %x %x", r, g, b, a)
	}

	if Black.Luma() != 0 || White.Luma() != 255 {
		t.Errorf("Luma black/white = %d/%d", Black.Luma(), White.Luma())
	}
}

func TestStyle_Scale(t *testing.T) {
	s := DefaultStyle().ScaleTo(160)

	if s.MinuteInset != 25 || s.HourInset != 50 || s.DotInset != 10 {
		t.Errorf("insets = %v/%v/%v, want 25/50/10", s.MinuteInset, s.HourInset, s.DotInset)
	}
	if s.BackPlateRadius != 10 || s.CapRadius != 5 || s.DotRadius != 3 {
		t.Errorf("radii = %v/%v/%v", s.BackPlateRadius, s.CapRadius, s.DotRadius)
	}
	if s.Hands != DefaultStyle().Hands {
		t.Error("Scale changed a colour")
	}
	if DefaultStyle().ScaleTo(ReferenceSize) != DefaultStyle() {
		t.Error("ScaleTo(ReferenceSize) should be identity")
	}
}

func TestStyle_YAML(t *testing.T) {
	doc := []byte("background: \"#000000\"\nhands: ffffff\nhand_stroke: 3\n")

	s := DefaultStyle()
	if err := yaml.Unmarshal(doc, &s); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if s.Background != Black || s.Hands != White || s.HandStroke != 3 {
		t.Errorf("decoded style = %+v", s)
	}
	if s.DotRadius != 6 {
		t.Errorf("unset field changed: DotRadius = %v", s.DotRadius)
	}
}

func TestMode_Text(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("ambient")); err != nil || m != ModeLowPower {
		t.Errorf("UnmarshalText(ambient) = %v, %v", m, err)
	}
	if err := m.UnmarshalText([]byte("dim")); err == nil {
		t.Error("UnmarshalText(dim) should fail")
	}
	if ModeNormal.String() != "normal" {
		t.Errorf("String = %q", ModeNormal.String())
	}
}
