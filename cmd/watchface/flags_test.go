package main

import (
	"testing"
	"time"

	"github.com/BYTE-6D65/watchface/pkg/render"
)

func TestParseAt(t *testing.T) {
	base := time.Date(2026, time.March, 14, 9, 26, 53, 589, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"", base},
		{"10:10:30", time.Date(2026, time.March, 14, 10, 10, 30, 0, time.UTC)},
		{"23:59", time.Date(2026, time.March, 14, 23, 59, 0, 0, time.UTC)},
		{" 07:00:05 ", time.Date(2026, time.March, 14, 7, 0, 5, 0, time.UTC)},
		{"2026-10-17T12:00:00Z", time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseAt(tt.in, base)
		if err != nil {
			t.Errorf("parseAt(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseAt(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseAt_KeepsZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}

	got, err := parseAt("10:10", time.Date(2026, time.January, 1, 0, 0, 0, 0, tokyo))
	if err != nil {
		t.Fatal(err)
	}
	if got.Location() != tokyo || got.Hour() != 10 {
		t.Errorf("parseAt = %v, want 10:10 in Asia/Tokyo", got)
	}
}

func TestParseAt_Invalid(t *testing.T) {
	for _, in := range []string{"noon", "25:00", "10:10:10:10"} {
		if _, err := parseAt(in, time.Now()); err == nil {
			t.Errorf("parseAt(%q) should fail", in)
		}
	}
}

func TestModeFlag(t *testing.T) {
	if modeFlag(false) != render.ModeNormal || modeFlag(true) != render.ModeLowPower {
		t.Error("modeFlag mapping wrong")
	}
}
