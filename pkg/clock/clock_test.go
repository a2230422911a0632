package clock

import (
	"errors"
	"testing"
	"time"
)

func TestEpochMillis_Conversions(t *testing.T) {
	ts := time.Date(2026, time.October, 17, 12, 0, 0, 500*int(time.Millisecond), time.UTC)

	ms := EpochMillis(ts)
	if ms%1000 != 500 {
		t.Errorf("EpochMillis(%v) mod 1000 = %d, want 500", ts, ms%1000)
	}

	back := FromEpochMillis(ms)
	if !back.Equal(ts) {
		t.Errorf("Round-trip conversion failed: %v -> %d -> %v", ts, ms, back)
	}
}

func TestSystemClock_Now(t *testing.T) {
	clk := NewSystemClock()

	before := time.Now()
	now := clk.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("SystemClock.Now() = %v, want between %v and %v", now, before, after)
	}
}

func TestSample_Fields(t *testing.T) {
	ts := time.Date(2026, time.October, 17, 21, 5, 42, 0, time.UTC)
	s := Sample(ts)

	if s.Hour != 21 || s.Minute != 5 || s.Second != 42 {
		t.Errorf("Sample clock = %02d:%02d:%02d, want 21:05:42", s.Hour, s.Minute, s.Second)
	}
	if s.DayOfMonth != 17 {
		t.Errorf("DayOfMonth = %d, want 17", s.DayOfMonth)
	}
	if s.MonthName != "Oct" {
		t.Errorf("MonthName = %q, want %q", s.MonthName, "Oct")
	}
	if got := s.DateText(); got != "17 Oct" {
		t.Errorf("DateText = %q, want %q", got, "17 Oct")
	}
}

func TestShortMonth(t *testing.T) {
	cases := map[time.Month]string{
		time.January:   "Jan",
		time.May:       "May",
		time.September: "Sep",
		time.December:  "Dec",
	}
	for m, want := range cases {
		if got := ShortMonth(m); got != want {
			t.Errorf("ShortMonth(%v) = %q, want %q", m, got, want)
		}
	}
}

func TestSource_UsesSystemZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	clk := NewManual(time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC))
	src := NewSource(clk, WithSystemZone(func() *time.Location { return tokyo }))

	s := src.Now()
	if s.Hour != 21 {
		t.Errorf("Hour = %d, want 21 in JST", s.Hour)
	}
	if src.Zone() != "JST" {
		t.Errorf("Zone = %q, want JST", src.Zone())
	}
}

func TestSource_SetZone(t *testing.T) {
	clk := NewManual(time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC))
	src := NewSource(clk, WithSystemZone(func() *time.Location { return time.UTC }))

	if err := src.SetZone("UTC"); err != nil {
		t.Fatalf("SetZone(UTC) failed: %v", err)
	}

	err := src.SetZone("Not/AZone")
	if !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("SetZone(Not/AZone) error = %v, want ErrUnknownZone", err)
	}

	// Failed lookups leave the active zone alone
	if src.Zone() != "UTC" {
		t.Errorf("Zone = %q after failed SetZone, want UTC", src.Zone())
	}
}

func TestSource_ResetZone(t *testing.T) {
	zone := time.UTC
	clk := NewManual(time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC))
	src := NewSource(clk, WithSystemZone(func() *time.Location { return zone }))

	// The host zone changes while we are not listening
	zone = time.FixedZone("PLUS2", 2*3600)
	if src.Now().Hour != 12 {
		t.Fatal("zone should not change until ResetZone")
	}

	src.ResetZone()
	if got := src.Now().Hour; got != 14 {
		t.Errorf("Hour after ResetZone = %d, want 14", got)
	}
}

func TestSource_NilSystemZoneFallsBackToLocal(t *testing.T) {
	clk := NewManual(time.Now())
	src := NewSource(clk, WithSystemZone(func() *time.Location { return nil }))

	if src.Zone() != time.Local.String() {
		t.Errorf("Zone = %q, want %q", src.Zone(), time.Local.String())
	}
}

func TestManual_AdvanceAndSet(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	clk := NewManual(start)

	clk.Advance(1500 * time.Millisecond)
	if got := clk.Now().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("elapsed = %v, want 1.5s", got)
	}

	clk.Set(start)
	if !clk.Now().Equal(start) {
		t.Errorf("Now = %v after Set, want %v", clk.Now(), start)
	}
}

func TestManual_StepReplay(t *testing.T) {
	start := time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC)
	clk := NewManual(start)
	clk.Load([]time.Duration{500 * time.Millisecond, 500 * time.Millisecond})

	if clk.Remaining() != 2 {
		t.Fatalf("Remaining = %d, want 2", clk.Remaining())
	}

	for clk.HasNext() {
		clk.Step()
	}

	if clk.Step() {
		t.Error("Step should report false once the sequence is exhausted")
	}

	s := Sample(clk.Now())
	if s.MonthName != "Jan" || s.DayOfMonth != 1 || s.Hour != 0 {
		t.Errorf("sample after midnight = %+v, want 1 Jan 00:00", s)
	}
}
