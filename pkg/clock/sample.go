package clock

import (
	"fmt"
	"time"
)

// TimeSample is the calendar and clock reading used for a single redraw.
// It is taken fresh on every redraw and never mutated afterwards.
type TimeSample struct {
	Hour       int    `json:"hour"`         // 0-23
	Minute     int    `json:"minute"`       // 0-59
	Second     int    `json:"second"`       // 0-59
	DayOfMonth int    `json:"day_of_month"` // 1-31
	MonthName  string `json:"month_name"`   // Short month name, e.g. "Jan"
}

// Sample reads a TimeSample from t in t's location.
func Sample(t time.Time) TimeSample {
	hour, minute, second := t.Clock()
	return TimeSample{
		Hour:       hour,
		Minute:     minute,
		Second:     second,
		DayOfMonth: t.Day(),
		MonthName:  ShortMonth(t.Month()),
	}
}

// ShortMonth returns the three-letter English abbreviation of m.
func ShortMonth(m time.Month) string {
	name := m.String()
	if len(name) > 3 {
		return name[:3]
	}
	return name
}

// DateText formats the date line drawn on the face ("17 Oct").
func (s TimeSample) DateText() string {
	return fmt.Sprintf("%d %s", s.DayOfMonth, s.MonthName)
}
