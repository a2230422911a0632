// Package tzwatch detects system timezone changes and delivers them to
// the engine.
//
// A Watcher polls the system zone and publishes
// event.TypeTimezoneChanged on a bus. A Listener subscribes to that bus
// on the engine's behalf and posts callbacks onto the engine loop.
package tzwatch

import (
	"os"
	"strings"
	"time"
)

// localtimePath is the conventional link to the active zoneinfo file.
const localtimePath = "/etc/localtime"

// ZoneReader returns the current system zone name.
type ZoneReader func() string

// SystemZone returns the system timezone name: $TZ if set, otherwise the
// zoneinfo name that /etc/localtime links to, otherwise time.Local's name.
func SystemZone() string {
	return systemZone(os.Getenv, os.Readlink)
}

func systemZone(getenv func(string) string, readlink func(string) (string, error)) string {
	if tz := strings.TrimPrefix(getenv("TZ"), ":"); tz != "" {
		return tz
	}

	if target, err := readlink(localtimePath); err == nil {
		if _, name, ok := strings.Cut(target, "zoneinfo/"); ok && name != "" {
			return name
		}
	}

	return time.Local.String()
}

// SystemLocation loads SystemZone. It returns nil when the name cannot
// be loaded, which clock.Source treats as time.Local.
func SystemLocation() *time.Location {
	loc, err := time.LoadLocation(SystemZone())
	if err != nil {
		return nil
	}
	return loc
}
