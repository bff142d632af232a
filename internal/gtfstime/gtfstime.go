// Package gtfstime parses and anchors GTFS service-day times.
//
// GTFS stop_times use "H:MM:SS" clock strings where the hour may exceed 23:
// a trip that starts before midnight and continues after it keeps counting
// ("25:30:00" is 1:30 AM on the day after the service date). All schedule
// arithmetic in the engine goes through this package so that the wrap rule
// lives in exactly one place.
package gtfstime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a GTFS time expressed as seconds since the start of the
// service day. Values at or beyond 24h (86400) are legal and mean "the next
// calendar day".
type TimeOfDay int

// Parse converts a GTFS "H:MM:SS" string into a TimeOfDay. The hour field is
// unbounded; minutes and seconds must be in [0, 59]. Hours may be one or two
// digits ("8:15:00" and "08:15:00" are both accepted).
func Parse(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed gtfs time %q: want H:MM:SS", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, fmt.Errorf("malformed gtfs time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed gtfs time %q: bad minute", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("malformed gtfs time %q: bad second", s)
	}
	return TimeOfDay(h*3600 + m*60 + sec), nil
}

// FromSeconds wraps a seconds-since-service-day value (as produced by GTFS
// parsers that pre-convert clock strings) into a TimeOfDay.
func FromSeconds(sec int64) TimeOfDay {
	return TimeOfDay(sec)
}

// Hours returns the time as fractional hours since the service-day start.
// A "25:30:00" departure is 25.5.
func (t TimeOfDay) Hours() float64 {
	return float64(t) / 3600.0
}

// String renders the time back into GTFS "H:MM:SS" form, preserving hours
// beyond 24.
func (t TimeOfDay) String() string {
	sec := int(t)
	return fmt.Sprintf("%d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}

// Anchor resolves the TimeOfDay onto a concrete calendar date. The reference
// supplies the service date (its year/month/day in its own location); hours
// at or past 24 roll onto subsequent days.
//
// Anchor("25:30:00", 2025-01-01) = 2025-01-02 01:30:00.
func (t TimeOfDay) Anchor(ref time.Time) time.Time {
	sec := int(t)
	days := sec / 86400
	rem := sec % 86400
	return time.Date(ref.Year(), ref.Month(), ref.Day()+days,
		rem/3600, (rem/60)%60, rem%60, 0, ref.Location())
}

// ServiceDate is a calendar day in GTFS "YYYYMMDD" form. Passages and
// schedule exceptions are keyed by service date throughout the engine.
type ServiceDate string

// DateOf returns the ServiceDate for a concrete timestamp in its location.
func DateOf(t time.Time) ServiceDate {
	return ServiceDate(t.Format("20060102"))
}
