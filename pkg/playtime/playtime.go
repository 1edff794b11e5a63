// Package playtime implements per-game play-session time tracking on
// top of a [sqlite.Database]: a writer that records day-bounded session
// segments together with a denormalized running total, a games
// dictionary with file checksums, and read-only statistics views.
package playtime

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInterval is returned when a session's end does not
	// come strictly after its start.
	ErrInvalidInterval = errors.New("invalid session interval")

	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
)

// TimeFormat is the fixed layout of the date_time column: local
// wall-clock time, second resolution.
const TimeFormat = "2006-01-02T15:04:05"

// DateFormat is the layout of calendar dates in daily views.
const DateFormat = "2006-01-02"

// parseTimestamp parses a stored date_time value. When lenient, an
// unparseable value yields the current time instead of an error, so one
// corrupt row does not take down a whole read.
func parseTimestamp(s string, lenient bool) (time.Time, error) {
	t, err := time.ParseInLocation(TimeFormat, s, time.Local)
	if err != nil {
		if lenient {
			return time.Now(), nil
		}
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
