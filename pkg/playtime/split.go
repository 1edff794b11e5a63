package playtime

import "time"

// endOfDay returns 23:59:59 of t's local calendar day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// startOfDay returns 00:00:00 of t's local calendar day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SplitByDay splits a session into segments, each confined to a single
// local calendar day. A single-day session comes back unchanged as the
// only element. Segments are ordered in time; a day-boundary segment
// ends at 23:59:59 and the next one starts at 00:00:00 of the following
// day. Zero-length segments (a session ending exactly at midnight) are
// not emitted. Pure function, no I/O.
func SplitByDay(s Session) []Session {
	start := s.StartedAt.In(time.Local)
	end := s.EndedAt.In(time.Local)

	if sameDay(start, end) {
		return []Session{s}
	}

	var segments []Session
	current := start

	for current.Before(end) {
		segmentEnd := endOfDay(current)
		if end.Before(segmentEnd) {
			segmentEnd = end
		}

		if duration := seconds(current, segmentEnd); duration > 0 {
			segments = append(segments, Session{
				GameID:     s.GameID,
				StartedAt:  current,
				EndedAt:    segmentEnd,
				Duration:   duration,
				Provenance: s.Provenance,
				Checksum:   s.Checksum,
			})
		}

		current = startOfDay(segmentEnd).AddDate(0, 0, 1)
	}

	return segments
}
