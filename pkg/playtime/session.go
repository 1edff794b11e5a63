package playtime

import "time"

// Game is one entry of the game dictionary.
type Game struct {
	ID   string // stable external identifier
	Name string // display name, last write wins
}

// Session is one play interval for a game. Persisted sessions are
// day-bounded; a raw session straddling midnight is split before it is
// written (see [SplitByDay]).
type Session struct {
	GameID    string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  float64 // seconds

	// Provenance tags the origin of the write ("manual-correction",
	// an importer name, ...). Empty for normal tracked play.
	Provenance string

	// Checksum optionally associates the session with a content hash.
	Checksum string
}

// NewSession builds a Session for the given interval. Duration is
// derived from the millisecond difference of the endpoints.
func NewSession(gameID string, startedAt, endedAt time.Time) Session {
	return Session{
		GameID:    gameID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Duration:  seconds(startedAt, endedAt),
	}
}

// MultiDay reports whether the session touches more than one local
// calendar day.
func (s Session) MultiDay() bool {
	start := s.StartedAt.In(time.Local)
	end := s.EndedAt.In(time.Local)
	return !sameDay(start, end)
}

func seconds(from, to time.Time) float64 {
	return float64(to.Sub(from).Milliseconds()) / 1000.0
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
