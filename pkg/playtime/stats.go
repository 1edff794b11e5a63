package playtime

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playtime/tracker/pkg/sqlite"
)

// GameStats is the aggregate view of one game's recorded ledger.
type GameStats struct {
	Game         Game
	TotalSeconds float64
	Sessions     int64
	LastPlayed   time.Time // zero when never played
}

// DayGameStats is one game's activity within a single calendar day.
type DayGameStats struct {
	Game     Game
	Seconds  float64
	Sessions []Session
}

// DayStats groups a day's activity by game, biggest total first.
type DayStats struct {
	Date  time.Time
	Games []DayGameStats
}

// Stats provides read-only aggregations over the ledger. Results
// reflect committed state at query time; no caching.
type Stats struct {
	db *sqlite.Database
}

func NewStats(db *sqlite.Database) *Stats {
	return &Stats{db: db}
}

// Overall returns per-game totals for every game with recorded
// playtime, ordered by total descending.
func (s *Stats) Overall(ctx context.Context) ([]GameStats, error) {
	var stats []GameStats
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT
				g.game_id,
				g.name,
				COALESCE(SUM(pt.duration), 0) AS total_time,
				COUNT(pt.id) AS total_sessions,
				MAX(pt.date_time) AS last_played
			FROM game_dict g
			LEFT JOIN play_time pt ON g.game_id = pt.game_id
			GROUP BY g.game_id, g.name
			HAVING total_time > 0
			ORDER BY total_time DESC
		`)
		if err != nil {
			return fmt.Errorf("failed to query overall statistics: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			gs, err := s.scanGameStats(rows.Scan)
			if err != nil {
				return err
			}
			stats = append(stats, gs)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ForGame returns the aggregate view of a single game, or [ErrNotFound]
// when the game is not in the dictionary.
func (s *Stats) ForGame(ctx context.Context, gameID string) (GameStats, error) {
	var stats GameStats
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT
				g.game_id,
				g.name,
				COALESCE(SUM(pt.duration), 0) AS total_time,
				COUNT(pt.id) AS total_sessions,
				MAX(pt.date_time) AS last_played
			FROM game_dict g
			LEFT JOIN play_time pt ON g.game_id = pt.game_id
			WHERE g.game_id = ?
			GROUP BY g.game_id, g.name
		`, gameID)

		var err error
		stats, err = s.scanGameStats(row.Scan)
		if err == sql.ErrNoRows {
			return fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return GameStats{}, err
	}
	return stats, nil
}

func (s *Stats) scanGameStats(scan func(...any) error) (GameStats, error) {
	var (
		stats      GameStats
		lastPlayed sql.NullString
	)
	if err := scan(&stats.Game.ID, &stats.Game.Name, &stats.TotalSeconds, &stats.Sessions, &lastPlayed); err != nil {
		return GameStats{}, err
	}

	if lastPlayed.Valid {
		t, err := parseTimestamp(lastPlayed.String, s.db.LenientTimestamps())
		if err != nil {
			return GameStats{}, err
		}
		stats.LastPlayed = t
	}
	return stats, nil
}

// Daily returns ledger activity between two calendar dates (inclusive),
// grouped by local day and then by game. Days come newest first; within
// a day games are ordered by their per-day total descending.
func (s *Stats) Daily(ctx context.Context, from, to time.Time) ([]DayStats, error) {
	var days []DayStats
	err := s.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT
				DATE(pt.date_time) AS play_date,
				g.game_id,
				g.name,
				pt.date_time,
				pt.duration,
				pt.migrated,
				pt.checksum,
				SUM(pt.duration) OVER (PARTITION BY DATE(pt.date_time), g.game_id) AS game_total
			FROM play_time pt
			JOIN game_dict g ON pt.game_id = g.game_id
			WHERE DATE(pt.date_time) BETWEEN ? AND ?
			ORDER BY play_date DESC, game_total DESC, g.game_id, pt.date_time DESC
		`, from.Format(DateFormat), to.Format(DateFormat))
		if err != nil {
			return fmt.Errorf("failed to query daily statistics: %w", err)
		}
		defer rows.Close()

		// Rows arrive fully ordered, so grouping is a single pass:
		// a new day or game opens a new bucket.
		for rows.Next() {
			var (
				playDate, gameID, gameName, dateTime string
				duration, gameTotal                  float64
				provenance, checksum                 sql.NullString
			)
			if err := rows.Scan(&playDate, &gameID, &gameName, &dateTime, &duration, &provenance, &checksum, &gameTotal); err != nil {
				return fmt.Errorf("failed to scan daily row: %w", err)
			}

			date, err := time.ParseInLocation(DateFormat, playDate, time.Local)
			if err != nil {
				return fmt.Errorf("failed to parse play date %q: %w", playDate, err)
			}

			startedAt, err := parseTimestamp(dateTime, s.db.LenientTimestamps())
			if err != nil {
				return err
			}

			if len(days) == 0 || !days[len(days)-1].Date.Equal(date) {
				days = append(days, DayStats{Date: date})
			}
			day := &days[len(days)-1]

			if len(day.Games) == 0 || day.Games[len(day.Games)-1].Game.ID != gameID {
				day.Games = append(day.Games, DayGameStats{
					Game:    Game{ID: gameID, Name: gameName},
					Seconds: gameTotal,
				})
			}
			game := &day.Games[len(day.Games)-1]

			game.Sessions = append(game.Sessions, Session{
				GameID:     gameID,
				StartedAt:  startedAt,
				EndedAt:    startedAt.Add(time.Duration(duration * float64(time.Second))),
				Duration:   duration,
				Provenance: provenance.String,
				Checksum:   checksum.String,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return days, nil
}
