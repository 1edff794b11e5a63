package playtime

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/playtime/tracker/pkg/sqlite"
)

// Tracker is the write path for play-session tracking. One AddTime call
// commits as a single unit: the game upsert, one ledger row per
// day-bounded segment, and the running-total update happen together or
// not at all.
type Tracker struct {
	db  *sqlite.Database
	log *slog.Logger
}

// NewTracker creates a Tracker over the given database.
func NewTracker(db *sqlite.Database, logger *slog.Logger) *Tracker {
	return &Tracker{db: db, log: logger}
}

// AddTime records a play session for a game, splitting it at local day
// boundaries. It rejects intervals where endedAt is not strictly after
// startedAt with [ErrInvalidInterval] before touching the store.
func (t *Tracker) AddTime(ctx context.Context, gameID, gameName string, startedAt, endedAt time.Time, provenance string) error {
	if !endedAt.After(startedAt) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidInterval)
	}

	session := NewSession(gameID, startedAt, endedAt)
	session.Provenance = provenance
	segments := SplitByDay(session)

	return t.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := upsertGame(ctx, tx, gameID, gameName); err != nil {
			return err
		}

		for _, segment := range segments {
			dateTime := segment.StartedAt.In(time.Local).Format(TimeFormat)
			t.log.Debug("recording playtime",
				"game_id", segment.GameID,
				"date_time", dateTime,
				"duration", segment.Duration)

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO play_time (date_time, duration, game_id, checksum, migrated)
				VALUES (?, ?, ?, ?, ?)
			`, dateTime, segment.Duration, segment.GameID, nullable(segment.Checksum), nullable(segment.Provenance)); err != nil {
				return fmt.Errorf("failed to insert ledger row: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO overall_time (game_id, duration)
				VALUES (?, ?)
				ON CONFLICT(game_id)
				DO UPDATE SET duration = overall_time.duration + excluded.duration
			`, segment.GameID, segment.Duration); err != nil {
				return fmt.Errorf("failed to update running total: %w", err)
			}
		}
		return nil
	})
}

// ApplyManualCorrection records a single signed adjustment in the
// ledger, stamped with the current local time and the given provenance
// tag. It does not pass through day splitting and deliberately does not
// touch the running total: overall_time covers tracked sessions only.
func (t *Tracker) ApplyManualCorrection(ctx context.Context, gameID, gameName string, timeSeconds float64, provenance string) error {
	now := time.Now().In(time.Local).Format(TimeFormat)

	return t.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := upsertGame(ctx, tx, gameID, gameName); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO play_time (date_time, duration, game_id, migrated)
			VALUES (?, ?, ?, ?)
		`, now, timeSeconds, gameID, nullable(provenance)); err != nil {
			return fmt.Errorf("failed to insert correction row: %w", err)
		}
		return nil
	})
}

// Sessions returns the recorded ledger rows for a game, newest first.
func (t *Tracker) Sessions(ctx context.Context, gameID string) ([]Session, error) {
	var sessions []Session

	err := t.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT date_time, duration, checksum, migrated
			FROM play_time
			WHERE game_id = ?
			ORDER BY date_time DESC
		`, gameID)
		if err != nil {
			return fmt.Errorf("failed to query sessions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				dateTime             string
				duration             float64
				checksum, provenance sql.NullString
			)
			if err := rows.Scan(&dateTime, &duration, &checksum, &provenance); err != nil {
				return fmt.Errorf("failed to scan session row: %w", err)
			}

			startedAt, err := parseTimestamp(dateTime, t.db.LenientTimestamps())
			if err != nil {
				return err
			}

			sessions = append(sessions, Session{
				GameID:     gameID,
				StartedAt:  startedAt,
				EndedAt:    startedAt.Add(time.Duration(duration * float64(time.Second))),
				Duration:   duration,
				Checksum:   checksum.String,
				Provenance: provenance.String,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// LedgerTotal returns the sum of all ledger rows for a game, manual
// corrections included.
func (t *Tracker) LedgerTotal(ctx context.Context, gameID string) (float64, error) {
	var total float64
	err := t.db.WithConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(duration), 0) FROM play_time WHERE game_id = ?",
			gameID,
		).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query ledger total: %w", err)
	}
	return total, nil
}

// RunningTotal returns the denormalized overall_time value for a game,
// 0 if the game has no tracked time.
func (t *Tracker) RunningTotal(ctx context.Context, gameID string) (float64, error) {
	var total float64
	err := t.db.WithConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			"SELECT duration FROM overall_time WHERE game_id = ?",
			gameID,
		).Scan(&total)
		if err == sql.ErrNoRows {
			total = 0
			return nil
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query running total: %w", err)
	}
	return total, nil
}

// upsertGame inserts the game or overwrites its display name.
func upsertGame(ctx context.Context, tx *sql.Tx, gameID, gameName string) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO game_dict (game_id, name)
		VALUES (?, ?)
		ON CONFLICT(game_id) DO UPDATE SET name = excluded.name
	`, gameID, gameName); err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}
