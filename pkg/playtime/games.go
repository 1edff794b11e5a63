package playtime

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playtime/tracker/pkg/sqlite"
)

// Algorithm identifies the hash function of a file checksum. The set is
// fixed by a CHECK constraint on game_file_checksum.
type Algorithm string

const (
	Blake2b   Algorithm = "BLAKE2B"
	Blake2s   Algorithm = "BLAKE2S"
	Sha224    Algorithm = "SHA224"
	Sha256    Algorithm = "SHA256"
	Sha384    Algorithm = "SHA384"
	Sha512    Algorithm = "SHA512"
	Sha512224 Algorithm = "SHA512_224"
	Sha512256 Algorithm = "SHA512_256"
	Sha3224   Algorithm = "SHA3_224"
	Sha3256   Algorithm = "SHA3_256"
	Sha3384   Algorithm = "SHA3_384"
	Sha3512   Algorithm = "SHA3_512"
	Shake128  Algorithm = "SHAKE_128"
	Shake256  Algorithm = "SHAKE_256"
)

// Checksum associates a game with a content hash of one of its files.
type Checksum struct {
	Game      Game
	Sum       string
	Algorithm Algorithm
	ChunkSize int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// checksumTimeFormat is how SQLite renders CURRENT_TIMESTAMP.
const checksumTimeFormat = "2006-01-02 15:04:05"

// Games is the game dictionary and its file-checksum associations.
type Games struct {
	db *sqlite.Database
}

func NewGames(db *sqlite.Database) *Games {
	return &Games{db: db}
}

// Get returns the game with the given id, or [ErrNotFound].
func (g *Games) Get(ctx context.Context, gameID string) (Game, error) {
	var game Game
	err := g.db.WithConn(ctx, func(conn *sql.Conn) error {
		err := conn.QueryRowContext(ctx,
			"SELECT game_id, name FROM game_dict WHERE game_id = ?",
			gameID,
		).Scan(&game.ID, &game.Name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("game %s: %w", gameID, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return Game{}, err
	}
	return game, nil
}

// Save inserts the game or overwrites its display name.
func (g *Games) Save(ctx context.Context, game Game) error {
	return g.db.WithConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `
			INSERT INTO game_dict (game_id, name)
			VALUES (?, ?)
			ON CONFLICT(game_id) DO UPDATE SET name = excluded.name
		`, game.ID, game.Name); err != nil {
			return fmt.Errorf("failed to save game: %w", err)
		}
		return nil
	})
}

// All returns every game in the dictionary, ordered by display name.
func (g *Games) All(ctx context.Context) ([]Game, error) {
	var games []Game
	err := g.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, "SELECT game_id, name FROM game_dict ORDER BY name")
		if err != nil {
			return fmt.Errorf("failed to query games: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var game Game
			if err := rows.Scan(&game.ID, &game.Name); err != nil {
				return fmt.Errorf("failed to scan game row: %w", err)
			}
			games = append(games, game)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

// SaveChecksum upserts a file checksum for a game, creating the game
// row if needed. On conflict only updated_at is bumped.
func (g *Games) SaveChecksum(ctx context.Context, c Checksum) error {
	return g.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := upsertGame(ctx, tx, c.Game.ID, c.Game.Name); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO game_file_checksum
				(game_id, checksum, algorithm, chunk_size, created_at, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT(game_id, checksum, algorithm)
			DO UPDATE SET updated_at = CURRENT_TIMESTAMP
		`, c.Game.ID, c.Sum, string(c.Algorithm), c.ChunkSize); err != nil {
			return fmt.Errorf("failed to save checksum: %w", err)
		}
		return nil
	})
}

// Checksums returns all file checksums recorded for a game.
func (g *Games) Checksums(ctx context.Context, gameID string) ([]Checksum, error) {
	var checksums []Checksum
	err := g.db.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT
				g.game_id, g.name,
				gfc.checksum, gfc.algorithm, gfc.chunk_size,
				gfc.created_at, gfc.updated_at
			FROM game_file_checksum gfc
			JOIN game_dict g ON gfc.game_id = g.game_id
			WHERE gfc.game_id = ?
		`, gameID)
		if err != nil {
			return fmt.Errorf("failed to query checksums: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				c                    Checksum
				algorithm            string
				createdAt, updatedAt sql.NullString
			)
			if err := rows.Scan(&c.Game.ID, &c.Game.Name, &c.Sum, &algorithm, &c.ChunkSize, &createdAt, &updatedAt); err != nil {
				return fmt.Errorf("failed to scan checksum row: %w", err)
			}

			c.Algorithm = Algorithm(algorithm)
			c.CreatedAt = parseChecksumTime(createdAt)
			c.UpdatedAt = parseChecksumTime(updatedAt)
			checksums = append(checksums, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return checksums, nil
}

// parseChecksumTime parses a CURRENT_TIMESTAMP value, zero on failure.
func parseChecksumTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.ParseInLocation(checksumTimeFormat, s.String, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
