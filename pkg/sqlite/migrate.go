package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// schemaVersion is the newest schema this build understands.
const schemaVersion = 8

var (
	// ErrSchemaTooNew means the file was migrated by a newer build.
	// Forward compatibility is not supported; refuse to touch the file.
	ErrSchemaTooNew = errors.New("database schema is newer than supported")

	// ErrUnknownMigration means the catalog has a gap, which is a bug.
	ErrUnknownMigration = errors.New("unknown migration version")
)

// migration is one step of the fixed catalog: applying it moves the
// schema from version-1 to version.
type migration struct {
	version int
	apply   func(context.Context, *sql.Tx) error
}

var catalog = []migration{
	{1, migrateV1},
	{2, migrateV2},
	{3, migrateV3},
	{4, migrateV4},
	{5, migrateV5},
	{6, migrateV6},
	{7, migrateV7},
	{8, migrateV8},
}

// Migrate brings the database schema up to the current version. Each
// pending step runs in its own transaction together with its migration
// ledger row, so a failure mid-sequence leaves every earlier step
// committed and the failing one fully rolled back. Re-running after
// completion is a no-op.
func Migrate(ctx context.Context, d *Database) error {
	return d.WithConn(ctx, func(conn *sql.Conn) error {
		if err := ensureMigrationTable(ctx, conn); err != nil {
			return err
		}

		version, err := currentVersion(ctx, conn)
		if err != nil {
			return err
		}

		if version > schemaVersion {
			return fmt.Errorf("%w: file is at version %d, this build supports up to %d",
				ErrSchemaTooNew, version, schemaVersion)
		}

		for _, m := range catalog {
			if m.version <= version {
				continue
			}
			if err := applyMigration(ctx, conn, m); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
			}
		}
		return nil
	})
}

// Version returns the schema version recorded in the migration ledger,
// 0 for a fresh file.
func Version(ctx context.Context, d *Database) (int, error) {
	var version int
	err := d.WithConn(ctx, func(conn *sql.Conn) error {
		if err := ensureMigrationTable(ctx, conn); err != nil {
			return err
		}
		var err error
		version, err = currentVersion(ctx, conn)
		return err
	})
	return version, err
}

func ensureMigrationTable(ctx context.Context, conn *sql.Conn) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migration (
			id INTEGER PRIMARY KEY
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

func currentVersion(ctx context.Context, conn *sql.Conn) (int, error) {
	var version int
	err := conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM migration").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func applyMigration(ctx context.Context, conn *sql.Conn, m migration) error {
	if m.apply == nil {
		return ErrUnknownMigration
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := m.apply(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO migration (id) VALUES (?)", m.version); err != nil {
		return fmt.Errorf("failed to record version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE play_time(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date_time TEXT,
			duration INT,
			game_id TEXT,
			checksum TEXT
		);

		CREATE TABLE overall_time(
			game_id TEXT PRIMARY KEY,
			duration INT
		);

		CREATE TABLE game_dict(
			game_id TEXT PRIMARY KEY,
			name TEXT
		);
	`)
	return err
}

func migrateV2(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE INDEX play_time_date_time_epoch_idx
			ON play_time(STRFTIME('%s', date_time));

		CREATE INDEX play_time_game_id_idx
			ON play_time(game_id);

		CREATE INDEX overall_time_game_id_idx
			ON overall_time(game_id);
	`)
	return err
}

func migrateV3(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "ALTER TABLE play_time ADD COLUMN migrated TEXT")
	return err
}

func migrateV4(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DROP INDEX play_time_date_time_epoch_idx;

		CREATE INDEX play_time_date_time_epoch_idx
			ON play_time(STRFTIME('%s', date_time));
	`)
	return err
}

func migrateV5(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE game_file_checksum(
			checksum_id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_id TEXT NOT NULL,
			checksum TEXT NOT NULL,
			algorithm TEXT NOT NULL CHECK(algorithm IN (
				'BLAKE2B', 'BLAKE2S',
				'SHA224', 'SHA256', 'SHA384', 'SHA512', 'SHA512_224', 'SHA512_256',
				'SHA3_224', 'SHA3_256', 'SHA3_384', 'SHA3_512',
				'SHAKE_128', 'SHAKE_256'
			)),
			chunk_size INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (game_id) REFERENCES game_dict(game_id),
			UNIQUE (game_id, checksum, algorithm)
		);

		CREATE INDEX game_file_checksum_checksum_algorithm_idx
			ON game_file_checksum(checksum, algorithm);
	`)
	return err
}

func migrateV6(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DROP INDEX IF EXISTS overall_time_game_id_idx;
		DROP INDEX IF EXISTS play_time_game_id_idx;
		DROP INDEX IF EXISTS play_time_date_time_epoch_idx;

		CREATE INDEX IF NOT EXISTS play_time_date_time_idx
			ON play_time(date_time);

		CREATE INDEX IF NOT EXISTS play_time_game_id_date_time_idx
			ON play_time(game_id, date_time);
	`)
	return err
}

func migrateV7(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_overall_time_game_id
			ON overall_time(game_id);

		CREATE INDEX IF NOT EXISTS idx_game_dict_game_id
			ON game_dict(game_id);

		CREATE INDEX IF NOT EXISTS idx_play_time_migrated
			ON play_time(migrated) WHERE migrated IS NULL;

		CREATE INDEX IF NOT EXISTS idx_game_file_checksum_game_id
			ON game_file_checksum(game_id);

		CREATE INDEX IF NOT EXISTS idx_game_file_checksum_composite
			ON game_file_checksum(game_id, checksum, algorithm);
	`)
	return err
}

// migrateV8 cleans up checksum rows left behind by game deletions that
// predate the foreign key on game_file_checksum being enforced.
func migrateV8(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM game_file_checksum
		WHERE game_id NOT IN (SELECT game_id FROM game_dict)
	`)
	return err
}
