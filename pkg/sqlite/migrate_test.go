package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

var expectedTables = []string{
	"play_time",
	"overall_time",
	"game_dict",
	"game_file_checksum",
	"migration",
}

func newTestDB(t *testing.T) *Database {
	t.Helper()

	c := NewConfig()
	c.Path = ":memory:"

	db, err := Open(c)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateFullSequence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	version, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != schemaVersion {
		t.Fatalf("schema version = %d, want %d", version, schemaVersion)
	}

	for _, table := range expectedTables {
		if !tableExists(t, db, table) {
			t.Errorf("table %q missing after migrations", table)
		}
	}

	if !columnExists(t, db, "play_time", "migrated") {
		t.Error("play_time should have the migrated column")
	}
	if !columnExists(t, db, "play_time", "checksum") {
		t.Error("play_time should have the checksum column")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	version, err := Version(ctx, db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != schemaVersion {
		t.Fatalf("schema version = %d, want %d", version, schemaVersion)
	}

	// Exactly one ledger row per version, not two.
	var rows int
	err = db.WithConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM migration").Scan(&rows)
	})
	if err != nil {
		t.Fatalf("count migration rows: %v", err)
	}
	if rows != schemaVersion {
		t.Fatalf("migration ledger has %d rows, want %d", rows, schemaVersion)
	}
}

func TestMigrateIncremental(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithConn(ctx, func(conn *sql.Conn) error {
		if err := ensureMigrationTable(ctx, conn); err != nil {
			return err
		}

		for _, m := range catalog {
			if err := applyMigration(ctx, conn, m); err != nil {
				t.Fatalf("applyMigration(%d): %v", m.version, err)
			}

			version, err := currentVersion(ctx, conn)
			if err != nil {
				return err
			}
			if version != m.version {
				t.Fatalf("after migration %d: version = %d", m.version, version)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConn: %v", err)
	}
}

func TestMigrateRefusesNewerSchema(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithConn(ctx, func(conn *sql.Conn) error {
		if err := ensureMigrationTable(ctx, conn); err != nil {
			return err
		}
		_, err := conn.ExecContext(ctx, "INSERT INTO migration (id) VALUES (?)", schemaVersion+100)
		return err
	})
	if err != nil {
		t.Fatalf("seed future version: %v", err)
	}

	err = Migrate(ctx, db)
	if !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("Migrate error = %v, want ErrSchemaTooNew", err)
	}

	// The refusal must not have touched the file.
	for _, table := range expectedTables {
		if table == "migration" {
			continue
		}
		if tableExists(t, db, table) {
			t.Errorf("table %q was created despite the version refusal", table)
		}
	}
}

func tableExists(t *testing.T, db *Database, name string) bool {
	t.Helper()

	var exists bool
	err := db.WithConn(context.Background(), func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(), `
			SELECT COUNT(*) > 0 FROM sqlite_master
			WHERE type = 'table' AND name = ?
		`, name).Scan(&exists)
	})
	if err != nil {
		t.Fatalf("tableExists(%s): %v", name, err)
	}
	return exists
}

func columnExists(t *testing.T, db *Database, table, column string) bool {
	t.Helper()

	var exists bool
	err := db.WithConn(context.Background(), func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(), `
			SELECT COUNT(*) > 0 FROM pragma_table_info(?)
			WHERE name = ?
		`, table, column).Scan(&exists)
	})
	if err != nil {
		t.Fatalf("columnExists(%s.%s): %v", table, column, err)
	}
	return exists
}
