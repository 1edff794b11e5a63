package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/playtime/tracker/pkg/sqlite"
)

func testConfig(t *testing.T) sqlite.Config {
	t.Helper()

	c := sqlite.NewConfig()
	c.Path = filepath.Join(t.TempDir(), fmt.Sprintf("storage_%s.db", uuid.NewString()))
	return c
}

func TestOpenReusesHandle(t *testing.T) {
	reg := New(slog.New(slog.DiscardHandler))
	defer reg.Clear()

	c := testConfig(t)
	ctx := context.Background()

	db1, err := reg.Open(ctx, c)
	require.NoError(t, err)

	db2, err := reg.Open(ctx, c)
	require.NoError(t, err)

	require.Same(t, db1, db2, "same path must yield the same handle")
	require.Equal(t, 1, reg.Len())
}

func TestOpenMigrates(t *testing.T) {
	reg := New(slog.New(slog.DiscardHandler))
	defer reg.Clear()

	ctx := context.Background()
	db, err := reg.Open(ctx, testConfig(t))
	require.NoError(t, err)

	version, err := sqlite.Version(ctx, db)
	require.NoError(t, err)
	require.Positive(t, version, "a freshly opened database must be migrated")
}

func TestOpenDistinctPaths(t *testing.T) {
	reg := New(slog.New(slog.DiscardHandler))
	defer reg.Clear()

	ctx := context.Background()

	db1, err := reg.Open(ctx, testConfig(t))
	require.NoError(t, err)

	db2, err := reg.Open(ctx, testConfig(t))
	require.NoError(t, err)

	require.NotSame(t, db1, db2)
	require.Equal(t, 2, reg.Len())
}

func TestClear(t *testing.T) {
	reg := New(slog.New(slog.DiscardHandler))

	ctx := context.Background()
	c := testConfig(t)

	db1, err := reg.Open(ctx, c)
	require.NoError(t, err)

	require.NoError(t, reg.Clear())
	require.Equal(t, 0, reg.Len())

	// Reopening after Clear creates a fresh handle.
	db2, err := reg.Open(ctx, c)
	require.NoError(t, err)
	defer reg.Clear()

	require.NotSame(t, db1, db2)
}
