// Package registry guarantees at most one open [sqlite.Database] per
// database file within the process, so two callers can never hold
// uncoordinated writers to the same file. Entries live until an
// explicit Clear; nothing is evicted behind a caller's back.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/playtime/tracker/pkg/sqlite"
)

// Registry is a process-wide cache of open databases keyed by path.
type Registry struct {
	log *slog.Logger

	mu  sync.Mutex
	dbs map[string]*sqlite.Database
}

// New creates an empty Registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		log: logger,
		dbs: make(map[string]*sqlite.Database),
	}
}

// Open returns the shared database for c.Path, opening and migrating it
// on first use. Later calls for the same path return the cached handle
// and ignore the rest of the config.
func (r *Registry) Open(ctx context.Context, c sqlite.Config) (*sqlite.Database, error) {
	key := filepath.Clean(c.Path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.dbs[key]; ok {
		r.log.Debug("reusing cached database", "path", key)
		return db, nil
	}

	db, err := sqlite.Open(c)
	if err != nil {
		return nil, err
	}

	if err := sqlite.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database at %s: %w", key, err)
	}

	r.dbs[key] = db
	r.log.Info("opened database", "path", key)
	return db, nil
}

// Len returns the number of cached databases.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dbs)
}

// Clear closes every cached database and empties the registry.
// It returns the last close error, if any.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var last error
	for key, db := range r.dbs {
		if err := db.Close(); err != nil {
			r.log.Error("failed to close database", "path", key, "err", err)
			last = err
		}
		delete(r.dbs, key)
	}
	return last
}
