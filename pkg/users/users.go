// Package users resolves one database file per logical user under the
// data directory and keeps track of which user is current. Databases
// from before per-user storage (a single storage.db at the data-dir
// root) are adopted into the first user's directory that opens without
// one of its own.
package users

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/playtime/tracker/pkg/registry"
	"github.com/playtime/tracker/pkg/sqlite"
)

const (
	usersSubdir = "users"
	dbFilename  = "storage.db"
)

// ErrInvalidUserID is returned for empty or non-numeric user ids.
var ErrInvalidUserID = errors.New("invalid user id")

// Manager owns per-user database paths and the current-user selection.
type Manager struct {
	config   Config
	registry *registry.Registry
	log      *slog.Logger

	mu      sync.Mutex
	current string
}

// NewManager creates the data directory if needed and returns a Manager
// that opens databases through the given registry.
func NewManager(c Config, reg *registry.Registry, logger *slog.Logger) (*Manager, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid users config: %w", err)
	}
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Manager{config: c, registry: reg, log: logger}, nil
}

// Open returns the shared database for the given user, adopting a
// legacy root database first when the user has none of their own.
func (m *Manager) Open(ctx context.Context, userID string) (*sqlite.Database, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return nil, err
	}

	if m.hasLegacyDB() && !m.hasUserDB(userID) {
		if err := m.adoptLegacyDB(userID); err != nil {
			return nil, err
		}
	}

	cfg := m.config.Sqlite
	cfg.Path = m.DBPath(userID)
	return m.registry.Open(ctx, cfg)
}

// SetCurrent makes the given user current, initializing their database.
func (m *Manager) SetCurrent(ctx context.Context, userID string) error {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return err
	}

	if _, err := m.Open(ctx, userID); err != nil {
		return fmt.Errorf("failed to initialize database for user %s: %w", userID, err)
	}

	m.mu.Lock()
	m.current = userID
	m.mu.Unlock()
	return nil
}

// Current returns the current user id, empty when none is selected.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ClearCurrent deselects the current user.
func (m *Manager) ClearCurrent() {
	m.mu.Lock()
	m.current = ""
	m.mu.Unlock()
}

// List returns the ids of users that have a database on disk.
func (m *Manager) List() ([]string, error) {
	usersDir := m.usersDir()

	entries, err := os.ReadDir(usersDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read users directory: %w", err)
	}

	var users []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(usersDir, entry.Name(), dbFilename)); err == nil {
			users = append(users, entry.Name())
		}
	}
	return users, nil
}

// DBPath returns the database path for a user.
func (m *Manager) DBPath(userID string) string {
	return filepath.Join(m.usersDir(), userID, dbFilename)
}

// DataDir returns the root data directory.
func (m *Manager) DataDir() string {
	return m.config.DataDir
}

func (m *Manager) usersDir() string {
	return filepath.Join(m.config.DataDir, usersSubdir)
}

func (m *Manager) legacyDBPath() string {
	return filepath.Join(m.config.DataDir, dbFilename)
}

func (m *Manager) hasLegacyDB() bool {
	_, err := os.Stat(m.legacyDBPath())
	return err == nil
}

func (m *Manager) hasUserDB(userID string) bool {
	_, err := os.Stat(m.DBPath(userID))
	return err == nil
}

// adoptLegacyDB copies the pre-per-user database into the user's
// directory. The original stays in place so other users can adopt it
// too; it is never written again.
func (m *Manager) adoptLegacyDB(userID string) error {
	legacyPath := m.legacyDBPath()
	userPath := m.DBPath(userID)

	if err := os.MkdirAll(filepath.Dir(userPath), 0755); err != nil {
		return fmt.Errorf("failed to create user directory for %s: %w", userID, err)
	}

	src, err := os.Open(legacyPath)
	if err != nil {
		return fmt.Errorf("failed to open legacy database: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(userPath)
	if err != nil {
		return fmt.Errorf("failed to create user database for %s: %w", userID, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		return fmt.Errorf("failed to adopt legacy database for %s: %w", userID, err)
	}

	m.log.Info("adopted legacy database",
		"user", userID,
		"from", legacyPath,
		"to", userPath,
		"bytes", written)
	return nil
}

// normalizeUserID trims and validates a numeric platform account id.
func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	for _, r := range userID {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q is not numeric", ErrInvalidUserID, userID)
		}
	}
	return userID, nil
}
