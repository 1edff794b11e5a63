package sqlite

import (
	"errors"
	"fmt"
)

type Config struct {
	// Path is the location of the database file. Parent directories are
	// created on open. Use ":memory:" for an in-memory database.
	Path string `env:"SQLITE_PATH" yaml:"path"`

	// LenientTimestamps controls how unparseable date_time values are
	// handled on read. When true (the default, matching historical
	// behavior) the current time is substituted; when false the read
	// fails with the parse error.
	LenientTimestamps bool `env:"SQLITE_LENIENT_TIMESTAMPS" yaml:"lenient_timestamps"`
}

func NewConfig() Config {
	return Config{
		Path:              "storage.db",
		LenientTimestamps: true,
	}
}

func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("path is not set")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Sqlite:\n"+
		"\tPath: %s\n"+
		"\tLenient Timestamps: %t\n",
		c.Path,
		c.LenientTimestamps)
}
