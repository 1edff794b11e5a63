package users

import (
	"errors"
	"fmt"

	"github.com/playtime/tracker/pkg/sqlite"
)

type Config struct {
	// DataDir is the root directory holding per-user databases under
	// DataDir/users/<id>/storage.db.
	DataDir string `env:"PLAYTIME_DATA_DIR" yaml:"data_dir"`

	// Sqlite carries the database settings applied to every per-user
	// database. Its Path is derived per user and ignored here.
	Sqlite sqlite.Config `yaml:"sqlite"`
}

func NewConfig() Config {
	return Config{
		DataDir: "data",
		Sqlite:  sqlite.NewConfig(),
	}
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data dir is not set")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("Users:\n"+
		"\tData Dir: %s\n"+
		"%s",
		c.DataDir,
		c.Sqlite)
}
