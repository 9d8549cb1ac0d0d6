package server

import (
	"github.com/BurntSushi/toml"

	"smfdb/internal/rc"
)

// Config is smfdbd's server configuration, loaded from a TOML file the
// same way the teacher's own tooling treats TOML as its config-shaped
// dependency. Every field has a workable default so an empty or
// partially-filled file is still enough to start a server.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	DataDir    string `toml:"data_dir"`

	// HashJoinOn seeds every new connection's session-scoped
	// hash_join_on flag (spec.md §9's open question); a client can
	// still override it per-session with SET.
	HashJoinOn bool `toml:"hash_join_on"`
}

// DefaultConfig returns the configuration smfdbd starts from before any
// file or flag overrides are applied.
func DefaultConfig() Config {
	return Config{
		ListenAddr: "127.0.0.1:6789",
		DataDir:    "./smfdb-data",
		HashJoinOn: false,
	}
}

// LoadConfig reads a TOML config file into a Config seeded with
// DefaultConfig's values; an empty path is not an error, it just means
// "use the defaults" (flags alone are enough to run smfdbd).
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, rc.Wrap(rc.IOErrRead, err, "load server config %s", path)
	}
	return cfg, nil
}
