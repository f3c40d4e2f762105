// Package config loads the repo-scoped config.toml: trunk branch name,
// remote name, and forge identity overrides. Parsed with BurntSushi/toml,
// which the retrieval pack already reaches for wherever it needs a
// structured, hand-editable config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kofron/lattice/internal/constants"
)

// Forge holds identity overrides for the forge adapter — normally derived
// from the remote URL, but overridable for hosts that don't map cleanly
// (GitHub Enterprise, mirrors).
type Forge struct {
	Name  string `toml:"name"`
	Host  string `toml:"host,omitempty"`
	Owner string `toml:"owner,omitempty"`
	Repo  string `toml:"repo,omitempty"`
}

// Config is the parsed contents of <common_dir>/lattice/config.toml.
type Config struct {
	Trunk  string `toml:"trunk"`
	Remote string `toml:"remote"`
	Forge  Forge  `toml:"forge"`
}

// Default returns the configuration used when no config.toml exists yet.
func Default() *Config {
	return &Config{
		Trunk:  constants.DefaultBranch,
		Remote: constants.DefaultRemote,
	}
}

// Load reads and parses path. A missing file is not an error: it yields
// Default().
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Trunk == "" {
		cfg.Trunk = constants.DefaultBranch
	}
	if cfg.Remote == "" {
		cfg.Remote = constants.DefaultRemote
	}
	return &cfg, nil
}

// Save writes cfg to path as TOML, creating or replacing the file.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
