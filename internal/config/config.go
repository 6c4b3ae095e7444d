// Package config holds process-wide configuration for corpus building
// and searching.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config controls corpus building and query execution.
type Config struct {
	Index      bool     `toml:"index"`       // enable suffix-array filtering
	Search     bool     `toml:"search"`      // if false, build only
	MaxMatches int      `toml:"max_matches"` // per-query result cap
	Timeout    int      `toml:"timeout"`     // per-query deadline, seconds; <= 0 disables
	Threads    int      `toml:"threads"`     // worker pool size; 0 = NumCPU
	OrderRoot  string   `toml:"order_root"`  // whitespace-separated top-level dirs to walk first
	NoIgnore   bool     `toml:"no_ignore"`   // skip .gitignore processing
	Hidden     bool     `toml:"hidden"`      // include hidden files
	Globs      []string `toml:"globs"`       // restrict ingestion to matching paths
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Index:      true,
		Search:     true,
		MaxMatches: 50,
		Timeout:    1,
	}
}

// Load reads a TOML config file over the defaults. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	if c.MaxMatches <= 0 {
		return fmt.Errorf("invalid max_matches: %d", c.MaxMatches)
	}
	if c.Threads < 0 {
		return fmt.Errorf("invalid threads: %d", c.Threads)
	}
	return nil
}

// OrderRootDirs returns the parsed order_root list.
func (c *Config) OrderRootDirs() []string {
	return strings.Fields(c.OrderRoot)
}
