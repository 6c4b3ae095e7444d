package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.Index)
	require.True(t, cfg.Search)
	require.Equal(t, 50, cfg.MaxMatches)
	require.Equal(t, 1, cfg.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "srcsearch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
index = false
max_matches = 200
timeout = 0
threads = 8
order_root = "src lib"
globs = ["**/*.go"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Index)
	require.True(t, cfg.Search) // default survives
	require.Equal(t, 200, cfg.MaxMatches)
	require.Equal(t, 0, cfg.Timeout)
	require.Equal(t, 8, cfg.Threads)
	require.Equal(t, []string{"src", "lib"}, cfg.OrderRootDirs())
	require.Equal(t, []string{"**/*.go"}, cfg.Globs)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_matches = ["), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.MaxMatches = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Threads = -1
	require.Error(t, cfg.Validate())
}
