package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "typescan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, `
load_path:
  roots: [./src, ./lib/zoo.zip]
scan:
  max_depth: 8
cache:
  size: 0
log:
  level: debug
export:
  enabled: true
  db: runs.db
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"./src", "./lib/zoo.zip"}, cfg.LoadPath.Roots)
	assert.Equal(t, ".go", cfg.LoadPath.UnitSuffix, "unset keys keep their defaults")
	assert.Equal(t, []string{".zip", ".jar"}, cfg.Scan.ArchiveSuffixes)
	assert.Equal(t, 8, cfg.Scan.MaxDepth)
	assert.Zero(t, cfg.Cache.Size)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Export.Enabled)
	assert.Equal(t, "runs.db", cfg.Export.DB)
}

func TestLoadConfig_EmptyFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "# nothing configured\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "load_path:\n  roots: [./src]\nlog:\n  level: info\n")
	t.Setenv("TYPESCAN_PATH", strings.Join([]string{"/a", "/b.zip"}, string(os.PathListSeparator)))
	t.Setenv("TYPESCAN_LOG_LEVEL", "error")
	t.Setenv("TYPESCAN_DB", "/tmp/other.db")
	t.Setenv("TYPESCAN_CACHE_SIZE", "12")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b.zip"}, cfg.LoadPath.Roots)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "/tmp/other.db", cfg.Export.DB)
	assert.Equal(t, 12, cfg.Cache.Size)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "load_path: [unclosed"))
	assert.Error(t, err)

	// A misspelled section would otherwise be silently ignored.
	_, err = LoadConfig(writeConfig(t, "loadpath:\n  roots: [./src]\n"))
	assert.ErrorContains(t, err, "schema validation failed")

	_, err = LoadConfig(writeConfig(t, "scan:\n  max_depth: -1\n"))
	assert.ErrorContains(t, err, "schema validation failed")

	_, err = LoadConfig(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "schema validation failed")

	t.Setenv("TYPESCAN_CACHE_SIZE", "lots")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "TYPESCAN_CACHE_SIZE")
}
