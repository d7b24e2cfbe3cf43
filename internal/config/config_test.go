package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.Grid.DefaultPerPage)
	assert.Equal(t, 100, cfg.Grid.MaxPerPage)
	assert.Equal(t, 100_000, cfg.Grid.MaxOffset)
	assert.Equal(t, "drop", cfg.Grid.UnknownTokens)
	assert.True(t, cfg.Grid.MaintainPopulation)
	assert.Equal(t, 8, cfg.Grid.BatchConcurrency)
	assert.Equal(t, 100, cfg.Seed.Count)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("CASEGRID_PORT", "9090")
	t.Setenv("CASEGRID_GRID_MAX_PER_PAGE", "50")
	t.Setenv("CASEGRID_GRID_MAINTAIN_POPULATION", "false")
	t.Setenv("CASEGRID_CACHE_TTL", "2m")

	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 50, cfg.Grid.MaxPerPage)
	assert.False(t, cfg.Grid.MaintainPopulation)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casegrid.yaml")
	content := `
database_url: postgres://grid@localhost/grid
log_format: text
grid:
  unknown_tokens: reject
  max_offset: 500
seed:
  count: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://grid@localhost/grid", cfg.DatabaseURL)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "reject", cfg.Grid.UnknownTokens)
	assert.Equal(t, 500, cfg.Grid.MaxOffset)
	assert.Equal(t, 7, cfg.Seed.Count)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, 100, cfg.Grid.MaxPerPage)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	v := NewViper()
	v.Set("log_format", "xml")
	v.Set("grid.unknown_tokens", "ignore")
	v.Set("grid.max_per_page", 0)

	_, err := Load(v, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
	assert.Contains(t, err.Error(), "grid.unknown_tokens")
	assert.Contains(t, err.Error(), "grid.max_per_page")
}
