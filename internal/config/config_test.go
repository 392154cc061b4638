package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(0), cfg.Cleaning.MinQuantity)
	assert.Equal(t, 0.01, cfg.Cleaning.MinUnitPrice)
	assert.Equal(t, 10000.0, cfg.Cleaning.MaxUnitPrice)
	assert.False(t, cfg.Cleaning.DropInvalidTimestamps)
	assert.Equal(t, 50, cfg.Aggregation.TopProducts)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, DefaultSourceURL, cfg.Source.Location)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  location: ./Online Retail.xlsx
  retry_delay: 500ms
cleaning:
  max_unit_price: 5000
aggregation:
  top_products: 10
storage:
  backend: sqlite
  sqlite_path: /tmp/retail.db
`), 0o644))

	t.Setenv("RETAIL_AGGREGATION_TOP_PRODUCTS", "25")
	t.Setenv("RETAIL_CLEANING_DROP_INVALID_TIMESTAMPS", "true")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "./Online Retail.xlsx", cfg.Source.Location)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.RetryDelay)
	assert.Equal(t, 5000.0, cfg.Cleaning.MaxUnitPrice)
	assert.Equal(t, 0.01, cfg.Cleaning.MinUnitPrice, "untouched fields keep defaults")
	assert.Equal(t, 25, cfg.Aggregation.TopProducts, "env wins over file")
	assert.True(t, cfg.Cleaning.DropInvalidTimestamps)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"price bounds inverted", func(c *Config) { c.Cleaning.MaxUnitPrice = 0.001 }},
		{"negative min quantity", func(c *Config) { c.Cleaning.MinQuantity = -1 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "parquet" }},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = "sqlite"; c.Storage.SQLitePath = "" }},
		{"zero top products", func(c *Config) { c.Aggregation.TopProducts = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"file output without path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }},
		{"empty source", func(c *Config) { c.Source.Location = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_EqualPriceBounds(t *testing.T) {
	cfg := Default()
	cfg.Cleaning.MinUnitPrice = 2.5
	cfg.Cleaning.MaxUnitPrice = 2.5
	assert.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Storage.Root = root

	paths, err := cfg.Paths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	for _, layer := range []string{"bronze", "silver", "gold"} {
		dir, err := paths.LayerDir(layer)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, layer), dir)
		assert.True(t, FileExists(dir))
	}

	_, err = paths.LayerDir("platinum")
	assert.Error(t, err)
}
