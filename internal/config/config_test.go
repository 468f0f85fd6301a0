package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Vault.Path)
	assert.Equal(t, 10, cfg.Analysis.MaxWorkers)
	assert.Equal(t, 0.7, cfg.Similarity.Threshold)
	assert.Equal(t, 2, cfg.Similarity.MinClusterSize)
	assert.Equal(t, 50, cfg.Similarity.MaxResults)
	assert.Equal(t, ":8420", cfg.Server.Addr)

	require.NoError(t, NewLoader().Validate(cfg))
}

func TestLoader_ExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notegraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vault:
  path: /tmp/vault
  ignore_patterns: ["archive/*"]
analysis:
  max_workers: 4
cache:
  ttl: 10m
similarity:
  threshold: 0.8
server:
  addr: ":9000"
`), 0o644))

	cfg, err := NewLoader().WithConfigFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/vault", cfg.Vault.Path)
	assert.Equal(t, []string{"archive/*"}, cfg.Vault.IgnorePatterns)
	assert.Equal(t, 4, cfg.Analysis.MaxWorkers)
	assert.Equal(t, "10m", cfg.Cache.TTL)
	assert.Equal(t, 0.8, cfg.Similarity.Threshold)
	assert.Equal(t, ":9000", cfg.Server.Addr)

	// sections absent from the file keep their defaults
	assert.Equal(t, "2s", cfg.Watch.Debounce)
	assert.Equal(t, 2, cfg.Similarity.MinClusterSize)
}

func TestLoader_MissingExplicitFileFails(t *testing.T) {
	_, err := NewLoader().WithConfigFile("/nonexistent/notegraph.yaml").Load()
	assert.Error(t, err)
}

func TestLoader_NoConfigFileUsesDefaults(t *testing.T) {
	loader := NewLoader()
	loader.searchPaths = []string{t.TempDir()}

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "5m", cfg.Cache.TTL)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty vault path", func(c *Config) { c.Vault.Path = "" }},
		{"negative workers", func(c *Config) { c.Analysis.MaxWorkers = -1 }},
		{"threshold above one", func(c *Config) { c.Similarity.Threshold = 1.5 }},
		{"zero min cluster size", func(c *Config) { c.Similarity.MinClusterSize = 0 }},
		{"zero max results", func(c *Config) { c.Similarity.MaxResults = 0 }},
		{"bad ttl", func(c *Config) { c.Cache.TTL = "banana" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "5 seconds" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, NewLoader().Validate(cfg))
		})
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "5m", cfg.Cache.TTL)
	assert.Equal(t, 5*60.0, cfg.CacheTTL().Seconds())
	assert.Equal(t, 60.0, cfg.CleanupInterval().Seconds())
	assert.Equal(t, 2.0, cfg.WatchDebounce().Seconds())

	cfg.Cache.TTL = "garbage"
	assert.Equal(t, 5*60.0, cfg.CacheTTL().Seconds(), "unparsable TTL falls back to default")
}
