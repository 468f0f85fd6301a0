package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete notegraph configuration
type Config struct {
	Vault      VaultConfig      `mapstructure:"vault" yaml:"vault"`
	Analysis   AnalysisConfig   `mapstructure:"analysis" yaml:"analysis"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	Similarity SimilarityConfig `mapstructure:"similarity" yaml:"similarity"`
	Watch      WatchConfig      `mapstructure:"watch" yaml:"watch"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
}

// VaultConfig contains vault-specific settings
type VaultConfig struct {
	Path           string   `mapstructure:"path" yaml:"path"`
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
}

// AnalysisConfig contains graph analysis settings
type AnalysisConfig struct {
	MaxWorkers     int  `mapstructure:"max_workers" yaml:"max_workers"`
	IncludeContext bool `mapstructure:"include_context" yaml:"include_context"`
	ContextLength  int  `mapstructure:"context_length" yaml:"context_length"`
}

// CacheConfig contains analysis cache settings
type CacheConfig struct {
	TTL             string `mapstructure:"ttl" yaml:"ttl"`
	CleanupInterval string `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// SimilarityConfig contains dangling-link clustering settings
type SimilarityConfig struct {
	Threshold      float64 `mapstructure:"threshold" yaml:"threshold"`
	MinClusterSize int     `mapstructure:"min_cluster_size" yaml:"min_cluster_size"`
	MaxResults     int     `mapstructure:"max_results" yaml:"max_results"`
}

// WatchConfig contains file watching settings
type WatchConfig struct {
	Debounce string `mapstructure:"debounce" yaml:"debounce"`
	Rewarm   bool   `mapstructure:"rewarm" yaml:"rewarm"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Vault: VaultConfig{
			Path:           ".",
			IgnorePatterns: []string{".obsidian/*", ".git/*", "*.tmp"},
		},
		Analysis: AnalysisConfig{
			MaxWorkers:     10,
			IncludeContext: false,
			ContextLength:  100,
		},
		Cache: CacheConfig{
			TTL:             "5m",
			CleanupInterval: "1m",
		},
		Similarity: SimilarityConfig{
			Threshold:      0.7,
			MinClusterSize: 2,
			MaxResults:     50,
		},
		Watch: WatchConfig{
			Debounce: "2s",
			Rewarm:   false,
		},
		Server: ServerConfig{
			Addr: ":8420",
		},
	}
}

// CacheTTL parses the configured cache TTL
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// CleanupInterval parses the configured cleanup sweep interval
func (c *Config) CleanupInterval() time.Duration {
	d, err := time.ParseDuration(c.Cache.CleanupInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// WatchDebounce parses the configured watch debounce window
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// Loader handles configuration loading and merging
type Loader struct {
	searchPaths []string
	configFile  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",              // current working directory
			"~",              // user home directory
			"/etc/notegraph", // system-wide directory
		},
	}
}

// WithConfigFile pins the loader to an explicit config file path
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Load loads configuration from file, environment and defaults, with
// file values overriding defaults and NOTEGRAPH_* environment
// variables overriding both.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	config := DefaultConfig()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("notegraph")
		v.SetConfigType("yaml")
		for _, path := range l.searchPaths {
			v.AddConfigPath(l.expandPath(path))
		}
	}

	v.SetEnvPrefix("NOTEGRAPH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// a missing config file is fine, defaults apply; an explicitly
		// requested file must exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && l.configFile == "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if l.configFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := l.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.Vault.Path = l.expandPath(config.Vault.Path)
	return config, nil
}

// expandPath expands ~ to home directory and resolves relative paths
func (l *Loader) expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Validate performs basic validation on the configuration
func (l *Loader) Validate(config *Config) error {
	if config.Vault.Path == "" {
		return fmt.Errorf("vault.path cannot be empty")
	}
	if config.Analysis.MaxWorkers < 0 {
		return fmt.Errorf("analysis.max_workers cannot be negative")
	}
	if config.Analysis.ContextLength < 0 {
		return fmt.Errorf("analysis.context_length cannot be negative")
	}
	if config.Similarity.Threshold < 0 || config.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity.threshold must be between 0 and 1")
	}
	if config.Similarity.MinClusterSize < 1 {
		return fmt.Errorf("similarity.min_cluster_size must be at least 1")
	}
	if config.Similarity.MaxResults < 1 {
		return fmt.Errorf("similarity.max_results must be at least 1")
	}
	for _, field := range []struct{ name, value string }{
		{"cache.ttl", config.Cache.TTL},
		{"cache.cleanup_interval", config.Cache.CleanupInterval},
		{"watch.debounce", config.Watch.Debounce},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", field.name, err)
		}
	}
	return nil
}
