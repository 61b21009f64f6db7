package timeline

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	cerrors "github.com/chronolith/chronolith/internal/errors"
)

// Config holds the tunables of a timeline Manager. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	// MergeGapDivisor controls how aggressively adjacent clusters are merged
	// when building stripes: two clusters of the same type and description
	// merge when the gap between them is at most one zoom period divided by
	// this value. Must be positive.
	MergeGapDivisor int64 `json:"merge_gap_divisor" yaml:"merge_gap_divisor"`

	// StripeCacheBytes bounds the compressed stripe result cache.
	// Zero disables caching entirely.
	StripeCacheBytes int64 `json:"stripe_cache_bytes" yaml:"stripe_cache_bytes"`

	// StatsCapacity is the number of distinct operations the query stats
	// sink tracks before evicting the least recently used entry.
	StatsCapacity int `json:"stats_capacity" yaml:"stats_capacity"`

	// Logger receives warning and lifecycle output. Defaults to the
	// standard logger when nil.
	Logger *log.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns the configuration used when the host supplies
// nothing of its own.
func DefaultConfig() Config {
	return Config{
		MergeGapDivisor:  4,
		StripeCacheBytes: 8 * 1024 * 1024,
		StatsCapacity:    256,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.MergeGapDivisor <= 0 {
		return cerrors.NewValidationError(cerrors.CodeInvalidConfig,
			fmt.Sprintf("merge_gap_divisor must be positive, got %d", c.MergeGapDivisor))
	}
	if c.StripeCacheBytes < 0 {
		return cerrors.NewValidationError(cerrors.CodeInvalidConfig,
			fmt.Sprintf("stripe_cache_bytes must not be negative, got %d", c.StripeCacheBytes))
	}
	if c.StatsCapacity < 0 {
		return cerrors.NewValidationError(cerrors.CodeInvalidConfig,
			fmt.Sprintf("stats_capacity must not be negative, got %d", c.StatsCapacity))
	}
	return nil
}

// LoadConfigFromFile loads configuration from a YAML or JSON file, layered
// over the defaults.
func LoadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadConfigFromEnv overlays configuration from environment variables.
// Environment variables use the CHRONOLITH_ prefix.
func LoadConfigFromEnv(cfg *Config) {
	if v := os.Getenv("CHRONOLITH_MERGE_GAP_DIVISOR"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.MergeGapDivisor)
	}
	if v := os.Getenv("CHRONOLITH_STRIPE_CACHE_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.StripeCacheBytes)
	}
	if v := os.Getenv("CHRONOLITH_STATS_CAPACITY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.StatsCapacity)
	}
}
