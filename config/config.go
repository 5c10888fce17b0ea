// Package config holds the tunables for a virtualized list index: the
// buffer/overscan margins, batching threshold, and cache ceiling.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"vlistindex/vlerr"
)

// EvictionPolicy selects the cache replacement strategy for materialized
// chunks.
type EvictionPolicy string

const (
	LRU EvictionPolicy = "lru"
	LFU EvictionPolicy = "lfu"
)

// Config holds every tunable named in the external interfaces: buffer
// and overscan margins, the update-batching threshold, and the cache
// ceiling (count-based and, optionally, byte-based).
type Config struct {
	BufferSize      int            `yaml:"buffer_size" env:"VLIST_BUFFER_SIZE"`
	OverscanItems   int            `yaml:"overscan_items" env:"VLIST_OVERSCAN_ITEMS"`
	UpdateBatchSize int            `yaml:"update_batch_size" env:"VLIST_UPDATE_BATCH_SIZE"`
	MaxCachedChunks int            `yaml:"max_cached_chunks" env:"VLIST_MAX_CACHED_CHUNKS"`
	EvictionPolicy  EvictionPolicy `yaml:"cache_eviction_policy" env:"VLIST_EVICTION_POLICY"`
	MaxMemoryBytes  int64          `yaml:"max_memory_bytes" env:"VLIST_MAX_MEMORY_BYTES"`
}

// Default returns a configuration with conservative defaults:
// buffer_size=5, overscan_items=3, update_batch_size=10,
// max_cached_chunks=100, cache_eviction_policy=LRU, no byte ceiling.
func Default() Config {
	return Config{
		BufferSize:      5,
		OverscanItems:   3,
		UpdateBatchSize: 10,
		MaxCachedChunks: 100,
		EvictionPolicy:  LRU,
		MaxMemoryBytes:  0,
	}
}

// Validate clamps nothing silently: a configuration parameter that is
// zero where one or more is required, or an unrecognized eviction
// policy, is rejected with InvalidConfiguration rather than coerced. An
// unrecognized policy tag is a construction-time error, not a silent
// never-evicting no-op.
func (c Config) Validate() error {
	if c.BufferSize < 0 {
		return vlerr.NewInvalidConfiguration("buffer_size must be >= 0").WithContext("buffer_size", c.BufferSize)
	}
	if c.OverscanItems < 0 {
		return vlerr.NewInvalidConfiguration("overscan_items must be >= 0").WithContext("overscan_items", c.OverscanItems)
	}
	if c.UpdateBatchSize <= 0 {
		return vlerr.NewInvalidConfiguration("update_batch_size must be >= 1").WithContext("update_batch_size", c.UpdateBatchSize)
	}
	if c.MaxCachedChunks <= 0 {
		return vlerr.NewInvalidConfiguration("max_cached_chunks must be >= 1").WithContext("max_cached_chunks", c.MaxCachedChunks)
	}
	if c.MaxMemoryBytes < 0 {
		return vlerr.NewInvalidConfiguration("max_memory_bytes must be >= 0").WithContext("max_memory_bytes", c.MaxMemoryBytes)
	}
	switch c.EvictionPolicy {
	case LRU, LFU:
	default:
		return vlerr.NewInvalidConfiguration("unrecognized cache_eviction_policy").WithContext("cache_eviction_policy", string(c.EvictionPolicy))
	}
	return nil
}

// LoadFile parses a YAML document into a Config seeded with Default(),
// then applies environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, vlerr.Wrap(vlerr.InvalidConfiguration, "failed to read config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, vlerr.Wrap(vlerr.InvalidConfiguration, "failed to parse config file", err)
	}
	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

// applyEnvOverrides checks one VLIST_* environment variable per field,
// overwriting the field only when the variable is set and parses
// cleanly.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VLIST_BUFFER_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BufferSize = n
		}
	}
	if v := os.Getenv("VLIST_OVERSCAN_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OverscanItems = n
		}
	}
	if v := os.Getenv("VLIST_UPDATE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UpdateBatchSize = n
		}
	}
	if v := os.Getenv("VLIST_MAX_CACHED_CHUNKS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxCachedChunks = n
		}
	}
	if v := os.Getenv("VLIST_EVICTION_POLICY"); v != "" {
		c.EvictionPolicy = EvictionPolicy(v)
	}
	if v := os.Getenv("VLIST_MAX_MEMORY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxMemoryBytes = n
		}
	}
}
