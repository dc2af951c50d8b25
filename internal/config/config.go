// Package config loads the pool registry and runtime settings.
// Configuration is an explicit value constructed once and injected into
// components; nothing reads it from ambient global state.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// ErrUnknownPool is returned when a pool name is not present in the registry.
// Callers treat it as fatal; no partial operation proceeds on an unknown pool.
var ErrUnknownPool = errors.New("unknown pool")

// PoolConfig describes one tracked V3 pool.
type PoolConfig struct {
	Address string `json:"address"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1"`
	Fee     int    `json:"fee"`
	Enabled bool   `json:"enabled"`
}

// Config is the full collector/analyzer configuration.
type Config struct {
	Pools map[string]PoolConfig `json:"pools"`
}

// Load reads a JSON config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if len(cfg.Pools) == 0 {
		return nil, fmt.Errorf("config %s: no pools defined", path)
	}

	return &cfg, nil
}

// Pool resolves a pool by name. Returns ErrUnknownPool if not configured.
func (c *Config) Pool(name string) (PoolConfig, error) {
	p, ok := c.Pools[name]
	if !ok {
		return PoolConfig{}, fmt.Errorf("%w: %s", ErrUnknownPool, name)
	}
	return p, nil
}

// EnabledPools returns the names of enabled pools in deterministic order.
func (c *Config) EnabledPools() []string {
	var names []string
	for name, p := range c.Pools {
		if p.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
