// TuneFrame - Behavioral Music Recommendation and Offline Cache
// Copyright 2026 TuneFrame Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tuneframe/tuneframe

// Package config loads and validates TuneFrame configuration.
//
// Configuration is loaded via Koanf v2 with layered sources, highest
// priority last:
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (see envMappings in koanf.go)
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the TuneFrame daemon.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
	Cache     CacheConfig     `koanf:"cache"`
	Recommend RecommendConfig `koanf:"recommend"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Catalog   CatalogConfig   `koanf:"catalog"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the listen address. Default binds loopback only; the daemon
	// serves a local player front end, not the open network.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// ReadTimeout bounds request read time.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds response write time. Payload downloads from the
	// cache can be tens of megabytes, so this is generous.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSOrigins lists allowed CORS origins for the player UI.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimit is the per-IP request budget per minute. Zero disables.
	RateLimit int `koanf:"rate_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file:line in log output.
	Caller bool `koanf:"caller"`
}

// StorageConfig holds settings for the local BadgerDB store backing both
// the user profile and the media cache.
type StorageConfig struct {
	// Dir is the BadgerDB directory. Empty with InMemory=false is invalid.
	Dir string `koanf:"dir"`

	// InMemory runs Badger without disk persistence. Intended for tests
	// and for degraded operation when the data directory cannot be opened.
	InMemory bool `koanf:"in_memory"`
}

// CacheConfig holds media cache budgets and the admission threshold.
type CacheConfig struct {
	// MaxBytes is the total byte budget for cached payloads.
	MaxBytes int64 `koanf:"max_bytes"`

	// MaxEntries is the entry count budget.
	MaxEntries int `koanf:"max_entries"`

	// MaxItemBytes is the hard per-item payload ceiling.
	MaxItemBytes int64 `koanf:"max_item_bytes"`

	// PlayThreshold is the play count at which a track is promoted into
	// the cache. Promotion fires exactly once, on the play that reaches
	// the threshold.
	PlayThreshold int `koanf:"play_threshold"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	// Seed is the random seed for discovery sampling and shuffles.
	// Zero selects a fixed default so results stay reproducible.
	Seed int64 `koanf:"seed"`

	// DiscoveryRatio is the fraction of each result slate reserved for
	// serendipity picks.
	DiscoveryRatio float64 `koanf:"discovery_ratio"`

	// TopInterests is the default N for interest summaries.
	TopInterests int `koanf:"top_interests"`
}

// FetchConfig holds payload fetcher settings.
type FetchConfig struct {
	// Timeout bounds a single payload fetch. Zero means no client timeout
	// (the admission path tolerates slow completions).
	Timeout time.Duration `koanf:"timeout"`

	// RatePerSecond limits fetch starts per second.
	RatePerSecond float64 `koanf:"rate_per_second"`

	// Burst is the rate limiter burst size.
	Burst int `koanf:"burst"`

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit breaker.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// CatalogConfig holds catalog provider settings.
type CatalogConfig struct {
	// Path is a JSON file of catalog tracks. Empty disables the static
	// provider; the API then serves an empty catalog until one is wired.
	Path string `koanf:"path"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:*"},
			RateLimit:       600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Storage: StorageConfig{
			Dir:      "/data/tuneframe",
			InMemory: false,
		},
		Cache: CacheConfig{
			MaxBytes:      500 * 1024 * 1024,
			MaxEntries:    50,
			MaxItemBytes:  50 * 1024 * 1024,
			PlayThreshold: 3,
		},
		Recommend: RecommendConfig{
			Seed:           0,
			DiscoveryRatio: 0.1,
			TopInterests:   5,
		},
		Fetch: FetchConfig{
			Timeout:         0,
			RatePerSecond:   2,
			Burst:           4,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Catalog: CatalogConfig{
			Path: "",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateStorage,
		c.validateCache,
		c.validateRecommend,
		c.validateFetch,
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %d", c.Server.RateLimit)
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required unless storage.in_memory is set")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxBytes <= 0 {
		return fmt.Errorf("cache.max_bytes must be > 0, got %d", c.Cache.MaxBytes)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0, got %d", c.Cache.MaxEntries)
	}
	if c.Cache.MaxItemBytes <= 0 {
		return fmt.Errorf("cache.max_item_bytes must be > 0, got %d", c.Cache.MaxItemBytes)
	}
	if c.Cache.MaxItemBytes > c.Cache.MaxBytes {
		return fmt.Errorf("cache.max_item_bytes (%d) exceeds cache.max_bytes (%d)",
			c.Cache.MaxItemBytes, c.Cache.MaxBytes)
	}
	if c.Cache.PlayThreshold < 1 {
		return fmt.Errorf("cache.play_threshold must be >= 1, got %d", c.Cache.PlayThreshold)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.DiscoveryRatio < 0 || c.Recommend.DiscoveryRatio >= 1 {
		return fmt.Errorf("recommend.discovery_ratio must be in [0, 1), got %g",
			c.Recommend.DiscoveryRatio)
	}
	if c.Recommend.TopInterests < 1 {
		return fmt.Errorf("recommend.top_interests must be >= 1, got %d", c.Recommend.TopInterests)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.RatePerSecond < 0 {
		return fmt.Errorf("fetch.rate_per_second must be >= 0, got %g", c.Fetch.RatePerSecond)
	}
	if c.Fetch.Burst < 0 {
		return fmt.Errorf("fetch.burst must be >= 0, got %d", c.Fetch.Burst)
	}
	return nil
}
