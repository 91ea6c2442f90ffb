// Package config declares the YAML-driven configuration for a cache
// manager and the caches it pre-registers.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config groups the configuration of the manager and its caches.
type Config struct {
	// CleanupInterval is the period of the manager's background expiry
	// sweep. Defaults to one minute.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// Telemetry configures periodic stats logging.
	// If nil, telemetry logging is disabled.
	Telemetry *TelemetryCfg `yaml:"telemetry"`

	// Caches are plain caches created eagerly at manager construction.
	Caches []CacheCfg `yaml:"caches"`

	// QueryCaches are query caches created eagerly at manager
	// construction.
	QueryCaches []QueryCacheCfg `yaml:"query_caches"`
}

// TelemetryCfg configures the periodic stats logger.
type TelemetryCfg struct {
	// Interval between stats log lines. Defaults to one minute.
	Interval time.Duration `yaml:"interval"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}

// CacheCfg configures one plain cache.
type CacheCfg struct {
	// Name identifies the cache within the manager.
	Name string `yaml:"name"`

	// Strategy selects the eviction order: lru, fifo, lfu or ttl.
	// Defaults to lru.
	Strategy string `yaml:"strategy"`

	// MaxSize bounds the entry count. Zero disables count-based
	// eviction.
	MaxSize int `yaml:"max_size"`

	// MaxBytes bounds the total estimated byte footprint. Zero
	// disables byte-based eviction.
	MaxBytes int64 `yaml:"max_bytes"`

	// TTL is the default per-entry lifetime. Zero disables TTL expiry.
	TTL time.Duration `yaml:"ttl"`
}

// QueryCacheCfg configures one query cache. TTL is the fresh lifetime;
// entries physically expire at StaleTTL.
type QueryCacheCfg struct {
	CacheCfg `yaml:",inline"`

	// StaleTTL is the outer entry lifetime. Derived as 5x TTL (or five
	// minutes without one) when left zero.
	StaleTTL time.Duration `yaml:"stale_ttl"`

	// RefreshRate caps background refreshes per second. Zero leaves
	// them unpaced.
	RefreshRate int `yaml:"refresh_rate"`

	// Beta and Coefficient enable stochastic early refresh when Beta is
	// positive. Recommended: Beta in (0,1], Coefficient in [0,1).
	Beta        float64 `yaml:"beta"`
	Coefficient float64 `yaml:"coefficient"`
}

// Adjust fills in derived defaults. It runs automatically after Load;
// call it directly when building a Config in code.
func (cfg *Config) Adjust() {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.Telemetry.Enabled() && cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = time.Minute
	}
	for i := range cfg.Caches {
		if cfg.Caches[i].Strategy == "" {
			cfg.Caches[i].Strategy = "lru"
		}
	}
	for i := range cfg.QueryCaches {
		qc := &cfg.QueryCaches[i]
		if qc.StaleTTL <= 0 {
			if qc.TTL > 0 {
				qc.StaleTTL = 5 * qc.TTL
			} else {
				qc.StaleTTL = 5 * time.Minute
			}
		}
	}
}

// Load reads and unmarshals a YAML config file, applying derived
// defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	cfg.Adjust()

	return &cfg, nil
}
