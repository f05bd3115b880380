// Package config loads indexer configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"solana-indexer/internal/storage"
)

type Config struct {
	Solana  SolanaConfig  `yaml:"solana"`
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type SolanaConfig struct {
	RPCURL string `yaml:"rpc_url"`
	// WSURL is the streaming endpoint. Empty disables streaming.
	WSURL string `yaml:"ws_url"`
	// RateLimit is the RPC request budget per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
}

type StorageConfig struct {
	// Backend is postgres, clickhouse or memory. Empty picks one from the DSNs.
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

type CacheConfig struct {
	L1Size int           `yaml:"l1_size"`
	L2Size int           `yaml:"l2_size"`
	L2TTL  time.Duration `yaml:"l2_ttl"`
}

type IngestConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

type RedisConfig struct {
	// URL enables Redis notifications when non-empty.
	URL string `yaml:"url"`
}

type MetricsConfig struct {
	// Addr serves /metrics and /healthz when non-empty.
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Solana: SolanaConfig{
			RPCURL:    "https://api.mainnet-beta.solana.com",
			RateLimit: 10,
		},
		Cache: CacheConfig{
			L1Size: 1000,
			L2Size: 10000,
			L2TTL:  time.Hour,
		},
		Ingest: IngestConfig{
			PollInterval:  400 * time.Millisecond,
			WatchInterval: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at path
// (skipped when path is empty) and then with environment variables.
// The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Solana.RPCURL, "SOLANA_RPC_URL")
	setString(&c.Solana.WSURL, "SOLANA_WS_URL")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.PostgresDSN, "DATABASE_URL")
	setString(&c.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
	setString(&c.Redis.URL, "REDIS_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Encoding, "LOG_ENCODING")

	// METRICS_ADDR may be set to empty to disable the server.
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}

	var errs []error
	errs = append(errs,
		setInt(&c.Cache.L1Size, "CACHE_L1_SIZE"),
		setInt(&c.Cache.L2Size, "CACHE_L2_SIZE"),
		setDuration(&c.Cache.L2TTL, "CACHE_L2_TTL"),
		setDuration(&c.Ingest.PollInterval, "POLL_INTERVAL"),
		setDuration(&c.Ingest.WatchInterval, "WATCH_INTERVAL"),
		setFloat(&c.Solana.RateLimit, "RPC_RATE_LIMIT"),
	)
	return errors.Join(errs...)
}

// Validate checks the configuration for values the indexer cannot run with.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.Solana.RateLimit < 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must not be negative")
	}
	if c.Cache.L1Size <= 0 || c.Cache.L2Size <= 0 {
		return fmt.Errorf("cache sizes must be positive")
	}
	if c.Cache.L2TTL <= 0 {
		return fmt.Errorf("CACHE_L2_TTL must be positive")
	}
	if c.Ingest.PollInterval <= 0 || c.Ingest.WatchInterval <= 0 {
		return fmt.Errorf("intervals must be positive")
	}

	switch c.Backend() {
	case storage.BackendMemory:
	case storage.BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case storage.BackendClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("CLICKHOUSE_DSN is required for the clickhouse backend")
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Storage.Backend)
	}
	return nil
}

// Backend returns the effective storage backend name.
func (c *Config) Backend() string {
	return storage.ResolveBackend(c.Storage.Backend, c.Storage.PostgresDSN, c.Storage.ClickhouseDSN)
}

// StreamingEnabled reports whether a streaming endpoint is configured.
func (c *Config) StreamingEnabled() bool {
	return strings.TrimSpace(c.Solana.WSURL) != ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = i
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
