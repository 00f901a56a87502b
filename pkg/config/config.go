// Package config loads process configuration for the scourd shard server
// and the scour-api aggregator from a YAML file, with environment variable
// overrides layered on top — the same Load/Validate/env-override shape the
// teacher's own config package uses, adapted to a sharded search service's
// settings (shard addresses, fan-out timeouts, collector defaults, signal
// coefficients) instead of a graph database's.
//
// Query-time behavior (page size, optic string, site rankings) is never
// configured here — it travels on the query itself, per §6.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level process configuration, shared by scourd and
// scour-api (each reads only the sections relevant to it).
type Config struct {
	Shard      ShardConfig      `yaml:"shard"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Collector  CollectorConfig  `yaml:"collector"`
	Signals    map[string]float64 `yaml:"signals"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ShardConfig configures one scourd instance.
type ShardConfig struct {
	// ID identifies this shard in WebsitePointer.ShardID and in the
	// aggregator's Shards map (§3 Data Model).
	ID string `yaml:"id"`
	// ListenAddress is the shard's HTTP RPC listen address, e.g. ":8081".
	ListenAddress string `yaml:"listen_address"`
	// DataDir holds the shard's retrieval store and segment files.
	DataDir string `yaml:"data_dir"`
}

// AggregatorConfig configures one scour-api instance.
type AggregatorConfig struct {
	// ListenAddress is the aggregator's own HTTP API listen address.
	ListenAddress string `yaml:"listen_address"`
	// Shards maps shard_id to its base URL, e.g. "shard-0: http://host:8081".
	Shards map[string]string `yaml:"shards"`
	// PerAttemptTimeout bounds one shard RPC attempt (§5 default: 90s).
	PerAttemptTimeout time.Duration `yaml:"per_attempt_timeout"`
	// MaxRetries caps additional attempts after connection errors.
	MaxRetries int `yaml:"max_retries"`
	// RetryBaseDelay and RetryMaxDelay bound the capped backoff between retries.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
}

// CollectorConfig holds collector defaults (§4.6). DefaultTopN is loaded,
// overridable via SCOUR_COLLECTOR_DEFAULT_TOP_N and validated, but no other
// package reads it: a query without num_results gets pkg/dispatch's own
// default page size of 20.
type CollectorConfig struct {
	DefaultTopN int `yaml:"default_top_n"`
}

// LoggingConfig controls pkg/logging's zap setup.
type LoggingConfig struct {
	Dev bool `yaml:"dev"`
}

// MetricsConfig holds a Prometheus exporter listen address. It is loaded and
// overridable via SCOUR_METRICS_LISTEN_ADDRESS, but neither binary reads it:
// scour-api serves /metrics on aggregator.listen_address.
type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

// Default returns the configuration a freshly started `scourd` or
// `scour-api` process runs with before any file or env override.
func Default() *Config {
	return &Config{
		Shard: ShardConfig{
			ID:            "shard-0",
			ListenAddress: ":8081",
			DataDir:       "./data",
		},
		Aggregator: AggregatorConfig{
			ListenAddress:     ":8080",
			Shards:            map[string]string{},
			PerAttemptTimeout: 90 * time.Second,
			MaxRetries:        3,
			RetryBaseDelay:    100 * time.Millisecond,
			RetryMaxDelay:     2 * time.Second,
		},
		Collector: CollectorConfig{DefaultTopN: 20},
		Signals:   map[string]float64{},
		Logging:   LoggingConfig{Dev: false},
		Metrics:   MetricsConfig{ListenAddress: ":9090"},
	}
}

// Load reads path as YAML into Default()'s base, then applies environment
// overrides (SCOUR_* variables), and validates the result. A missing path
// is not an error: the defaults (plus any env overrides) are used as-is,
// matching the teacher's "config file is optional, env always applies"
// convention.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(c *Config) {
	c.Shard.ID = getEnv("SCOUR_SHARD_ID", c.Shard.ID)
	c.Shard.ListenAddress = getEnv("SCOUR_SHARD_LISTEN_ADDRESS", c.Shard.ListenAddress)
	c.Shard.DataDir = getEnv("SCOUR_SHARD_DATA_DIR", c.Shard.DataDir)

	c.Aggregator.ListenAddress = getEnv("SCOUR_AGGREGATOR_LISTEN_ADDRESS", c.Aggregator.ListenAddress)
	c.Aggregator.PerAttemptTimeout = getEnvDuration("SCOUR_AGGREGATOR_PER_ATTEMPT_TIMEOUT", c.Aggregator.PerAttemptTimeout)
	c.Aggregator.MaxRetries = getEnvInt("SCOUR_AGGREGATOR_MAX_RETRIES", c.Aggregator.MaxRetries)

	c.Collector.DefaultTopN = getEnvInt("SCOUR_COLLECTOR_DEFAULT_TOP_N", c.Collector.DefaultTopN)

	c.Logging.Dev = getEnvBool("SCOUR_LOGGING_DEV", c.Logging.Dev)
	c.Metrics.ListenAddress = getEnv("SCOUR_METRICS_LISTEN_ADDRESS", c.Metrics.ListenAddress)
}

// Validate rejects a configuration that would fail later in a more
// confusing way (an empty shard id silently colliding with another shard,
// a non-positive collector size producing an always-empty result page).
func (c *Config) Validate() error {
	if c.Shard.ID == "" {
		return fmt.Errorf("shard.id must not be empty")
	}
	if c.Aggregator.MaxRetries < 0 {
		return fmt.Errorf("aggregator.max_retries must be >= 0, got %d", c.Aggregator.MaxRetries)
	}
	if c.Collector.DefaultTopN <= 0 {
		return fmt.Errorf("collector.default_top_n must be > 0, got %d", c.Collector.DefaultTopN)
	}
	if c.Aggregator.PerAttemptTimeout <= 0 {
		return fmt.Errorf("aggregator.per_attempt_timeout must be > 0, got %s", c.Aggregator.PerAttemptTimeout)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
