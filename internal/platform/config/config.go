// Package config loads server and CLI configuration: built-in defaults, then
// an optional YAML file, then ROSTER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	pkgstrings "roster/pkg/platform/strings"
)

// EnvPrefix prefixes every environment override (ROSTER_ADDR, ...).
const EnvPrefix = "roster"

// ConfigFileEnv names the environment variable holding the YAML path.
const ConfigFileEnv = "ROSTER_CONFIG"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendBadger   = "badger"
)

var backends = []string{BackendMemory, BackendPostgres, BackendRedis, BackendBadger}

// Config is the full runtime configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"logLevel"        split_words:"true"`
	LogFormat       string        `yaml:"logFormat"       split_words:"true"`
	StoreBackend    string        `yaml:"storeBackend"    split_words:"true"`
	DatabaseURL     string        `yaml:"databaseUrl"     split_words:"true"`
	Redis           RedisConfig   `yaml:"redis"`
	BadgerDir       string        `yaml:"badgerDir"       split_words:"true"`
	KafkaBrokers    []string      `yaml:"kafkaBrokers"    split_words:"true"`
	AuditTopic      string        `yaml:"auditTopic"      split_words:"true"`
	RequireLocation bool          `yaml:"requireLocation" split_words:"true"`
	SearchTimeout   time.Duration `yaml:"searchTimeout"   split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
	Tracing         TracingConfig `yaml:"tracing"`
}

// TracingConfig enables OpenTelemetry span export. With Stdout unset, spans
// go to an OTLP/HTTP endpoint configured by the OTEL_EXPORTER_OTLP_* variables.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Stdout      bool    `yaml:"stdout"`
	SampleRatio float64 `yaml:"sampleRatio" split_words:"true"`
	ServiceName string  `yaml:"serviceName" split_words:"true"`
}

// RedisConfig configures the redis substrate client.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"poolSize"     split_words:"true"`
	MinIdleConns int           `yaml:"minIdleConns" split_words:"true"`
	DialTimeout  time.Duration `yaml:"dialTimeout"  split_words:"true"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  split_words:"true"`
	WriteTimeout time.Duration `yaml:"writeTimeout" split_words:"true"`
}

// Default returns the development configuration: in-memory store, text logs.
func Default() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		StoreBackend:    BackendMemory,
		AuditTopic:      "roster.audit",
		RequireLocation: true,
		SearchTimeout:   10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Tracing: TracingConfig{
			SampleRatio: 1,
			ServiceName: "roster",
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}

// Load builds a Config. path may be empty, in which case ROSTER_CONFIG is
// consulted; with neither set no file is read.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.KafkaBrokers = pkgstrings.DedupeAndTrim(cfg.KafkaBrokers)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if !slices.Contains(backends, c.StoreBackend) {
		errs = append(errs, fmt.Errorf("unknown store backend %q (want one of %s)", c.StoreBackend, strings.Join(backends, ", ")))
	}
	if c.StoreBackend == BackendPostgres && c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required for the postgres backend"))
	}
	if c.StoreBackend == BackendRedis && c.Redis.URL == "" {
		errs = append(errs, errors.New("redis url is required for the redis backend"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if len(c.KafkaBrokers) > 0 && c.AuditTopic == "" {
		errs = append(errs, errors.New("audit_topic is required when kafka_brokers is set"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing sample ratio %v must be within [0, 1]", c.Tracing.SampleRatio))
	}
	if c.SearchTimeout < 0 || c.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	return errors.Join(errs...)
}
