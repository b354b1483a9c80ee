package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, `
addr: ":9090"
storeBackend: badger
badgerDir: /var/lib/roster
requireLocation: false
searchTimeout: 2s
redis:
  poolSize: 50
`)
	t.Setenv("ROSTER_ADDR", ":7070")
	t.Setenv("ROSTER_SEARCH_TIMEOUT", "3s")
	t.Setenv("ROSTER_KAFKA_BROKERS", "b1:9092, b2:9092,b1:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr, "env overrides file")
	assert.Equal(t, 3*time.Second, cfg.SearchTimeout, "env overrides file")
	assert.Equal(t, BackendBadger, cfg.StoreBackend, "file overrides default")
	assert.Equal(t, "/var/lib/roster", cfg.BadgerDir)
	assert.False(t, cfg.RequireLocation)
	assert.Equal(t, 50, cfg.Redis.PoolSize)
	assert.Equal(t, 2, cfg.Redis.MinIdleConns, "untouched defaults survive")
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.KafkaBrokers, "brokers trimmed and deduplicated")
}

func TestLoadFromConfigEnv(t *testing.T) {
	path := writeFile(t, "logFormat: text\n")
	t.Setenv(ConfigFileEnv, path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "error reading config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "addr: [unterminated"))
		assert.ErrorContains(t, err, "error parsing config file")
	})

	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv("ROSTER_SEARCH_TIMEOUT", "soon")
		_, err := Load(writeFile(t, ""))
		assert.ErrorContains(t, err, "error processing environment")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.StoreBackend = "mongo" }, "unknown store backend"},
		{"postgres without url", func(c *Config) { c.StoreBackend = BackendPostgres }, "database_url is required"},
		{"redis without url", func(c *Config) { c.StoreBackend = BackendRedis }, "redis url is required"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
		{"brokers without topic", func(c *Config) { c.KafkaBrokers = []string{"b:9092"}; c.AuditTopic = "" }, "audit_topic is required"},
		{"sample ratio above one", func(c *Config) { c.Tracing.SampleRatio = 1.5 }, "sample ratio"},
		{"negative timeout", func(c *Config) { c.SearchTimeout = -time.Second }, "timeouts must not be negative"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
