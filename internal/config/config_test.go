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
	path := filepath.Join(t.TempDir(), "chefconnect.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce.Delay)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 3, cfg.API.Retry.MaxRetries)
	assert.Equal(t, time.Second, cfg.API.Retry.Delay)
	assert.Equal(t, 12, cfg.Query.PageSize)
	assert.Equal(t, 10, cfg.Limits.SearchHistory)
	assert.Equal(t, 20, cfg.Limits.RecentlyViewed)
	assert.Equal(t, int64(5*1024*1024), cfg.Storage.Capacity)
}

func TestLoad_NoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
  format: json
storage:
  backend: sqlite
  path: /tmp/cc.db
api:
  baseURL: http://localhost:9000/api
  timeout: 2s
  retry:
    maxRetries: 1
    delay: 250ms
debounce:
  delay: 300ms
session:
  latency:
    login: 50ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/tmp/cc.db", cfg.Storage.Path)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.Equal(t, 1, cfg.API.Retry.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Retry.Delay)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce.Delay)
	assert.Equal(t, 50*time.Millisecond, cfg.Session.Latency.Login)
	// Untouched nested defaults survive.
	assert.Equal(t, time.Second, cfg.Session.Latency.Register)
	assert.Equal(t, 20, cfg.Limits.RecentlyViewed)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "storage:\n  backend: sqlite\n")
	t.Setenv("CHEFCONNECT_STORAGE_BACKEND", "redis")
	t.Setenv("CHEFCONNECT_REDIS_ADDR", "localhost:6379")
	t.Setenv("CHEFCONNECT_API_TIMEOUT", "3s")
	t.Setenv("CHEFCONNECT_API_RETRIES", "0")
	t.Setenv("CHEFCONNECT_PAGE_SIZE", "24")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "localhost:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 0, cfg.API.Retry.MaxRetries)
	assert.Equal(t, 24, cfg.Query.PageSize)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeFile(t, "log: [\n"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeFile(t, "debounce:\n  delay: soon\n"))
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("CHEFCONNECT_API_TIMEOUT", "fast")
	_, err = Load("")
	assert.ErrorContains(t, err, "CHEFCONNECT_API_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend":     func(c *Config) { c.Storage.Backend = "floppy" },
		"redis addr":  func(c *Config) { c.Storage.Backend = BackendRedis },
		"sqlite path": func(c *Config) { c.Storage.Backend, c.Storage.Path = BackendSQLite, "" },
		"timeout":     func(c *Config) { c.API.Timeout = 0 },
		"limits":      func(c *Config) { c.Limits.Favorites = 0 },
		"page size":   func(c *Config) { c.Query.PageSize = -1 },
		"log format":  func(c *Config) { c.Log.Format = "xml" },
		"retry":       func(c *Config) { c.API.Retry.MaxRetries = -1 },
		"capacity":    func(c *Config) { c.Storage.Capacity = -5 },
		"debounce":    func(c *Config) { c.Debounce.Delay = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
