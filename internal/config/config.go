// Package config loads chefconnect settings from YAML with CHEFCONNECT_*
// environment overrides. Durations are written as Go duration strings
// ("500ms", "10s").
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chefconnect/internal/api"
	"github.com/roach88/chefconnect/internal/catalog"
	"github.com/roach88/chefconnect/internal/debounce"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/recipe"
	"github.com/roach88/chefconnect/internal/session"
	"github.com/roach88/chefconnect/internal/userdata"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHEFCONNECT_"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Backends lists the accepted storage backends.
var Backends = []string{BackendMemory, BackendSQLite, BackendRedis}

// Config is the full application configuration.
type Config struct {
	Log      Log      `yaml:"log"`
	Storage  Storage  `yaml:"storage"`
	API      API      `yaml:"api"`
	Server   Server   `yaml:"server"`
	Catalog  Catalog  `yaml:"catalog"`
	Session  Session  `yaml:"session"`
	Debounce Debounce `yaml:"debounce"`
	Limits   Limits   `yaml:"limits"`
	Query    Query    `yaml:"query"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Storage selects and configures the key-value backend.
type Storage struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`
	// Capacity is the quota in estimated bytes.
	Capacity int64 `yaml:"capacity"`
}

// API configures the REST client. An empty BaseURL uses the local catalog.
type API struct {
	BaseURL string          `yaml:"baseURL"`
	Timeout time.Duration   `yaml:"timeout"`
	Retry   api.RetryPolicy `yaml:"retry"`
}

// Server configures `chefconnect serve`.
type Server struct {
	Addr string `yaml:"addr"`
}

// Catalog configures the in-memory recipe source.
type Catalog struct {
	Latency catalog.Latency `yaml:"latency"`
}

// Session configures the auth state machine.
type Session struct {
	Secret     string          `yaml:"secret"`
	TokenTTL   time.Duration   `yaml:"tokenTTL"`
	BcryptCost int             `yaml:"bcryptCost"`
	Latency    session.Latency `yaml:"latency"`
}

// Debounce configures the search debounce window.
type Debounce struct {
	Delay time.Duration `yaml:"delay"`
}

// Limits caps the retained user collections.
type Limits struct {
	Favorites      int `yaml:"favorites"`
	SearchHistory  int `yaml:"searchHistory"`
	RecentlyViewed int `yaml:"recentlyViewed"`
}

// Query configures listing defaults.
type Query struct {
	PageSize int `yaml:"pageSize"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:     Log{Level: "info", Format: "text"},
		Storage: Storage{Backend: BackendSQLite, Path: "chefconnect.db", Capacity: kv.DefaultCapacity},
		API:     API{Timeout: api.DefaultTimeout, Retry: api.DefaultRetry},
		Server:  Server{Addr: "127.0.0.1:8080"},
		Catalog: Catalog{Latency: catalog.DefaultLatency()},
		Session: Session{
			TokenTTL:   7 * 24 * time.Hour,
			BcryptCost: 10,
			Latency:    session.DefaultLatency,
		},
		Debounce: Debounce{Delay: debounce.DefaultDelay},
		Limits: Limits{
			Favorites:      userdata.DefaultFavoritesLimit,
			SearchHistory:  userdata.DefaultSearchHistoryLimit,
			RecentlyViewed: userdata.DefaultRecentlyViewedLimit,
		},
		Query: Query{PageSize: recipe.DefaultPageSize},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("STORAGE_BACKEND", &c.Storage.Backend)
	str("STORAGE_PATH", &c.Storage.Path)
	str("REDIS_ADDR", &c.Storage.RedisAddr)
	str("REDIS_PASSWORD", &c.Storage.RedisPassword)
	str("API_BASE_URL", &c.API.BaseURL)
	str("SERVER_ADDR", &c.Server.Addr)
	str("SESSION_SECRET", &c.Session.Secret)

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"API_TIMEOUT", &c.API.Timeout},
		{"API_RETRY_DELAY", &c.API.Retry.Delay},
		{"SESSION_TTL", &c.Session.TokenTTL},
		{"DEBOUNCE_DELAY", &c.Debounce.Delay},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(EnvPrefix + d.name)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, d.name, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"API_RETRIES", &c.API.Retry.MaxRetries},
		{"PAGE_SIZE", &c.Query.PageSize},
	}
	for _, n := range ints {
		v, ok := os.LookupEnv(EnvPrefix + n.name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, n.name, err)
		}
		*n.dst = parsed
	}
	if v, ok := os.LookupEnv(EnvPrefix + "STORAGE_CAPACITY"); ok {
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("env %sSTORAGE_CAPACITY: %w", EnvPrefix, err)
		}
		c.Storage.Capacity = parsed
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Backends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend %q: want one of %s", c.Storage.Backend, strings.Join(Backends, ", ")))
	}
	if c.Storage.Backend == BackendSQLite && strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, errors.New("storage.path is required for the sqlite backend"))
	}
	if c.Storage.Backend == BackendRedis && strings.TrimSpace(c.Storage.RedisAddr) == "" {
		errs = append(errs, errors.New("storage.redisAddr is required for the redis backend"))
	}
	if c.Storage.Capacity < 0 {
		errs = append(errs, errors.New("storage.capacity must be >= 0"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if c.API.Retry.MaxRetries < 0 || c.API.Retry.Delay < 0 {
		errs = append(errs, errors.New("api.retry values must be >= 0"))
	}
	if c.Debounce.Delay < 0 {
		errs = append(errs, errors.New("debounce.delay must be >= 0"))
	}
	if c.Limits.Favorites <= 0 || c.Limits.SearchHistory <= 0 || c.Limits.RecentlyViewed <= 0 {
		errs = append(errs, errors.New("limits must be positive"))
	}
	if c.Query.PageSize <= 0 {
		errs = append(errs, errors.New("query.pageSize must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
