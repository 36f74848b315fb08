package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/api"
	"github.com/roach88/chefconnect/internal/catalog"
	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/config"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/kv/rediskv"
	"github.com/roach88/chefconnect/internal/kv/sqlite"
	"github.com/roach88/chefconnect/internal/logging"
	"github.com/roach88/chefconnect/internal/metrics"
	"github.com/roach88/chefconnect/internal/session"
	"github.com/roach88/chefconnect/internal/userdata"
)

// app is everything one command invocation needs, opened from config.
type app struct {
	opts     *RootOptions
	cfg      config.Config
	log      *slog.Logger
	clock    clock.Clock
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	store    *kv.Store
	out      *OutputFormatter

	closers []func()
}

// openApp loads config, applies flag overrides, initialises logging and
// opens the configured store.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Storage != "" {
		cfg.Storage.Backend = opts.Storage
	}
	if opts.DB != "" {
		cfg.Storage.Path = opts.DB
	}
	if opts.API != "" {
		cfg.API.BaseURL = opts.API
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	reg := prometheus.NewRegistry()
	a := &app{
		opts:     opts,
		cfg:      cfg,
		log:      logging.Init(level, cfg.Log.Format, cmd.ErrOrStderr()),
		clock:    clock.Or(opts.Clock),
		registry: reg,
		metrics:  metrics.New(reg),
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}
	if err := a.openStore(cmdContext(cmd)); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	sc := a.cfg.Storage
	storeOpts := []kv.Option{
		kv.WithLogger(a.log),
		kv.WithClock(a.clock),
		kv.WithObserver(a.metrics),
		kv.WithCapacity(sc.Capacity),
	}

	var backend kv.Backend
	switch sc.Backend {
	case config.BackendSQLite:
		st, err := sqlite.Open(sc.Path, sqlite.Options{Capacity: sc.Capacity})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.closers = append(a.closers, func() {
			if err := st.Close(); err != nil {
				a.log.Error("error closing database", "error", err)
			}
		})
		backend = st
		storeOpts = append(storeOpts, kv.WithBroadcaster(st))
	case config.BackendRedis:
		st, err := rediskv.Dial(sc.RedisAddr, sc.RedisPassword, rediskv.Options{Prefix: sc.RedisPrefix, Capacity: sc.Capacity})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to connect to redis", err)
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		backend = st
		storeOpts = append(storeOpts, kv.WithBroadcaster(st))
	default:
		backend = kv.NewMemory(sc.Capacity)
	}

	a.store = kv.New(ctx, backend, storeOpts...)
	a.closers = append(a.closers, a.store.Close)
	a.log.Debug("store opened", "backend", sc.Backend, "available", a.store.Available())
	return nil
}

// Close releases everything in reverse opening order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// collections binds the user collections.
func (a *app) collections(ctx context.Context) *userdata.Collections {
	opts := userdata.Options{
		Clock:               a.clock,
		Logger:              a.log,
		FavoritesLimit:      a.cfg.Limits.Favorites,
		SearchHistoryLimit:  a.cfg.Limits.SearchHistory,
		RecentlyViewedLimit: a.cfg.Limits.RecentlyViewed,
	}
	if a.opts.IDs != nil {
		opts.IDs = a.opts.IDs
	}
	c := userdata.Open(ctx, a.store, opts)
	a.closers = append(a.closers, c.Close)
	return c
}

// sessions restores the persisted session.
func (a *app) sessions(ctx context.Context) *session.Manager {
	sc := a.cfg.Session
	opts := session.Options{
		Clock:      a.clock,
		Logger:     a.log,
		Latency:    sc.Latency,
		Secret:     []byte(sc.Secret),
		TokenTTL:   sc.TokenTTL,
		BcryptCost: sc.BcryptCost,
		Observer:   a.metrics,
	}
	if a.opts.IDs != nil {
		opts.IDs = a.opts.IDs
	}
	m := session.New(ctx, a.store, opts)
	a.closers = append(a.closers, m.Close)
	return m
}

// storeTokens reads the persisted session token for each request.
type storeTokens struct {
	store *kv.Store
}

func (t storeTokens) Token() string {
	return kv.GetAs(context.Background(), t.store, kv.KeyAuthToken, "")
}

// localCatalog builds the embedded in-memory catalog.
func (a *app) localCatalog() (*catalog.Catalog, error) {
	c, err := catalog.NewSeeded(catalog.Options{Clock: a.clock, Latency: a.cfg.Catalog.Latency, Logger: a.log})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	return c, nil
}

// source returns the REST source when a base URL is configured, otherwise
// the embedded catalog.
func (a *app) source() (catalog.Source, error) {
	if strings.TrimSpace(a.cfg.API.BaseURL) == "" {
		return a.localCatalog()
	}
	c, err := api.New(api.Options{
		BaseURL: a.cfg.API.BaseURL,
		Timeout: a.cfg.API.Timeout,
		Tokens:  storeTokens{store: a.store},
		Retry:   a.cfg.API.Retry,
		Clock:   a.clock,
		Logger:  a.log,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid api base url", err)
	}
	return api.NewRemote(c), nil
}

// withApp opens the app, runs fn and closes it.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmdContext(cmd), a)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
