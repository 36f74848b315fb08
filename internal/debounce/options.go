package debounce

import (
	"log/slog"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
)

// DefaultDelay is the quiet period used for search input.
const DefaultDelay = 500 * time.Millisecond

// Observer is told when a stale result is dropped.
type Observer interface {
	ObserveStale(stream string)
}

// Option configures Func, Value, Call and Search.
type Option func(*config)

type config struct {
	clock    clock.Clock
	log      *slog.Logger
	observer Observer
	name     string
}

// WithClock overrides the timer source.
func WithClock(c clock.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) { cfg.log = l }
}

// WithObserver reports dropped stale results.
func WithObserver(o Observer) Option {
	return func(cfg *config) { cfg.observer = o }
}

// WithName labels the stream in logs and metrics.
func WithName(name string) Option {
	return func(cfg *config) { cfg.name = name }
}

func newConfig(opts []Option) config {
	cfg := config{log: slog.Default(), name: "default"}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.clock = clock.Or(cfg.clock)
	return cfg
}
