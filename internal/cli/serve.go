package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// listener, when set, is used instead of listening on Addr.
	listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built-in catalog over the recipe REST API",
		Long: `Serve the built-in catalog over the recipe REST API.

The server exposes /api/recipes, /api/users and /api/categories, plus
/healthz and Prometheus metrics on /metrics. Point another chefconnect
at it with --api http://<addr>/api.

Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	return cmd
}

const sweepInterval = time.Minute

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(cmd, opts.RootOptions, func(_ context.Context, a *app) error {
		cat, err := a.localCatalog()
		if err != nil {
			return err
		}
		srv := server.New(cat, server.Options{
			Logger:   a.log,
			Observer: a.metrics,
			Gatherer: a.registry,
		})

		addr := opts.Addr
		if addr == "" {
			addr = a.cfg.Server.Addr
		}
		ln := opts.listener
		if ln == nil {
			ln, err = net.Listen("tcp", addr)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to listen", err)
			}
		}

		unsubscribe := a.store.Subscribe(func(c kv.Change) {
			a.log.Info("store changed", "key", c.Key, "change", describeChange(c), "origin", c.Origin)
		})
		defer unsubscribe()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.ServeListener(gctx, ln)
		})
		g.Go(func() error {
			sweepExpired(gctx, a, sweepInterval)
			return nil
		})
		if err := g.Wait(); err != nil {
			return WrapExitError(ExitFailure, "server failed", err)
		}
		return nil
	})
}

// sweepExpired drops expired entries every interval until ctx is done.
func sweepExpired(ctx context.Context, a *app, interval time.Duration) {
	for clock.Sleep(ctx, a.clock, interval) == nil {
		if n := a.store.ClearExpired(ctx); n > 0 {
			a.log.Info("cleared expired entries", "count", n)
		}
	}
}
