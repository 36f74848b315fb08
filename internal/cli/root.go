// Package cli implements the chefconnect command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/clock"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string
	Storage string // backend override
	DB      string // sqlite path override
	API     string // REST base URL override

	// Clock and IDs replace the wall clock and ULID/UUID generation.
	Clock clock.Clock
	IDs   IDGenerator
}

// IDGenerator produces ids for shopping items and users.
type IDGenerator interface {
	Generate() string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chefconnect CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chefconnect",
		Short: "ChefConnect - recipes, favorites, shopping and meal plans",
		Long: `ChefConnect browses and searches a recipe catalog and keeps your
favorites, search history, recently viewed recipes, shopping list,
meal plan, preferences and session in a key-value store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Storage, "storage", "", "storage backend (memory|sqlite|redis)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.API, "api", "", "recipe API base URL (default: built-in catalog)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewRecipesCommand(opts))
	cmd.AddCommand(NewFavoritesCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewRecentCommand(opts))
	cmd.AddCommand(NewShoppingCommand(opts))
	cmd.AddCommand(NewMealPlanCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewPrefsCommand(opts))
	cmd.AddCommand(NewAuthCommand(opts))
	cmd.AddCommand(NewStorageCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Execute runs the command tree with args and returns the process exit
// code. Errors are reported on stderr, or as a JSON envelope on stdout
// when --format json is set.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	code := GetExitCode(err)
	f := &OutputFormatter{Format: opts.Format, Writer: stderr, Verbose: opts.Verbose}
	if opts.Format == "json" {
		f.Writer = stdout
	}
	_ = f.Error(fmt.Sprintf("E%d", code), err.Error(), nil)
	return code
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
