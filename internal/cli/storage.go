package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/kv"
)

// StorageOptions holds flags for the storage commands.
type StorageOptions struct {
	*RootOptions
	ClearFirst bool
}

// StorageResult reports the outcome of a storage maintenance command.
type StorageResult struct {
	Operation string `json:"operation"`
	OK        bool   `json:"ok"`
	Removed   int    `json:"removed,omitempty"`
	Keys      int    `json:"keys"`
}

// NewStorageCommand creates the storage command group.
func NewStorageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StorageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect, back up and restore the key-value store",
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Show estimated usage against capacity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				in := a.store.Info(ctx)
				return a.out.Emit(in, func(w io.Writer) {
					fmt.Fprintf(w, "Backend:   %s\n", a.cfg.Storage.Backend)
					fmt.Fprintf(w, "Keys:      %d\n", in.Keys)
					fmt.Fprintf(w, "Used:      %d bytes\n", in.Used)
					fmt.Fprintf(w, "Available: %d bytes\n", in.Available)
					fmt.Fprintf(w, "Capacity:  %d bytes (%.2f%% used)\n", in.Capacity, in.Percent)
				})
			})
		},
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				ks := a.store.Keys(ctx)
				return a.out.Emit(ks, func(w io.Writer) {
					for _, k := range ks {
						fmt.Fprintln(w, k)
					}
				})
			})
		},
	}

	backup := &cobra.Command{
		Use:   "backup [file]",
		Short: "Write every entry as a JSON document",
		Long: `Write every entry as a JSON document to file, or to stdout.

The document maps each key to its value and can be fed to storage restore.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				doc := a.store.Backup(ctx)
				if len(args) == 0 {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), doc)
					return err
				}
				if err := os.WriteFile(args[0], []byte(doc+"\n"), 0o600); err != nil {
					return WrapExitError(ExitFailure, "failed to write backup", err)
				}
				return emitStorage(a, StorageResult{Operation: "backup", OK: true, Keys: len(a.store.Keys(ctx))})
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <file>",
		Short: "Load entries from a backup document",
		Long: `Load entries from a backup document written by storage backup.

Use - to read the document from stdin. With --clear the store is emptied
first; otherwise entries are merged over existing ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				doc, err := readDocument(cmd, args[0])
				if err != nil {
					return err
				}
				if !a.store.Restore(ctx, doc, opts.ClearFirst) {
					return NewExitError(ExitFailure, "restore failed: input is not a valid backup")
				}
				return emitStorage(a, StorageResult{Operation: "restore", OK: true, Keys: len(a.store.Keys(ctx))})
			})
		},
	}
	restore.Flags().BoolVar(&opts.ClearFirst, "clear", false, "clear the store before restoring")

	clearExpired := &cobra.Command{
		Use:   "clear-expired",
		Short: "Remove entries whose expiry has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				n := a.store.ClearExpired(ctx)
				return emitStorage(a, StorageResult{Operation: "clear-expired", OK: true, Removed: n, Keys: len(a.store.Keys(ctx))})
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				ok := a.store.Clear(ctx)
				if err := emitStorage(a, StorageResult{Operation: "clear", OK: ok, Keys: len(a.store.Keys(ctx))}); err != nil {
					return err
				}
				if !ok {
					return NewExitError(ExitFailure, "storage is unavailable")
				}
				return nil
			})
		},
	}

	cmd.AddCommand(info, keys, backup, restore, clearExpired, clearCmd)
	return cmd
}

func readDocument(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", WrapExitError(ExitFailure, "failed to read backup", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func emitStorage(a *app, r StorageResult) error {
	return a.out.Emit(r, func(w io.Writer) {
		switch {
		case !r.OK:
			fmt.Fprintf(w, "%s: failed\n", r.Operation)
		case r.Operation == "clear-expired":
			fmt.Fprintf(w, "Removed %d expired entries, %d keys remain\n", r.Removed, r.Keys)
		default:
			fmt.Fprintf(w, "%s: ok (%d keys)\n", r.Operation, r.Keys)
		}
	})
}

// describeChange renders a store change for the serve log.
func describeChange(c kv.Change) string {
	switch {
	case c.Cleared():
		return "cleared"
	case c.NewValue == nil:
		return "removed"
	case c.OldValue == nil:
		return "added"
	default:
		return "updated"
	}
}
