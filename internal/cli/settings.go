package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/userdata"
)

// KeyValue is one setting or preference.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// keyedStore is the enum-keyed surface shared by settings and preferences.
type keyedStore[K ~string] struct {
	keys  func() []K
	value func(K) (string, error)
	apply func(context.Context, K, string) error
	reset func(context.Context)
}

func settingsStore(s *userdata.SettingsStore) keyedStore[userdata.SettingKey] {
	return keyedStore[userdata.SettingKey]{
		keys:  userdata.SettingKeys,
		value: s.Value,
		apply: s.Apply,
		reset: s.Reset,
	}
}

func prefsStore(p *userdata.PreferencesStore) keyedStore[userdata.PreferenceKey] {
	return keyedStore[userdata.PreferenceKey]{
		keys:  userdata.PreferenceKeys,
		value: p.Value,
		apply: p.Apply,
		reset: p.Reset,
	}
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	return newKeyedCommand(rootOpts, "settings", "App settings (theme, language, units, timezone, ...)",
		func(ctx context.Context, a *app) keyedStore[userdata.SettingKey] {
			return settingsStore(a.collections(ctx).Settings)
		})
}

// NewPrefsCommand creates the preferences command group.
func NewPrefsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := newKeyedCommand(rootOpts, "prefs", "User preferences (notifications, display, privacy)",
		func(ctx context.Context, a *app) keyedStore[userdata.PreferenceKey] {
			return prefsStore(a.collections(ctx).Preferences)
		})
	cmd.Aliases = []string{"preferences"}
	return cmd
}

func newKeyedCommand[K ~string](rootOpts *RootOptions, use, short string, open func(context.Context, *app) keyedStore[K]) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}

	get := &cobra.Command{
		Use:   "get [key]",
		Short: "Show one value, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := open(ctx, a)
				keys := s.keys()
				if len(args) == 1 {
					keys = []K{K(args[0])}
				}
				return emitKeyValues(a, s, keys)
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := open(ctx, a)
				key := K(args[0])
				if err := s.apply(ctx, key, args[1]); err != nil {
					if userdata.IsInvalidValue(err) {
						return WrapExitError(ExitFailure, "invalid value", err)
					}
					return WrapExitError(ExitCommandError, "unknown key", err)
				}
				return emitKeyValues(a, s, []K{key})
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				s := open(ctx, a)
				s.reset(ctx)
				return emitKeyValues(a, s, s.keys())
			})
		},
	}

	cmd.AddCommand(get, set, reset)
	return cmd
}

func emitKeyValues[K ~string](a *app, s keyedStore[K], keys []K) error {
	out := make([]KeyValue, 0, len(keys))
	for _, k := range keys {
		v, err := s.value(k)
		if err != nil {
			return WrapExitError(ExitCommandError, "unknown key", err)
		}
		out = append(out, KeyValue{Key: string(k), Value: v})
	}
	return a.out.Emit(out, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, kv := range out {
			fmt.Fprintf(tw, "%s\t%s\n", kv.Key, kv.Value)
		}
		_ = tw.Flush()
	})
}
