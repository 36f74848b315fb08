package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/userdata"
)

// lookupRef fetches a recipe summary from the configured source.
func lookupRef(ctx context.Context, a *app, idOrSlug string) (userdata.RecipeRef, error) {
	src, err := a.source()
	if err != nil {
		return userdata.RecipeRef{}, err
	}
	r, err := src.Get(ctx, idOrSlug)
	if err != nil {
		return userdata.RecipeRef{}, sourceError(err, fmt.Sprintf("recipe %q", idOrSlug))
	}
	return userdata.RefOf(r), nil
}

// FavoriteChange reports the outcome of a favorites mutation.
type FavoriteChange struct {
	Recipe   userdata.RecipeRef `json:"recipe"`
	Favorite bool               `json:"favorite"`
	Changed  bool               `json:"changed"`
	Count    int                `json:"count"`
}

// NewFavoritesCommand creates the favorites command group.
func NewFavoritesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "favorites",
		Short: "Manage favorite recipes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List favorites, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				favs := a.collections(ctx).Favorites.List()
				if favs == nil {
					favs = []userdata.Favorite{}
				}
				return a.out.Emit(favs, func(w io.Writer) {
					if len(favs) == 0 {
						fmt.Fprintln(w, "No favorites yet.")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tTITLE\tRATING\tADDED")
					for _, f := range favs {
						fmt.Fprintf(tw, "%s\t%s\t%.1f\t%s\n", f.ID, f.Title, f.Rating, f.AddedAt.Format(time.DateTime))
					}
					_ = tw.Flush()
				})
			})
		},
	}

	mutate := func(use, short string, fn func(ctx context.Context, favs *userdata.Favorites, ref userdata.RecipeRef) bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <recipe-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					favs := a.collections(ctx).Favorites
					ref := userdata.RecipeRef{ID: args[0]}
					if use != "remove" {
						var err error
						if ref, err = lookupRef(ctx, a, args[0]); err != nil {
							return err
						}
					}
					changed := fn(ctx, favs, ref)
					out := FavoriteChange{Recipe: ref, Favorite: favs.IsFavorite(ref.ID), Changed: changed, Count: favs.Count()}
					return a.out.Emit(out, func(w io.Writer) {
						state := "not a favorite"
						if out.Favorite {
							state = "a favorite"
						}
						verb := "unchanged"
						if out.Changed {
							verb = "updated"
						}
						fmt.Fprintf(w, "Recipe %s is %s (%s, %d favorites)\n", ref.ID, state, verb, out.Count)
					})
				})
			},
		}
	}

	cmd.AddCommand(list,
		mutate("add", "Add a recipe to favorites", func(ctx context.Context, f *userdata.Favorites, ref userdata.RecipeRef) bool {
			return f.Add(ctx, ref)
		}),
		mutate("remove", "Remove a recipe from favorites", func(ctx context.Context, f *userdata.Favorites, ref userdata.RecipeRef) bool {
			return f.Remove(ctx, ref.ID)
		}),
		mutate("toggle", "Toggle a recipe's favorite state", func(ctx context.Context, f *userdata.Favorites, ref userdata.RecipeRef) bool {
			f.Toggle(ctx, ref)
			return true
		}),
	)
	return cmd
}

// NewHistoryCommand creates the search history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or edit recent search queries",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recent searches, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					return emitHistory(a, a.collections(ctx).SearchHistory.List())
				})
			},
		},
		&cobra.Command{
			Use:   "remove <query>",
			Short: "Remove one query (exact match)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					h := a.collections(ctx).SearchHistory
					if !h.Remove(ctx, args[0]) {
						return NewExitError(ExitFailure, fmt.Sprintf("query %q not in history", args[0]))
					}
					return emitHistory(a, h.List())
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear search history",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					h := a.collections(ctx).SearchHistory
					h.Clear(ctx)
					return emitHistory(a, h.List())
				})
			},
		},
	)
	return cmd
}

func emitHistory(a *app, queries []string) error {
	if queries == nil {
		queries = []string{}
	}
	return a.out.Emit(queries, func(w io.Writer) {
		if len(queries) == 0 {
			fmt.Fprintln(w, "No recent searches.")
			return
		}
		for i, q := range queries {
			fmt.Fprintf(w, "%2d. %s\n", i+1, q)
		}
	})
}

// NewRecentCommand creates the recently viewed command group.
func NewRecentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show or edit recently viewed recipes",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recently viewed recipes, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					return emitRecent(a, a.collections(ctx).RecentlyViewed.List())
				})
			},
		},
		&cobra.Command{
			Use:   "remove <recipe-id>",
			Short: "Forget one recipe",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					r := a.collections(ctx).RecentlyViewed
					if !r.Remove(ctx, args[0]) {
						return NewExitError(ExitFailure, fmt.Sprintf("recipe %q not recently viewed", args[0]))
					}
					return emitRecent(a, r.List())
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear recently viewed recipes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
					r := a.collections(ctx).RecentlyViewed
					r.Clear(ctx)
					return emitRecent(a, r.List())
				})
			},
		},
	)
	return cmd
}

func emitRecent(a *app, viewed []userdata.Viewed) error {
	if viewed == nil {
		viewed = []userdata.Viewed{}
	}
	return a.out.Emit(viewed, func(w io.Writer) {
		if len(viewed) == 0 {
			fmt.Fprintln(w, "Nothing viewed yet.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tVIEWED")
		for _, v := range viewed {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", v.ID, v.Title, v.ViewedAt.Format(time.DateTime))
		}
		_ = tw.Flush()
	})
}
