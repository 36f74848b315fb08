package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/api"
	"github.com/roach88/chefconnect/internal/debounce"
	"github.com/roach88/chefconnect/internal/recipe"
	"github.com/roach88/chefconnect/internal/userdata"
)

// RecipesOptions holds flags for the recipes commands.
type RecipesOptions struct {
	*RootOptions
	Search     string
	Category   string
	Difficulty string
	Tags       []string
	Sort       string
	Page       int
	Limit      int
	Top        int
	Stdin      bool
}

// NewRecipesCommand creates the recipes command group.
func NewRecipesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecipesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "Browse and search the recipe catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recipes with filters, sorting and pagination",
		Long: `List recipes.

Filters combine with AND; --tag matches recipes carrying any of the tags.
Sort keys: popular, newest, oldest, rating, alphabetical, prep-time.

Examples:
  chefconnect recipes list --category desserts --sort rating
  chefconnect recipes list --search pasta --page 2 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runRecipesList(ctx, a, opts)
			})
		},
	}
	list.Flags().StringVar(&opts.Search, "search", "", "case-insensitive text match on title, description and tags")
	list.Flags().StringVar(&opts.Category, "category", "", "category id")
	list.Flags().StringVar(&opts.Difficulty, "difficulty", "", "easy|medium|hard|expert")
	list.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable, matches any)")
	list.Flags().StringVar(&opts.Sort, "sort", string(recipe.SortPopular), "sort key")
	list.Flags().IntVar(&opts.Page, "page", recipe.DefaultPage, "page number (1-based)")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default from config)")

	show := &cobra.Command{
		Use:   "show <id|slug>",
		Short: "Show one recipe and record it as recently viewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return runRecipesShow(ctx, a, args[0])
			})
		},
	}

	popular := &cobra.Command{
		Use:   "popular",
		Short: "List the most popular recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				src, err := a.source()
				if err != nil {
					return err
				}
				recs, err := src.Popular(ctx, opts.Top)
				if err != nil {
					return sourceError(err, "popular recipes")
				}
				return a.out.Emit(recs, func(w io.Writer) { writeRecipeTable(w, recs) })
			})
		},
	}
	popular.Flags().IntVar(&opts.Top, "limit", 6, "number of recipes")

	search := &cobra.Command{
		Use:   "search [query]",
		Short: "Debounced search; records the query in search history",
		Long: `Search recipes by text.

With --stdin every input line is treated as the next state of a search
box: queries typed within the debounce window collapse, results of
superseded queries are discarded, and the settled query is recorded in
search history.

Examples:
  chefconnect recipes search curry
  printf 'c\ncu\ncurry\n' | chefconnect recipes search --stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				var queries []string
				if opts.Stdin {
					sc := bufio.NewScanner(cmd.InOrStdin())
					for sc.Scan() {
						queries = append(queries, sc.Text())
					}
					if err := sc.Err(); err != nil {
						return WrapExitError(ExitCommandError, "failed to read stdin", err)
					}
				} else {
					queries = []string{strings.Join(args, " ")}
				}
				return runRecipesSearch(ctx, a, queries)
			})
		},
	}
	search.Flags().BoolVar(&opts.Stdin, "stdin", false, "read successive queries from stdin")

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List recipe categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				src, err := a.source()
				if err != nil {
					return err
				}
				cats, err := src.Categories(ctx)
				if err != nil {
					return sourceError(err, "categories")
				}
				return a.out.Emit(cats, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tDESCRIPTION")
					for _, c := range cats {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
					}
					_ = tw.Flush()
				})
			})
		},
	}

	cmd.AddCommand(list, show, popular, search, categories)
	return cmd
}

func (o *RecipesOptions) spec(pageSize int) (recipe.Spec, error) {
	spec := recipe.NewSpec()
	spec.SearchText = strings.TrimSpace(o.Search)
	spec.Category = o.Category
	spec.Difficulty = recipe.Difficulty(strings.ToLower(o.Difficulty))
	spec.Tags = o.Tags
	spec.Page = o.Page
	spec.PageSize = pageSize
	if o.Limit != 0 {
		spec.PageSize = o.Limit
	}
	key, err := recipe.ParseSortKey(o.Sort)
	if err != nil {
		return spec, WrapExitError(ExitCommandError, "invalid --sort", err)
	}
	spec.SortKey = key
	return spec, nil
}

func runRecipesList(ctx context.Context, a *app, opts *RecipesOptions) error {
	spec, err := opts.spec(a.cfg.Query.PageSize)
	if err != nil {
		return err
	}
	src, err := a.source()
	if err != nil {
		return err
	}
	res, err := src.List(ctx, spec)
	if err != nil {
		return sourceError(err, "recipes")
	}
	return a.out.Emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "Page %d/%d (%d matching)\n", res.Page, max(res.TotalPages, 1), res.TotalMatched)
		writeRecipeTable(w, res.Items)
	})
}

func runRecipesShow(ctx context.Context, a *app, idOrSlug string) error {
	src, err := a.source()
	if err != nil {
		return err
	}
	r, err := src.Get(ctx, idOrSlug)
	if err != nil {
		return sourceError(err, fmt.Sprintf("recipe %q", idOrSlug))
	}
	col := a.collections(ctx)
	col.RecentlyViewed.Add(ctx, userdata.RefOf(r))

	return a.out.Emit(r, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s)\n", r.Title, r.ID)
		if r.Description != "" {
			fmt.Fprintf(w, "%s\n", r.Description)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Category:   %s\n", r.Category)
		fmt.Fprintf(w, "Difficulty: %s\n", r.Difficulty)
		fmt.Fprintf(w, "Prep:       %s\n", recipe.FormatMinutes(r.PrepMinutes()))
		fmt.Fprintf(w, "Cook:       %s\n", r.CookTime)
		fmt.Fprintf(w, "Servings:   %d\n", r.Servings)
		fmt.Fprintf(w, "Rating:     %.1f (%d reviews)\n", r.Rating, r.ReviewCount)
		if len(r.Tags) > 0 {
			fmt.Fprintf(w, "Tags:       %s\n", strings.Join(r.Tags, ", "))
		}
		if col.Favorites.IsFavorite(r.ID) {
			fmt.Fprintln(w, "Favorite:   yes")
		}
		if len(r.Ingredients) > 0 {
			fmt.Fprintln(w, "\nIngredients:")
			for _, ing := range r.Ingredients {
				fmt.Fprintf(w, "  - %s\n", strings.TrimSpace(strings.Join([]string{ing.Amount, ing.Unit, ing.Name}, " ")))
			}
		}
		if len(r.Instructions) > 0 {
			fmt.Fprintln(w, "\nInstructions:")
			for i, step := range r.Instructions {
				fmt.Fprintf(w, "  %d. %s\n", i+1, step)
			}
		}
	})
}

// SearchResult is the settled outcome of a debounced search.
type SearchResult struct {
	Query   string          `json:"query"`
	Status  string          `json:"status"`
	Results []recipe.Recipe `json:"results"`
	Error   string          `json:"error,omitempty"`
}

func runRecipesSearch(ctx context.Context, a *app, queries []string) error {
	src, err := a.source()
	if err != nil {
		return err
	}
	spec := recipe.NewSpec()
	spec.PageSize = a.cfg.Query.PageSize

	s := debounce.NewSearch(func(ctx context.Context, q string) ([]recipe.Recipe, error) {
		res, err := src.Search(ctx, q, spec)
		return res.Items, err
	}, a.cfg.Debounce.Delay,
		debounce.WithClock(a.clock),
		debounce.WithLogger(a.log),
		debounce.WithObserver(a.metrics),
		debounce.WithName("search"),
	)
	defer s.Close()

	for _, q := range queries {
		a.out.VerboseLog("query: %q", q)
		s.SetQuery(q)
	}
	st, err := s.Settle(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "search interrupted", err)
	}

	out := SearchResult{Query: strings.TrimSpace(s.Query()), Status: st.Status.String(), Results: s.Results()}
	if out.Results == nil {
		out.Results = []recipe.Recipe{}
	}
	if st.Status == debounce.StatusFailed {
		out.Error = st.Err.Error()
	} else if out.Query != "" {
		a.collections(ctx).SearchHistory.Add(ctx, out.Query)
	}

	if err := a.out.Emit(out, func(w io.Writer) {
		switch {
		case out.Query == "":
			fmt.Fprintln(w, "Empty query.")
		case st.Status == debounce.StatusFailed:
			fmt.Fprintf(w, "Search for %q failed: %s\n", out.Query, out.Error)
		default:
			fmt.Fprintf(w, "%d results for %q\n", len(out.Results), out.Query)
			writeRecipeTable(w, out.Results)
		}
	}); err != nil {
		return err
	}
	if st.Status == debounce.StatusFailed {
		return sourceError(st.Err, "search")
	}
	return nil
}

func writeRecipeTable(w io.Writer, recs []recipe.Recipe) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recipes found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tDIFFICULTY\tPREP\tRATING")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.1f\n",
			r.ID, r.Title, r.Category, r.Difficulty, recipe.FormatMinutes(r.PrepMinutes()), r.Rating)
	}
	_ = tw.Flush()
}

// sourceError maps recipe source failures to exit codes.
func sourceError(err error, what string) error {
	switch {
	case recipe.IsInvalidQuery(err):
		return WrapExitError(ExitCommandError, "invalid query", err)
	case api.IsNotFoundErr(err):
		return WrapExitError(ExitFailure, what+" not found", err)
	default:
		return WrapExitError(ExitFailure, "failed to load "+what, err)
	}
}
