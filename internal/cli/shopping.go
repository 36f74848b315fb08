package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/userdata"
)

// ShoppingOptions holds flags for the shopping commands.
type ShoppingOptions struct {
	*RootOptions
	Amount     string
	Unit       string
	Category   string
	Name       string
	ByCategory bool
}

// ShoppingSummary is the shopping list with its counters.
type ShoppingSummary struct {
	Items     []userdata.Item            `json:"items"`
	Groups    map[string][]userdata.Item `json:"groups,omitempty"`
	Total     int                        `json:"total"`
	Completed int                        `json:"completed"`
}

// NewShoppingCommand creates the shopping list command group.
func NewShoppingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShoppingOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "shopping",
		Short: "Manage the shopping list",
	}

	run := func(fn func(ctx context.Context, a *app, list *userdata.ShoppingList, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				return fn(ctx, a, a.collections(ctx).ShoppingList, args)
			})
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the shopping list",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, l *userdata.ShoppingList, _ []string) error {
			return emitShopping(a, l, opts.ByCategory)
		}),
	}
	list.Flags().BoolVar(&opts.ByCategory, "by-category", false, "group items by category")

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, l *userdata.ShoppingList, args []string) error {
			item, ok := l.Add(ctx, userdata.NewItem{
				Name:     strings.Join(args, " "),
				Amount:   opts.Amount,
				Unit:     opts.Unit,
				Category: opts.Category,
			})
			if !ok {
				return NewExitError(ExitFailure, "item name must not be blank")
			}
			a.out.VerboseLog("added %s (%s)", item.Name, item.ID)
			return emitShopping(a, l, false)
		}),
	}
	add.Flags().StringVar(&opts.Amount, "amount", "", "quantity")
	add.Flags().StringVar(&opts.Unit, "unit", "", "unit")
	add.Flags().StringVar(&opts.Category, "category", "", "produce|dairy|meat|pantry|other")

	addRecipe := &cobra.Command{
		Use:   "add-recipe <recipe-id>",
		Short: "Add every ingredient of a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, l *userdata.ShoppingList, args []string) error {
			src, err := a.source()
			if err != nil {
				return err
			}
			r, err := src.Get(ctx, args[0])
			if err != nil {
				return sourceError(err, fmt.Sprintf("recipe %q", args[0]))
			}
			added := l.AddRecipeIngredients(ctx, r)
			a.out.VerboseLog("added %d ingredients from %s", len(added), r.Title)
			return emitShopping(a, l, false)
		}),
	}

	byID := func(use, short string, fn func(ctx context.Context, l *userdata.ShoppingList, id string) bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <item-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: run(func(ctx context.Context, a *app, l *userdata.ShoppingList, args []string) error {
				if !fn(ctx, l, args[0]) {
					return NewExitError(ExitFailure, fmt.Sprintf("item %q not found", args[0]))
				}
				return emitShopping(a, l, false)
			}),
		}
	}

	update := byID("update", "Change an item's fields", func(ctx context.Context, l *userdata.ShoppingList, id string) bool {
		return l.Update(ctx, id, opts.patch())
	})
	update.Flags().StringVar(&opts.Name, "name", "", "new name")
	update.Flags().StringVar(&opts.Amount, "amount", "", "new quantity")
	update.Flags().StringVar(&opts.Unit, "unit", "", "new unit")
	update.Flags().StringVar(&opts.Category, "category", "", "new category")

	clearCompleted := &cobra.Command{
		Use:   "clear-completed",
		Short: "Remove checked-off items",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, l *userdata.ShoppingList, _ []string) error {
			n := l.ClearCompleted(ctx)
			a.out.VerboseLog("removed %d completed items", n)
			return emitShopping(a, l, false)
		}),
	}

	clearAll := &cobra.Command{
		Use:   "clear",
		Short: "Remove every item",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, l *userdata.ShoppingList, _ []string) error {
			l.ClearAll(ctx)
			return emitShopping(a, l, false)
		}),
	}

	cmd.AddCommand(list, add, addRecipe,
		byID("toggle", "Check or uncheck an item", func(ctx context.Context, l *userdata.ShoppingList, id string) bool {
			return l.Toggle(ctx, id)
		}),
		byID("remove", "Remove an item", func(ctx context.Context, l *userdata.ShoppingList, id string) bool {
			return l.Remove(ctx, id)
		}),
		update, clearCompleted, clearAll,
	)
	return cmd
}

// patch builds an ItemPatch from the flags that were set.
func (o *ShoppingOptions) patch() userdata.ItemPatch {
	var p userdata.ItemPatch
	set := func(v string) *string {
		if v == "" {
			return nil
		}
		return &v
	}
	p.Name = set(o.Name)
	p.Amount = set(o.Amount)
	p.Unit = set(o.Unit)
	p.Category = set(o.Category)
	return p
}

func emitShopping(a *app, l *userdata.ShoppingList, grouped bool) error {
	sum := ShoppingSummary{
		Items:     l.List(),
		Total:     l.Count(),
		Completed: l.CompletedCount(),
	}
	if sum.Items == nil {
		sum.Items = []userdata.Item{}
	}
	if grouped {
		sum.Groups = l.ByCategory()
	}
	return a.out.Emit(sum, func(w io.Writer) {
		fmt.Fprintf(w, "Shopping list: %d items, %d completed\n", sum.Total, sum.Completed)
		if sum.Total == 0 {
			return
		}
		if !grouped {
			writeItems(w, sum.Items)
			return
		}
		for _, cat := range userdata.GroupCategories {
			items := sum.Groups[cat]
			if len(items) == 0 {
				continue
			}
			fmt.Fprintf(w, "\n[%s]\n", cat)
			writeItems(w, items)
		}
	})
}

func writeItems(w io.Writer, items []userdata.Item) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, it := range items {
		mark := " "
		if it.Completed {
			mark = "x"
		}
		qty := strings.TrimSpace(it.Amount + " " + it.Unit)
		from := ""
		if it.RecipeTitle != "" {
			from = "(" + it.RecipeTitle + ")"
		}
		fmt.Fprintf(tw, "[%s]\t%s\t%s\t%s\t%s\n", mark, it.ID, it.Name, qty, from)
	}
	_ = tw.Flush()
}
