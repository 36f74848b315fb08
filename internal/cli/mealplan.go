package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/chefconnect/internal/userdata"
)

// MealPlanOptions holds flags for the meal plan commands.
type MealPlanOptions struct {
	*RootOptions
	Date  string
	Start string
}

// DayPlan is one date of the meal plan.
type DayPlan struct {
	Date  string       `json:"date"`
	Meals userdata.Day `json:"meals"`
}

var slotOrder = []string{userdata.Breakfast, userdata.Lunch, userdata.Dinner, userdata.Snack}

// NewMealPlanCommand creates the meal plan command group.
func NewMealPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MealPlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "mealplan",
		Aliases: []string{"plan"},
		Short:   "Plan meals by date and slot",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the meals planned on one date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				date, err := parseDate(a, opts.Date)
				if err != nil {
					return err
				}
				day := a.collections(ctx).MealPlan.ForDate(date)
				return emitDays(a, []DayPlan{{Date: userdata.DateKey(date), Meals: day}})
			})
		},
	}
	show.Flags().StringVar(&opts.Date, "date", "today", "date (YYYY-MM-DD or today)")

	week := &cobra.Command{
		Use:   "week",
		Short: "Show seven days of meals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				start, err := parseDate(a, opts.Start)
				if err != nil {
					return err
				}
				plan := a.collections(ctx).MealPlan.ForWeek(start)
				return emitDays(a, sortedDays(plan))
			})
		},
	}
	week.Flags().StringVar(&opts.Start, "start", "today", "first date (YYYY-MM-DD or today)")

	add := &cobra.Command{
		Use:   "add <date> <slot> <recipe-id>",
		Short: "Plan a recipe for a slot, replacing what was there",
		Long: `Plan a recipe for a meal slot.

Slots are free-form; breakfast, lunch, dinner and snack are listed first.

Example:
  chefconnect mealplan add 2024-03-04 dinner 1`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				date, err := parseDate(a, args[0])
				if err != nil {
					return err
				}
				src, err := a.source()
				if err != nil {
					return err
				}
				r, err := src.Get(ctx, args[2])
				if err != nil {
					return sourceError(err, fmt.Sprintf("recipe %q", args[2]))
				}
				plan := a.collections(ctx).MealPlan
				if !plan.Add(ctx, date, strings.ToLower(args[1]), r) {
					return NewExitError(ExitFailure, "slot must not be empty")
				}
				return emitDays(a, []DayPlan{{Date: userdata.DateKey(date), Meals: plan.ForDate(date)}})
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <date> <slot>",
		Short: "Clear one slot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				date, err := parseDate(a, args[0])
				if err != nil {
					return err
				}
				plan := a.collections(ctx).MealPlan
				if !plan.Remove(ctx, date, strings.ToLower(args[1])) {
					return NewExitError(ExitFailure, fmt.Sprintf("nothing planned for %s on %s", args[1], userdata.DateKey(date)))
				}
				return emitDays(a, []DayPlan{{Date: userdata.DateKey(date), Meals: plan.ForDate(date)}})
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every planned meal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				plan := a.collections(ctx).MealPlan
				plan.Clear(ctx)
				return emitDays(a, sortedDays(plan.Plan()))
			})
		},
	}

	cmd.AddCommand(show, week, add, remove, clearCmd)
	return cmd
}

func parseDate(a *app, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "today") {
		return a.clock.Now(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid date %q (want YYYY-MM-DD)", s), err)
	}
	return t, nil
}

func sortedDays(p userdata.Plan) []DayPlan {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	days := make([]DayPlan, 0, len(keys))
	for _, k := range keys {
		days = append(days, DayPlan{Date: k, Meals: p[k]})
	}
	return days
}

// orderedSlots lists the common slots first, then any others by name.
func orderedSlots(day userdata.Day) []string {
	var out, extra []string
	for _, s := range slotOrder {
		if _, ok := day[s]; ok {
			out = append(out, s)
		}
	}
	for s := range day {
		if !slices.Contains(slotOrder, s) {
			extra = append(extra, s)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

func emitDays(a *app, days []DayPlan) error {
	return a.out.Emit(days, func(w io.Writer) {
		if len(days) == 0 {
			fmt.Fprintln(w, "No meals planned.")
			return
		}
		for _, d := range days {
			fmt.Fprintln(w, d.Date)
			if len(d.Meals) == 0 {
				fmt.Fprintln(w, "  (nothing planned)")
				continue
			}
			for _, slot := range orderedSlots(d.Meals) {
				m := d.Meals[slot]
				fmt.Fprintf(w, "  %-10s %s (%s)\n", slot, m.Title, m.ID)
			}
		}
	})
}
