package userdata

import (
	"context"
	"maps"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
	"github.com/roach88/chefconnect/internal/recipe"
)

// Common meal slot names. Any non-empty slot name is accepted.
const (
	Breakfast = "breakfast"
	Lunch     = "lunch"
	Dinner    = "dinner"
	Snack     = "snack"
)

// Meal is the recipe planned for one slot.
type Meal struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Image    string    `json:"image,omitempty"`
	PrepTime string    `json:"prepTime,omitempty"`
	Servings int       `json:"servings,omitempty"`
	AddedAt  time.Time `json:"addedAt"`
}

// Day maps a meal slot to its meal.
type Day map[string]Meal

// Plan maps a date key (see DateKey) to that day's meals.
type Plan map[string]Day

// DateKey normalises t to its UTC calendar date, yyyy-mm-dd.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// MealPlan is the date-keyed meal plan.
type MealPlan struct {
	b     *persisted.Binding[Plan]
	clock clock.Clock
}

// NewMealPlan binds the plan to kv.KeyMealPlan.
func NewMealPlan(ctx context.Context, store kv.Storage, opts Options) *MealPlan {
	opts = opts.withDefaults()
	return &MealPlan{
		b:     bind(ctx, store, kv.KeyMealPlan, Plan{}, opts),
		clock: opts.Clock,
	}
}

// Plan returns the whole plan.
func (m *MealPlan) Plan() Plan {
	return m.b.Get()
}

// Add plans r for slot on date, replacing whatever was there.
func (m *MealPlan) Add(ctx context.Context, date time.Time, slot string, r recipe.Recipe) bool {
	if slot == "" || r.ID == "" {
		return false
	}
	key := DateKey(date)
	meal := Meal{
		ID:       r.ID,
		Title:    r.Title,
		Image:    r.Image,
		PrepTime: r.PrepTime,
		Servings: r.Servings,
		AddedAt:  m.clock.Now().UTC(),
	}
	m.b.Update(ctx, func(prev Plan) Plan {
		next := clonePlan(prev)
		day := maps.Clone(next[key])
		if day == nil {
			day = Day{}
		}
		day[slot] = meal
		next[key] = day
		return next
	})
	return true
}

// Remove clears slot on date. A date left without meals is deleted.
func (m *MealPlan) Remove(ctx context.Context, date time.Time, slot string) bool {
	key := DateKey(date)
	return m.b.Modify(ctx, func(prev Plan) (Plan, bool) {
		if _, ok := prev[key][slot]; !ok {
			return prev, false
		}
		next := clonePlan(prev)
		day := maps.Clone(next[key])
		delete(day, slot)
		if len(day) == 0 {
			delete(next, key)
		} else {
			next[key] = day
		}
		return next, true
	})
}

// ForDate returns the meals planned on date. Never nil.
func (m *MealPlan) ForDate(date time.Time) Day {
	day := m.b.Get()[DateKey(date)]
	if day == nil {
		return Day{}
	}
	return maps.Clone(day)
}

// ForWeek returns the seven days starting at start, each present even when
// empty.
func (m *MealPlan) ForWeek(start time.Time) Plan {
	plan := m.b.Get()
	week := make(Plan, 7)
	for i := range 7 {
		key := DateKey(start.AddDate(0, 0, i))
		day := plan[key]
		if day == nil {
			day = Day{}
		}
		week[key] = maps.Clone(day)
	}
	return week
}

// Clear empties the plan.
func (m *MealPlan) Clear(ctx context.Context) {
	m.b.Set(ctx, Plan{})
}

func clonePlan(p Plan) Plan {
	next := maps.Clone(p)
	if next == nil {
		next = Plan{}
	}
	return next
}
