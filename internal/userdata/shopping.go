package userdata

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
	"github.com/roach88/chefconnect/internal/recipe"
)

// Shopping categories used for grouping.
const (
	CategoryProduce    = "produce"
	CategoryDairy      = "dairy"
	CategoryMeat       = "meat"
	CategoryPantry     = "pantry"
	CategoryOther      = "other"
	CategoryIngredient = "ingredient"
)

// GroupCategories lists the buckets returned by ShoppingList.ByCategory.
var GroupCategories = []string{CategoryProduce, CategoryDairy, CategoryMeat, CategoryPantry, CategoryOther}

// Item is one shopping list entry.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	Unit        string    `json:"unit"`
	Category    string    `json:"category"`
	Completed   bool      `json:"completed"`
	AddedAt     time.Time `json:"addedAt"`
	RecipeID    string    `json:"recipeId,omitempty"`
	RecipeTitle string    `json:"recipeTitle,omitempty"`
}

// NewItem describes an item to add.
type NewItem struct {
	Name        string
	Amount      string
	Unit        string
	Category    string
	RecipeID    string
	RecipeTitle string
}

// ItemPatch is a partial update. Nil fields are left alone.
type ItemPatch struct {
	Name      *string
	Amount    *string
	Unit      *string
	Category  *string
	Completed *bool
}

func (p ItemPatch) apply(it Item) Item {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Amount != nil {
		it.Amount = *p.Amount
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
	return it
}

// ShoppingList keeps items in insertion order.
type ShoppingList struct {
	b     *persisted.Binding[[]Item]
	clock clock.Clock
	ids   IDGenerator
}

// NewShoppingList binds the list to kv.KeyShoppingList.
func NewShoppingList(ctx context.Context, store kv.Storage, opts Options) *ShoppingList {
	opts = opts.withDefaults()
	return &ShoppingList{
		b:     bind(ctx, store, kv.KeyShoppingList, []Item{}, opts),
		clock: opts.Clock,
		ids:   opts.IDs,
	}
}

// List returns every item.
func (s *ShoppingList) List() []Item {
	return s.b.Get()
}

// Count returns the number of items.
func (s *ShoppingList) Count() int {
	return len(s.b.Get())
}

// CompletedCount returns the number of completed items.
func (s *ShoppingList) CompletedCount() int {
	n := 0
	for _, it := range s.b.Get() {
		if it.Completed {
			n++
		}
	}
	return n
}

// Add appends an item. An item without a name is rejected.
func (s *ShoppingList) Add(ctx context.Context, in NewItem) (Item, bool) {
	if strings.TrimSpace(in.Name) == "" {
		return Item{}, false
	}
	category := in.Category
	if category == "" {
		category = CategoryOther
	}
	it := Item{
		ID:          s.ids.Generate(),
		Name:        in.Name,
		Amount:      in.Amount,
		Unit:        in.Unit,
		Category:    category,
		AddedAt:     s.clock.Now().UTC(),
		RecipeID:    in.RecipeID,
		RecipeTitle: in.RecipeTitle,
	}
	s.b.Update(ctx, func(prev []Item) []Item {
		return append(slices.Clone(prev), it)
	})
	return it, true
}

// AddRecipeIngredients appends one item per ingredient of r.
func (s *ShoppingList) AddRecipeIngredients(ctx context.Context, r recipe.Recipe) []Item {
	if len(r.Ingredients) == 0 {
		return nil
	}
	now := s.clock.Now().UTC()
	added := make([]Item, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		added = append(added, Item{
			ID:          s.ids.Generate(),
			Name:        ing.Name,
			Amount:      ing.Amount,
			Unit:        ing.Unit,
			Category:    CategoryIngredient,
			AddedAt:     now,
			RecipeID:    r.ID,
			RecipeTitle: r.Title,
		})
	}
	s.b.Update(ctx, func(prev []Item) []Item {
		return append(slices.Clone(prev), added...)
	})
	return added
}

// Remove deletes the item with id.
func (s *ShoppingList) Remove(ctx context.Context, id string) bool {
	return s.b.Modify(ctx, func(prev []Item) ([]Item, bool) {
		i := indexItem(prev, id)
		if i < 0 {
			return prev, false
		}
		return slices.Delete(slices.Clone(prev), i, i+1), true
	})
}

// Toggle flips the completed flag of id.
func (s *ShoppingList) Toggle(ctx context.Context, id string) bool {
	return s.modifyItem(ctx, id, func(it Item) Item {
		it.Completed = !it.Completed
		return it
	})
}

// Update applies patch to id.
func (s *ShoppingList) Update(ctx context.Context, id string, patch ItemPatch) bool {
	return s.modifyItem(ctx, id, patch.apply)
}

// ClearCompleted drops completed items and returns how many were dropped.
func (s *ShoppingList) ClearCompleted(ctx context.Context) int {
	removed := 0
	s.b.Modify(ctx, func(prev []Item) ([]Item, bool) {
		next := make([]Item, 0, len(prev))
		for _, it := range prev {
			if !it.Completed {
				next = append(next, it)
			}
		}
		removed = len(prev) - len(next)
		return next, removed > 0
	})
	return removed
}

// ClearAll empties the list.
func (s *ShoppingList) ClearAll(ctx context.Context) {
	s.b.Set(ctx, []Item{})
}

// ByCategory groups items into GroupCategories. Items in any other
// category land in "other".
func (s *ShoppingList) ByCategory() map[string][]Item {
	groups := make(map[string][]Item, len(GroupCategories))
	for _, c := range GroupCategories {
		groups[c] = []Item{}
	}
	for _, it := range s.b.Get() {
		c := it.Category
		if _, ok := groups[c]; !ok {
			c = CategoryOther
		}
		groups[c] = append(groups[c], it)
	}
	return groups
}

func (s *ShoppingList) modifyItem(ctx context.Context, id string, fn func(Item) Item) bool {
	return s.b.Modify(ctx, func(prev []Item) ([]Item, bool) {
		i := indexItem(prev, id)
		if i < 0 {
			return prev, false
		}
		next := slices.Clone(prev)
		next[i] = fn(next[i])
		return next, true
	})
}

func indexItem(list []Item, id string) int {
	return slices.IndexFunc(list, func(it Item) bool { return it.ID == id })
}
