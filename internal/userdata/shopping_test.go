package userdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/recipe"
)

func TestShoppingList_Add(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)

	_, ok := c.ShoppingList.Add(ctx, NewItem{Name: "  "})
	assert.False(t, ok)

	it, ok := c.ShoppingList.Add(ctx, NewItem{Name: "Eggs", Amount: "6"})
	require.True(t, ok)
	assert.Equal(t, "item-1", it.ID)
	assert.Equal(t, CategoryOther, it.Category)
	assert.False(t, it.Completed)
	assert.True(t, it.AddedAt.Equal(epoch))
	assert.Equal(t, 1, c.ShoppingList.Count())
}

func TestShoppingList_ToggleAndUpdate(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)
	eggs, _ := c.ShoppingList.Add(ctx, NewItem{Name: "Eggs"})
	milk, _ := c.ShoppingList.Add(ctx, NewItem{Name: "Milk", Category: CategoryDairy})

	assert.True(t, c.ShoppingList.Toggle(ctx, eggs.ID))
	assert.False(t, c.ShoppingList.Toggle(ctx, "missing"))
	assert.Equal(t, 1, c.ShoppingList.CompletedCount())

	amount := "2"
	unit := "l"
	assert.True(t, c.ShoppingList.Update(ctx, milk.ID, ItemPatch{Amount: &amount, Unit: &unit}))

	list := c.ShoppingList.List()
	assert.True(t, list[0].Completed)
	assert.Equal(t, "Milk", list[1].Name)
	assert.Equal(t, "2", list[1].Amount)
	assert.Equal(t, "l", list[1].Unit)
	assert.False(t, list[1].Completed)
}

func TestShoppingList_AddRecipeIngredients(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)

	r := recipe.Recipe{
		ID:    "1",
		Title: "Spaghetti Carbonara",
		Ingredients: []recipe.Ingredient{
			{Name: "Spaghetti", Amount: "400", Unit: "g"},
			{Name: "Guanciale", Amount: "150", Unit: "g"},
		},
	}
	added := c.ShoppingList.AddRecipeIngredients(ctx, r)
	require.Len(t, added, 2)
	for _, it := range added {
		assert.Equal(t, CategoryIngredient, it.Category)
		assert.Equal(t, "1", it.RecipeID)
		assert.Equal(t, "Spaghetti Carbonara", it.RecipeTitle)
	}
	assert.Nil(t, c.ShoppingList.AddRecipeIngredients(ctx, recipe.Recipe{ID: "2"}))
	assert.Equal(t, 2, c.ShoppingList.Count())
}

func TestShoppingList_ByCategory(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)
	c.ShoppingList.Add(ctx, NewItem{Name: "Apples", Category: CategoryProduce})
	c.ShoppingList.Add(ctx, NewItem{Name: "Cheese", Category: CategoryDairy})
	c.ShoppingList.Add(ctx, NewItem{Name: "Saffron", Category: "spices"})
	c.ShoppingList.AddRecipeIngredients(ctx, recipe.Recipe{ID: "9", Ingredients: []recipe.Ingredient{{Name: "Flour"}}})

	groups := c.ShoppingList.ByCategory()
	assert.Len(t, groups, len(GroupCategories))
	assert.Len(t, groups[CategoryProduce], 1)
	assert.Len(t, groups[CategoryDairy], 1)
	assert.Empty(t, groups[CategoryMeat])
	assert.Empty(t, groups[CategoryPantry])
	require.Len(t, groups[CategoryOther], 2)
	assert.Equal(t, "Saffron", groups[CategoryOther][0].Name)
	assert.Equal(t, "Flour", groups[CategoryOther][1].Name)
}

func TestShoppingList_Clear(t *testing.T) {
	ctx := context.Background()
	c := newFixture(t).open(t)
	a, _ := c.ShoppingList.Add(ctx, NewItem{Name: "A"})
	c.ShoppingList.Add(ctx, NewItem{Name: "B"})
	c.ShoppingList.Toggle(ctx, a.ID)

	assert.Equal(t, 1, c.ShoppingList.ClearCompleted(ctx))
	assert.Zero(t, c.ShoppingList.ClearCompleted(ctx))
	assert.Equal(t, 1, c.ShoppingList.Count())

	assert.True(t, c.ShoppingList.Remove(ctx, "item-2"))
	assert.False(t, c.ShoppingList.Remove(ctx, "item-2"))

	c.ShoppingList.Add(ctx, NewItem{Name: "C"})
	c.ShoppingList.ClearAll(ctx)
	assert.Zero(t, c.ShoppingList.Count())
}
