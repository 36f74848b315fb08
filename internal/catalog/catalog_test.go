package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/recipe"
	"github.com/roach88/chefconnect/internal/testutil"
)

var epoch = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestCatalog(t *testing.T) (*Catalog, *testutil.FakeClock) {
	t.Helper()
	fc := testutil.NewFakeClock(epoch)
	c, err := NewSeeded(Options{Clock: fc})
	require.NoError(t, err)
	return c, fc
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed()
	require.NoError(t, err)
	assert.Len(t, seed.Categories, 8)
	assert.Len(t, seed.Authors, 3)
	assert.Len(t, seed.Recipes, 8)

	for _, r := range seed.Recipes {
		assert.NotEmpty(t, r.Slug, r.ID)
		assert.True(t, r.Difficulty.Valid(), r.ID)
		assert.False(t, r.CreatedAt.IsZero(), r.ID)
	}
}

func TestParseSeed_Errors(t *testing.T) {
	_, err := ParseSeed([]byte("recipes: [{title: x}]"))
	assert.ErrorContains(t, err, "no id")

	_, err = ParseSeed([]byte("recipes: {"))
	assert.Error(t, err)

	seed, err := ParseSeed([]byte(`recipes: [{id: "9", title: "Pad Thai"}]`))
	require.NoError(t, err)
	assert.Equal(t, "pad-thai", seed.Recipes[0].Slug)
}

func TestCatalog_List(t *testing.T) {
	c, _ := newTestCatalog(t)
	spec := recipe.NewSpec()
	spec.Category = "desserts"

	res, err := c.List(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalMatched)
	assert.Equal(t, "4", res.Items[0].ID, "eclairs outrank lemon tart on popularity")
}

func TestCatalog_ListInvalidSpec(t *testing.T) {
	c, _ := newTestCatalog(t)
	_, err := c.List(context.Background(), recipe.Spec{Page: 0, PageSize: 12})
	assert.True(t, recipe.IsInvalidQuery(err))
}

func TestCatalog_SimulatedLatency(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	c, err := NewSeeded(Options{Clock: fc, Latency: DefaultLatency()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "1")
		done <- err
	}()
	require.Eventually(t, func() bool { return fc.Pending() == 1 }, time.Second, time.Millisecond)
	fc.Advance(599 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("get returned before its latency elapsed")
	default:
	}
	fc.Advance(time.Millisecond)
	assert.NoError(t, <-done)
}

func TestCatalog_CancelledWhileWaiting(t *testing.T) {
	fc := testutil.NewFakeClock(epoch)
	c, err := NewSeeded(Options{Clock: fc, Latency: DefaultLatency()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.List(ctx, recipe.NewSpec())
		done <- err
	}()
	require.Eventually(t, func() bool { return fc.Pending() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestCatalog_GetByIDOrSlug(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	r, err := c.Get(ctx, "beef-wellington")
	require.NoError(t, err)
	assert.Equal(t, "3", r.ID)

	r, err = c.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Beef Wellington", r.Title)

	_, err = c.Get(ctx, "nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalog_SearchPopularByAuthor(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	res, err := c.Search(ctx, "  PASTRY ", recipe.NewSpec())
	require.NoError(t, err)
	var got []string
	for _, r := range res.Items {
		got = append(got, r.ID)
	}
	assert.ElementsMatch(t, []string{"3", "4"}, got)

	popular, err := c.Popular(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, popular, 6)
	assert.Equal(t, "1", popular[0].ID)

	mine, err := c.ByAuthor(ctx, "2")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestCatalog_AuthorAndCategories(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	a, err := c.Author(ctx, "patisserie_leo")
	require.NoError(t, err)
	assert.Equal(t, "3", a.ID)
	_, err = c.Author(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main-courses", cats[0].ID)
}

func TestCatalog_CreateUpdateDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	created, err := c.Create(ctx, recipe.Recipe{
		Title: "Mushroom Risotto", Category: "vegetarian", Difficulty: recipe.Medium,
		Rating: 5, ReviewCount: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "9", created.ID)
	assert.Equal(t, "mushroom-risotto", created.Slug)
	assert.Equal(t, epoch, created.CreatedAt)
	assert.Zero(t, created.ReviewCount, "new recipes start without reviews")

	updated, err := c.Update(ctx, created.ID, recipe.Recipe{Title: "Wild Mushroom Risotto", Difficulty: recipe.Hard})
	require.NoError(t, err)
	assert.Equal(t, "wild-mushroom-risotto", updated.Slug)
	assert.Equal(t, epoch, updated.CreatedAt)

	got, err := c.Get(ctx, "wild-mushroom-risotto")
	require.NoError(t, err)
	assert.Equal(t, recipe.Hard, got.Difficulty)

	require.NoError(t, c.Delete(ctx, created.ID))
	assert.ErrorIs(t, c.Delete(ctx, created.ID), ErrNotFound)
	_, err = c.Update(ctx, "404", recipe.Recipe{Title: "Anything"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_CreateValidation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCatalog(t)

	_, err := c.Create(ctx, recipe.Recipe{Title: "ab"})
	assert.ErrorIs(t, err, ErrInvalidRecipe)
	_, err = c.Create(ctx, recipe.Recipe{Title: "Valid title", Difficulty: "impossible"})
	assert.ErrorIs(t, err, ErrInvalidRecipe)
}
