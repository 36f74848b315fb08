package userdata

import (
	"context"
	"slices"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
)

// Favorite is a favorited recipe.
type Favorite struct {
	RecipeRef
	AddedAt time.Time `json:"addedAt"`
}

// Favorites keeps favorited recipes in insertion order. Past the limit the
// oldest favorite is evicted.
type Favorites struct {
	b     *persisted.Binding[[]Favorite]
	clock clock.Clock
	limit int
}

// NewFavorites binds favorites to kv.KeyFavorites.
func NewFavorites(ctx context.Context, store kv.Storage, opts Options) *Favorites {
	opts = opts.withDefaults()
	return &Favorites{
		b:     bind(ctx, store, kv.KeyFavorites, []Favorite{}, opts),
		clock: opts.Clock,
		limit: opts.FavoritesLimit,
	}
}

// List returns favorites, oldest first.
func (f *Favorites) List() []Favorite {
	return f.b.Get()
}

// Count returns the number of favorites.
func (f *Favorites) Count() int {
	return len(f.b.Get())
}

// IsFavorite reports whether recipeID is a favorite.
func (f *Favorites) IsFavorite(recipeID string) bool {
	return indexFavorite(f.b.Get(), recipeID) >= 0
}

// Add favorites ref. Returns false, changing nothing, if already present.
func (f *Favorites) Add(ctx context.Context, ref RecipeRef) bool {
	now := f.clock.Now().UTC()
	return f.b.Modify(ctx, func(prev []Favorite) ([]Favorite, bool) {
		if indexFavorite(prev, ref.ID) >= 0 {
			return prev, false
		}
		next := append(slices.Clone(prev), Favorite{RecipeRef: ref, AddedAt: now})
		if len(next) > f.limit {
			next = next[len(next)-f.limit:]
		}
		return next, true
	})
}

// Remove unfavorites recipeID. Returns false if it was not a favorite.
func (f *Favorites) Remove(ctx context.Context, recipeID string) bool {
	return f.b.Modify(ctx, func(prev []Favorite) ([]Favorite, bool) {
		i := indexFavorite(prev, recipeID)
		if i < 0 {
			return prev, false
		}
		return slices.Delete(slices.Clone(prev), i, i+1), true
	})
}

// Toggle adds or removes ref and reports whether it is now a favorite.
func (f *Favorites) Toggle(ctx context.Context, ref RecipeRef) bool {
	if f.Remove(ctx, ref.ID) {
		return false
	}
	f.Add(ctx, ref)
	return true
}

// Watch observes changes.
func (f *Favorites) Watch(fn func([]Favorite, persisted.Source)) func() {
	return f.b.Watch(fn)
}

func indexFavorite(list []Favorite, id string) int {
	return slices.IndexFunc(list, func(x Favorite) bool { return x.ID == id })
}
