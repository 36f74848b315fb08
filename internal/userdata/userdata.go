// Package userdata implements the persisted per-user collections:
// favorites, search history, recently viewed recipes, the shopping list,
// the meal plan, preferences and settings.
//
// Every collection is a persisted.Binding plus pure update functions;
// none of them talk to the key-value store directly.
package userdata

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
	"github.com/roach88/chefconnect/internal/recipe"
)

// IDGenerator produces unique item ids.
type IDGenerator interface {
	Generate() string
}

// ULIDs generates lexicographically sortable ids.
type ULIDs struct{}

// Generate returns a new ULID string.
func (ULIDs) Generate() string {
	return ulid.Make().String()
}

// Default collection limits.
const (
	DefaultFavoritesLimit      = 100
	DefaultSearchHistoryLimit  = 10
	DefaultRecentlyViewedLimit = 20
)

// Options configures Open.
type Options struct {
	Clock               clock.Clock
	IDs                 IDGenerator
	Logger              *slog.Logger
	FavoritesLimit      int
	SearchHistoryLimit  int
	RecentlyViewedLimit int
}

func (o Options) withDefaults() Options {
	o.Clock = clock.Or(o.Clock)
	if o.IDs == nil {
		o.IDs = ULIDs{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.FavoritesLimit <= 0 {
		o.FavoritesLimit = DefaultFavoritesLimit
	}
	if o.SearchHistoryLimit <= 0 {
		o.SearchHistoryLimit = DefaultSearchHistoryLimit
	}
	if o.RecentlyViewedLimit <= 0 {
		o.RecentlyViewedLimit = DefaultRecentlyViewedLimit
	}
	return o
}

// Collections bundles every collection bound to one store.
type Collections struct {
	Favorites      *Favorites
	SearchHistory  *SearchHistory
	RecentlyViewed *RecentlyViewed
	ShoppingList   *ShoppingList
	MealPlan       *MealPlan
	Preferences    *PreferencesStore
	Settings       *SettingsStore
}

// Open binds every collection to its well-known key in store.
func Open(ctx context.Context, store kv.Storage, opts Options) *Collections {
	opts = opts.withDefaults()
	return &Collections{
		Favorites:      NewFavorites(ctx, store, opts),
		SearchHistory:  NewSearchHistory(ctx, store, opts),
		RecentlyViewed: NewRecentlyViewed(ctx, store, opts),
		ShoppingList:   NewShoppingList(ctx, store, opts),
		MealPlan:       NewMealPlan(ctx, store, opts),
		Preferences:    NewPreferences(ctx, store, opts),
		Settings:       NewSettings(ctx, store, opts),
	}
}

// Close stops every binding from applying external changes.
func (c *Collections) Close() {
	c.Favorites.b.Close()
	c.SearchHistory.b.Close()
	c.RecentlyViewed.b.Close()
	c.ShoppingList.b.Close()
	c.MealPlan.b.Close()
	c.Preferences.b.Close()
	c.Settings.b.Close()
}

func bind[T any](ctx context.Context, store kv.Storage, key string, initial T, opts Options) *persisted.Binding[T] {
	return persisted.Bind(ctx, store, key, initial, persisted.WithLogger(opts.Logger))
}

// RecipeRef is the summary of a recipe kept in user collections.
type RecipeRef struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Image    string  `json:"image,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
	AuthorID string  `json:"authorId,omitempty"`
}

// RefOf summarises r.
func RefOf(r recipe.Recipe) RecipeRef {
	return RecipeRef{ID: r.ID, Title: r.Title, Image: r.Image, Rating: r.Rating, AuthorID: r.AuthorID}
}
