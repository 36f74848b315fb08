package userdata

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/persisted"
)

// SearchHistory keeps recent queries, most recent first, de-duplicated
// case-insensitively.
type SearchHistory struct {
	b     *persisted.Binding[[]string]
	limit int
}

// NewSearchHistory binds search history to kv.KeySearchHistory.
func NewSearchHistory(ctx context.Context, store kv.Storage, opts Options) *SearchHistory {
	opts = opts.withDefaults()
	return &SearchHistory{
		b:     bind(ctx, store, kv.KeySearchHistory, []string{}, opts),
		limit: opts.SearchHistoryLimit,
	}
}

// List returns queries, most recent first.
func (h *SearchHistory) List() []string {
	return h.b.Get()
}

// Add records query. Blank queries are ignored and return false.
func (h *SearchHistory) Add(ctx context.Context, query string) bool {
	q := strings.TrimSpace(query)
	if q == "" {
		return false
	}
	h.b.Update(ctx, func(prev []string) []string {
		next := make([]string, 0, len(prev)+1)
		next = append(next, q)
		for _, item := range prev {
			if !strings.EqualFold(item, q) {
				next = append(next, item)
			}
		}
		if len(next) > h.limit {
			next = next[:h.limit]
		}
		return next
	})
	return true
}

// Remove deletes query (exact match).
func (h *SearchHistory) Remove(ctx context.Context, query string) bool {
	return h.b.Modify(ctx, func(prev []string) ([]string, bool) {
		i := slices.Index(prev, query)
		if i < 0 {
			return prev, false
		}
		return slices.Delete(slices.Clone(prev), i, i+1), true
	})
}

// Clear empties the history.
func (h *SearchHistory) Clear(ctx context.Context) {
	h.b.Set(ctx, []string{})
}

// Viewed is a recently viewed recipe.
type Viewed struct {
	RecipeRef
	ViewedAt time.Time `json:"viewedAt"`
}

// RecentlyViewed keeps viewed recipes, most recent first, de-duplicated by id.
type RecentlyViewed struct {
	b     *persisted.Binding[[]Viewed]
	clock clock.Clock
	limit int
}

// NewRecentlyViewed binds the list to kv.KeyRecentlyViewed.
func NewRecentlyViewed(ctx context.Context, store kv.Storage, opts Options) *RecentlyViewed {
	opts = opts.withDefaults()
	return &RecentlyViewed{
		b:     bind(ctx, store, kv.KeyRecentlyViewed, []Viewed{}, opts),
		clock: opts.Clock,
		limit: opts.RecentlyViewedLimit,
	}
}

// List returns views, most recent first.
func (r *RecentlyViewed) List() []Viewed {
	return r.b.Get()
}

// Add records a view of ref stamped with the current time. Refs without
// an id are ignored.
func (r *RecentlyViewed) Add(ctx context.Context, ref RecipeRef) bool {
	if ref.ID == "" {
		return false
	}
	now := r.clock.Now().UTC()
	r.b.Update(ctx, func(prev []Viewed) []Viewed {
		next := make([]Viewed, 0, len(prev)+1)
		next = append(next, Viewed{RecipeRef: ref, ViewedAt: now})
		for _, v := range prev {
			if v.ID != ref.ID {
				next = append(next, v)
			}
		}
		if len(next) > r.limit {
			next = next[:r.limit]
		}
		return next
	})
	return true
}

// Remove deletes recipeID from the list.
func (r *RecentlyViewed) Remove(ctx context.Context, recipeID string) bool {
	return r.b.Modify(ctx, func(prev []Viewed) ([]Viewed, bool) {
		i := slices.IndexFunc(prev, func(v Viewed) bool { return v.ID == recipeID })
		if i < 0 {
			return prev, false
		}
		return slices.Delete(slices.Clone(prev), i, i+1), true
	})
}

// Clear empties the list.
func (r *RecentlyViewed) Clear(ctx context.Context) {
	r.b.Set(ctx, []Viewed{})
}
