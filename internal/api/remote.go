package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/roach88/chefconnect/internal/catalog"
	"github.com/roach88/chefconnect/internal/recipe"
)

// Error codes sent in error bodies by the recipe server.
const (
	CodeInvalidQuery  = string(recipe.ErrCodeInvalidQuery)
	CodeInvalidRecipe = "INVALID_RECIPE"
	CodeNotFound      = "NOT_FOUND"
)

// Paths of the recipe backend.
const (
	PathRecipes    = "/recipes"
	PathSearch     = "/recipes/search"
	PathPopular    = "/recipes/popular"
	PathCategories = "/categories"
)

// RecipePath is the path of one recipe.
func RecipePath(id string) string { return "/recipes/" + url.PathEscape(id) }

// UserPath is the path of one user.
func UserPath(id string) string { return "/users/" + url.PathEscape(id) }

// UserRecipesPath lists a user's recipes.
func UserRecipesPath(id string) string { return UserPath(id) + "/recipes" }

// CategoryRecipesPath lists a category's recipes.
func CategoryRecipesPath(id string) string {
	return PathCategories + "/" + url.PathEscape(id) + "/recipes"
}

// Remote is a catalog.Source backed by the REST API. Reads are retried
// per the client's policy; writes are attempted once.
type Remote struct {
	c *Client
}

var _ catalog.Source = (*Remote)(nil)

// NewRemote wraps c.
func NewRemote(c *Client) *Remote {
	return &Remote{c: c}
}

func get[T any](ctx context.Context, r *Remote, path string, query url.Values) (T, error) {
	return Retry(ctx, r.c.clock, r.c.retry, func(ctx context.Context) (T, error) {
		var out T
		err := r.c.Get(ctx, path, query, &out)
		return out, err
	})
}

// List fetches one page of recipes.
func (r *Remote) List(ctx context.Context, spec recipe.Spec) (recipe.Result, error) {
	res, err := get[recipe.Result](ctx, r, PathRecipes, spec.Values())
	return res, mapError(err, "list recipes")
}

// Search fetches one page of recipes matching query.
func (r *Remote) Search(ctx context.Context, query string, spec recipe.Spec) (recipe.Result, error) {
	spec.SearchText = ""
	v := spec.Values()
	v.Set("q", query)
	res, err := get[recipe.Result](ctx, r, PathSearch, v)
	return res, mapError(err, "search recipes")
}

// Get fetches one recipe by id or slug.
func (r *Remote) Get(ctx context.Context, idOrSlug string) (recipe.Recipe, error) {
	rec, err := get[recipe.Recipe](ctx, r, RecipePath(idOrSlug), nil)
	return rec, mapError(err, fmt.Sprintf("recipe %q", idOrSlug))
}

// Popular fetches the most popular recipes.
func (r *Remote) Popular(ctx context.Context, limit int) ([]recipe.Recipe, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	recs, err := get[[]recipe.Recipe](ctx, r, PathPopular, q)
	return recs, mapError(err, "popular recipes")
}

// ByAuthor fetches a user's recipes.
func (r *Remote) ByAuthor(ctx context.Context, authorID string) ([]recipe.Recipe, error) {
	recs, err := get[[]recipe.Recipe](ctx, r, UserRecipesPath(authorID), nil)
	return recs, mapError(err, fmt.Sprintf("author %q recipes", authorID))
}

// Author fetches a user profile.
func (r *Remote) Author(ctx context.Context, id string) (recipe.Author, error) {
	a, err := get[recipe.Author](ctx, r, UserPath(id), nil)
	return a, mapError(err, fmt.Sprintf("author %q", id))
}

// Categories fetches every category.
func (r *Remote) Categories(ctx context.Context) ([]recipe.Category, error) {
	cats, err := get[[]recipe.Category](ctx, r, PathCategories, nil)
	return cats, mapError(err, "categories")
}

// CategoryRecipes fetches one page of a category's recipes.
func (r *Remote) CategoryRecipes(ctx context.Context, id string, spec recipe.Spec) (recipe.Result, error) {
	spec.Category = ""
	res, err := get[recipe.Result](ctx, r, CategoryRecipesPath(id), spec.Values())
	return res, mapError(err, fmt.Sprintf("category %q recipes", id))
}

// Create stores a new recipe.
func (r *Remote) Create(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	var out recipe.Recipe
	err := r.c.Post(ctx, PathRecipes, rec, &out)
	return out, mapError(err, "create recipe")
}

// Update replaces recipe id.
func (r *Remote) Update(ctx context.Context, id string, rec recipe.Recipe) (recipe.Recipe, error) {
	var out recipe.Recipe
	err := r.c.Put(ctx, RecipePath(id), rec, &out)
	return out, mapError(err, fmt.Sprintf("update recipe %q", id))
}

// Delete removes recipe id.
func (r *Remote) Delete(ctx context.Context, id string) error {
	return mapError(r.c.Delete(ctx, RecipePath(id)), fmt.Sprintf("delete recipe %q", id))
}

// mapError turns server error codes back into the errors a local
// catalog.Source returns, keeping the APIError in the chain.
func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	ae, ok := AsAPIError(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case ae.Code == CodeInvalidQuery:
		return fmt.Errorf("%s: %w", op, &recipe.QueryError{Code: recipe.ErrCodeInvalidQuery, Message: ae.Message})
	case ae.Code == CodeInvalidRecipe:
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrInvalidRecipe, ae)
	case ae.IsNotFound():
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrNotFound, ae)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsNotFoundErr reports whether err means the resource does not exist,
// for either a local or a remote source.
func IsNotFoundErr(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || IsNotFound(err)
}
