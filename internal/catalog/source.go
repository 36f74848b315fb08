// Package catalog defines the recipe data source and provides an
// in-memory implementation over an embedded seed dataset, with simulated
// network latency.
package catalog

import (
	"context"
	"errors"

	"github.com/roach88/chefconnect/internal/recipe"
)

// ErrNotFound is returned when a recipe, author or category does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidRecipe is returned when a recipe fails validation on create/update.
var ErrInvalidRecipe = errors.New("invalid recipe")

// Source is the recipe data source. Implementations: *Catalog (in-memory)
// and *api.Remote (REST).
type Source interface {
	List(ctx context.Context, spec recipe.Spec) (recipe.Result, error)
	Get(ctx context.Context, idOrSlug string) (recipe.Recipe, error)
	Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error)
	Update(ctx context.Context, id string, r recipe.Recipe) (recipe.Recipe, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, spec recipe.Spec) (recipe.Result, error)
	Popular(ctx context.Context, limit int) ([]recipe.Recipe, error)
	ByAuthor(ctx context.Context, authorID string) ([]recipe.Recipe, error)
	Author(ctx context.Context, id string) (recipe.Author, error)
	Categories(ctx context.Context) ([]recipe.Category, error)
}
