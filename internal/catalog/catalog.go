package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roach88/chefconnect/internal/clock"
	"github.com/roach88/chefconnect/internal/recipe"
)

// Latency is the simulated delay per operation kind.
type Latency struct {
	List    time.Duration `yaml:"list"`
	Get     time.Duration `yaml:"get"`
	Popular time.Duration `yaml:"popular"`
	Mutate  time.Duration `yaml:"mutate"`
}

// DefaultLatency mirrors a slow mobile connection.
func DefaultLatency() Latency {
	return Latency{
		List:    800 * time.Millisecond,
		Get:     600 * time.Millisecond,
		Popular: 500 * time.Millisecond,
		Mutate:  500 * time.Millisecond,
	}
}

// Options configures a Catalog.
type Options struct {
	Clock   clock.Clock
	Latency Latency
	Logger  *slog.Logger
}

// Catalog is an in-memory Source. Every call waits out its simulated
// latency first and honours ctx cancellation while waiting.
//
// Thread-safety: Catalog is safe for concurrent use.
type Catalog struct {
	clock   clock.Clock
	latency Latency
	log     *slog.Logger
	ids     *clock.Sequence

	mu         sync.RWMutex
	recipes    []recipe.Recipe
	authors    []recipe.Author
	categories []recipe.Category
}

var _ Source = (*Catalog)(nil)

// New creates a catalog over seed.
func New(seed Seed, opts Options) *Catalog {
	c := &Catalog{
		clock:      clock.Or(opts.Clock),
		latency:    opts.Latency,
		log:        opts.Logger,
		recipes:    slices.Clone(seed.Recipes),
		authors:    slices.Clone(seed.Authors),
		categories: slices.Clone(seed.Categories),
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	var maxID int64
	for _, r := range c.recipes {
		if n, err := strconv.ParseInt(r.ID, 10, 64); err == nil && n > maxID {
			maxID = n
		}
	}
	c.ids = clock.NewSequenceAt(maxID)
	return c
}

// NewSeeded creates a catalog over the embedded dataset.
func NewSeeded(opts Options) (*Catalog, error) {
	seed, err := LoadSeed()
	if err != nil {
		return nil, err
	}
	return New(seed, opts), nil
}

func (c *Catalog) wait(ctx context.Context, d time.Duration) error {
	return clock.Sleep(ctx, c.clock, d)
}

func (c *Catalog) snapshot() []recipe.Recipe {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.recipes)
}

// List runs spec against the full collection.
func (c *Catalog) List(ctx context.Context, spec recipe.Spec) (recipe.Result, error) {
	if err := c.wait(ctx, c.latency.List); err != nil {
		return recipe.Result{}, err
	}
	return recipe.Query(c.snapshot(), spec)
}

// Search is List with spec.SearchText replaced by query.
func (c *Catalog) Search(ctx context.Context, query string, spec recipe.Spec) (recipe.Result, error) {
	spec.SearchText = strings.TrimSpace(query)
	return c.List(ctx, spec)
}

// Get returns the recipe with the given id or slug.
func (c *Catalog) Get(ctx context.Context, idOrSlug string) (recipe.Recipe, error) {
	if err := c.wait(ctx, c.latency.Get); err != nil {
		return recipe.Recipe{}, err
	}
	r, ok := recipe.Find(c.snapshot(), idOrSlug)
	if !ok {
		return recipe.Recipe{}, fmt.Errorf("recipe %q: %w", idOrSlug, ErrNotFound)
	}
	return r, nil
}

// Popular returns up to limit recipes by popularity. limit <= 0 means 6.
func (c *Catalog) Popular(ctx context.Context, limit int) ([]recipe.Recipe, error) {
	if err := c.wait(ctx, c.latency.Popular); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 6
	}
	return recipe.Popular(c.snapshot(), limit), nil
}

// ByAuthor returns the recipes written by authorID.
func (c *Catalog) ByAuthor(ctx context.Context, authorID string) ([]recipe.Recipe, error) {
	if err := c.wait(ctx, c.latency.List); err != nil {
		return nil, err
	}
	return recipe.ByAuthor(c.snapshot(), authorID), nil
}

// Author returns an author profile.
func (c *Catalog) Author(ctx context.Context, id string) (recipe.Author, error) {
	if err := c.wait(ctx, c.latency.Get); err != nil {
		return recipe.Author{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.authors {
		if a.ID == id || a.Username == id {
			return a, nil
		}
	}
	return recipe.Author{}, fmt.Errorf("author %q: %w", id, ErrNotFound)
}

// Categories returns every category.
func (c *Catalog) Categories(ctx context.Context) ([]recipe.Category, error) {
	if err := c.wait(ctx, c.latency.Get); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.categories), nil
}

// Create assigns an id, slug and creation time and appends r.
func (c *Catalog) Create(ctx context.Context, r recipe.Recipe) (recipe.Recipe, error) {
	if err := validate(r); err != nil {
		return recipe.Recipe{}, err
	}
	if err := c.wait(ctx, c.latency.Mutate); err != nil {
		return recipe.Recipe{}, err
	}

	r.ID = strconv.FormatInt(c.ids.Next(), 10)
	r.Slug = recipe.Slugify(r.Title)
	r.CreatedAt = c.clock.Now().UTC()
	r.Rating, r.ReviewCount = 0, 0

	c.mu.Lock()
	c.recipes = append(c.recipes, r)
	c.mu.Unlock()

	c.log.Info("catalog: recipe created", "id", r.ID, "slug", r.Slug)
	return r, nil
}

// Update replaces the editable fields of recipe id. Identity, creation
// time and review statistics are preserved.
func (c *Catalog) Update(ctx context.Context, id string, r recipe.Recipe) (recipe.Recipe, error) {
	if err := validate(r); err != nil {
		return recipe.Recipe{}, err
	}
	if err := c.wait(ctx, c.latency.Mutate); err != nil {
		return recipe.Recipe{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.recipes, func(x recipe.Recipe) bool { return x.ID == id })
	if i < 0 {
		return recipe.Recipe{}, fmt.Errorf("recipe %q: %w", id, ErrNotFound)
	}
	prev := c.recipes[i]
	r.ID = prev.ID
	r.Slug = recipe.Slugify(r.Title)
	r.CreatedAt = prev.CreatedAt
	r.Rating, r.ReviewCount = prev.Rating, prev.ReviewCount
	c.recipes[i] = r
	return r, nil
}

// Delete removes recipe id.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.wait(ctx, c.latency.Mutate); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.recipes, func(x recipe.Recipe) bool { return x.ID == id })
	if i < 0 {
		return fmt.Errorf("recipe %q: %w", id, ErrNotFound)
	}
	c.recipes = slices.Delete(c.recipes, i, i+1)
	return nil
}

func validate(r recipe.Recipe) error {
	title := strings.TrimSpace(r.Title)
	if n := len([]rune(title)); n < 3 || n > 100 {
		return fmt.Errorf("%w: title must be between 3-100 characters", ErrInvalidRecipe)
	}
	if r.Difficulty != "" && !r.Difficulty.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidRecipe, r.Difficulty)
	}
	if r.Servings < 0 {
		return fmt.Errorf("%w: servings must be positive", ErrInvalidRecipe)
	}
	return nil
}
