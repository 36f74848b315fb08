package recipe

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the result ordering.
type SortKey string

const (
	SortPopular      SortKey = "popular"
	SortNewest       SortKey = "newest"
	SortOldest       SortKey = "oldest"
	SortRating       SortKey = "rating"
	SortAlphabetical SortKey = "alphabetical"
	SortPrepTime     SortKey = "prepTime"
)

// SortKeys lists every supported key.
var SortKeys = []SortKey{SortPopular, SortNewest, SortOldest, SortRating, SortAlphabetical, SortPrepTime}

// ParseSortKey accepts any SortKey value plus "prep-time". Empty means popular.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.TrimSpace(s) {
	case "", string(SortPopular):
		return SortPopular, nil
	case "prep-time", string(SortPrepTime):
		return SortPrepTime, nil
	}
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", invalid("sortKey", "unknown sort key %q", s)
}

// Defaults for Spec.
const (
	DefaultPage     = 1
	DefaultPageSize = 12
)

// Spec describes which recipes to return and how.
// Empty optional fields do not filter.
type Spec struct {
	SearchText string     `json:"search,omitempty"`
	Category   string     `json:"category,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	SortKey    SortKey    `json:"sortBy,omitempty"`
	Page       int        `json:"page"`
	PageSize   int        `json:"limit"`
}

// NewSpec returns a Spec on the first page with the default page size.
func NewSpec() Spec {
	return Spec{SortKey: SortPopular, Page: DefaultPage, PageSize: DefaultPageSize}
}

// Validate rejects contract violations. It does not clamp.
func (s Spec) Validate() error {
	if s.Page <= 0 {
		return invalid("page", "page must be >= 1, got %d", s.Page)
	}
	if s.PageSize <= 0 {
		return invalid("pageSize", "page size must be >= 1, got %d", s.PageSize)
	}
	if s.SortKey != "" {
		if _, err := ParseSortKey(string(s.SortKey)); err != nil {
			return err
		}
	}
	return nil
}

// Predicates returns the filters implied by s in pipeline order.
func (s Spec) Predicates() []Predicate {
	var preds []Predicate
	if s.SearchText != "" {
		preds = append(preds, TextMatch{Text: s.SearchText})
	}
	if s.Category != "" {
		preds = append(preds, CategoryEquals{Category: s.Category})
	}
	if s.Difficulty != "" {
		preds = append(preds, DifficultyEquals{Difficulty: s.Difficulty})
	}
	if len(s.Tags) > 0 {
		preds = append(preds, AnyTag{Tags: s.Tags})
	}
	return preds
}

// Result is one page of matches.
type Result struct {
	Items        []Recipe `json:"items"`
	Page         int      `json:"page"`
	PageSize     int      `json:"pageSize"`
	TotalMatched int      `json:"total"`
	TotalPages   int      `json:"totalPages"`
}

// Query filters, sorts and paginates all according to spec.
// A page beyond the last yields empty Items with correct totals.
func Query(all []Recipe, spec Spec) (Result, error) {
	if err := spec.Validate(); err != nil {
		return Result{}, err
	}
	key, _ := ParseSortKey(string(spec.SortKey))

	matched := Filter(all, spec.Predicates()...)
	Sort(matched, key)

	total := len(matched)
	res := Result{
		Items:        []Recipe{},
		Page:         spec.Page,
		PageSize:     spec.PageSize,
		TotalMatched: total,
		TotalPages:   pageCount(total, spec.PageSize),
	}
	if spec.Page > res.TotalPages {
		return res, nil
	}
	// Page <= TotalPages bounds start by total, so nothing overflows.
	start := (spec.Page - 1) * spec.PageSize
	end := start + min(spec.PageSize, total-start)
	res.Items = matched[start:end]
	return res, nil
}

// pageCount is ceil(total/size) without the overflow of total+size-1.
func pageCount(total, size int) int {
	n := total / size
	if total%size != 0 {
		n++
	}
	return n
}

// Sort orders recipes in place by key. The sort is stable.
func Sort(recipes []Recipe, key SortKey) {
	switch key {
	case SortNewest:
		slices.SortStableFunc(recipes, func(a, b Recipe) int { return b.CreatedAt.Compare(a.CreatedAt) })
	case SortOldest:
		slices.SortStableFunc(recipes, func(a, b Recipe) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case SortRating:
		slices.SortStableFunc(recipes, func(a, b Recipe) int { return cmp.Compare(b.Rating, a.Rating) })
	case SortAlphabetical:
		col := collate.New(language.English)
		slices.SortStableFunc(recipes, func(a, b Recipe) int { return col.CompareString(a.Title, b.Title) })
	case SortPrepTime:
		slices.SortStableFunc(recipes, func(a, b Recipe) int { return cmp.Compare(a.PrepMinutes(), b.PrepMinutes()) })
	default:
		slices.SortStableFunc(recipes, func(a, b Recipe) int { return cmp.Compare(b.Popularity(), a.Popularity()) })
	}
}

// Popular returns up to limit recipes by popularity.
func Popular(all []Recipe, limit int) []Recipe {
	sorted := slices.Clone(all)
	Sort(sorted, SortPopular)
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Find returns the recipe whose ID or slug equals idOrSlug.
func Find(all []Recipe, idOrSlug string) (Recipe, bool) {
	for _, r := range all {
		if r.ID == idOrSlug || (r.Slug != "" && r.Slug == idOrSlug) {
			return r, true
		}
	}
	return Recipe{}, false
}

// ByAuthor returns recipes written by authorID, in collection order.
func ByAuthor(all []Recipe, authorID string) []Recipe {
	var out []Recipe
	for _, r := range all {
		if r.AuthorID == authorID {
			out = append(out, r)
		}
	}
	return out
}
