package recipe

import (
	"strings"

	"golang.org/x/text/cases"
)

// Predicate is a recipe filter.
//
// This is a sealed interface - only types in this package implement it,
// so the matcher's type switch is exhaustive.
type Predicate interface {
	predicateNode()
}

// TextMatch keeps recipes whose title, description or any tag contains
// Text, compared case-folded.
type TextMatch struct {
	Text string
}

// CategoryEquals keeps recipes in exactly this category.
type CategoryEquals struct {
	Category string
}

// DifficultyEquals keeps recipes at exactly this difficulty.
type DifficultyEquals struct {
	Difficulty Difficulty
}

// AnyTag keeps recipes carrying at least one of Tags.
type AnyTag struct {
	Tags []string
}

func (TextMatch) predicateNode()        {}
func (CategoryEquals) predicateNode()   {}
func (DifficultyEquals) predicateNode() {}
func (AnyTag) predicateNode()           {}

// matcher evaluates predicates. It owns a case folder, which is not safe
// for concurrent use, so each Query builds its own.
type matcher struct {
	fold cases.Caser
}

func newMatcher() *matcher {
	return &matcher{fold: cases.Fold()}
}

func (m *matcher) folded(s string) string {
	return m.fold.String(s)
}

func (m *matcher) matches(p Predicate, r Recipe) bool {
	switch p := p.(type) {
	case TextMatch:
		needle := m.folded(p.Text)
		if strings.Contains(m.folded(r.Title), needle) || strings.Contains(m.folded(r.Description), needle) {
			return true
		}
		for _, tag := range r.Tags {
			if strings.Contains(m.folded(tag), needle) {
				return true
			}
		}
		return false
	case CategoryEquals:
		return r.Category == p.Category
	case DifficultyEquals:
		return r.Difficulty == p.Difficulty
	case AnyTag:
		for _, tag := range p.Tags {
			if r.HasTag(tag) {
				return true
			}
		}
		return false
	default:
		panic("recipe: unknown predicate type")
	}
}

// Filter returns the recipes satisfying every predicate, in input order.
func Filter(all []Recipe, preds ...Predicate) []Recipe {
	m := newMatcher()
	out := make([]Recipe, 0, len(all))
next:
	for _, r := range all {
		for _, p := range preds {
			if !m.matches(p, r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}
