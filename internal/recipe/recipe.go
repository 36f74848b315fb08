package recipe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Difficulty is an ordinal skill level.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
)

// Difficulties lists every level in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard, Expert}

// Rank orders difficulties: easy=1 < medium < hard < expert=4. Unknown is 0.
func (d Difficulty) Rank() int {
	switch d {
	case Easy:
		return 1
	case Medium:
		return 2
	case Hard:
		return 3
	case Expert:
		return 4
	default:
		return 0
	}
}

// Valid reports whether d is a known level.
func (d Difficulty) Valid() bool {
	return d.Rank() > 0
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name   string `json:"name" yaml:"name"`
	Amount string `json:"amount,omitempty" yaml:"amount,omitempty"`
	Unit   string `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Recipe is immutable from the query engine's perspective.
type Recipe struct {
	ID           string       `json:"id" yaml:"id"`
	Slug         string       `json:"slug" yaml:"slug"`
	Title        string       `json:"title" yaml:"title"`
	Description  string       `json:"description" yaml:"description"`
	Image        string       `json:"image,omitempty" yaml:"image,omitempty"`
	Category     string       `json:"category" yaml:"category"`
	Difficulty   Difficulty   `json:"difficulty" yaml:"difficulty"`
	PrepTime     string       `json:"prepTime" yaml:"prepTime"`
	CookTime     string       `json:"cookTime" yaml:"cookTime"`
	Servings     int          `json:"servings" yaml:"servings"`
	Rating       float64      `json:"rating" yaml:"rating"`
	ReviewCount  int          `json:"reviewCount" yaml:"reviewCount"`
	Tags         []string     `json:"tags" yaml:"tags"`
	AuthorID     string       `json:"authorId" yaml:"authorId"`
	Ingredients  []Ingredient `json:"ingredients,omitempty" yaml:"ingredients,omitempty"`
	Instructions []string     `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	CreatedAt    time.Time    `json:"createdAt" yaml:"createdAt"`
}

// Popularity is rating weighted by review count.
func (r Recipe) Popularity() float64 {
	return r.Rating * float64(r.ReviewCount)
}

// PrepMinutes returns the parsed prep time.
func (r Recipe) PrepMinutes() int {
	return ParseMinutes(r.PrepTime)
}

// HasTag reports whether r carries tag exactly.
func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Author is a recipe author profile.
type Author struct {
	ID        string `json:"id" yaml:"id"`
	Username  string `json:"username" yaml:"username"`
	Name      string `json:"name" yaml:"name"`
	Avatar    string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Bio       string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Followers int    `json:"followers" yaml:"followers"`
}

// Category is a browsable recipe category.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

var durationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|min(?:ute)?s?)`)

// ParseMinutes sums every "<n> unit" quantity in s, so "1h 30min" and
// "1.5 hours" are both 90. Hours are converted to minutes and the total
// rounded. Anything unparseable is 0.
func ParseMinutes(s string) int {
	var total float64
	for _, m := range durationPattern.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.HasPrefix(strings.ToLower(m[2]), "h") {
			n *= 60
		}
		total += n
	}
	return int(math.Round(total))
}

// FormatMinutes renders minutes as "45 min", "2 hours" or "1h 30min".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		if hours > 1 {
			return fmt.Sprintf("%d hours", hours)
		}
		return "1 hour"
	}
	return fmt.Sprintf("%dh %dmin", hours, rest)
}

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_-]+`)
)

// Slugify lowercases s and joins its words with single hyphens.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
