package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/chefconnect/internal/recipe"
)

//go:embed seed.yaml
var seedYAML []byte

// Seed is the initial dataset.
type Seed struct {
	Categories []recipe.Category `yaml:"categories"`
	Authors    []recipe.Author   `yaml:"authors"`
	Recipes    []recipe.Recipe   `yaml:"recipes"`
}

// LoadSeed parses the embedded dataset.
func LoadSeed() (Seed, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed parses a YAML dataset.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	for i, r := range s.Recipes {
		if r.ID == "" {
			return Seed{}, fmt.Errorf("parse seed: recipe %d has no id", i)
		}
		if r.Slug == "" {
			s.Recipes[i].Slug = recipe.Slugify(r.Title)
		}
	}
	return s, nil
}
