package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog lists the grocery terms scraped by cmd/scrape, grouped by category.
//
//	zip: "45202"
//	categories:
//	  protein: [tofu, "chicken breast"]
//	  dairy: [milk]
type Catalog struct {
	Zip        string              `yaml:"zip"`
	Categories map[string][]string `yaml:"categories"`
	Terms      []string            `yaml:"terms"`
}

// LoadCatalog reads a scrape catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML scrape catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return &c, nil
}

// AllTerms returns the flat, de-duplicated list of terms in a stable order:
// loose terms first, then categories sorted by name.
func (c *Catalog) AllTerms() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(term string) {
		term = strings.TrimSpace(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, term)
	}

	for _, t := range c.Terms {
		add(t)
	}
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, t := range c.Categories[name] {
			add(t)
		}
	}
	return out
}
