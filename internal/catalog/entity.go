// Package catalog holds the entity model and the filter/paginate engine that
// runs over the in-memory dataset.
package catalog

import (
	"sort"
	"strings"
)

const (
	// AllCategories is the category selector that disables category filtering.
	AllCategories = "all"

	// DefaultFetchLimit caps how many entities a catalog load fetches.
	DefaultFetchLimit = 900

	// DefaultPageSize is the number of cards per page.
	DefaultPageSize = 18
)

// CategoryRef is a category tag on an entity.
type CategoryRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Entity is one catalog item. Entities are immutable once fetched.
type Entity struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Categories []CategoryRef `json:"categories"`
	Traits     []string      `json:"traits"`
	ImageURL   string        `json:"image_url,omitempty"`
}

// PrimaryCategory returns the first category tag, or "" for an untagged entity.
func (e Entity) PrimaryCategory() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0].Name
}

// HasCategory reports whether the entity carries the category (exact match).
func (e Entity) HasCategory(name string) bool {
	for _, c := range e.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// matchesTerm reports whether a case-folded term is a substring of the
// entity name or of any trait. term must already be normalized.
func (e Entity) matchesTerm(term string) bool {
	if strings.Contains(strings.ToLower(e.Name), term) {
		return true
	}
	for _, trait := range e.Traits {
		if strings.Contains(strings.ToLower(trait), term) {
			return true
		}
	}
	return false
}

// CategoryDetail is the relation data of one category.
type CategoryDetail struct {
	Name string `json:"name"`
	URL  string `json:"url"`

	// WeakTo lists the categories dealing double damage to this one
	WeakTo []string `json:"weak_to"`
}

// Criteria selects entities from the dataset.
type Criteria struct {
	Term     string `json:"term"`
	Category string `json:"category"`
}

// DefaultCriteria matches every entity.
func DefaultCriteria() Criteria {
	return Criteria{Category: AllCategories}
}

// Normalize trims and case-folds the term and maps an empty category to "all".
func (c Criteria) Normalize() Criteria {
	c.Term = strings.ToLower(strings.TrimSpace(c.Term))
	if c.Category == "" {
		c.Category = AllCategories
	}
	return c
}

// Weaknesses returns the sorted union of WeakTo across details.
func Weaknesses(details []CategoryDetail) []string {
	seen := make(map[string]struct{})
	union := make([]string, 0)
	for _, d := range details {
		for _, name := range d.WeakTo {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			union = append(union, name)
		}
	}
	sort.Strings(union)
	return union
}
