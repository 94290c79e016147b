// Package view turns a session snapshot into a declarative page description
// and renders that description as HTML.
package view

import (
	"fmt"
	"strings"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/internal/catalog"
)

// User-facing messages.
const (
	MsgCatalogLoading = "Loading the full catalog (this may take a few seconds)..."
	MsgCatalogError   = "Could not load the catalog from the API. Check your connection."
	MsgNoResults      = "No entities match the selected filters."
	MsgDetailLoading  = "Loading more information..."
	MsgDetailError    = "Could not load additional information."
	MsgNoWeaknesses   = "No specific weaknesses."
)

// Option is one entry of the category selector.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Filters describes the search form.
type Filters struct {
	Term     string
	Category string
	Options  []Option
}

// Card is one entity in the grid.
type Card struct {
	ID       int
	Name     string
	Category string
	ImageURL string
	ImageAlt string
}

// Grid is the card area. Exactly one of Loading, Error, Empty or Cards applies.
type Grid struct {
	Loading bool
	Error   bool
	Empty   bool
	Message string
	Cards   []Card
}

// Pagination describes the page navigation panel.
type Pagination struct {
	Visible      bool
	Label        string
	Page         int
	TotalPages   int
	PrevDisabled bool
	NextDisabled bool
}

// Detail describes the detail overlay.
type Detail struct {
	Open    bool
	Loading bool
	Error   bool
	Message string

	ID           int
	Name         string
	ImageURL     string
	ImageAlt     string
	Traits       []string
	Weaknesses   []string
	NoWeaknesses bool
}

// Page is the complete view of one session.
type Page struct {
	Filters    Filters
	Grid       Grid
	Pagination Pagination
	Detail     Detail
}

// Render builds the view of a snapshot. It has no side effects.
func Render(snap app.Snapshot) Page {
	return Page{
		Filters:    renderFilters(snap),
		Grid:       renderGrid(snap),
		Pagination: renderPagination(snap.Status, snap.Result),
		Detail:     renderDetail(snap.Detail),
	}
}

func renderFilters(snap app.Snapshot) Filters {
	selected := snap.Criteria.Category
	if selected == "" {
		selected = catalog.AllCategories
	}

	options := make([]Option, 0, len(snap.Taxonomy)+1)
	options = append(options, Option{
		Value:    catalog.AllCategories,
		Label:    "All",
		Selected: selected == catalog.AllCategories,
	})
	for _, name := range snap.Taxonomy {
		options = append(options, Option{
			Value:    name,
			Label:    Capitalize(name),
			Selected: selected == name,
		})
	}

	return Filters{
		Term:     snap.Criteria.Term,
		Category: selected,
		Options:  options,
	}
}

func renderGrid(snap app.Snapshot) Grid {
	switch {
	case snap.Status == app.StatusLoading:
		return Grid{Loading: true, Message: MsgCatalogLoading}
	case snap.Status == app.StatusFailed:
		return Grid{Error: true, Message: MsgCatalogError}
	case len(snap.Result.Items) == 0:
		return Grid{Empty: true, Message: MsgNoResults}
	}

	cards := make([]Card, 0, len(snap.Result.Items))
	for _, e := range snap.Result.Items {
		cards = append(cards, Card{
			ID:       e.ID,
			Name:     e.Name,
			Category: e.PrimaryCategory(),
			ImageURL: e.ImageURL,
			ImageAlt: imageAlt(e.Name),
		})
	}
	return Grid{Cards: cards}
}

func renderPagination(status app.Status, r catalog.Result) Pagination {
	return Pagination{
		// Controls exist only once a catalog is loaded. A single full page
		// needs no navigation; an empty result shows it disabled.
		Visible:      status == app.StatusReady && (r.TotalItems > r.PageSize || r.TotalItems == 0),
		Label:        fmt.Sprintf("Page %d of %d", r.Page, r.TotalPages),
		Page:         r.Page,
		TotalPages:   r.TotalPages,
		PrevDisabled: r.Page <= 1,
		NextDisabled: r.Page >= r.TotalPages || r.TotalPages == 0,
	}
}

func renderDetail(d app.DetailState) Detail {
	if !d.Open {
		return Detail{}
	}
	if d.Loading {
		return Detail{Open: true, Loading: true, Message: MsgDetailLoading}
	}
	if d.Err != nil {
		return Detail{Open: true, Error: true, Message: MsgDetailError}
	}

	weaknesses := catalog.Weaknesses(d.Relations)
	detail := Detail{
		Open:         true,
		ID:           d.Entity.ID,
		Name:         d.Entity.Name,
		ImageURL:     d.Entity.ImageURL,
		ImageAlt:     imageAlt(d.Entity.Name),
		Traits:       append([]string{}, d.Entity.Traits...),
		Weaknesses:   weaknesses,
		NoWeaknesses: len(weaknesses) == 0,
	}
	if detail.NoWeaknesses {
		detail.Message = MsgNoWeaknesses
	}
	return detail
}

// Capitalize upper-cases the first letter of a category name for display.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func imageAlt(name string) string {
	return "Image of " + name
}
