// Package loader fetches the taxonomy, the catalog and per-entity category
// relations from the catalog API.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/pkg/client"
	"github.com/Sternrassler/catalog-viewer/pkg/fanout"
	"github.com/Sternrassler/catalog-viewer/pkg/logging"
	"github.com/rs/zerolog"
)

const (
	// CatalogPolicy: one failing detail fetch fails the whole catalog load.
	CatalogPolicy = fanout.PolicyAllOrNothing

	// RelationsPolicy: a failing category degrades to empty relations.
	RelationsPolicy = fanout.PolicyDegrade
)

// ErrRelationsUnavailable is returned when no category relation could be fetched.
var ErrRelationsUnavailable = errors.New("category relations unavailable")

// excludedCategories are pseudo-categories that cannot be selected in a filter.
var excludedCategories = map[string]bool{
	"unknown": true,
	"shadow":  true,
}

// API is the subset of the catalog API client the loader needs.
type API interface {
	GetJSON(ctx context.Context, ref string, v any) error
}

// Loader fetches catalog data.
type Loader struct {
	api    API
	fanout fanout.Config
	logger zerolog.Logger
}

// New creates a loader. fanoutCfg bounds the width of every fan-out.
func New(api API, fanoutCfg fanout.Config) *Loader {
	return &Loader{
		api:    api,
		fanout: fanoutCfg,
		logger: logging.NewLogger("loader"),
	}
}

// LoadTaxonomy returns the selectable category names in API order. It never
// fails: errors are logged and yield an empty taxonomy.
func (l *Loader) LoadTaxonomy(ctx context.Context) []string {
	var list resourceList
	if err := l.api.GetJSON(ctx, "type/", &list); err != nil {
		l.logger.Warn().
			Err(err).
			Str("error_class", string(client.ClassOf(err))).
			Msg("Taxonomy load failed, only the default filter is available")
		return []string{}
	}

	names := make([]string, 0, len(list.Results))
	for _, r := range list.Results {
		if r.Name == "" || excludedCategories[r.Name] {
			continue
		}
		names = append(names, r.Name)
	}

	l.logger.Info().Int("count", len(names)).Msg("Taxonomy loaded")
	return names
}

// LoadCatalog fetches up to limit summaries and the detail of each one.
// Entities come back in summary order. Any failure returns one error and no
// entities; a failing detail fetch is reported as a *fanout.BatchError.
func (l *Loader) LoadCatalog(ctx context.Context, limit int) ([]catalog.Entity, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("catalog limit must be positive (got %d)", limit)
	}

	start := time.Now()

	var list resourceList
	if err := l.api.GetJSON(ctx, fmt.Sprintf("pokemon?limit=%d", limit), &list); err != nil {
		l.logger.Error().
			Err(err).
			Str("error_class", string(client.ClassOf(err))).
			Msg("Catalog summary load failed")
		return nil, fmt.Errorf("load catalog summaries: %w", err)
	}

	summaries := list.Results
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}

	entities, err := fanout.All(ctx, l.fanout, summaries, func(ctx context.Context, s namedResource) (catalog.Entity, error) {
		var detail entityDetail
		if err := l.api.GetJSON(ctx, s.URL, &detail); err != nil {
			return catalog.Entity{}, fmt.Errorf("fetch %s: %w", s.Name, err)
		}
		return detail.toEntity(), nil
	})
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("policy", string(CatalogPolicy)).
			Str("error_class", string(client.ClassOf(err))).
			Int("summaries", len(summaries)).
			Msg("Catalog load failed")
		return nil, err
	}

	l.logger.Info().
		Int("count", len(entities)).
		Dur("duration", time.Since(start)).
		Msg("Catalog loaded")
	return entities, nil
}

// LoadCategoryRelations fetches the relations of every distinct category of e,
// in tag order. A failing category yields a detail without WeakTo. The call
// fails when ctx is done or when every category failed.
func (l *Loader) LoadCategoryRelations(ctx context.Context, e catalog.Entity) ([]catalog.CategoryDetail, error) {
	refs := distinctCategories(e.Categories)
	if len(refs) == 0 {
		return []catalog.CategoryDetail{}, nil
	}

	details, failed := fanout.Each(ctx, l.fanout, refs,
		func(ctx context.Context, ref catalog.CategoryRef) (catalog.CategoryDetail, error) {
			var detail categoryDetail
			if err := l.api.GetJSON(ctx, ref.URL, &detail); err != nil {
				return catalog.CategoryDetail{}, err
			}
			return detail.toCategoryDetail(ref), nil
		},
		func(ref catalog.CategoryRef, err error) catalog.CategoryDetail {
			l.logger.Warn().
				Err(err).
				Str("category", ref.Name).
				Str("url", ref.URL).
				Str("error_class", string(client.ClassOf(err))).
				Msg("Category relations unavailable, degrading to none")
			return catalog.CategoryDetail{Name: ref.Name, URL: ref.URL, WeakTo: []string{}}
		})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load relations of %s: %w", e.Name, err)
	}
	if failed == len(refs) {
		return nil, fmt.Errorf("load relations of %s: %w", e.Name, ErrRelationsUnavailable)
	}

	l.logger.Debug().
		Str("entity", e.Name).
		Int("categories", len(refs)).
		Int("degraded", failed).
		Msg("Category relations loaded")
	return details, nil
}

// distinctCategories drops repeated category URLs, keeping the first.
func distinctCategories(refs []catalog.CategoryRef) []catalog.CategoryRef {
	seen := make(map[string]bool, len(refs))
	out := make([]catalog.CategoryRef, 0, len(refs))
	for _, ref := range refs {
		key := ref.URL
		if key == "" {
			key = ref.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ref)
	}
	return out
}
