package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/pkg/client"
	"github.com/go-chi/chi/v5"
)

// EntityResponse is the JSON body of GET /api/entities/{id}.
type EntityResponse struct {
	Entity     catalog.Entity           `json:"entity"`
	Categories []catalog.CategoryDetail `json:"categories"`
	Weaknesses []string                 `json:"weaknesses"`
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	ds, err := s.app.Store().Dataset()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"categories": ds.Taxonomy})
}

func (s *Server) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	ds, err := s.app.Store().Dataset()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "catalog not ready")
		return
	}

	q := r.URL.Query()
	page := 1
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			respondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
	}

	criteria := catalog.Criteria{Term: q.Get("q"), Category: q.Get("category")}.Normalize()
	filtered := catalog.Filter(ds.Entities, criteria)
	size := s.app.PageSize()
	page = catalog.ClampPage(page, catalog.PageCount(len(filtered), size))

	respondJSON(w, http.StatusOK, catalog.Page(filtered, page, size))
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	e, relations, err := s.app.LoadDetail(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownEntity):
			respondError(w, http.StatusNotFound, "unknown entity")
		case errors.Is(err, app.ErrNotReady):
			respondError(w, http.StatusServiceUnavailable, "catalog not ready")
		default:
			s.logger.Error().
				Err(err).
				Int("entity_id", id).
				Str("error_class", string(client.ClassOf(err))).
				Msg("Entity detail failed")
			respondError(w, http.StatusBadGateway, "category relations unavailable")
		}
		return
	}

	respondJSON(w, http.StatusOK, EntityResponse{
		Entity:     e,
		Categories: relations,
		Weaknesses: catalog.Weaknesses(relations),
	})
}
