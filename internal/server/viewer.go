package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/Sternrassler/catalog-viewer/internal/app"
	"github.com/Sternrassler/catalog-viewer/internal/catalog"
	"github.com/Sternrassler/catalog-viewer/internal/view"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := view.Render(s.app.Snapshot(sessionFrom(r)))

	var buf bytes.Buffer
	if err := view.HTML(&buf, page); err != nil {
		s.logger.Error().Err(err).Msg("Page rendering failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	sessionFrom(r).SetCriteria(catalog.Criteria{
		Term:     r.PostForm.Get("q"),
		Category: r.PostForm.Get("category"),
	})
	redirectHome(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).Reset()
	redirectHome(w, r)
}

func (s *Server) handlePrevPage(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).PrevPage()
	redirectHome(w, r)
}

func (s *Server) handleNextPage(w http.ResponseWriter, r *http.Request) {
	s.app.NextPage(sessionFrom(r))
	redirectHome(w, r)
}

func (s *Server) handleOpenDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid entity id", http.StatusBadRequest)
		return
	}

	if _, err := s.app.OpenDetail(sessionFrom(r), id); err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownEntity):
			http.Error(w, "unknown entity", http.StatusNotFound)
		case errors.Is(err, app.ErrNotReady):
			http.Error(w, "catalog not ready", http.StatusServiceUnavailable)
		default:
			http.Error(w, "open failed", http.StatusInternalServerError)
		}
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleCloseDetail(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r).CloseDetail()
	redirectHome(w, r)
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
