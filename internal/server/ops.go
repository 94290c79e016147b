package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/catalog-viewer/internal/app"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// handleReady reports 200 once a dataset is loaded and the backing services
// answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.app.Store().State()
	if st.Dataset == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": string(st.Status)})
		return
	}

	if s.opts.Ping != nil {
		if err := s.opts.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": string(st.Status),
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":   string(st.Status),
		"entities": len(st.Dataset.Entities),
	})
}

// handleReload replaces the dataset wholesale. A failed reload keeps the
// previous dataset; a reload during another load is refused.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := s.app.Reload(r.Context()); err != nil {
		if errors.Is(err, app.ErrLoadInProgress) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondJSON(w, http.StatusBadGateway, map[string]string{
			"status": string(s.app.Store().State().Status),
			"error":  err.Error(),
		})
		return
	}

	ds, _ := s.app.Store().Dataset()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":   string(app.StatusReady),
		"entities": len(ds.Entities),
		"version":  ds.Version,
		"duration": time.Since(start).String(),
	})
}
