package server

import (
	"context"
	"net/http"

	"github.com/Sternrassler/catalog-viewer/internal/app"
)

// SessionCookie names the cookie carrying the viewer session id.
const SessionCookie = "catalog_session"

type sessionKey struct{}

// withSession attaches the existing viewer session of the browser, if any.
// Visitors without one are served default criteria and get no cookie.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.lookupSession(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess))
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession attaches the viewer session of the browser, starting a new
// one when the cookie is missing or expired. Only state-changing routes use it.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, created := s.app.Sessions().GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
			s.logger.Debug().Str("session", sess.ID).Msg("Session started")
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	})
}

func (s *Server) lookupSession(r *http.Request) (*app.Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return s.app.Sessions().Get(c.Value)
}

// sessionFrom returns the session attached to r, nil for a visitor without one.
func sessionFrom(r *http.Request) *app.Session {
	sess, _ := r.Context().Value(sessionKey{}).(*app.Session)
	return sess
}
