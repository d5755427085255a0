package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/core"
)

// handleSubmissions lists every startup of a directory, pending ones
// included, for its owner. ?status=pending|visible narrows the list.
func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetSubmittedStartups(r.Context(), auth.UserID(r.Context()),
		chi.URLParam(r, "slug"), core.ParseStartupQuery(r.URL.Query()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

// handleAuditLog returns the newest audit entries of a directory for its
// owner. ?limit= defaults to 50 and is capped at 500.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.GetAuditLog(r.Context(), auth.UserID(r.Context()),
		chi.URLParam(r, "slug"), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, entries)
}
