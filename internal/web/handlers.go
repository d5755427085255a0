package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/core"
)

// handleHealth reports liveness, and readiness when a check is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			s.respondErrorStatus(w, r, err, http.StatusServiceUnavailable)
			return
		}
	}
	respondOK(w, r, map[string]string{"status": "ok"})
}

// handleListDirectories returns one page of directories.
func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetDirectories(r.Context(), core.ParseDirectoryQuery(r.URL.Query()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

func (s *Server) handleFeaturedDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := s.service.GetFeaturedDirectories(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, dirs)
}

func (s *Server) handleGetDirectory(w http.ResponseWriter, r *http.Request) {
	dir, err := s.service.GetDirectoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, dir)
}

// handleMyDirectories lists the directories owned by the session user.
func (s *Server) handleMyDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := s.service.GetUserDirectories(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, dirs)
}

// handleSlugAvailable answers whether a directory slug is free.
func (s *Server) handleSlugAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := s.service.CheckSlugUniqueness(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, map[string]bool{"available": available})
}

// handleListStartups returns one page of a directory's visible startups.
func (s *Server) handleListStartups(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetVisibleStartups(r.Context(), chi.URLParam(r, "slug"), core.ParseStartupQuery(r.URL.Query()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, page)
}

func (s *Server) handleGetStartup(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.GetStartupBySlug(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "startupSlug"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, st)
}

func (s *Server) handleStartupLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.service.GetStartupLocations(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, locs)
}

func (s *Server) handleDirectoryTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.GetDirectoryTags(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, tags)
}
