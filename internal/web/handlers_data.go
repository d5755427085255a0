package web

import (
	"net/http"

	"github.com/d21hq/d21/internal/auth"
)

func (s *Server) handleTeamSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := s.service.GetTeamSizes(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, sizes)
}

func (s *Server) handleFundingStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.service.GetFundingStages(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, stages)
}

// handleGeocode proxies a location search. limit=0 or absent uses the
// default; the service clamps the rest.
func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	places, err := s.service.SearchLocations(r.Context(), r.URL.Query().Get("q"), parseIntParam(r, "limit", 0))
	s.metrics.observeGeocode(err)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, places)
}

// handleRehostImage moves a remote image onto the image host for the upload
// widget.
func (s *Server) handleRehostImage(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, s.opts.Server.MaxFormSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	hosted, err := s.service.RehostImage(r.Context(), auth.UserID(r.Context()), form.Get("url"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, map[string]string{"url": hosted})
}

// handleListTables is a diagnostic listing of the database tables.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.service.ListTables(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondOK(w, r, tables)
}
