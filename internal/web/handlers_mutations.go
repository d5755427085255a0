package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/core"
	"github.com/d21hq/d21/internal/web/templates"
)

// respondMutation writes a mutation result. HTMX callers get a confirmation
// fragment, everything else the JSON envelope.
func respondMutation(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.SuccessAlert(message).Render(r.Context(), w)
		return
	}
	writeJSON(w, r, status, Envelope{Success: true, Message: message, Data: data})
}

func (s *Server) handleCreateDirectory(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, s.opts.Server.MaxFormSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	dir, err := s.service.CreateDirectory(r.Context(), auth.UserID(r.Context()), form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusCreated, "Directory created", dir)
}

func (s *Server) handleUpdateDirectory(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, s.opts.Server.MaxFormSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	dir, err := s.service.UpdateDirectory(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "slug"), form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusOK, "Directory updated", dir)
}

func (s *Server) handleDeleteDirectory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDirectory(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "slug")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusOK, "Directory deleted", nil)
}

// handleCreateStartup accepts a public submission. It never requires a
// session; the new startup stays hidden until the owner approves it.
func (s *Server) handleCreateStartup(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, s.opts.Server.MaxFormSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	st, err := s.service.CreateStartup(r.Context(), chi.URLParam(r, "slug"), form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusCreated, "Startup submitted for review", st)
}

func (s *Server) handleUpdateStartup(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, s.opts.Server.MaxFormSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	st, err := s.service.UpdateStartup(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), form)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusOK, "Startup updated", st)
}

// handleStartupVisibility sets the flag when the form carries "visible",
// otherwise toggles it.
func (s *Server) handleStartupVisibility(w http.ResponseWriter, r *http.Request) {
	form, err := parseForm(w, r, s.opts.Server.MaxFormSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	ctx := r.Context()
	userID := auth.UserID(ctx)
	id := chi.URLParam(r, "id")

	if raw := form.Get("visible"); raw != "" {
		visible, perr := strconv.ParseBool(raw)
		if perr != nil {
			s.respondError(w, r, badRequest(core.MsgInvalidVisibilityFlag, perr))
			return
		}
		if err := s.service.SetStartupVisibility(ctx, userID, id, visible); err != nil {
			s.respondError(w, r, err)
			return
		}
		respondMutation(w, r, http.StatusOK, "Visibility updated", map[string]bool{"visible": visible})
		return
	}

	visible, err := s.service.ToggleStartupVisibility(ctx, userID, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusOK, "Visibility updated", map[string]bool{"visible": visible})
}

func (s *Server) handleDeleteStartup(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStartup(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondMutation(w, r, http.StatusOK, "Startup deleted", nil)
}
