package web

// errors.go renders every failure a handler returns.
//
// The flow:
//  1. Handler gets an error from a core.Service action
//  2. Calls respondError(w, r, err)
//  3. The error kind picks the HTTP status; core.MapError sanitizes the message
//  4. The technical error is logged with the request id for correlation
//  5. HTMX requests get an alert fragment, everything else the JSON envelope

import (
	"errors"
	"net/http"

	"github.com/d21hq/d21/internal/core"
	"github.com/d21hq/d21/internal/logging"
	"github.com/d21hq/d21/internal/web/templates"
)

// statusFor maps an action error kind to its HTTP status.
func statusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindUnauthenticated:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the sanitized failure.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorStatus(w, r, err, statusFor(err))
}

func (s *Server) respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(r.Context(), err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.ErrorAlert(msg.Message, msg.Code).Render(r.Context(), w); err != nil {
			logger.Warn("render error alert failed", "error", err)
		}
		return
	}

	writeJSON(w, r, status, Envelope{Success: false, Message: msg.Message, Code: msg.Code})
}

// badRequest builds the validation error for malformed transport input.
func badRequest(msg string, cause error) error {
	return &core.ActionError{Kind: core.KindValidation, Message: msg, Err: cause}
}

// errTooManyRequests is returned by the rate limiter.
var errTooManyRequests = &core.ActionError{
	Kind:    core.KindValidation,
	Message: core.MsgTooManyRequests,
	Err:     errors.New("rate limit exceeded"),
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
