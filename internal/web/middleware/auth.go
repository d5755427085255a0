package middleware

import (
	"net/http"

	"github.com/d21hq/d21/internal/auth"
	"github.com/d21hq/d21/internal/core"
	"github.com/d21hq/d21/internal/logging"
)

// Session resolves the Supabase access token on every request. A valid token
// puts the session, the audit actor and the logging user on the context. A
// missing or invalid token leaves the request anonymous: public routes still
// work and session-only actions answer Unauthenticated themselves.
func Session(v *auth.Verifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromRequest(r, cookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := v.Verify(token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("auth: rejected access token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.WithSession(r.Context(), sess)
			ctx = core.ContextWithActor(ctx, sess.UserID)
			ctx = logging.WithUserID(ctx, sess.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
