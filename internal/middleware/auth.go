package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/briefing-buddy/backend/internal/model/auth"
	authsvc "github.com/briefing-buddy/backend/internal/service/auth"
	"github.com/briefing-buddy/backend/pkg/utils"
)

type contextKey struct{}

// SessionValidator resolves a token to a live session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*auth.Session, error)
}

// RequireSession rejects requests without a valid session and stores the
// session in the request context.
func RequireSession(validator SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := Token(r)
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			session, err := validator.Validate(r.Context(), token)
			switch {
			case errors.Is(err, authsvc.ErrSessionExpired):
				utils.RespondError(w, http.StatusUnauthorized, "session expired")
				return
			case errors.Is(err, authsvc.ErrUnauthorized):
				utils.RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			case err != nil:
				utils.RespondError(w, http.StatusInternalServerError, "failed to validate session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// Token reads the bearer token, falling back to the token query parameter
// used by WebSocket clients.
func Token(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// WithSession returns a context carrying session.
func WithSession(ctx context.Context, session *auth.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// SessionFrom returns the session stored by RequireSession.
func SessionFrom(ctx context.Context) (*auth.Session, bool) {
	session, ok := ctx.Value(contextKey{}).(*auth.Session)
	return session, ok && session != nil
}
