package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/briefing-buddy/backend/internal/model/auth"
	authsvc "github.com/briefing-buddy/backend/internal/service/auth"
)

type validatorFunc func(ctx context.Context, token string) (*auth.Session, error)

func (f validatorFunc) Validate(ctx context.Context, token string) (*auth.Session, error) {
	return f(ctx, token)
}

func guarded(t *testing.T) http.Handler {
	validator := validatorFunc(func(_ context.Context, token string) (*auth.Session, error) {
		switch token {
		case "good":
			return &auth.Session{Token: token, UserID: "u1"}, nil
		case "old":
			return nil, authsvc.ErrSessionExpired
		default:
			return nil, authsvc.ErrUnauthorized
		}
	})

	return RequireSession(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := SessionFrom(r.Context())
		assert.True(t, ok)
		_, _ = w.Write([]byte(session.UserID))
	}))
}

func TestRequireSession(t *testing.T) {
	cases := []struct {
		name   string
		target string
		header string
		status int
		body   string
	}{
		{name: "bearer", target: "/", header: "Bearer good", status: http.StatusOK, body: "u1"},
		{name: "lowercase scheme", target: "/", header: "bearer good", status: http.StatusOK, body: "u1"},
		{name: "query token", target: "/?token=good", status: http.StatusOK, body: "u1"},
		{name: "missing", target: "/", status: http.StatusUnauthorized},
		{name: "wrong scheme", target: "/?token=good", header: "Basic good", status: http.StatusUnauthorized},
		{name: "unknown", target: "/", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "expired", target: "/", header: "Bearer old", status: http.StatusUnauthorized, body: "session expired"},
	}

	handler := guarded(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Contains(t, rec.Body.String(), tc.body)
			}
		})
	}
}

func TestSessionFromEmptyContext(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)
}
