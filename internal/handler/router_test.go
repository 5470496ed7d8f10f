package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/briefing-buddy/backend/internal/config"
	"github.com/briefing-buddy/backend/internal/model/project"
	authService "github.com/briefing-buddy/backend/internal/service/auth"
	chatService "github.com/briefing-buddy/backend/internal/service/chat"
	projectService "github.com/briefing-buddy/backend/internal/service/project"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

type echoTransport struct{}

func (echoTransport) Send(_ context.Context, req webhook.Request) (*webhook.Response, error) {
	body, _ := json.Marshal(map[string]string{"output": "Education: 5 projects"})
	return &webhook.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := storage.NewMemoryStore(0)

	authSvc, err := authService.NewService(store, config.AuthConfig{Password: "pw", SessionTTL: time.Hour}, logger)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}

	return NewRouter(Services{
		Auth: authSvc,
		Chat: chatService.NewService(echoTransport{}, store, chatService.Config{}, logger),
		Projects: projectService.NewService(echoTransport{}, store,
			project.NewMemoryStore(project.SeedFiscalYear, project.Seed()),
			projectService.Config{Prompt: "count", CacheTTL: time.Hour}, logger),
	}, []string{"*"}, logger)
}

func TestHealthz(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/api/chat/messages", "/api/projects", "/api/chat/export", "/api/auth/me"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
	}
}

func TestLoginThenUseAPI(t *testing.T) {
	r := newTestRouter(t)

	payload, _ := json.Marshal(map[string]string{"email": "a@b.c", "password": "pw"})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload)))
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.Code)
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil || session.Token == "" {
		t.Fatalf("login body: %s (%v)", resp.Body.String(), err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", bytes.NewReader([]byte(`{"message":"hi"}`)))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	sent := httptest.NewRecorder()
	r.ServeHTTP(sent, req)
	if sent.Code != http.StatusCreated {
		t.Fatalf("send: expected 201, got %d", sent.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/projects?token="+session.Token, nil)
	projects := httptest.NewRecorder()
	r.ServeHTTP(projects, req)
	if projects.Code != http.StatusOK {
		t.Fatalf("projects: expected 200, got %d", projects.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/chat/messages", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}
