package project

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap/zaptest"

	"github.com/briefing-buddy/backend/internal/model/project"
	projectService "github.com/briefing-buddy/backend/internal/service/project"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

type stubTransport struct {
	body string
	err  error
}

func (s stubTransport) Send(context.Context, webhook.Request) (*webhook.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &webhook.Response{StatusCode: http.StatusOK, Body: []byte(s.body)}, nil
}

func setupRouter(t *testing.T, transport projectService.Transport) *chi.Mux {
	t.Helper()
	svc := projectService.NewService(transport, storage.NewMemoryStore(0),
		project.NewMemoryStore(project.SeedFiscalYear, project.Seed()),
		projectService.Config{Prompt: "Display the number of projects for each ministry", CacheTTL: time.Hour},
		zaptest.NewLogger(t))

	r := chi.NewRouter()
	New(svc, zaptest.NewLogger(t)).RegisterRoutes(r)
	return r
}

type dashboardBody struct {
	Source        string         `json:"source"`
	FiscalYear    string         `json:"fiscalYear"`
	TotalProjects int            `json:"totalProjects"`
	Tiles         []project.View `json:"tiles"`
}

func getDashboard(t *testing.T, r http.Handler) dashboardBody {
	t.Helper()
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/projects", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body dashboardBody
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestDashboardFromWebhook(t *testing.T) {
	body := getDashboard(t, setupRouter(t, stubTransport{body: `{"answer":"Health: 4 projects\nTourism: 2 projects"}`}))

	if body.Source != "webhook" || body.FiscalYear != "2024-25" {
		t.Fatalf("unexpected header: %+v", body)
	}
	if len(body.Tiles) != 13 {
		t.Fatalf("expected 13 tiles, got %d", len(body.Tiles))
	}

	last := body.Tiles[len(body.Tiles)-1]
	if last.Name != "Tourism" || last.TotalBudget != "N/A" || !last.Placeholder {
		t.Fatalf("unexpected placeholder tile: %+v", last)
	}
	for _, tile := range body.Tiles {
		if tile.Name == "Health" && (tile.ProjectCount != 4 || tile.TotalBudget != "$182,239" || tile.PercentSpent != "70%") {
			t.Fatalf("unexpected health tile: %+v", tile)
		}
	}
}

func TestDashboardFallback(t *testing.T) {
	body := getDashboard(t, setupRouter(t, stubTransport{err: &webhook.Error{Kind: webhook.KindNetwork}}))

	if body.Source != "fallback" {
		t.Fatalf("expected fallback, got %s", body.Source)
	}
	if len(body.Tiles) != 12 || body.TotalProjects != 58 {
		t.Fatalf("unexpected baseline: %d tiles, %d projects", len(body.Tiles), body.TotalProjects)
	}
}
