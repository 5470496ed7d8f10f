package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/briefing-buddy/backend/internal/middleware"
	"github.com/briefing-buddy/backend/internal/model/auth"
	chatservice "github.com/briefing-buddy/backend/internal/service/chat"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

type stubTransport struct {
	err error
}

func (s stubTransport) Send(_ context.Context, req webhook.Request) (*webhook.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, _ := json.Marshal(map[string]string{"answer": "echo: " + req.Message})
	return &webhook.Response{StatusCode: http.StatusOK, Body: body}, nil
}

func withUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := &auth.Session{Token: "t", UserID: "u1", DisplayName: "Jane"}
		next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), session)))
	})
}

func setupRouter(t *testing.T, transport chatservice.Transport) *chi.Mux {
	t.Helper()
	svc := chatservice.NewService(transport, storage.NewMemoryStore(0), chatservice.Config{
		HistoryLimit:        100,
		ReducedHistoryLimit: 50,
		MaxMessageLength:    250,
	}, zaptest.NewLogger(t))

	r := chi.NewRouter()
	r.Use(withUser)
	New(svc, zaptest.NewLogger(t)).RegisterRoutes(r)
	return r
}

func postMessage(r http.Handler, text string) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(map[string]string{"message": text})
	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSendMessage(t *testing.T) {
	r := setupRouter(t, stubTransport{})

	resp := postMessage(r, "hello")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var result chatservice.SendResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Reply.Text != "echo: hello" || result.Reply.Error {
		t.Fatalf("unexpected reply: %+v", result.Reply)
	}

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/chat/messages", nil))
	var body struct {
		Messages         []json.RawMessage `json:"messages"`
		MaxMessageLength int               `json:"maxMessageLength"`
	}
	if err := json.Unmarshal(list.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(body.Messages) != 2 || body.MaxMessageLength != 250 {
		t.Fatalf("unexpected transcript: %s", list.Body.String())
	}
}

func TestSendMessageWebhookFailureIsNotHTTPError(t *testing.T) {
	r := setupRouter(t, stubTransport{err: &webhook.Error{Kind: webhook.KindTimeout}})

	resp := postMessage(r, "hello")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var result chatservice.SendResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Reply.Error {
		t.Fatalf("expected error reply, got %+v", result.Reply)
	}
}

func TestSendMessageValidation(t *testing.T) {
	r := setupRouter(t, stubTransport{})

	if resp := postMessage(r, "   "); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d", resp.Code)
	}
	if resp := postMessage(r, strings.Repeat("a", 251)); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for long message, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", strings.NewReader("{"))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad body, got %d", resp.Code)
	}
}

func TestClearMessages(t *testing.T) {
	r := setupRouter(t, stubTransport{})
	postMessage(r, "hello")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/chat/messages", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	list := httptest.NewRecorder()
	r.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/chat/messages", nil))
	if !strings.Contains(list.Body.String(), `"messages":null`) && !strings.Contains(list.Body.String(), `"messages":[]`) {
		t.Fatalf("expected empty transcript, got %s", list.Body.String())
	}
}

func TestExport(t *testing.T) {
	r := setupRouter(t, stubTransport{})
	postMessage(r, "hello")

	text := httptest.NewRecorder()
	r.ServeHTTP(text, httptest.NewRequest(http.MethodGet, "/chat/export?token=ignored", nil))
	if text.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", text.Code)
	}
	if !strings.HasPrefix(text.Body.String(), "Briefing Buddy Chat Export") {
		t.Fatalf("unexpected export: %q", text.Body.String())
	}
	if !strings.Contains(text.Header().Get("Content-Disposition"), ".txt") {
		t.Fatalf("unexpected disposition: %s", text.Header().Get("Content-Disposition"))
	}

	js := httptest.NewRecorder()
	r.ServeHTTP(js, httptest.NewRequest(http.MethodGet, "/chat/export?format=json", nil))
	var doc chatservice.Export
	if err := json.Unmarshal(js.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.Metadata.Count != 2 {
		t.Fatalf("expected 2 messages, got %d", doc.Metadata.Count)
	}

	bad := httptest.NewRecorder()
	r.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/chat/export?format=pdf", nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		chatservice.ErrEmptyMessage:   http.StatusBadRequest,
		chatservice.ErrMessageTooLong: http.StatusBadRequest,
		chatservice.ErrSendInFlight:   http.StatusConflict,
		context.Canceled:              http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got, _ := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestWebSocketSend(t *testing.T) {
	srv := httptest.NewServer(setupRouter(t, stubTransport{}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "connected" {
		t.Fatalf("expected connected, got %q (%v)", msg.Type, err)
	}

	if err := conn.WriteJSON(map[string]any{"type": "message", "data": map[string]string{"message": "hi"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == "typing" {
			continue
		}
		break
	}
	if msg.Type != "message" {
		t.Fatalf("expected message, got %s: %s", msg.Type, msg.Data)
	}

	var result chatservice.SendResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Reply.Text != "echo: hi" {
		t.Fatalf("unexpected reply: %+v", result.Reply)
	}

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != "error" {
		t.Fatalf("expected error, got %q (%v)", msg.Type, err)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
