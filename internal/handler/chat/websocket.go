package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/middleware"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// socket 串行化对同一连接的写操作
type socket struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (s *socket) send(msgType string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", zap.String("type", msgType), zap.Error(err))
	}
}

func (s *socket) sendError(message string) {
	s.send("error", map[string]string{"message": message})
}

// handleWebSocket 处理聊天WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("user", session.UserID))
	logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go pingLoop(ctx, conn)

	sock := &socket{conn: conn, logger: logger}
	sock.send("connected", map[string]any{
		"userId":           session.UserID,
		"displayName":      session.DisplayName,
		"maxMessageLength": h.chatSvc.MaxMessageLength(),
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		h.handleMessage(ctx, sock, session.UserID, &msg)
	}
}

func (h *Handler) handleMessage(ctx context.Context, sock *socket, userID string, msg *inboundMessage) {
	switch msg.Type {
	case "history":
		messages, err := h.chatSvc.LoadTranscript(ctx, userID)
		if err != nil {
			_, text := statusFor(err)
			sock.sendError(text)
			return
		}
		sock.send("history", messages)
	case "message":
		var payload sendRequest
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			sock.sendError("invalid message payload")
			return
		}

		sock.send("typing", map[string]bool{"typing": true})
		result, err := h.chatSvc.Send(ctx, userID, payload.Message, payload.Instruction)
		sock.send("typing", map[string]bool{"typing": false})
		if err != nil {
			_, text := statusFor(err)
			sock.sendError(text)
			return
		}
		sock.send("message", result)
	case "clear":
		if err := h.chatSvc.Clear(ctx, userID); err != nil {
			_, text := statusFor(err)
			sock.sendError(text)
			return
		}
		sock.send("cleared", nil)
	default:
		sock.sendError("unsupported message type: " + msg.Type)
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
