package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/middleware"
	chatService "github.com/briefing-buddy/backend/internal/service/chat"
	"github.com/briefing-buddy/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	logger   *zap.Logger
	decoder  *schema.Decoder
	upgrader websocket.Upgrader
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
		decoder: decoder,
		upgrader: websocket.Upgrader{
			// 跨域由 CORS 中间件与会话校验负责
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册聊天相关的路由，调用方负责挂载会话校验
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/messages", h.handleListMessages)
	r.Post("/chat/messages", h.handleSendMessage)
	r.Delete("/chat/messages", h.handleClearMessages)
	r.Get("/chat/export", h.handleExport)
	r.Get("/chat/ws", h.handleWebSocket)
}

type sendRequest struct {
	Message     string `json:"message"`
	Instruction string `json:"instruction,omitempty"`
}

// exportQuery 导出参数，format 取 text 或 json
type exportQuery struct {
	Format string `schema:"format"`
}

// handleListMessages 返回当前用户的聊天记录
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	messages, err := h.chatSvc.LoadTranscript(r.Context(), session.UserID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"messages":         messages,
		"maxMessageLength": h.chatSvc.MaxMessageLength(),
	})
}

// handleSendMessage 发送消息并返回助手回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	var payload sendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatSvc.Send(r.Context(), session.UserID, payload.Message, payload.Instruction)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, result)
}

// handleClearMessages 清空聊天记录
func (h *Handler) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	if err := h.chatSvc.Clear(r.Context(), session.UserID); err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport 导出聊天记录
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())

	var query exportQuery
	if err := h.decoder.Decode(&query, r.URL.Query()); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	switch query.Format {
	case "", "text":
		text, err := h.chatSvc.ExportText(r.Context(), session.UserID)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		utils.RespondAttachment(w, "text/plain; charset=utf-8",
			fmt.Sprintf("briefing-buddy-chat-%s.txt", stamp), []byte(text))
	case "json":
		data, err := h.chatSvc.ExportJSON(r.Context(), session.UserID)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		utils.RespondAttachment(w, "application/json",
			fmt.Sprintf("briefing-buddy-chat-%s.json", stamp), data)
	default:
		utils.RespondError(w, http.StatusBadRequest, "format must be text or json")
	}
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("chat request failed", zap.Error(err))
	}
	utils.RespondError(w, status, message)
}

// statusFor 将服务层错误映射为HTTP状态码
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage),
		errors.Is(err, chatService.ErrMessageTooLong),
		errors.Is(err, chatService.ErrUserRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, chatService.ErrSendInFlight):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
