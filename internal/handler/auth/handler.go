package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/middleware"
	"github.com/briefing-buddy/backend/internal/model/auth"
	authService "github.com/briefing-buddy/backend/internal/service/auth"
	"github.com/briefing-buddy/backend/pkg/utils"
)

// Handler 登录与会话的HTTP处理器
type Handler struct {
	authSvc *authService.Service
	logger  *zap.Logger
}

// New 创建认证处理器
func New(authSvc *authService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{authSvc: authSvc, logger: logger}
}

// RegisterRoutes 注册认证路由；guard 用于保护需要登录的接口
func (h *Handler) RegisterRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Post("/auth/login", h.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Post("/auth/logout", h.handleLogout)
		r.Post("/auth/refresh", h.handleRefresh)
		r.Get("/auth/me", h.handleMe)
	})
}

type sessionResponse struct {
	*auth.Session
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) sessionResponse(session *auth.Session) sessionResponse {
	return sessionResponse{Session: session, ExpiresAt: session.ExpiresAt(h.authSvc.TTL())}
}

// handleLogin 登录
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.authSvc.Login(r.Context(), payload.Email, payload.Password)
	switch {
	case errors.Is(err, authService.ErrMissingCredentials):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, authService.ErrInvalidCredentials):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.logger.Error("login failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "login failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.sessionResponse(session))
}

// handleLogout 退出登录
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())
	if err := h.authSvc.Logout(r.Context(), session.Token); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefresh 延长会话有效期
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.SessionFrom(r.Context())
	session, err := h.authSvc.Refresh(r.Context(), current.Token)
	switch {
	case errors.Is(err, authService.ErrUnauthorized), errors.Is(err, authService.ErrSessionExpired):
		utils.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.logger.Error("refresh failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.sessionResponse(session))
}

// handleMe 返回当前会话
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, h.sessionResponse(session))
}
