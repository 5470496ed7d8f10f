package project

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/model/project"
	projectService "github.com/briefing-buddy/backend/internal/service/project"
	"github.com/briefing-buddy/backend/pkg/utils"
)

// Handler 部委项目看板的HTTP处理器
type Handler struct {
	projectSvc *projectService.Service
	logger     *zap.Logger
}

// New 创建看板处理器
func New(projectSvc *projectService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		projectSvc: projectSvc,
		logger:     logger,
	}
}

// RegisterRoutes 注册看板相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/projects", h.handleDashboard)
}

type dashboardResponse struct {
	projectService.Dashboard
	Tiles []project.View `json:"tiles"`
}

// handleDashboard 返回各部委项目数量
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.projectSvc.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}

	utils.RespondJSON(w, http.StatusOK, dashboardResponse{Dashboard: dashboard, Tiles: dashboard.Views()})
}
