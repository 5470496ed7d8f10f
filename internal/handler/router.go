package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/handler/auth"
	"github.com/briefing-buddy/backend/internal/handler/chat"
	"github.com/briefing-buddy/backend/internal/handler/project"
	middlewarePkg "github.com/briefing-buddy/backend/internal/middleware"
	authService "github.com/briefing-buddy/backend/internal/service/auth"
	chatService "github.com/briefing-buddy/backend/internal/service/chat"
	projectService "github.com/briefing-buddy/backend/internal/service/project"
)

// Services 路由依赖的核心服务
type Services struct {
	Auth     *authService.Service
	Chat     *chatService.Service
	Projects *projectService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services, allowedOrigins []string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/healthz"))

	guard := middlewarePkg.RequireSession(svc.Auth)

	authHandler := auth.New(svc.Auth, logger.Named("auth"))
	chatHandler := chat.New(svc.Chat, logger.Named("chat"))
	projectHandler := project.New(svc.Projects, logger.Named("projects"))

	r.Route("/api", func(api chi.Router) {
		authHandler.RegisterRoutes(api, guard)

		api.Group(func(protected chi.Router) {
			protected.Use(guard)
			chatHandler.RegisterRoutes(protected)
			projectHandler.RegisterRoutes(protected)
		})
	})

	return r
}
