package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/briefing-buddy/backend/internal/config"
	"github.com/briefing-buddy/backend/internal/handler"
	"github.com/briefing-buddy/backend/internal/logging"
	"github.com/briefing-buddy/backend/internal/model/project"
	"github.com/briefing-buddy/backend/internal/service/auth"
	"github.com/briefing-buddy/backend/internal/service/chat"
	projectservice "github.com/briefing-buddy/backend/internal/service/project"
	"github.com/briefing-buddy/backend/internal/storage"
	"github.com/briefing-buddy/backend/internal/webhook"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := storage.Open(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()
	logger.Info("storage ready", zap.String("driver", cfg.Storage.Driver))

	baseline, err := project.LoadBaseline(cfg.Projects.BaselineFile)
	if err != nil {
		return err
	}

	client := webhook.NewClient(webhook.Options{
		URL:       cfg.Webhook.URL,
		Timeout:   cfg.Webhook.Timeout,
		Retries:   cfg.Webhook.Retries,
		RateLimit: cfg.Webhook.RateLimit,
		RateBurst: cfg.Webhook.RateBurst,
	}, logger.Named("webhook"))

	authService, err := auth.NewService(store, cfg.Auth, logger.Named("auth"))
	if err != nil {
		return err
	}

	chatService := chat.NewService(client, store, chat.Config{
		HistoryLimit:        cfg.Chat.HistoryLimit,
		ReducedHistoryLimit: cfg.Chat.ReducedHistoryLimit,
		MaxMessageLength:    cfg.Chat.MaxMessageLength,
	}, logger.Named("chat"))

	projectService := projectservice.NewService(client, store, baseline, projectservice.Config{
		Prompt:      cfg.Projects.Prompt,
		Instruction: cfg.Projects.Instruction,
		CacheTTL:    cfg.Projects.CacheTTL,
	}, logger.Named("projects"))

	router := handler.NewRouter(handler.Services{
		Auth:     authService,
		Chat:     chatService,
		Projects: projectService,
	}, cfg.Server.AllowedOrigins, logger)

	addr, err := cfg.Server.Addr()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("Briefing Buddy backend listening", zap.String("addr", addr))
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
