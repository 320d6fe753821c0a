package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"slidecraft-backend/internal/config"
	"slidecraft-backend/internal/controller"
	"slidecraft-backend/internal/handlers"
	"slidecraft-backend/internal/middleware"
	"slidecraft-backend/internal/models"
	"slidecraft-backend/internal/router"
	"slidecraft-backend/internal/services"
	"slidecraft-backend/internal/websocket"
)

func newLogger(env string) *zap.SugaredLogger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := newLogger(cfg.Env)
	defer log.Sync()

	log.Info("🚀 Starting SlideCraft Backend...")
	log.Info("✓ Environment variables loaded")

	// ──── Step 2: Initialize Gemini Studio Pool ────
	studios := services.NewStudioPool(services.GeminiOptions{
		OutlineModel:   cfg.GeminiOutlineModel,
		ImageModel:     cfg.GeminiImageModel,
		AnalysisModel:  cfg.GeminiAnalysisModel,
		ThinkingBudget: int32(cfg.GeminiThinkingBudget),
	}, cfg.GeminiConcurrentReqs, log)
	defer studios.Close()
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set, each session must select its own key")
	}
	log.Infow("✓ Gemini studio pool ready", "concurrent_requests", cfg.GeminiConcurrentReqs)

	// ──── Step 3: Session Registry & WebSocket Hub ────
	var registry *controller.Registry

	wsHub := websocket.NewHub(func(sessionID string) (interface{}, bool) {
		ctrl, ok := registry.Lookup(sessionID)
		if !ok {
			return nil, false
		}
		return models.WSMessage{Type: "state", Payload: ctrl.State()}, true
	}, log)
	defer wsHub.Close()

	registry = controller.NewRegistry(func(sessionID string) *controller.Controller {
		studioFor := func(ctx context.Context, apiKey string) (controller.Studio, error) {
			studio, err := studios.Get(ctx, sessionID, apiKey)
			if err != nil {
				return nil, err
			}
			return studio, nil
		}
		return controller.New(studioFor, controller.NewSessionKeys(cfg.GeminiAPIKey), controller.Options{
			Timeout: cfg.GenerationTimeout,
			Log:     log.With("session_id", sessionID),
			OnChange: func(s controller.State) {
				wsHub.SendToSession(sessionID, models.WSMessage{Type: "state", Payload: s})
			},
			OnClose: func() { studios.Release(sessionID) },
		})
	}, cfg.SessionIdleTimeout, log)
	registry.Start()
	log.Info("✓ Session registry started")

	// ──── Step 4: Initialize Handlers ────
	sessions := middleware.NewSessions(cfg.SessionSecret, cfg.IsProduction())
	fileExtractService := services.NewFileExtractService(log)
	workspaceHandler := handlers.NewWorkspaceHandler(registry, fileExtractService, cfg.MaxUploadMB, log)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(sessions, workspaceHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		// generation requests hold the connection until the model answers
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		registry.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Infof("✓ SlideCraft ready on http://localhost:%s", cfg.Port)
	log.Infof("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Infof("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
