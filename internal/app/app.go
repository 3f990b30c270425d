package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/repository"
	"deepfake-detector/internal/routes"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/storage"
	"deepfake-detector/internal/services/websocket"
	"deepfake-detector/internal/telegram"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	pipeline   *Pipeline
	repo       repository.DetectionRepository
	fetcher    *storage.Fetcher
	hubService *websocket.HubService
	manager    *services.Manager
	bot        *telegram.Bot
}

func NewApp() *App {
	cfg := config.Load()
	logger := logger.NewLogger(cfg)

	pipeline, err := LoadPipeline(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}

	repo, err := OpenRepository(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	store := storage.NewUploadStore(cfg.UploadDirectory)
	fetcher := storage.NewFetcher(cfg.FetchTimeout, cfg.MaxUploadBytes)
	hub := websocket.NewHubService(logger)

	mng := services.NewManager(pipeline.Detector, store, repo, hub, cfg, logger)

	a := &App{
		config:     cfg,
		logger:     logger,
		pipeline:   pipeline,
		repo:       repo,
		fetcher:    fetcher,
		hubService: hub,
		manager:    mng,
	}

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, mng, fetcher, logger)
		if err != nil {
			logger.Error("Telegram disabled: %v", err)
		} else {
			a.bot = bot
		}
	}

	return a
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	// Start background services
	go a.hubService.Run()
	if a.bot != nil {
		go a.bot.Run(ctx)
	}

	// Setup routes
	router := routes.SetupRoutes(a.manager, a.fetcher, a.config, a.logger)

	fmt.Printf("🚀 Deepfake Detector Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Uploads: %s\n", a.config.UploadDirectory)
	fmt.Printf("🤖 AI Model: %s\n", a.config.ModelPath)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	a.shutdown()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) shutdown() {
	a.manager.Stop()
	a.hubService.Stop()
	if err := a.repo.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	if err := a.pipeline.Close(); err != nil {
		a.logger.Error("Failed to release model: %v", err)
	}
	a.logger.Info("👋 Server stopped")
	a.logger.Close()
}
