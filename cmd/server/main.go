package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/ozeweb/oze-website/pkg/pages/api"
	"github.com/ozeweb/oze-website/pkg/pages/config"
	"github.com/ozeweb/oze-website/pkg/pages/render"
	"github.com/ozeweb/oze-website/pkg/pages/schedule"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("No .env file found, using process environment", "err", err)
	}

	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load server configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(serverConfig)
	slog.SetDefault(logger)

	if err := run(serverConfig, logger); err != nil {
		logger.Error("Server error", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := cfg.BuildService(ctx)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer cleanup()

	renderer, err := render.New(svc.Schemas(), render.WithImageResolver(svc))
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	var handlerOpts []api.HandlerOption
	handlerOpts = append(handlerOpts, api.WithMaxUploadSize(cfg.MaxUploadSize))
	if ja := cfg.JWTAuth(); ja != nil {
		handlerOpts = append(handlerOpts, api.WithAuth(ja))
	} else {
		logger.Warn("JWT_SECRET not set, write routes are open")
	}
	handler := api.NewHandler(svc, renderer, handlerOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(api.RequestIDMiddleware)
	r.Use(api.LoggingMiddleware(logger))
	r.Use(api.RecoveryMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(api.CORSMiddleware(cfg.AllowedOrigins))
	}

	r.Get("/health", api.Health)
	r.Mount("/api/v1", handler.Routes())

	if cfg.PublishSchedule != "" {
		scheduler, err := schedule.New(svc, cfg.PublishSchedule, schedule.WithLogger(logger))
		if err != nil {
			return err
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			"port", cfg.Port,
			"env", cfg.Environment,
			"database", cfg.DatabaseType,
			"default_storage", cfg.DefaultStorageBackend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}
