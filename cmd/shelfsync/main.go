package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Error("shelfsync exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("SHELFSYNC_CONFIG_PATH")
	if configPath == "" {
		configPath = "./shelfsync.yaml"
	}
	if err := config.Load(configPath); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.Get()

	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "path", config.GetConfigManager().ConfigPath())

	if err := database.Initialize(cfg.Database); err != nil {
		return err
	}
	defer database.Close()

	var disabled []string
	if v := os.Getenv("SHELFSYNC_DISABLED_MODULES"); v != "" {
		disabled = strings.Split(v, ",")
	}
	registry, err := server.BuildRegistry(database.GetDB(), cfg, disabled...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := registry.StartAll(ctx); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = logger.Writer()
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.SetupRouter(registry, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting shelfsync server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			registry.Shutdown(context.Background())
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := registry.Shutdown(shutdownCtx); err != nil {
		logger.Error("module shutdown error", "error", err)
	}
	logger.Info("server shutdown complete")
	return nil
}
