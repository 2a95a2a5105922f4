package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/catalog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/middleware"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule"
	"github.com/mantonx/shelfsync/internal/modules/modulemanager"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule"
	"github.com/mantonx/shelfsync/internal/modules/scannermodule"
	"gorm.io/gorm"
)

const healthTimeout = 3 * time.Second

// BuildRegistry registers every module and loads them in dependency order.
// Disabled module ids are skipped.
func BuildRegistry(db *gorm.DB, cfg *config.Config, disabled ...string) (*modulemanager.ModuleRegistry, error) {
	registry := modulemanager.NewRegistry()

	media := mediamodule.NewModule(db)
	registry.Register(media)
	registry.Register(scannermodule.NewModule(cfg.Library, media.Repository()))
	registry.Register(reconcilemodule.NewModule(db, catalog.NewClient(cfg.Catalog), *cfg))

	for _, id := range disabled {
		if err := registry.DisableModule(id); err != nil {
			return nil, err
		}
	}

	if err := registry.LoadAll(db); err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	logModuleStatus(registry)
	return registry, nil
}

// SetupRouter configures and returns the main router
func SetupRouter(registry *modulemanager.ModuleRegistry, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.RecoveryWithWriter(logger.Writer()))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorLogger())
	if cfg.EnableCORS {
		r.Use(middleware.CORS())
	}

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"modules": registry.Health(ctx),
		})
	})

	registry.RegisterRoutes(api)
	return r
}

// logModuleStatus logs the loaded modules
func logModuleStatus(registry *modulemanager.ModuleRegistry) {
	modules := registry.ListModules()
	logger.Info("module system initialized", "count", len(modules))
	for _, module := range modules {
		logger.Info("module loaded", "id", module.ID(), "name", module.Name(), "core", module.Core())
	}
}
