package mediamodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/api"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/repository"
	"github.com/mantonx/shelfsync/internal/modules/modulemanager"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the media module
	ModuleID = "system.media"

	// ModuleName is the display name for the media module
	ModuleName = "Media Library"
)

// Module owns the media tables and the browsing and bookkeeping endpoints.
type Module struct {
	db   *gorm.DB
	repo *repository.MediaRepository
}

// NewModule creates the media module. The repository is usable right away so
// that dependent modules can be constructed before LoadAll.
func NewModule(db *gorm.DB) *Module {
	return &Module{
		db:   db,
		repo: repository.NewMediaRepository(db),
	}
}

// ID returns the unique module identifier
func (m *Module) ID() string {
	return ModuleID
}

// Name returns the module display name
func (m *Module) Name() string {
	return ModuleName
}

// Core returns whether this is a core module
func (m *Module) Core() bool {
	return true
}

// Migrate creates the media, genre, episode and file tables.
func (m *Module) Migrate(db *gorm.DB) error {
	logger.Info("migrating media schema")
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate media models: %w", err)
	}
	return nil
}

// Init initializes the media module
func (m *Module) Init() error {
	if m.db == nil {
		return fmt.Errorf("media module requires a database")
	}
	return nil
}

// Repository exposes the data access layer to other modules.
func (m *Module) Repository() *repository.MediaRepository {
	return m.repo
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.RouterGroup) {
	api.RegisterRoutes(router, api.NewHandler(m.repo))
}

// HealthCheck pings the database.
func (m *Module) HealthCheck(ctx context.Context) modulemanager.HealthStatus {
	sqlDB, err := m.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return modulemanager.HealthStatus{
			Status:  modulemanager.HealthStateUnhealthy,
			Message: "database unreachable",
		}
	}
	stats := sqlDB.Stats()
	return modulemanager.HealthStatus{
		Status: modulemanager.HealthStateHealthy,
		Details: map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
		},
	}
}
