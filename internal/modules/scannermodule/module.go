package scannermodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule"
	"github.com/mantonx/shelfsync/internal/modules/modulemanager"
	"github.com/mantonx/shelfsync/internal/modules/scannermodule/scanner"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the scanner module
	ModuleID = "system.scanner"

	// ModuleName is the display name for the scanner module
	ModuleName = "Library Scanner"
)

// Module exposes folder scans and library statistics, and optionally
// watches the library roots for new or removed folders.
type Module struct {
	library config.LibraryConfig
	media   MediaIndex
	watcher *scanner.LibraryWatcher
	service *Service
}

// NewModule creates the scanner module.
func NewModule(library config.LibraryConfig, media MediaIndex) *Module {
	return &Module{library: library, media: media}
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return false }

// Dependencies returns module dependencies
func (m *Module) Dependencies() []string {
	return []string{mediamodule.ModuleID}
}

// Migrate is a no-op; scan results are not persisted.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init creates the watcher when enabled and the scan service.
func (m *Module) Init() error {
	if m.library.Watch && len(m.library.Roots()) > 0 {
		watcher, err := scanner.NewLibraryWatcher(m.library.Roots())
		if err != nil {
			return fmt.Errorf("failed to create library watcher: %w", err)
		}
		m.watcher = watcher
	}
	if len(m.library.Roots()) == 0 {
		logger.Warn("no library roots configured, scans will return no folders")
	}
	m.service = NewService(m.library, m.media, m.watcher)
	return nil
}

// Start begins watching the library roots.
func (m *Module) Start(ctx context.Context) error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Start()
}

// Shutdown stops the watcher.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Stop()
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/scan/folders", m.getScanFolders)
	router.GET("/stats/library", m.getLibraryStats)
}

// HealthCheck reports degraded when a configured root is missing.
func (m *Module) HealthCheck(ctx context.Context) modulemanager.HealthStatus {
	missing := []string{}
	for _, root := range m.library.Roots() {
		if _, err := m.service.scanner.CountFolders(root.Path); err != nil {
			missing = append(missing, root.Path)
		}
	}
	if len(missing) > 0 {
		return modulemanager.HealthStatus{
			Status:  modulemanager.HealthStateDegraded,
			Message: "library roots unavailable",
			Details: map[string]interface{}{"missing": missing},
		}
	}
	return modulemanager.HealthStatus{Status: modulemanager.HealthStateHealthy}
}
