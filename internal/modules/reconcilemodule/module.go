package reconcilemodule

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/catalog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule"
	"github.com/mantonx/shelfsync/internal/modules/modulemanager"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/api"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/core"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/scheduler"
	"gorm.io/gorm"
)

const (
	// ModuleID is the unique identifier for the reconcile module
	ModuleID = "system.reconcile"

	// ModuleName is the display name for the reconcile module
	ModuleName = "Catalog Reconciliation"
)

// Module imports catalog entries, populates episodes and verifies the
// library against disk, optionally on a schedule.
type Module struct {
	db      *gorm.DB
	client  *catalog.Client
	cfg     config.Config
	engine  *core.Engine
	audit   *scheduler.Audit
	started bool
}

// NewModule creates the reconcile module.
func NewModule(db *gorm.DB, client *catalog.Client, cfg config.Config) *Module {
	return &Module{db: db, client: client, cfg: cfg}
}

func (m *Module) ID() string   { return ModuleID }
func (m *Module) Name() string { return ModuleName }
func (m *Module) Core() bool   { return false }

// Dependencies returns module dependencies
func (m *Module) Dependencies() []string {
	return []string{mediamodule.ModuleID}
}

// Migrate is a no-op; the media module owns the schema.
func (m *Module) Migrate(db *gorm.DB) error {
	return nil
}

// Init builds the engine and, when enabled, the audit.
func (m *Module) Init() error {
	if m.db == nil {
		return fmt.Errorf("reconcile module requires a database")
	}
	m.engine = core.NewEngine(m.db, m.client, m.cfg.Library, m.cfg.Catalog.SeasonConcurrency)
	if m.cfg.Audit.Enabled {
		m.audit = scheduler.NewAudit(m.engine, m.cfg.Audit.Schedule, m.cfg.Audit.WindowHours)
	}
	return nil
}

// Engine exposes the reconciliation engine.
func (m *Module) Engine() *core.Engine {
	return m.engine
}

// Start schedules the audit.
func (m *Module) Start(ctx context.Context) error {
	if m.audit == nil {
		return nil
	}
	if err := m.audit.Start(); err != nil {
		return err
	}
	m.started = true
	return nil
}

// Shutdown stops the audit, waiting for a running pass up to ctx.
func (m *Module) Shutdown(ctx context.Context) error {
	if !m.started {
		return nil
	}
	return m.audit.Stop(ctx)
}

// RegisterRoutes registers HTTP routes
func (m *Module) RegisterRoutes(router *gin.RouterGroup) {
	var audit api.AuditSource
	if m.audit != nil {
		audit = m.audit
	}
	api.RegisterRoutes(router, api.NewHandler(m.engine, m.client, audit))
}

// HealthCheck reports degraded while the catalog key is missing; local
// verification still works in that state.
func (m *Module) HealthCheck(ctx context.Context) modulemanager.HealthStatus {
	status := modulemanager.HealthStatus{
		Status: modulemanager.HealthStateHealthy,
		Details: map[string]interface{}{
			"catalog_configured": m.client.Configured(),
			"audit_enabled":      m.audit != nil,
		},
	}
	if !m.client.Configured() {
		status.Status = modulemanager.HealthStateDegraded
		status.Message = "catalog API key not configured"
	}
	return status
}
