// Package modulemanager wires feature modules into the application.
package modulemanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/logger"
	"gorm.io/gorm"
)

// ModuleRegistry manages module registration and initialization
type ModuleRegistry struct {
	modules         map[string]Module
	disabledModules map[string]bool
	order           []Module
	mu              sync.RWMutex
	initialized     bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		modules:         make(map[string]Module),
		disabledModules: make(map[string]bool),
	}
}

// Register adds a module to the registry
func (r *ModuleRegistry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("module registered after initialization", "module", m.ID())
	}

	r.modules[m.ID()] = m
	logger.Debug("module registered", "module", m.ID(), "name", m.Name())
}

// DisableModule marks a non-core module as disabled. It must be called
// before LoadAll.
func (r *ModuleRegistry) DisableModule(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	module, exists := r.modules[id]
	if !exists {
		return fmt.Errorf("unknown module: %s", id)
	}
	if module.Core() {
		return fmt.Errorf("cannot disable core module: %s", id)
	}
	r.disabledModules[id] = true
	logger.Info("module disabled", "module", id)
	return nil
}

// LoadAll migrates and initializes all enabled modules in dependency order
func (r *ModuleRegistry) LoadAll(db *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		logger.Warn("module system already initialized")
		return nil
	}

	enabled := make(map[string]Module)
	for id, module := range r.modules {
		if r.disabledModules[id] {
			logger.Warn("skipping disabled module", "module", id)
			continue
		}
		enabled[id] = module
	}

	order, err := initializationOrder(enabled)
	if err != nil {
		return fmt.Errorf("failed to determine initialization order: %w", err)
	}

	for i, module := range order {
		logger.Info("initializing module", "step", fmt.Sprintf("%d/%d", i+1, len(order)), "module", module.ID())

		if err := module.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", module.Name(), err)
		}
		if err := module.Init(); err != nil {
			return fmt.Errorf("failed to initialize %s: %w", module.Name(), err)
		}
	}

	r.order = order
	r.initialized = true
	return nil
}

// RegisterRoutes lets every loaded module attach its routes.
func (r *ModuleRegistry) RegisterRoutes(router *gin.RouterGroup) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, module := range r.order {
		if registrar, ok := module.(RouteRegistrar); ok {
			registrar.RegisterRoutes(router)
			logger.Debug("module routes registered", "module", module.ID())
		}
	}
}

// StartAll starts background work of every loaded module.
func (r *ModuleRegistry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, module := range r.order {
		if starter, ok := module.(Starter); ok {
			if err := starter.Start(ctx); err != nil {
				return fmt.Errorf("failed to start %s: %w", module.Name(), err)
			}
		}
	}
	return nil
}

// Shutdown stops modules in reverse initialization order and returns every
// error encountered.
func (r *ModuleRegistry) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		if s, ok := r.order[i].(Shutdowner); ok {
			if err := s.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.order[i].ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Health collects the status of every module that reports one.
func (r *ModuleRegistry) Health(ctx context.Context) map[string]HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make(map[string]HealthStatus)
	for _, module := range r.order {
		if checker, ok := module.(HealthChecker); ok {
			status := checker.HealthCheck(ctx)
			if status.LastChecked.IsZero() {
				status.LastChecked = time.Now().UTC()
			}
			statuses[module.ID()] = status
		}
	}
	return statuses
}

// GetModule returns a module by ID
func (r *ModuleRegistry) GetModule(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	module, exists := r.modules[id]
	return module, exists
}

// ListModules returns the loaded modules in initialization order
func (r *ModuleRegistry) ListModules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Module(nil), r.order...)
}
