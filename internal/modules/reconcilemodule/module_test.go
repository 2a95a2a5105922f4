package reconcilemodule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/catalog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/modules/modulemanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(false))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func TestModuleLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	cfg := config.DefaultConfig()
	cfg.Library.MoviesPath = t.TempDir()

	m := NewModule(db, catalog.NewClient(cfg.Catalog), *cfg)
	require.NoError(t, m.Init())
	require.NoError(t, m.Start(context.Background()))
	defer m.Shutdown(context.Background())

	health := m.HealthCheck(context.Background())
	assert.Equal(t, modulemanager.HealthStateDegraded, health.Status)

	router := gin.New()
	m.RegisterRoutes(router.Group("/api"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/stats/audit", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["ran"])

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/api/media/verify-recent?hours=1", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(100), body["healthPercent"])
	assert.Equal(t, float64(0), body["totalChecked"])
}

func TestModuleWithoutAudit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Audit.Enabled = false
	cfg.Catalog.APIKey = "key"

	m := NewModule(setupTestDB(t), catalog.NewClient(cfg.Catalog), *cfg)
	require.NoError(t, m.Init())
	require.NoError(t, m.Start(context.Background()))
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, modulemanager.HealthStateHealthy, m.HealthCheck(context.Background()).Status)
}
