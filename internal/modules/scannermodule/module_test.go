package scannermodule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/repository"
	"github.com/mantonx/shelfsync/internal/modules/modulemanager"
	"github.com/mantonx/shelfsync/internal/modules/scannermodule/scanner"
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

func setupModule(t *testing.T, library config.LibraryConfig, media MediaIndex) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := NewModule(library, media)
	require.NoError(t, m.Init())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { m.Shutdown(context.Background()) })

	router := gin.New()
	m.RegisterRoutes(router.Group("/api"))
	return router
}

func get(router *gin.Engine, path string) (int, map[string]interface{}) {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestScanFoldersMarksKnownMedia(t *testing.T) {
	db := setupTestDB(t)
	movies := t.TempDir()
	for _, name := range []string{"Inception (2010)", "Heat (1995)"} {
		require.NoError(t, os.Mkdir(filepath.Join(movies, name), 0o755))
	}
	require.NoError(t, db.Create(&database.Media{Title: "Inception", Type: database.MediaTypeMovie, Year: 2010}).Error)

	router := setupModule(t, config.LibraryConfig{MoviesPath: movies, Watch: true}, repository.NewMediaRepository(db))

	code, body := get(router, "/api/scan/folders")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["totalFound"])

	folders := body["folders"].([]interface{})
	byTitle := map[string]map[string]interface{}{}
	for _, f := range folders {
		folder := f.(map[string]interface{})
		byTitle[folder["title"].(string)] = folder
	}
	assert.Equal(t, string(scanner.StatusVerified), byTitle["Inception"]["status"])
	assert.NotNil(t, byTitle["Inception"]["detectedMetadata"])
	assert.Equal(t, string(scanner.StatusPending), byTitle["Heat"]["status"])

	code, body = get(router, "/api/scan/folders?status=pending")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["totalFound"])
}

func TestScanFoldersSharedRootTakesMatchedType(t *testing.T) {
	db := setupTestDB(t)
	shared := t.TempDir()
	for _, name := range []string{"Breaking Bad (2008)", "Heat (1995)", "Unknown Thing (2020)"} {
		require.NoError(t, os.Mkdir(filepath.Join(shared, name), 0o755))
	}
	require.NoError(t, db.Create(&database.Media{Title: "Breaking Bad", Type: database.MediaTypeTV, Year: 2008}).Error)
	require.NoError(t, db.Create(&database.Media{Title: "Heat", Type: database.MediaTypeMovie, Year: 1995}).Error)

	router := setupModule(t, config.LibraryConfig{SharedPath: shared}, repository.NewMediaRepository(db))

	code, body := get(router, "/api/scan/folders")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(3), body["totalFound"])

	byTitle := map[string]map[string]interface{}{}
	for _, f := range body["folders"].([]interface{}) {
		folder := f.(map[string]interface{})
		byTitle[folder["title"].(string)] = folder
	}
	assert.Equal(t, "tv", byTitle["Breaking Bad"]["type"])
	assert.Equal(t, string(scanner.StatusVerified), byTitle["Breaking Bad"]["status"])
	assert.Equal(t, "movie", byTitle["Heat"]["type"])
	assert.Equal(t, string(scanner.StatusVerified), byTitle["Heat"]["status"])
	assert.Equal(t, config.RootTypeMixed, byTitle["Unknown Thing"]["type"])
	assert.Equal(t, string(scanner.StatusPending), byTitle["Unknown Thing"]["status"])
}

func TestScanFoldersWithoutRoots(t *testing.T) {
	db := setupTestDB(t)
	router := setupModule(t, config.LibraryConfig{}, repository.NewMediaRepository(db))

	code, body := get(router, "/api/scan/folders")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(0), body["totalFound"])
}

type failingIndex struct{}

func (failingIndex) IdentityIndex(ctx context.Context) (map[repository.Identity]uint, error) {
	return nil, errors.New("database is locked")
}

func (failingIndex) Count(ctx context.Context) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestScanFailuresReturn200(t *testing.T) {
	router := setupModule(t, config.LibraryConfig{MoviesPath: t.TempDir()}, failingIndex{})

	code, body := get(router, "/api/scan/folders")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])

	code, body = get(router, "/api/stats/library")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestLibraryStats(t *testing.T) {
	db := setupTestDB(t)
	movies := t.TempDir()
	tv := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(movies, "Heat (1995)"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tv, "The Wire (2002)"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(tv, "Lost (2004)"), 0o755))
	require.NoError(t, db.Create(&database.Media{Title: "Heat", Type: database.MediaTypeMovie, Year: 1995}).Error)

	router := setupModule(t, config.LibraryConfig{MoviesPath: movies, TVPath: tv}, repository.NewMediaRepository(db))

	code, body := get(router, "/api/stats/library")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["dbFileCount"])
	assert.Equal(t, float64(1), body["movieFolderCount"])
	assert.Equal(t, float64(2), body["tvFolderCount"])
	assert.Equal(t, float64(3), body["totalFolders"])
	assert.Len(t, body["disk"], 2)
}

func TestLibraryStatsMissingRoot(t *testing.T) {
	db := setupTestDB(t)
	router := setupModule(t, config.LibraryConfig{MoviesPath: filepath.Join(t.TempDir(), "gone")}, repository.NewMediaRepository(db))

	code, body := get(router, "/api/stats/library")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
}

func TestHealthCheck(t *testing.T) {
	m := NewModule(config.LibraryConfig{MoviesPath: filepath.Join(t.TempDir(), "gone")}, failingIndex{})
	require.NoError(t, m.Init())

	assert.Equal(t, modulemanager.HealthStateDegraded, m.HealthCheck(context.Background()).Status)
}
