package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(""))

	cfg := cm.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, filepath.Join("./data", "shelfsync.db"), cfg.Database.DatabasePath)
	assert.Equal(t, 4, cfg.Catalog.SeasonConcurrency)
	assert.Equal(t, 24, cfg.Audit.WindowHours)
	assert.True(t, cfg.Library.Watch)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfsync.yaml")
	content := `
server:
  port: 9090
catalog:
  api_key: from-file
  base_url: http://catalog.local/3/
library:
  movies_path: /srv/movies
  watch: false
audit:
  window_hours: 48
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("TMDB_API_KEY", "from-env")
	t.Setenv("TV_PATH", "/srv/tv")
	t.Setenv("TMDB_REQUEST_TIMEOUT", "3s")

	cm := NewConfigManager()
	require.NoError(t, cm.LoadConfig(path))
	cfg := cm.GetConfig()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Catalog.APIKey)
	assert.Equal(t, "http://catalog.local/3", cfg.Catalog.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Catalog.RequestTimeout)
	assert.Equal(t, "/srv/movies", cfg.Library.MoviesPath)
	assert.Equal(t, "/srv/tv", cfg.Library.TVPath)
	assert.False(t, cfg.Library.Watch)
	assert.Equal(t, 48, cfg.Audit.WindowHours)
	assert.Equal(t, path, cm.ConfigPath())
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "mysql")

	cm := NewConfigManager()
	err := cm.LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestLoadConfigBadEnvValue(t *testing.T) {
	t.Setenv("SHELFSYNC_PORT", "not-a-number")

	err := NewConfigManager().LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHELFSYNC_PORT")
}

func TestLibraryRootFor(t *testing.T) {
	lib := LibraryConfig{MoviesPath: "/m", SharedPath: "/shared"}
	assert.Equal(t, "/m", lib.RootFor("movie"))
	assert.Equal(t, "/shared", lib.RootFor("tv"))

	assert.Equal(t, "", LibraryConfig{}.RootFor("movie"))
}

func TestLibraryRoots(t *testing.T) {
	t.Run("separate roots", func(t *testing.T) {
		roots := LibraryConfig{MoviesPath: "/m", TVPath: "/t"}.Roots()
		assert.Equal(t, []Root{{Path: "/m", Type: "movie"}, {Path: "/t", Type: "tv"}}, roots)
	})

	t.Run("shared root listed once as mixed", func(t *testing.T) {
		roots := LibraryConfig{SharedPath: "/media"}.Roots()
		assert.Equal(t, []Root{{Path: "/media", Type: RootTypeMixed}}, roots)
	})

	t.Run("shared root fills one type", func(t *testing.T) {
		roots := LibraryConfig{MoviesPath: "/m", SharedPath: "/media"}.Roots()
		assert.Equal(t, []Root{{Path: "/m", Type: "movie"}, {Path: "/media", Type: "tv"}}, roots)
	})

	t.Run("same path for both types", func(t *testing.T) {
		roots := LibraryConfig{MoviesPath: "/media", TVPath: "/media/"}.Roots()
		assert.Equal(t, []Root{{Path: "/media", Type: RootTypeMixed}}, roots)
	})

	t.Run("no roots", func(t *testing.T) {
		assert.Empty(t, LibraryConfig{}.Roots())
	})
}

func TestDatabaseDSN(t *testing.T) {
	sqlite := DatabaseConfig{Type: "sqlite", DatabasePath: "/tmp/x.db"}
	assert.Equal(t, "/tmp/x.db", sqlite.DSN())

	pg := DatabaseConfig{
		Type:     "postgres",
		Host:     "db",
		Port:     5433,
		Username: "shelf",
		Password: "p@ss",
		Database: "library",
	}
	assert.Equal(t, "postgres://shelf:p%40ss@db:5433/library?TimeZone=UTC&sslmode=disable", pg.DSN())
}
