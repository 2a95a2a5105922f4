package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mantonx/shelfsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func openTempSQLite(t *testing.T) config.DatabaseConfig {
	return config.DatabaseConfig{
		Type:           "sqlite",
		DatabasePath:   filepath.Join(t.TempDir(), "nested", "shelfsync.db"),
		MaxOpenConns:   4,
		MaxIdleConns:   1,
		ConnectRetries: 1,
	}
}

func TestOpenAndMigrateSQLite(t *testing.T) {
	cfg := openTempSQLite(t)

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	for _, table := range []string{"media", "genres", "media_genres", "episodes", "media_files"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpenUnsupportedType(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Type: "oracle", ConnectRetries: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestMediaDefaultsOnCreate(t *testing.T) {
	db, err := Open(openTempSQLite(t))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	m := Media{Title: "Arrival", Type: MediaTypeMovie, Year: 2016}
	require.NoError(t, db.Create(&m).Error)

	assert.NotZero(t, m.ID)
	assert.Equal(t, WatchStatusUnwatched, m.WatchStatus)
	assert.WithinDuration(t, time.Now().UTC(), m.DateAdded, time.Minute)
	assert.Equal(t, time.UTC, m.DateAdded.Location())
}

func TestEpisodePositionIsUnique(t *testing.T) {
	db, err := Open(openTempSQLite(t))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	show := Media{Title: "Dark", Type: MediaTypeTV, Year: 2017}
	require.NoError(t, db.Create(&show).Error)

	first := Episode{MediaID: show.ID, SeasonNumber: 1, EpisodeNumber: 1, Title: "Secrets"}
	require.NoError(t, db.Create(&first).Error)

	dup := Episode{MediaID: show.ID, SeasonNumber: 1, EpisodeNumber: 1, Title: "Secrets again"}
	assert.Error(t, db.Create(&dup).Error)

	ignored := Episode{MediaID: show.ID, SeasonNumber: 1, EpisodeNumber: 1, Title: "ignored"}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ignored)
	require.NoError(t, res.Error)
	assert.Equal(t, int64(0), res.RowsAffected)
}

func TestValidators(t *testing.T) {
	assert.True(t, MediaTypeTV.Valid())
	assert.False(t, MediaType("music").Valid())
	assert.True(t, ValidMediaWatchStatus(WatchStatusInProgress))
	assert.False(t, ValidEpisodeWatchStatus(WatchStatusInProgress))
	assert.False(t, ValidMediaWatchStatus(""))
}
