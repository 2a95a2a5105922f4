// Package repository provides data access layer for media operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/filters"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("record not found")

// ListResult is one page of media.
type ListResult struct {
	Items      []database.Media
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// WatchUpdate is the body of a media watch-status change.
type WatchUpdate struct {
	WatchStatus     string
	CurrentEpisode  *int
	ProgressPercent *int
}

// MediaUpdate holds metadata corrections. Nil fields are left unchanged.
type MediaUpdate struct {
	Title        *string
	Year         *int
	Description  *string
	Rating       *float64
	Duration     *string
	ThumbnailURL *string
	BackdropURL  *string
}

func (u MediaUpdate) columns() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.Title != nil {
		updates["title"] = *u.Title
	}
	if u.Year != nil {
		updates["year"] = *u.Year
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Rating != nil {
		updates["rating"] = *u.Rating
	}
	if u.Duration != nil {
		updates["duration"] = *u.Duration
	}
	if u.ThumbnailURL != nil {
		updates["thumbnail_url"] = *u.ThumbnailURL
	}
	if u.BackdropURL != nil {
		updates["backdrop_url"] = *u.BackdropURL
	}
	return updates
}

// MediaRepository handles all database operations for media rows
type MediaRepository struct {
	db     *gorm.DB
	filter *filters.MediaFilter
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{
		db:     db,
		filter: filters.NewMediaFilter(),
	}
}

// List returns one filtered, sorted page of media with genres attached.
func (r *MediaRepository) List(ctx context.Context, opts filters.ListOptions) (*ListResult, error) {
	opts.Normalize()

	result := &ListResult{Page: opts.Page, Limit: opts.Limit, Items: []database.Media{}}
	err := database.WithRetry(ctx, 0, func() error {
		base := r.filter.ApplyFilter(r.db.WithContext(ctx).Model(&database.Media{}), opts)
		if err := base.Count(&result.Total).Error; err != nil {
			return err
		}
		items := []database.Media{}
		query := r.filter.ApplyFilter(r.db.WithContext(ctx).Model(&database.Media{}), opts)
		if err := r.filter.ApplyPage(query, opts).Find(&items).Error; err != nil {
			return err
		}
		result.Items = items
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	result.TotalPages = int((result.Total + int64(opts.Limit) - 1) / int64(opts.Limit))
	if err := r.attachGenres(ctx, result.Items); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID loads one media row with its genres, and episodes for series
// ordered by season then episode.
func (r *MediaRepository) GetByID(ctx context.Context, id uint) (*database.Media, error) {
	var media database.Media
	err := database.WithRetry(ctx, 0, func() error {
		return r.db.WithContext(ctx).First(&media, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get media: %w", err)
	}

	items := []database.Media{media}
	if err := r.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	media = items[0]

	if media.Type == database.MediaTypeTV {
		episodes := []database.Episode{}
		err := database.WithRetry(ctx, 0, func() error {
			return r.db.WithContext(ctx).
				Where("media_id = ?", id).
				Order("season_number ASC").
				Order("episode_number ASC").
				Find(&episodes).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load episodes: %w", err)
		}
		media.Episodes = episodes
	}
	return &media, nil
}

type genreLink struct {
	MediaID uint
	Name    string
}

func (r *MediaRepository) attachGenres(ctx context.Context, items []database.Media) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
		items[i].Genres = []string{}
	}

	var links []genreLink
	err := database.WithRetry(ctx, 0, func() error {
		links = nil
		return r.db.WithContext(ctx).
			Table("media_genres").
			Select("media_genres.media_id, genres.name").
			Joins("JOIN genres ON genres.id = media_genres.genre_id").
			Where("media_genres.media_id IN ?", ids).
			Order("genres.name").
			Scan(&links).Error
	})
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}

	byID := make(map[uint]int, len(items))
	for i := range items {
		byID[items[i].ID] = i
	}
	for _, link := range links {
		if i, ok := byID[link.MediaID]; ok {
			items[i].Genres = append(items[i].Genres, link.Name)
		}
	}
	return nil
}

// UpdateWatchStatus records playback progress and stamps last_watched.
func (r *MediaRepository) UpdateWatchStatus(ctx context.Context, id uint, update WatchUpdate) error {
	columns := map[string]interface{}{
		"watch_status":     update.WatchStatus,
		"current_episode":  update.CurrentEpisode,
		"progress_percent": update.ProgressPercent,
		"last_watched":     time.Now().UTC(),
	}
	return r.updateMedia(ctx, id, columns)
}

// UpdateEpisodeWatchStatus marks one episode watched or unwatched.
func (r *MediaRepository) UpdateEpisodeWatchStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&database.Episode{}).Where("id = ?", id).Update("watch_status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update episode: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("episode %d: %w", id, ErrNotFound)
	}
	return nil
}

// Update applies metadata corrections.
func (r *MediaRepository) Update(ctx context.Context, id uint, update MediaUpdate) error {
	columns := update.columns()
	if len(columns) == 0 {
		// nothing to change, but the row must still exist
		_, err := r.exists(ctx, id)
		return err
	}
	return r.updateMedia(ctx, id, columns)
}

func (r *MediaRepository) updateMedia(ctx context.Context, id uint, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&database.Media{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return fmt.Errorf("failed to update media: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *MediaRepository) exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&database.Media{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check media: %w", err)
	}
	if count == 0 {
		return false, fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	return true, nil
}

// Delete removes a media row with its episodes, genre links and file record.
// Genres themselves are kept.
func (r *MediaRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ?", id).Delete(&database.Episode{}).Error; err != nil {
			return fmt.Errorf("failed to delete episodes: %w", err)
		}
		if err := tx.Where("media_id = ?", id).Delete(&database.MediaGenre{}).Error; err != nil {
			return fmt.Errorf("failed to delete genre links: %w", err)
		}
		if err := tx.Where("media_id = ?", id).Delete(&database.MediaFile{}).Error; err != nil {
			return fmt.Errorf("failed to delete file record: %w", err)
		}
		result := tx.Delete(&database.Media{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete media: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("media %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// SetFile records an explicit on-disk path for a media row, replacing any
// previous one.
func (r *MediaRepository) SetFile(ctx context.Context, id uint, path string) error {
	if _, err := r.exists(ctx, id); err != nil {
		return err
	}
	file := database.MediaFile{MediaID: id, FilePath: path}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "media_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_path", "updated_at"}),
	}).Create(&file).Error
	if err != nil {
		return fmt.Errorf("failed to save file path: %w", err)
	}
	return nil
}

// GetFile returns the recorded file for a media row, or nil when none is set.
func (r *MediaRepository) GetFile(ctx context.Context, mediaID uint) (*database.MediaFile, error) {
	var files []database.MediaFile
	err := database.WithRetry(ctx, 0, func() error {
		return r.db.WithContext(ctx).Where("media_id = ?", mediaID).Limit(1).Find(&files).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get media file: %w", err)
	}
	if len(files) == 0 {
		return nil, nil
	}
	return &files[0], nil
}

// ListGenres returns every genre sorted by name.
func (r *MediaRepository) ListGenres(ctx context.Context) ([]database.Genre, error) {
	genres := []database.Genre{}
	err := database.WithRetry(ctx, 0, func() error {
		return r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list genres: %w", err)
	}
	return genres, nil
}

// RandomMovies picks up to count random movies in a genre.
func (r *MediaRepository) RandomMovies(ctx context.Context, genre string, count int) ([]database.Media, error) {
	opts := filters.ListOptions{Type: string(database.MediaTypeMovie), Genre: genre}

	items := []database.Media{}
	err := database.WithRetry(ctx, 0, func() error {
		query := r.filter.ApplyFilter(r.db.WithContext(ctx).Model(&database.Media{}), opts)
		return query.Order("RANDOM()").Limit(count).Find(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pick random media: %w", err)
	}
	if err := r.attachGenres(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of media rows.
func (r *MediaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := database.WithRetry(ctx, 0, func() error {
		return r.db.WithContext(ctx).Model(&database.Media{}).Count(&count).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return count, nil
}

// AddedSince returns media with date_added at or after since, oldest first.
func (r *MediaRepository) AddedSince(ctx context.Context, since time.Time) ([]database.Media, error) {
	items := []database.Media{}
	err := database.WithRetry(ctx, 0, func() error {
		return r.db.WithContext(ctx).
			Where("date_added >= ?", since.UTC()).
			Order("date_added ASC").
			Find(&items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query recent media: %w", err)
	}
	return items, nil
}

// Identity is the (type, title, year) triple used to match folders to rows.
type Identity struct {
	Type  string
	Title string
	Year  int
}

// IdentityIndex maps each identity to the lowest media id carrying it.
func (r *MediaRepository) IdentityIndex(ctx context.Context) (map[Identity]uint, error) {
	var rows []struct {
		ID    uint
		Type  string
		Title string
		Year  int
	}
	err := database.WithRetry(ctx, 0, func() error {
		rows = nil
		return r.db.WithContext(ctx).Model(&database.Media{}).
			Select("id, type, title, year").
			Order("id ASC").
			Scan(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index media: %w", err)
	}

	index := make(map[Identity]uint, len(rows))
	for _, row := range rows {
		key := Identity{Type: row.Type, Title: row.Title, Year: row.Year}
		if _, ok := index[key]; !ok {
			index[key] = row.ID
		}
	}
	return index, nil
}
