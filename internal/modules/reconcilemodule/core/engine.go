// Package core aligns the media table with the catalog and the filesystem.
package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/shelfsync/internal/catalog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/database"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/repository"
	"github.com/mantonx/shelfsync/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means the media row does not exist.
	ErrNotFound = errors.New("media not found")
	// ErrNotTV means a series-only operation was called on a movie. It
	// matches ErrNotFound.
	ErrNotTV = fmt.Errorf("%w: media is not a TV series", ErrNotFound)
	// ErrNoMatch means the catalog returned no candidates.
	ErrNoMatch = errors.New("no catalog match")
	// ErrNotConfigured means the catalog credential is missing.
	ErrNotConfigured = errors.New("catalog not configured")
)

const (
	defaultEpisodeDuration = "45m"
	airDateLayout          = "2006-01-02"
	defaultWindowHours     = 24
	defaultSeasonWorkers   = 4
)

// Catalog is the subset of the catalog client the engine uses.
type Catalog interface {
	Configured() bool
	Search(ctx context.Context, query string, opts catalog.SearchOptions) ([]catalog.SearchResult, error)
	GetDetails(ctx context.Context, id int, mediaType catalog.MediaType) (*catalog.Details, error)
	GetSeasonEpisodes(ctx context.Context, showID, season int) ([]catalog.Episode, error)
	PosterURL(path string) string
	BackdropURL(path string) string
}

// Engine runs catalog imports, episode population and existence checks.
type Engine struct {
	db            *gorm.DB
	repo          *repository.MediaRepository
	catalog       Catalog
	library       config.LibraryConfig
	seasonWorkers int
	now           func() time.Time
	log           hclog.Logger
}

// NewEngine creates an engine. seasonWorkers bounds concurrent season fetches.
func NewEngine(db *gorm.DB, cat Catalog, library config.LibraryConfig, seasonWorkers int) *Engine {
	if seasonWorkers < 1 {
		seasonWorkers = defaultSeasonWorkers
	}
	return &Engine{
		db:            db,
		repo:          repository.NewMediaRepository(db),
		catalog:       cat,
		library:       library,
		seasonWorkers: seasonWorkers,
		now:           func() time.Time { return time.Now().UTC() },
		log:           logger.Named("reconcile"),
	}
}

// AddFromCatalog imports one catalog entry as a new media row with its
// genres. The insert and every genre link commit together or not at all.
// Repeated imports of the same id create separate rows.
func (e *Engine) AddFromCatalog(ctx context.Context, catalogID int, mediaType catalog.MediaType) (uint, error) {
	if !e.catalog.Configured() {
		return 0, ErrNotConfigured
	}

	details, err := e.catalog.GetDetails(ctx, catalogID, mediaType)
	if err != nil {
		return 0, err
	}

	media, genres := e.mapDetails(details)

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&media).Error; err != nil {
			return fmt.Errorf("failed to insert media: %w", err)
		}
		for _, name := range genres {
			genreID, err := upsertGenre(tx, name)
			if err != nil {
				return err
			}
			if err := tx.Create(&database.MediaGenre{MediaID: media.ID, GenreID: genreID}).Error; err != nil {
				return fmt.Errorf("failed to link genre %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.log.Info("media added from catalog", "id", media.ID, "catalog_id", catalogID, "type", mediaType, "title", media.Title)
	return media.ID, nil
}

// mapDetails converts a catalog payload into a media row and genre names.
func (e *Engine) mapDetails(details *catalog.Details) (database.Media, []string) {
	var media database.Media
	var genres []catalog.Genre

	switch details.Type {
	case catalog.MediaTypeTV:
		tv := details.TV
		total := tv.NumberOfEpisodes
		media = database.Media{
			Title:         tv.Name,
			Type:          database.MediaTypeTV,
			Year:          catalog.YearFromDate(tv.FirstAirDate),
			Rating:        roundRating(tv.VoteAverage),
			Description:   tv.Overview,
			ThumbnailURL:  e.catalog.PosterURL(tv.PosterPath),
			BackdropURL:   e.catalog.BackdropURL(tv.BackdropPath),
			Duration:      fmt.Sprintf("%d Seasons", tv.NumberOfSeasons),
			TotalEpisodes: &total,
		}
		genres = tv.Genres
	default:
		movie := details.Movie
		media = database.Media{
			Title:        movie.Title,
			Type:         database.MediaTypeMovie,
			Year:         catalog.YearFromDate(movie.ReleaseDate),
			Rating:       roundRating(movie.VoteAverage),
			Description:  movie.Overview,
			ThumbnailURL: e.catalog.PosterURL(movie.PosterPath),
			BackdropURL:  e.catalog.BackdropURL(movie.BackdropPath),
			Duration:     fmt.Sprintf("%dm", movie.Runtime),
		}
		genres = movie.Genres
	}

	names := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		if g.Name == "" || seen[g.Name] {
			continue
		}
		seen[g.Name] = true
		names = append(names, g.Name)
	}
	return media, names
}

// roundRating keeps one decimal place.
func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}

// VerificationResult is the outcome of checking one media row.
type VerificationResult struct {
	MediaID        uint   `json:"mediaId"`
	Title          string `json:"title,omitempty"`
	Type           string `json:"type,omitempty"`
	DatabaseExists bool   `json:"databaseExists"`
	FileExists     bool   `json:"fileExists"`
	ExpectedPath   string `json:"expectedPath,omitempty"`
	Status         string `json:"status"`
}

// Verification statuses.
const (
	StatusVerified    = "verified"
	StatusFileMissing = "file-missing"
	StatusMissing     = "missing"
)

// BulkVerification aggregates the checks of a time window.
type BulkVerification struct {
	Hours        int                  `json:"hours"`
	TotalChecked int                  `json:"totalChecked"`
	Verified     int                  `json:"verified"`
	Issues       int                  `json:"issues"`
	Results      []VerificationResult `json:"results"`
}

// Verify checks that a media row exists and that its folder is on disk.
// It never fails: database errors are logged and reported as missing.
func (e *Engine) Verify(ctx context.Context, mediaID uint) VerificationResult {
	media, err := e.repo.GetByID(ctx, mediaID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			e.log.Error("verification lookup failed", "media_id", mediaID, "error", err)
		}
		return VerificationResult{MediaID: mediaID, Status: StatusMissing}
	}
	return e.checkFile(ctx, media)
}

// VerifyRecent checks every media row added within the last hours, in order,
// without stopping on individual results. hours < 1 means 24.
func (e *Engine) VerifyRecent(ctx context.Context, hours int) (*BulkVerification, error) {
	if hours < 1 {
		hours = defaultWindowHours
	}
	since := e.now().Add(-time.Duration(hours) * time.Hour)

	items, err := e.repo.AddedSince(ctx, since)
	if err != nil {
		return nil, err
	}

	bulk := &BulkVerification{Hours: hours, Results: make([]VerificationResult, 0, len(items))}
	for i := range items {
		result := e.checkFile(ctx, &items[i])
		bulk.Results = append(bulk.Results, result)
		bulk.TotalChecked++
		if result.Status == StatusVerified {
			bulk.Verified++
		}
	}
	bulk.Issues = bulk.TotalChecked - bulk.Verified
	return bulk, nil
}

func (e *Engine) checkFile(ctx context.Context, media *database.Media) VerificationResult {
	result := VerificationResult{
		MediaID:        media.ID,
		Title:          media.Title,
		Type:           string(media.Type),
		DatabaseExists: true,
		ExpectedPath:   e.expectedPath(ctx, media),
	}
	result.FileExists = utils.PathExists(result.ExpectedPath)
	if result.FileExists {
		result.Status = StatusVerified
	} else {
		result.Status = StatusFileMissing
	}
	return result
}

// expectedPath is the recorded file path, or "{root}/{title} ({year})".
// An empty result means no root is configured for the type.
func (e *Engine) expectedPath(ctx context.Context, media *database.Media) string {
	file, err := e.repo.GetFile(ctx, media.ID)
	if err != nil {
		e.log.Warn("file record lookup failed", "media_id", media.ID, "error", err)
	}
	if file != nil && file.FilePath != "" {
		return file.FilePath
	}

	root := e.library.RootFor(string(media.Type))
	if root == "" {
		return ""
	}
	return filepath.Join(root, fmt.Sprintf("%s (%d)", media.Title, media.Year))
}
