package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mantonx/shelfsync/internal/catalog"
	"github.com/mantonx/shelfsync/internal/database"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PopulateResult reports an episode population run. Seasons is the number of
// seasons in the catalog payload, specials included, whether or not they
// were fetched.
type PopulateResult struct {
	EpisodesAdded int `json:"episodesAdded"`
	Seasons       int `json:"seasons"`
}

type seasonFetch struct {
	number   int
	episodes []catalog.Episode
	err      error
}

// PopulateEpisodes fills the episode list of a series from the catalog. The
// first search hit for the series title and year is used. Seasons are fetched
// concurrently and inserted in season order; a season that fails to fetch or
// insert is logged and skipped. Episodes already present are left alone.
// total_episodes is set to the series' episode row count, which equals the
// inserted count on a first run.
func (e *Engine) PopulateEpisodes(ctx context.Context, mediaID uint) (*PopulateResult, error) {
	var media database.Media
	if err := e.db.WithContext(ctx).First(&media, mediaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load media: %w", err)
	}
	if media.Type != database.MediaTypeTV {
		return nil, ErrNotTV
	}
	if !e.catalog.Configured() {
		return nil, ErrNotConfigured
	}

	results, err := e.catalog.Search(ctx, media.Title, catalog.SearchOptions{
		MediaType: catalog.MediaTypeTV,
		Year:      media.Year,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w for %q (%d)", ErrNoMatch, media.Title, media.Year)
	}
	showID := results[0].ID

	details, err := e.catalog.GetDetails(ctx, showID, catalog.MediaTypeTV)
	if err != nil {
		return nil, err
	}
	if details.TV == nil {
		return nil, fmt.Errorf("%w: catalog returned no series details", catalog.ErrUnavailable)
	}

	fetched := e.fetchSeasons(ctx, showID, details.TV.Seasons)

	result := &PopulateResult{Seasons: len(details.TV.Seasons)}
	for _, season := range fetched {
		if season.err != nil {
			e.log.Warn("skipping season", "media_id", mediaID, "season", season.number, "error", season.err)
			continue
		}
		added, err := e.insertEpisodes(ctx, mediaID, season)
		if err != nil {
			e.log.Warn("failed to store season", "media_id", mediaID, "season", season.number, "error", err)
			continue
		}
		result.EpisodesAdded += added
	}

	var total int64
	if err := e.db.WithContext(ctx).Model(&database.Episode{}).Where("media_id = ?", mediaID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count episodes: %w", err)
	}
	if err := e.db.WithContext(ctx).Model(&database.Media{}).Where("id = ?", mediaID).Update("total_episodes", total).Error; err != nil {
		return nil, fmt.Errorf("failed to update episode total: %w", err)
	}

	e.log.Info("episodes populated", "media_id", mediaID, "catalog_id", showID,
		"added", result.EpisodesAdded, "seasons", result.Seasons, "total", total)
	return result, nil
}

// fetchSeasons downloads every non-special season with bounded concurrency.
// Failures are recorded per season and never cancel the others.
func (e *Engine) fetchSeasons(ctx context.Context, showID int, seasons []catalog.SeasonSummary) []seasonFetch {
	var numbers []int
	for _, s := range seasons {
		if s.SeasonNumber == 0 {
			continue
		}
		numbers = append(numbers, s.SeasonNumber)
	}
	sort.Ints(numbers)

	fetched := make([]seasonFetch, len(numbers))
	var g errgroup.Group
	g.SetLimit(e.seasonWorkers)
	for i, number := range numbers {
		g.Go(func() error {
			episodes, err := e.catalog.GetSeasonEpisodes(ctx, showID, number)
			fetched[i] = seasonFetch{number: number, episodes: episodes, err: err}
			return nil
		})
	}
	g.Wait()
	return fetched
}

// insertEpisodes stores one season in a transaction and returns the number of
// rows actually inserted.
func (e *Engine) insertEpisodes(ctx context.Context, mediaID uint, season seasonFetch) (int, error) {
	today := e.now().Format(airDateLayout)
	added := 0

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		added = 0
		for _, ep := range season.episodes {
			row := database.Episode{
				MediaID:       mediaID,
				SeasonNumber:  season.number,
				EpisodeNumber: ep.EpisodeNumber,
				Title:         ep.Name,
				Description:   ep.Overview,
				Duration:      defaultEpisodeDuration,
				AirDate:       ep.AirDate,
				WatchStatus:   database.WatchStatusUnwatched,
			}
			if ep.Runtime != nil && *ep.Runtime > 0 {
				row.Duration = fmt.Sprintf("%dm", *ep.Runtime)
			}
			if row.AirDate == "" {
				row.AirDate = today
			}

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("failed to insert S%02dE%02d: %w", season.number, ep.EpisodeNumber, res.Error)
			}
			added += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
