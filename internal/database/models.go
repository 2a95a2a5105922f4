package database

import (
	"time"

	"gorm.io/gorm"
)

// MediaType discriminates movies from series in the media table.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// WatchStatus values for media rows. Episodes only use watched/unwatched.
const (
	WatchStatusUnwatched  = "unwatched"
	WatchStatusInProgress = "in-progress"
	WatchStatusWatched    = "watched"
)

// ValidMediaWatchStatus reports whether s may be stored on a media row.
func ValidMediaWatchStatus(s string) bool {
	return s == WatchStatusUnwatched || s == WatchStatusInProgress || s == WatchStatusWatched
}

// ValidEpisodeWatchStatus reports whether s may be stored on an episode row.
func ValidEpisodeWatchStatus(s string) bool {
	return s == WatchStatusUnwatched || s == WatchStatusWatched
}

// Media is one library item, either a movie or a TV series.
// TotalEpisodes is only meaningful for series.
type Media struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Title           string     `gorm:"not null;index" json:"title"`
	Type            MediaType  `gorm:"type:varchar(10);not null;index" json:"type"`
	Year            int        `gorm:"index" json:"year"`
	Rating          float64    `json:"rating"`
	Duration        string     `json:"duration"`
	Description     string     `gorm:"type:text" json:"description"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	BackdropURL     string     `json:"backdrop_url"`
	TotalEpisodes   *int       `json:"total_episodes,omitempty"`
	WatchStatus     string     `gorm:"type:varchar(20);not null;default:unwatched" json:"watch_status"`
	CurrentEpisode  *int       `json:"current_episode,omitempty"`
	ProgressPercent *int       `json:"progress_percent,omitempty"`
	LastWatched     *time.Time `json:"last_watched,omitempty"`
	DateAdded       time.Time  `gorm:"not null;index" json:"date_added"`

	Genres   []string  `gorm:"-" json:"genres"`
	Episodes []Episode `gorm:"foreignKey:MediaID;constraint:OnDelete:CASCADE" json:"episodes,omitempty"`
}

// TableName keeps the table name stable regardless of pluralisation rules.
func (Media) TableName() string { return "media" }

// BeforeCreate stamps date_added in UTC so window queries compare like with like.
func (m *Media) BeforeCreate(tx *gorm.DB) error {
	if m.DateAdded.IsZero() {
		m.DateAdded = time.Now().UTC()
	}
	if m.WatchStatus == "" {
		m.WatchStatus = WatchStatusUnwatched
	}
	return nil
}

// Genre names are matched exactly; "Sci-Fi" and "sci-fi" are distinct rows.
type Genre struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}

func (Genre) TableName() string { return "genres" }

// MediaGenre links media to genres.
type MediaGenre struct {
	MediaID uint `gorm:"primaryKey;autoIncrement:false" json:"media_id"`
	GenreID uint `gorm:"primaryKey;autoIncrement:false;index" json:"genre_id"`
}

func (MediaGenre) TableName() string { return "media_genres" }

// Episode belongs to exactly one TV media row.
type Episode struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MediaID       uint      `gorm:"not null;uniqueIndex:idx_episode_position" json:"media_id"`
	SeasonNumber  int       `gorm:"not null;uniqueIndex:idx_episode_position" json:"season_number"`
	EpisodeNumber int       `gorm:"not null;uniqueIndex:idx_episode_position" json:"episode_number"`
	Title         string    `json:"title"`
	Description   string    `gorm:"type:text" json:"description"`
	Duration      string    `json:"duration"`
	AirDate       string    `gorm:"type:varchar(10)" json:"air_date"`
	DateAdded     time.Time `gorm:"not null" json:"date_added"`
	WatchStatus   string    `gorm:"type:varchar(20);not null;default:unwatched" json:"watch_status"`
}

func (Episode) TableName() string { return "episodes" }

// BeforeCreate fills insert-time defaults.
func (e *Episode) BeforeCreate(tx *gorm.DB) error {
	if e.DateAdded.IsZero() {
		e.DateAdded = time.Now().UTC()
	}
	if e.WatchStatus == "" {
		e.WatchStatus = WatchStatusUnwatched
	}
	return nil
}

// MediaFile records an explicit on-disk location for a media row. Without
// one, the location is derived from the library root, title and year.
type MediaFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MediaID   uint      `gorm:"not null;uniqueIndex" json:"media_id"`
	FilePath  string    `gorm:"not null" json:"file_path"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MediaFile) TableName() string { return "media_files" }

// AllModels lists every model for AutoMigrate.
func AllModels() []interface{} {
	return []interface{}{
		&Media{},
		&Genre{},
		&MediaGenre{},
		&Episode{},
		&MediaFile{},
	}
}
