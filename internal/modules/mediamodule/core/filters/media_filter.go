// Package filters turns list query parameters into gorm clauses
package filters

import (
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// sortColumns whitelists the sortable media columns.
var sortColumns = map[string]string{
	"date_added": "date_added",
	"title":      "title",
	"year":       "year",
	"rating":     "rating",
}

// ListOptions carries the list endpoint's query parameters.
type ListOptions struct {
	Page   int
	Limit  int
	Type   string
	Genre  string
	Status string
	Search string
	Sort   string
	Order  string
}

// Normalize clamps pagination and replaces unknown sort keys with defaults.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = DefaultPage
	}
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if _, ok := sortColumns[o.Sort]; !ok {
		o.Sort = "date_added"
	}
	o.Order = strings.ToLower(o.Order)
	if o.Order != "asc" {
		o.Order = "desc"
	}
}

// Offset is the number of rows skipped for the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// MediaFilter handles the filtering logic for media listings
type MediaFilter struct{}

// NewMediaFilter creates a new media filter
func NewMediaFilter() *MediaFilter {
	return &MediaFilter{}
}

// ApplyFilter applies the where clauses only, so the result can be counted.
func (f *MediaFilter) ApplyFilter(query *gorm.DB, opts ListOptions) *gorm.DB {
	if opts.Type != "" {
		query = query.Where("type = ?", opts.Type)
	}

	if opts.Status != "" {
		query = query.Where("watch_status = ?", opts.Status)
	}

	if opts.Genre != "" {
		// exact, case-sensitive genre name
		query = query.Where("id IN (?)", query.Session(&gorm.Session{NewDB: true}).
			Table("media_genres").
			Select("media_genres.media_id").
			Joins("JOIN genres ON genres.id = media_genres.genre_id").
			Where("genres.name = ?", opts.Genre))
	}

	if opts.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(opts.Search)+"%")
	}

	return query
}

// ApplyPage adds ordering and pagination. opts must be normalized.
func (f *MediaFilter) ApplyPage(query *gorm.DB, opts ListOptions) *gorm.DB {
	column := sortColumns[opts.Sort]
	return query.
		Order(column + " " + opts.Order).
		Order("id " + opts.Order).
		Offset(opts.Offset()).
		Limit(opts.Limit)
}
