package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/database"
	apperrors "github.com/mantonx/shelfsync/internal/errors"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/filters"
	"github.com/mantonx/shelfsync/internal/modules/mediamodule/core/repository"
)

const (
	defaultRandomCount = 5
	maxRandomCount     = 50
)

// Handler provides HTTP handlers for media operations
type Handler struct {
	repo *repository.MediaRepository
}

// NewHandler creates a new API handler
func NewHandler(repo *repository.MediaRepository) *Handler {
	return &Handler{repo: repo}
}

// ParseID reads a positive numeric path parameter, writing a 400 on failure.
func ParseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperrors.HandleValidationError(c, "Invalid "+name, name)
		return 0, false
	}
	return uint(id), true
}

// respondRepoError maps repository errors to HTTP responses.
func respondRepoError(c *gin.Context, resource string, operation string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		apperrors.HandleNotFound(c, resource, c.Param("id"))
		return
	}
	apperrors.HandleDatabaseError(c, operation, err)
}

// ListMedia handles GET /api/media
//
// Query parameters: page, limit, type, genre, status, search, sort, order.
func (h *Handler) ListMedia(c *gin.Context) {
	opts := filters.ListOptions{
		Type:   c.Query("type"),
		Genre:  c.Query("genre"),
		Status: c.Query("status"),
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
	}
	opts.Page, _ = strconv.Atoi(c.Query("page"))
	opts.Limit, _ = strconv.Atoi(c.Query("limit"))

	result, err := h.repo.List(c.Request.Context(), opts)
	if err != nil {
		apperrors.HandleDatabaseError(c, "list media", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result.Items,
		"pagination": gin.H{
			"page":       result.Page,
			"limit":      result.Limit,
			"total":      result.Total,
			"totalPages": result.TotalPages,
		},
	})
}

// GetMedia handles GET /api/media/:id
func (h *Handler) GetMedia(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	media, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, "Media", "get media", err)
		return
	}
	c.JSON(http.StatusOK, media)
}

// RandomMedia handles GET /api/media/random?genre=Action&count=5
func (h *Handler) RandomMedia(c *gin.Context) {
	genre := c.Query("genre")
	if genre == "" {
		apperrors.HandleValidationError(c, "Genre is required", "genre")
		return
	}

	count, err := strconv.Atoi(c.Query("count"))
	if err != nil || count < 1 {
		count = defaultRandomCount
	}
	if count > maxRandomCount {
		count = maxRandomCount
	}

	items, err := h.repo.RandomMovies(c.Request.Context(), genre, count)
	if err != nil {
		apperrors.HandleDatabaseError(c, "random media", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type watchStatusRequest struct {
	WatchStatus     string `json:"watch_status"`
	CurrentEpisode  *int   `json:"current_episode"`
	ProgressPercent *int   `json:"progress_percent"`
}

// UpdateWatchStatus handles PUT /api/media/:id/watch-status
func (h *Handler) UpdateWatchStatus(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req watchStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, "Invalid request body", "body")
		return
	}
	if !database.ValidMediaWatchStatus(req.WatchStatus) {
		apperrors.HandleValidationError(c, "Invalid watch status", "watch_status")
		return
	}
	if req.ProgressPercent != nil && (*req.ProgressPercent < 0 || *req.ProgressPercent > 100) {
		apperrors.HandleValidationError(c, "Progress must be between 0 and 100", "progress_percent")
		return
	}

	err := h.repo.UpdateWatchStatus(c.Request.Context(), id, repository.WatchUpdate{
		WatchStatus:     req.WatchStatus,
		CurrentEpisode:  req.CurrentEpisode,
		ProgressPercent: req.ProgressPercent,
	})
	if err != nil {
		respondRepoError(c, "Media", "update watch status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Watch status updated"})
}

type episodeWatchRequest struct {
	WatchStatus string `json:"watch_status"`
}

// UpdateEpisodeWatchStatus handles PUT /api/episodes/:id/watch-status
func (h *Handler) UpdateEpisodeWatchStatus(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req episodeWatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, "Invalid request body", "body")
		return
	}
	if !database.ValidEpisodeWatchStatus(req.WatchStatus) {
		apperrors.HandleValidationError(c, "Invalid watch status", "watch_status")
		return
	}

	if err := h.repo.UpdateEpisodeWatchStatus(c.Request.Context(), id, req.WatchStatus); err != nil {
		respondRepoError(c, "Episode", "update episode watch status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Episode watch status updated"})
}

type updateMediaRequest struct {
	Title        *string  `json:"title"`
	Year         *int     `json:"year"`
	Description  *string  `json:"description"`
	Rating       *float64 `json:"rating"`
	Duration     *string  `json:"duration"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	BackdropURL  *string  `json:"backdrop_url"`
}

// UpdateMedia handles PUT /api/media/:id
func (h *Handler) UpdateMedia(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req updateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, "Invalid request body", "body")
		return
	}
	if req.Title != nil && *req.Title == "" {
		apperrors.HandleValidationError(c, "Title cannot be empty", "title")
		return
	}
	if req.Rating != nil && (*req.Rating < 0 || *req.Rating > 10) {
		apperrors.HandleValidationError(c, "Rating must be between 0 and 10", "rating")
		return
	}

	err := h.repo.Update(c.Request.Context(), id, repository.MediaUpdate{
		Title:        req.Title,
		Year:         req.Year,
		Description:  req.Description,
		Rating:       req.Rating,
		Duration:     req.Duration,
		ThumbnailURL: req.ThumbnailURL,
		BackdropURL:  req.BackdropURL,
	})
	if err != nil {
		respondRepoError(c, "Media", "update media", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Media updated"})
}

// DeleteMedia handles DELETE /api/media/:id
func (h *Handler) DeleteMedia(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		respondRepoError(c, "Media", "delete media", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Media deleted"})
}

type setFileRequest struct {
	FilePath string `json:"file_path"`
}

// SetMediaFile handles PUT /api/media/:id/file
func (h *Handler) SetMediaFile(c *gin.Context) {
	id, ok := ParseID(c, "id")
	if !ok {
		return
	}

	var req setFileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FilePath == "" {
		apperrors.HandleValidationError(c, "file_path is required", "file_path")
		return
	}

	if err := h.repo.SetFile(c.Request.Context(), id, req.FilePath); err != nil {
		respondRepoError(c, "Media", "set media file", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File path recorded"})
}

// ListGenres handles GET /api/genres
func (h *Handler) ListGenres(c *gin.Context) {
	genres, err := h.repo.ListGenres(c.Request.Context())
	if err != nil {
		apperrors.HandleDatabaseError(c, "list genres", err)
		return
	}
	c.JSON(http.StatusOK, genres)
}
