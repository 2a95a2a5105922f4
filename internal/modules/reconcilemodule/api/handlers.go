// Package api exposes catalog import, verification and episode population
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/catalog"
	apperrors "github.com/mantonx/shelfsync/internal/errors"
	"github.com/mantonx/shelfsync/internal/logger"
	mediaapi "github.com/mantonx/shelfsync/internal/modules/mediamodule/api"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/core"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/reporter"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/scheduler"
)

// Reconciler is the engine surface the handlers need.
type Reconciler interface {
	AddFromCatalog(ctx context.Context, catalogID int, mediaType catalog.MediaType) (uint, error)
	Verify(ctx context.Context, mediaID uint) core.VerificationResult
	VerifyRecent(ctx context.Context, hours int) (*core.BulkVerification, error)
	PopulateEpisodes(ctx context.Context, mediaID uint) (*core.PopulateResult, error)
}

// RawSearcher proxies catalog searches.
type RawSearcher interface {
	SearchRaw(ctx context.Context, query string, mediaType catalog.MediaType) (json.RawMessage, error)
}

// AuditSource returns the most recent scheduled audit, if any.
type AuditSource interface {
	LastReport() *scheduler.AuditResult
}

// Handler provides HTTP handlers for reconciliation.
type Handler struct {
	engine   Reconciler
	searcher RawSearcher
	audit    AuditSource
}

// NewHandler creates a handler. audit may be nil when scheduling is off.
func NewHandler(engine Reconciler, searcher RawSearcher, audit AuditSource) *Handler {
	return &Handler{engine: engine, searcher: searcher, audit: audit}
}

type addRequest struct {
	TmdbID int    `json:"tmdbId" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

// AddFromCatalog handles POST /api/media/add-from-tmdb
func (h *Handler) AddFromCatalog(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleValidationError(c, "Invalid request body", "")
		return
	}
	mediaType := catalog.MediaType(req.Type)
	if mediaType != catalog.MediaTypeMovie && mediaType != catalog.MediaTypeTV {
		apperrors.HandleValidationError(c, "type must be movie or tv", "type")
		return
	}

	id, err := h.engine.AddFromCatalog(c.Request.Context(), req.TmdbID, mediaType)
	if err != nil {
		logger.Error("failed to add media from catalog", "tmdb_id", req.TmdbID, "type", req.Type, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to add media: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Media added successfully",
		"id":      id,
	})
}

// SearchCatalog handles GET /api/tmdb/search and returns the catalog payload as-is.
func (h *Handler) SearchCatalog(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		apperrors.HandleValidationError(c, "Query parameter is required", "query")
		return
	}

	raw, err := h.searcher.SearchRaw(c.Request.Context(), query, catalog.MediaType(c.Query("type")))
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// VerifyMedia handles GET /api/media/:id/verify. Problems are reported in
// the body, never as an error status.
func (h *Handler) VerifyMedia(c *gin.Context) {
	id, ok := mediaapi.ParseID(c, "id")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, reporter.Describe(h.engine.Verify(c.Request.Context(), id)))
}

// VerifyRecent handles GET /api/media/verify-recent?hours=N
func (h *Handler) VerifyRecent(c *gin.Context) {
	hours, _ := strconv.Atoi(c.Query("hours"))

	bulk, err := h.engine.VerifyRecent(c.Request.Context(), hours)
	if err != nil {
		apperrors.HandleDatabaseError(c, "verify recent media", err)
		return
	}

	report := reporter.Summarize(bulk)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"hours":         report.Hours,
		"totalChecked":  report.TotalChecked,
		"verified":      report.Verified,
		"issues":        report.Issues,
		"healthPercent": report.HealthPercent,
		"summary":       report.Summary,
		"results":       report.Results,
	})
}

// PopulateEpisodes handles POST /api/media/:id/populate-episodes
func (h *Handler) PopulateEpisodes(c *gin.Context) {
	id, ok := mediaapi.ParseID(c, "id")
	if !ok {
		return
	}

	result, err := h.engine.PopulateEpisodes(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotTV):
			apperrors.NewNotFoundError("TV series", c.Param("id")).ToGinResponse(c)
		case errors.Is(err, core.ErrNotFound):
			apperrors.HandleNotFound(c, "Media", c.Param("id"))
		case errors.Is(err, core.ErrNoMatch):
			apperrors.NewNoMatchError("No catalog match for this series").ToGinResponse(c)
		default:
			respondCatalogError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Episodes populated",
		"episodesAdded": result.EpisodesAdded,
		"seasons":       result.Seasons,
	})
}

// AuditStatus handles GET /api/stats/audit
func (h *Handler) AuditStatus(c *gin.Context) {
	var last *scheduler.AuditResult
	if h.audit != nil {
		last = h.audit.LastReport()
	}
	if last == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "ran": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ran":     true,
		"ranAt":   last.RanAt,
		"report":  last.Report,
	})
}

func respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotConfigured), errors.Is(err, catalog.ErrNotConfigured):
		apperrors.NewConfigurationError("Catalog API key is not configured").ToGinResponse(c)
	case errors.Is(err, catalog.ErrUnavailable):
		apperrors.NewUpstreamError(err).ToGinResponse(c)
	default:
		apperrors.HandleInternalError(c, "Reconciliation failed", err)
	}
}
