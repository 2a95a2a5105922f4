package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/shelfsync/internal/catalog"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/core"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/reporter"
	"github.com/mantonx/shelfsync/internal/modules/reconcilemodule/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) AddFromCatalog(ctx context.Context, catalogID int, mediaType catalog.MediaType) (uint, error) {
	args := m.Called(catalogID, mediaType)
	return args.Get(0).(uint), args.Error(1)
}

func (m *mockReconciler) Verify(ctx context.Context, mediaID uint) core.VerificationResult {
	return m.Called(mediaID).Get(0).(core.VerificationResult)
}

func (m *mockReconciler) VerifyRecent(ctx context.Context, hours int) (*core.BulkVerification, error) {
	args := m.Called(hours)
	bulk, _ := args.Get(0).(*core.BulkVerification)
	return bulk, args.Error(1)
}

func (m *mockReconciler) PopulateEpisodes(ctx context.Context, mediaID uint) (*core.PopulateResult, error) {
	args := m.Called(mediaID)
	result, _ := args.Get(0).(*core.PopulateResult)
	return result, args.Error(1)
}

type searchFunc func(ctx context.Context, query string, mediaType catalog.MediaType) (json.RawMessage, error)

func (f searchFunc) SearchRaw(ctx context.Context, query string, mediaType catalog.MediaType) (json.RawMessage, error) {
	return f(ctx, query, mediaType)
}

type fixedAudit struct {
	result *scheduler.AuditResult
}

func (f fixedAudit) LastReport() *scheduler.AuditResult { return f.result }

func setupRouter(engine Reconciler, searcher RawSearcher, audit AuditSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router.Group("/api"), NewHandler(engine, searcher, audit))
	return router
}

func do(router *gin.Engine, method, path string, body interface{}) (int, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &decoded)
	return w.Code, decoded
}

func TestAddFromCatalog(t *testing.T) {
	engine := new(mockReconciler)
	engine.On("AddFromCatalog", 603, catalog.MediaTypeMovie).Return(uint(7), nil)
	router := setupRouter(engine, nil, nil)

	code, body := do(router, http.MethodPost, "/api/media/add-from-tmdb", map[string]interface{}{"tmdbId": 603, "type": "movie"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(7), body["id"])
	assert.NotEmpty(t, body["message"])
	engine.AssertExpectations(t)
}

func TestAddFromCatalogValidation(t *testing.T) {
	router := setupRouter(new(mockReconciler), nil, nil)

	code, _ := do(router, http.MethodPost, "/api/media/add-from-tmdb", map[string]interface{}{"type": "movie"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := do(router, http.MethodPost, "/api/media/add-from-tmdb", map[string]interface{}{"tmdbId": 1, "type": "person"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestAddFromCatalogFailureIncludesDetail(t *testing.T) {
	engine := new(mockReconciler)
	engine.On("AddFromCatalog", 1, catalog.MediaTypeTV).
		Return(uint(0), fmt.Errorf("fetch details: %w", catalog.ErrUnavailable))
	router := setupRouter(engine, nil, nil)

	code, body := do(router, http.MethodPost, "/api/media/add-from-tmdb", map[string]interface{}{"tmdbId": 1, "type": "tv"})
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Contains(t, body["error"], "fetch details")
}

func TestSearchCatalogPassesPayloadThrough(t *testing.T) {
	payload := `{"page":1,"results":[{"id":603,"title":"The Matrix"}]}`
	var gotType catalog.MediaType
	searcher := searchFunc(func(ctx context.Context, query string, mediaType catalog.MediaType) (json.RawMessage, error) {
		gotType = mediaType
		return json.RawMessage(payload), nil
	})
	router := setupRouter(new(mockReconciler), searcher, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/tmdb/search?query=matrix&type=movie", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, payload, w.Body.String())
	assert.Equal(t, catalog.MediaTypeMovie, gotType)
}

func TestSearchCatalogErrors(t *testing.T) {
	searcher := searchFunc(func(ctx context.Context, query string, mediaType catalog.MediaType) (json.RawMessage, error) {
		return nil, catalog.ErrNotConfigured
	})
	router := setupRouter(new(mockReconciler), searcher, nil)

	code, _ := do(router, http.MethodGet, "/api/tmdb/search", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := do(router, http.MethodGet, "/api/tmdb/search?query=x", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "CONFIGURATION_ERROR", body["code"])
}

func TestVerifyMedia(t *testing.T) {
	engine := new(mockReconciler)
	engine.On("Verify", uint(99)).Return(core.VerificationResult{MediaID: 99, Status: core.StatusMissing})
	router := setupRouter(engine, nil, nil)

	code, body := do(router, http.MethodGet, "/api/media/99/verify", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, core.StatusMissing, body["status"])
	assert.Equal(t, "Not in database", body["label"])

	code, _ = do(router, http.MethodGet, "/api/media/abc/verify", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestVerifyRecent(t *testing.T) {
	engine := new(mockReconciler)
	engine.On("VerifyRecent", 0).Return(&core.BulkVerification{
		Hours:        24,
		TotalChecked: 4,
		Verified:     3,
		Issues:       1,
		Results: []core.VerificationResult{
			{MediaID: 1, Status: core.StatusVerified},
			{MediaID: 2, Status: core.StatusVerified},
			{MediaID: 3, Status: core.StatusVerified},
			{MediaID: 4, Status: core.StatusFileMissing},
		},
	}, nil)
	router := setupRouter(engine, nil, nil)

	code, body := do(router, http.MethodGet, "/api/media/verify-recent", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(24), body["hours"])
	assert.Equal(t, float64(75), body["healthPercent"])
	assert.Equal(t, "3 of 4 recently added items verified", body["summary"])
	assert.Len(t, body["results"], 4)
}

func TestPopulateEpisodesErrorMapping(t *testing.T) {
	engine := new(mockReconciler)
	engine.On("PopulateEpisodes", uint(1)).Return(nil, core.ErrNotFound)
	engine.On("PopulateEpisodes", uint(2)).Return(nil, core.ErrNotTV)
	engine.On("PopulateEpisodes", uint(3)).Return(nil, core.ErrNoMatch)
	engine.On("PopulateEpisodes", uint(4)).Return(nil, core.ErrNotConfigured)
	engine.On("PopulateEpisodes", uint(5)).Return(nil, fmt.Errorf("search: %w", catalog.ErrUnavailable))
	engine.On("PopulateEpisodes", uint(6)).Return(&core.PopulateResult{EpisodesAdded: 16, Seasons: 2}, nil)
	router := setupRouter(engine, nil, nil)

	cases := []struct {
		id     int
		status int
		code   string
	}{
		{1, http.StatusNotFound, "NOT_FOUND"},
		{2, http.StatusNotFound, "NOT_FOUND"},
		{3, http.StatusNotFound, "NO_MATCH"},
		{4, http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		{5, http.StatusInternalServerError, "UPSTREAM_UNAVAILABLE"},
	}
	for _, tc := range cases {
		code, body := do(router, http.MethodPost, fmt.Sprintf("/api/media/%d/populate-episodes", tc.id), nil)
		assert.Equal(t, tc.status, code, "media %d", tc.id)
		assert.Equal(t, tc.code, body["code"], "media %d", tc.id)
	}

	code, body := do(router, http.MethodPost, "/api/media/6/populate-episodes", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(16), body["episodesAdded"])
	assert.Equal(t, float64(2), body["seasons"])
}

func TestAuditStatus(t *testing.T) {
	router := setupRouter(new(mockReconciler), nil, nil)
	_, body := do(router, http.MethodGet, "/api/stats/audit", nil)
	assert.Equal(t, false, body["ran"])

	report := reporter.Summarize(&core.BulkVerification{Hours: 24})
	router = setupRouter(new(mockReconciler), nil, fixedAudit{&scheduler.AuditResult{RanAt: time.Now(), Report: report}})
	code, body := do(router, http.MethodGet, "/api/stats/audit", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ran"])
	assert.NotNil(t, body["report"])
}
