// Package catalog is a client for the TMDb metadata API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/logger"
	"golang.org/x/time/rate"
)

var (
	// ErrUnavailable wraps every transport failure and non-2xx answer.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("catalog API key not configured")
)

const (
	posterSize   = "w500"
	backdropSize = "w1280"
)

// Client handles all TMDb API interactions
type Client struct {
	cfg        config.CatalogConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	log        hclog.Logger
}

// NewClient creates a catalog client. Requests are paced by a token bucket
// sized from cfg.RequestsPerSecond.
func NewClient(cfg config.CatalogConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        logger.Named("catalog"),
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// PosterURL builds the thumbnail URL for a poster path.
func (c *Client) PosterURL(path string) string {
	return c.imageURL(posterSize, path)
}

// BackdropURL builds the backdrop URL for a backdrop path.
func (c *Client) BackdropURL(path string) string {
	return c.imageURL(backdropSize, path)
}

func (c *Client) imageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return c.cfg.ImageBaseURL + "/" + size + path
}

// Search returns movie and TV candidates for query. No results is not an error.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	endpoint := "/search/multi"
	switch opts.MediaType {
	case MediaTypeMovie:
		endpoint = "/search/movie"
		if opts.Year > 0 {
			params.Set("year", strconv.Itoa(opts.Year))
		}
	case MediaTypeTV:
		endpoint = "/search/tv"
		if opts.Year > 0 {
			params.Set("first_air_date_year", strconv.Itoa(opts.Year))
		}
	}

	var response searchResponse
	if err := c.get(ctx, endpoint, params, &response); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		mediaType := opts.MediaType
		if mediaType == "" {
			mediaType = MediaType(r.MediaType)
			// multi search also returns people
			if mediaType != MediaTypeMovie && mediaType != MediaTypeTV {
				continue
			}
		}

		result := SearchResult{
			ID:          r.ID,
			MediaType:   mediaType,
			Overview:    r.Overview,
			PosterPath:  r.PosterPath,
			VoteAverage: r.VoteAverage,
		}
		if mediaType == MediaTypeTV {
			result.Title = r.Name
			result.Year = YearFromDate(r.FirstAirDate)
		} else {
			result.Title = r.Title
			result.Year = YearFromDate(r.ReleaseDate)
		}
		results = append(results, result)
	}
	return results, nil
}

// SearchRaw returns the catalog's search payload unchanged.
func (c *Client) SearchRaw(ctx context.Context, query string, mediaType MediaType) (json.RawMessage, error) {
	endpoint := "/search/multi"
	if mediaType == MediaTypeMovie || mediaType == MediaTypeTV {
		endpoint = "/search/" + string(mediaType)
	}

	params := url.Values{}
	params.Set("query", query)

	var raw json.RawMessage
	if err := c.get(ctx, endpoint, params, &raw); err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return raw, nil
}

// GetDetails fetches the full record for a catalog id.
func (c *Client) GetDetails(ctx context.Context, id int, mediaType MediaType) (*Details, error) {
	switch mediaType {
	case MediaTypeMovie:
		var movie MovieDetails
		if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), nil, &movie); err != nil {
			return nil, fmt.Errorf("failed to fetch movie details for ID %d: %w", id, err)
		}
		return &Details{Type: MediaTypeMovie, Movie: &movie}, nil
	case MediaTypeTV:
		var tv TVDetails
		if err := c.get(ctx, fmt.Sprintf("/tv/%d", id), nil, &tv); err != nil {
			return nil, fmt.Errorf("failed to fetch TV details for ID %d: %w", id, err)
		}
		return &Details{Type: MediaTypeTV, TV: &tv}, nil
	default:
		return nil, fmt.Errorf("unsupported media type %q", mediaType)
	}
}

// GetSeasonEpisodes lists the episodes of one season of a show.
func (c *Client) GetSeasonEpisodes(ctx context.Context, showID, season int) ([]Episode, error) {
	var response seasonResponse
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", showID, season), nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch season %d for TV ID %d: %w", season, showID, err)
	}
	for i := range response.Episodes {
		if response.Episodes[i].SeasonNumber == 0 {
			response.Episodes[i].SeasonNumber = season
		}
	}
	return response.Episodes, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if params == nil {
		params = url.Values{}
	}
	if c.cfg.LogRequests {
		c.log.Debug("making catalog request", "endpoint", endpoint, "params", params.Encode())
	}
	params.Set("api_key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, redact(err, c.cfg.APIKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var upstream errorResponse
		if json.Unmarshal(body, &upstream) == nil && upstream.StatusMessage != "" {
			return fmt.Errorf("%w: %s", ErrUnavailable, upstream.StatusMessage)
		}
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// redact strips the API key from errors that echo the request URL.
func redact(err error, key string) string {
	if key == "" {
		return err.Error()
	}
	return strings.ReplaceAll(err.Error(), key, "***")
}

// YearFromDate parses the year of a YYYY-MM-DD date, or returns 0.
func YearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
