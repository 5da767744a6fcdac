package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/catalog"
	"github.com/reelmates/reelmates/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrMovieNotFound = errors.New("movie not found")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
)

const (
	rateLimitRetries = 3
	rateLimitDelay   = 500 * time.Millisecond
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the TMDB API by making a configuration request.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/configuration", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}

	return c.doRequest(ctx, endpoint, params, &result)
}

// DiscoverQuery holds the parameters for a discover request.
type DiscoverQuery struct {
	Page           int
	SortBy         string
	WithGenres     []int64
	VoteCountGTE   int
	VoteAverageGTE float64
	VoteAverageLTE float64
	// ReleaseDateGTE and ReleaseDateLTE bound the primary release
	// date, formatted YYYY-MM-DD.
	ReleaseDateGTE string
	ReleaseDateLTE string
	WatchProviders []int
	WatchRegion    string
}

// DiscoverMovies fetches a single page of the TMDB discover listing.
func (c *Client) DiscoverMovies(ctx context.Context, q DiscoverQuery) ([]catalog.Movie, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/discover/movie", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)
	params.Set("include_adult", "false")
	params.Set("page", strconv.Itoa(q.Page))
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	if len(q.WithGenres) > 0 {
		genres := make([]string, len(q.WithGenres))
		for i, id := range q.WithGenres {
			genres[i] = strconv.FormatInt(id, 10)
		}
		params.Set("with_genres", strings.Join(genres, ","))
	}
	if q.VoteCountGTE > 0 {
		params.Set("vote_count.gte", strconv.Itoa(q.VoteCountGTE))
	}
	if q.VoteAverageGTE > 0 {
		params.Set("vote_average.gte", strconv.FormatFloat(q.VoteAverageGTE, 'f', -1, 64))
	}
	if q.VoteAverageLTE > 0 {
		params.Set("vote_average.lte", strconv.FormatFloat(q.VoteAverageLTE, 'f', -1, 64))
	}
	if q.ReleaseDateGTE != "" {
		params.Set("primary_release_date.gte", q.ReleaseDateGTE)
	}
	if q.ReleaseDateLTE != "" {
		params.Set("primary_release_date.lte", q.ReleaseDateLTE)
	}
	if len(q.WithProviderIDs()) > 0 {
		params.Set("with_watch_providers", q.WithProviderIDs())
		params.Set("watch_region", q.WatchRegion)
	}

	var response DiscoverResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	results := make([]catalog.Movie, len(response.Results))
	for i, movie := range response.Results {
		results[i] = toMovie(movie)
	}

	c.logger.Debug().
		Int("page", q.Page).
		Str("sortBy", q.SortBy).
		Int("results", len(results)).
		Msg("Discover page fetched")

	return results, nil
}

// WithProviderIDs returns the watch provider IDs joined with the TMDB
// "any of" separator, or "" when none are set.
func (q DiscoverQuery) WithProviderIDs() string {
	if len(q.WatchProviders) == 0 {
		return ""
	}
	ids := make([]string, len(q.WatchProviders))
	for i, id := range q.WatchProviders {
		ids[i] = strconv.Itoa(id)
	}
	return strings.Join(ids, "|")
}

// GetMovie gets detailed movie info by TMDB ID.
func (c *Client) GetMovie(ctx context.Context, id int64) (*MovieDetails, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var details MovieDetails
	if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int64("id", id).
		Str("title", details.Title).
		Msg("Got movie details")

	return &details, nil
}

// GetWatchProviders returns the flatrate streaming provider names for a
// movie in the given region, deduplicated with first occurrence kept.
// A movie with no listing in the region returns an empty slice, not an
// error.
func (c *Client) GetWatchProviders(ctx context.Context, id int64, region string) ([]string, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%d/watch/providers", c.config.BaseURL, id)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var response WatchProvidersResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	regionData, ok := response.Results[region]
	if !ok {
		return []string{}, nil
	}

	names := make([]string, 0, len(regionData.Flatrate))
	seen := make(map[string]bool, len(regionData.Flatrate))
	for _, p := range regionData.Flatrate {
		if seen[p.ProviderName] {
			continue
		}
		seen[p.ProviderName] = true
		names = append(names, p.ProviderName)
	}

	return names, nil
}

// ListGenres fetches the movie genre catalog.
func (c *Client) ListGenres(ctx context.Context) ([]catalog.Genre, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/genre/movie/list", c.config.BaseURL)
	params := url.Values{}
	params.Set("api_key", c.config.APIKey)

	var response GenreListResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	genres := make([]catalog.Genre, len(response.Genres))
	for i, g := range response.Genres {
		genres[i] = catalog.Genre{ID: g.ID, Name: g.Name}
	}

	return genres, nil
}

// GetImageURL returns a full image URL for a given path and size.
// Size options: "w92", "w154", "w185", "w342", "w500", "w780", "original"
func (c *Client) GetImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

// doRequest performs an HTTP GET request and decodes the JSON response.
// Rate-limited requests are retried a few times with backoff before the
// error is surfaced.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	return retry.Do(
		func() error {
			return c.doRequestOnce(ctx, endpoint, params, result)
		},
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrRateLimited)
		}),
		retry.Attempts(rateLimitRetries),
		retry.Delay(rateLimitDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (c *Client) doRequestOnce(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrMovieNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// toMovie converts a TMDB discover result to a catalog movie.
func toMovie(movie MovieResult) catalog.Movie {
	return catalog.Movie{
		ID:           movie.ID,
		Title:        movie.Title,
		Overview:     movie.Overview,
		ReleaseDate:  movie.ReleaseDate,
		PosterPath:   movie.PosterPath,
		BackdropPath: movie.BackdropPath,
		VoteAverage:  movie.VoteAverage,
		VoteCount:    movie.VoteCount,
		Popularity:   movie.Popularity,
		GenreIDs:     movie.GenreIDs,
	}
}
