package omdb

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

	"github.com/rs/zerolog"

	"github.com/reelmates/reelmates/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrNotFound      = errors.New("not found on OMDb")
	ErrAPIError      = errors.New("OMDb API error")
)

// Client is an OMDb API client.
type Client struct {
	httpClient *http.Client
	config     config.OMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new OMDb client.
func NewClient(cfg config.OMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "omdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "omdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity to the OMDb API.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	// Try to fetch data for a known movie
	_, err := c.GetByIMDbID(ctx, "tt0133093") // The Matrix
	return err
}

// GetByIMDbID fetches ratings for a title by IMDb ID.
func (c *Client) GetByIMDbID(ctx context.Context, imdbID string) (*TitleRatings, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	if imdbID == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("apikey", c.config.APIKey)
	params.Set("i", imdbID)

	reqURL := fmt.Sprintf("%s?%s", c.config.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("imdbId", imdbID).Msg("HTTP request failed")
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var omdbResp Response
	if err := json.NewDecoder(resp.Body).Decode(&omdbResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if omdbResp.Response == "False" {
		if omdbResp.Error == "Movie not found!" || omdbResp.Error == "Incorrect IMDb ID." {
			return nil, ErrNotFound
		}
		c.logger.Warn().Str("error", omdbResp.Error).Str("imdbId", imdbID).Msg("OMDb API returned error")
		return nil, fmt.Errorf("%w: %s", ErrAPIError, omdbResp.Error)
	}

	return c.normalizeRatings(omdbResp), nil
}

// normalizeRatings converts an OMDb response to the normalized format.
// "N/A" values become nil or zero, never parse errors.
func (c *Client) normalizeRatings(resp Response) *TitleRatings {
	result := &TitleRatings{
		ImdbID: resp.ImdbID,
	}

	if resp.Rated != "" && resp.Rated != "N/A" {
		result.Rated = resp.Rated
	}

	if resp.ImdbRating != "" && resp.ImdbRating != "N/A" {
		if rating, err := strconv.ParseFloat(resp.ImdbRating, 64); err == nil {
			result.ImdbRating = &rating
		}
	}

	// Vote counts come formatted like "1,234,567"
	if resp.ImdbVotes != "" && resp.ImdbVotes != "N/A" {
		votesStr := strings.ReplaceAll(resp.ImdbVotes, ",", "")
		if votes, err := strconv.Atoi(votesStr); err == nil {
			result.ImdbVotes = votes
		}
	}

	if resp.Metascore != "" && resp.Metascore != "N/A" {
		if score, err := strconv.Atoi(resp.Metascore); err == nil {
			result.Metacritic = score
		}
	}

	for _, rating := range resp.Ratings {
		switch rating.Source {
		case "Rotten Tomatoes":
			// Format: "92%"
			scoreStr := strings.TrimSuffix(rating.Value, "%")
			if score, err := strconv.Atoi(scoreStr); err == nil {
				result.RottenTomatoes = score
			}
		}
	}

	c.logger.Debug().
		Str("imdbId", resp.ImdbID).
		Msg("Normalized OMDb ratings")

	return result
}
