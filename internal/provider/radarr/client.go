// Package radarr implements the movie catalog manager client.
package radarr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/media"
)

var ErrAddFailed = errors.New("radarr add movie failed")

// Client is a Radarr v3 API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Radarr client.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "radarr").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "radarr"
}

// Search looks up movies by title. The returned error is bookkeeping for
// the aggregator; a failed lookup always yields an empty result list.
func (c *Client) Search(ctx context.Context, query string) ([]media.RawResult, error) {
	endpoint := fmt.Sprintf("%s/api/v3/movie/lookup", c.baseURL)
	params := url.Values{}
	params.Set("term", query)

	var movies []movieResource
	if err := c.doGet(ctx, endpoint, params, &movies); err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Movie lookup failed")
		return nil, err
	}

	results := make([]media.RawResult, 0, len(movies))
	for _, m := range movies {
		results = append(results, media.RawResult{
			Title:     m.Title,
			Year:      m.Year,
			Overview:  m.Overview,
			PosterURL: m.posterURL(),
			TmdbID:    m.TmdbID,
			MediaType: "movie",
		})
	}

	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("Movie lookup completed")
	return results, nil
}

// AddMovieInput holds the fields needed to add a movie to the catalog.
type AddMovieInput struct {
	Title            string
	Year             int
	TmdbID           int
	QualityProfileID int
	RootFolder       string
}

// AddMovie adds a movie to Radarr and triggers a search for it.
func (c *Client) AddMovie(ctx context.Context, input AddMovieInput) error {
	payload := addMovieRequest{
		Title:            input.Title,
		Year:             input.Year,
		TmdbID:           input.TmdbID,
		QualityProfileID: input.QualityProfileID,
		RootFolderPath:   input.RootFolder,
		Monitored:        true,
	}
	payload.AddOptions.SearchForMovie = true

	endpoint := fmt.Sprintf("%s/api/v3/movie", c.baseURL)
	if err := c.doPost(ctx, endpoint, payload); err != nil {
		return fmt.Errorf("%w: %s", ErrAddFailed, err)
	}

	c.logger.Info().
		Str("title", input.Title).
		Int("tmdbId", input.TmdbID).
		Msg("Movie added to catalog")
	return nil
}

func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
