// Package sonarr implements the series catalog manager client.
package sonarr

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

var (
	ErrAddFailed      = errors.New("sonarr add series failed")
	ErrSeriesNotFound = errors.New("series not found")
)

// Client is a Sonarr v3 API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Sonarr client.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "sonarr").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "sonarr"
}

// Search looks up series by title. The returned error is bookkeeping for
// the aggregator; a failed lookup always yields an empty result list.
func (c *Client) Search(ctx context.Context, query string) ([]media.RawResult, error) {
	series, err := c.lookup(ctx, query)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Series lookup failed")
		return nil, err
	}

	results := make([]media.RawResult, 0, len(series))
	for _, s := range series {
		results = append(results, media.RawResult{
			Title:       s.Title,
			Year:        s.Year,
			Overview:    s.Overview,
			PosterURL:   s.posterURL(),
			TvdbID:      s.TvdbID,
			MediaType:   "tv",
			SeasonCount: s.seasonCount(),
		})
	}

	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("Series lookup completed")
	return results, nil
}

// Seasons returns the regular season numbers of a series, excluding specials.
func (c *Client) Seasons(ctx context.Context, tvdbID int) ([]int, error) {
	series, err := c.lookup(ctx, fmt.Sprintf("tvdb:%d", tvdbID))
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ErrSeriesNotFound
	}

	seasons := make([]int, 0, len(series[0].Seasons))
	for _, s := range series[0].Seasons {
		if s.SeasonNumber > 0 {
			seasons = append(seasons, s.SeasonNumber)
		}
	}
	return seasons, nil
}

// AddSeriesInput holds the fields needed to add a series to the catalog.
type AddSeriesInput struct {
	Title            string
	TvdbID           int
	Seasons          []int
	QualityProfileID int
	RootFolder       string
}

// AddSeries adds a series to Sonarr with the chosen seasons monitored and
// triggers a search for missing episodes. An empty season list monitors all.
func (c *Client) AddSeries(ctx context.Context, input AddSeriesInput) error {
	series, err := c.lookup(ctx, fmt.Sprintf("tvdb:%d", input.TvdbID))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrAddFailed, err)
	}
	if len(series) == 0 {
		return fmt.Errorf("%w: tvdb id %d", ErrSeriesNotFound, input.TvdbID)
	}

	chosen := make(map[int]bool, len(input.Seasons))
	for _, n := range input.Seasons {
		chosen[n] = true
	}

	payload := addSeriesRequest{
		Title:            series[0].Title,
		TvdbID:           input.TvdbID,
		QualityProfileID: input.QualityProfileID,
		RootFolderPath:   input.RootFolder,
		Monitored:        true,
	}
	payload.AddOptions.SearchForMissingEpisodes = true

	for _, s := range series[0].Seasons {
		monitored := len(input.Seasons) == 0 || chosen[s.SeasonNumber]
		if s.SeasonNumber == 0 {
			monitored = false
		}
		payload.Seasons = append(payload.Seasons, seasonResource{
			SeasonNumber: s.SeasonNumber,
			Monitored:    monitored,
		})
	}

	endpoint := fmt.Sprintf("%s/api/v3/series", c.baseURL)
	if err := c.doPost(ctx, endpoint, payload); err != nil {
		return fmt.Errorf("%w: %s", ErrAddFailed, err)
	}

	c.logger.Info().
		Str("title", input.Title).
		Int("tvdbId", input.TvdbID).
		Ints("seasons", input.Seasons).
		Msg("Series added to catalog")
	return nil
}

func (c *Client) lookup(ctx context.Context, term string) ([]seriesResource, error) {
	endpoint := fmt.Sprintf("%s/api/v3/series/lookup", c.baseURL)
	params := url.Values{}
	params.Set("term", term)

	var series []seriesResource
	if err := c.doGet(ctx, endpoint, params, &series); err != nil {
		return nil, err
	}
	return series, nil
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
