// Package overseerr implements the unified request broker client.
package overseerr

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

var ErrRequestFailed = errors.New("overseerr request failed")

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Client is an Overseerr v1 API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Overseerr client.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "overseerr").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "overseerr"
}

// Search runs a mixed movie/series search and filters the response to the
// requested kind; KindBoth passes everything through. The returned error is
// bookkeeping for the aggregator; failures always yield an empty list.
func (c *Client) Search(ctx context.Context, query string, kind media.Kind) ([]media.RawResult, error) {
	endpoint := fmt.Sprintf("%s/api/v1/search", c.baseURL)
	params := url.Values{}
	params.Set("query", query)

	var response searchResponse
	if err := c.doGet(ctx, endpoint, params, &response); err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("Search failed")
		return nil, err
	}

	results := make([]media.RawResult, 0, len(response.Results))
	for _, r := range response.Results {
		switch r.MediaType {
		case "movie":
			if kind == media.KindSeries {
				continue
			}
		case "tv":
			if kind == media.KindMovie {
				continue
			}
		default:
			// person and collection hits are not requestable
			continue
		}

		raw := media.RawResult{
			Title:     r.title(),
			Year:      r.year(),
			Overview:  r.Overview,
			TmdbID:    r.ID,
			MediaType: r.MediaType,
		}
		if r.PosterPath != "" {
			raw.PosterURL = posterBaseURL + r.PosterPath
		}
		results = append(results, raw)
	}

	c.logger.Debug().
		Str("query", query).
		Str("kind", string(kind)).
		Int("results", len(results)).
		Msg("Search completed")
	return results, nil
}

// RequestMovie submits a movie request to the broker.
func (c *Client) RequestMovie(ctx context.Context, tmdbID int) error {
	if tmdbID == 0 {
		return fmt.Errorf("%w: missing tmdb id", ErrRequestFailed)
	}
	return c.request(ctx, mediaRequest{MediaType: "movie", MediaID: tmdbID})
}

// RequestSeries submits a series request to the broker. An empty season
// list requests all seasons.
func (c *Client) RequestSeries(ctx context.Context, tmdbID int, seasons []int) error {
	if tmdbID == 0 {
		return fmt.Errorf("%w: missing tmdb id", ErrRequestFailed)
	}
	return c.request(ctx, mediaRequest{MediaType: "tv", MediaID: tmdbID, Seasons: seasons})
}

func (c *Client) request(ctx context.Context, payload mediaRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/request", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	c.logger.Info().
		Str("mediaType", payload.MediaType).
		Int("mediaId", payload.MediaID).
		Msg("Request submitted to broker")
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
