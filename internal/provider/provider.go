// Package provider defines the client contract for external media services
// and constructs concrete clients from service configurations.
package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/provider/overseerr"
	"github.com/chatarr/chatarr/internal/provider/radarr"
	"github.com/chatarr/chatarr/internal/provider/sonarr"
	"github.com/chatarr/chatarr/internal/services"
)

var ErrUnknownKind = errors.New("unknown service kind")

// Client is the contract every media service client satisfies. A Search
// error is bookkeeping only: the result list is always usable (empty on
// failure) and the aggregator records the failure without aborting sibling
// providers. Submit propagates errors because a failed submission must
// reach the approval workflow.
type Client interface {
	Name() string
	Search(ctx context.Context, query string, kind media.Kind) ([]media.RawResult, error)
	Submit(ctx context.Context, sub Submission) error
}

// Submission carries the canonical fields of an approved request to the
// service that will fulfil it.
type Submission struct {
	Title            string
	Year             int
	TmdbID           int
	TvdbID           int
	Kind             media.Kind
	Seasons          []int
	QualityProfileID int
	RootFolder       string
}

// Factory builds clients from service configurations. All clients share one
// HTTP client; per-call deadlines come from the caller's context.
type Factory struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFactory creates a client factory.
func NewFactory(logger zerolog.Logger) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ClientFor returns a client for the given service configuration.
func (f *Factory) ClientFor(svc *services.Service) (Client, error) {
	switch svc.Kind {
	case services.KindRadarr:
		return &radarrClient{radarr.NewClient(svc.BaseURL, svc.APIKey, f.httpClient, f.logger)}, nil
	case services.KindSonarr:
		return &sonarrClient{sonarr.NewClient(svc.BaseURL, svc.APIKey, f.httpClient, f.logger)}, nil
	case services.KindOverseerr:
		return &overseerrClient{overseerr.NewClient(svc.BaseURL, svc.APIKey, f.httpClient, f.logger)}, nil
	}
	return nil, ErrUnknownKind
}

// SonarrFor returns a concrete sonarr client for season lookups.
func (f *Factory) SonarrFor(svc *services.Service) *sonarr.Client {
	return sonarr.NewClient(svc.BaseURL, svc.APIKey, f.httpClient, f.logger)
}

// radarrClient adapts the radarr package to the Client interface.
type radarrClient struct {
	*radarr.Client
}

func (c *radarrClient) Search(ctx context.Context, query string, kind media.Kind) ([]media.RawResult, error) {
	if kind == media.KindSeries {
		return nil, nil
	}
	return c.Client.Search(ctx, query)
}

func (c *radarrClient) Submit(ctx context.Context, sub Submission) error {
	return c.Client.AddMovie(ctx, radarr.AddMovieInput{
		Title:            sub.Title,
		Year:             sub.Year,
		TmdbID:           sub.TmdbID,
		QualityProfileID: sub.QualityProfileID,
		RootFolder:       sub.RootFolder,
	})
}

// sonarrClient adapts the sonarr package to the Client interface.
type sonarrClient struct {
	*sonarr.Client
}

func (c *sonarrClient) Search(ctx context.Context, query string, kind media.Kind) ([]media.RawResult, error) {
	if kind == media.KindMovie {
		return nil, nil
	}
	return c.Client.Search(ctx, query)
}

func (c *sonarrClient) Submit(ctx context.Context, sub Submission) error {
	return c.Client.AddSeries(ctx, sonarr.AddSeriesInput{
		Title:            sub.Title,
		TvdbID:           sub.TvdbID,
		Seasons:          sub.Seasons,
		QualityProfileID: sub.QualityProfileID,
		RootFolder:       sub.RootFolder,
	})
}

// overseerrClient adapts the overseerr package to the Client interface.
type overseerrClient struct {
	*overseerr.Client
}

func (c *overseerrClient) Search(ctx context.Context, query string, kind media.Kind) ([]media.RawResult, error) {
	return c.Client.Search(ctx, query, kind)
}

func (c *overseerrClient) Submit(ctx context.Context, sub Submission) error {
	if sub.Kind == media.KindSeries {
		return c.Client.RequestSeries(ctx, sub.TmdbID, sub.Seasons)
	}
	return c.Client.RequestMovie(ctx, sub.TmdbID)
}
