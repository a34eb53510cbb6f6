package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/provider"
	"github.com/chatarr/chatarr/internal/services"
)

// providerTimeout bounds each provider call so one slow service cannot
// stall the whole search.
const providerTimeout = 8 * time.Second

var ErrNoServices = errors.New("no enabled services for kind")

// ServiceStore is the subset of the services store the aggregator needs.
// Listings are ordered by ascending priority number (lower tries first).
type ServiceStore interface {
	ListEnabled(ctx context.Context) ([]*services.Service, error)
	ListEnabledByKind(ctx context.Context, kind services.Kind) ([]*services.Service, error)
}

// ClientFactory builds provider clients from service configurations.
type ClientFactory interface {
	ClientFor(svc *services.Service) (provider.Client, error)
	SonarrFor(svc *services.Service) SeasonLister
}

// SeasonLister looks up the season numbers of a series.
type SeasonLister interface {
	Seasons(ctx context.Context, tvdbID int) ([]int, error)
}

// Broadcaster pushes search lifecycle events to connected UI clients.
type Broadcaster interface {
	BroadcastSearchStarted(query string, kind string, services []string)
	BroadcastSearchCompleted(query string, kind string, results int, fromCache bool)
}

// Response is the outcome of an aggregated search.
type Response struct {
	Results        []media.Result `json:"results"`
	ServicesTried  []string       `json:"servicesTried"`
	ServicesFailed []string       `json:"servicesFailed"`
	FromCache      bool           `json:"fromCache"`
	Elapsed        time.Duration  `json:"elapsed"`
}

// Aggregator fans a query out to every enabled service that can serve the
// requested kind, then normalizes, dedupes, ranks, and caches the merged
// result set.
type Aggregator struct {
	store       ServiceStore
	factory     ClientFactory
	cache       *Cache
	normalizer  *media.Normalizer
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewAggregator creates a search aggregator. The broadcaster may be nil.
func NewAggregator(store ServiceStore, factory ClientFactory, cache *Cache, broadcaster Broadcaster, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:       store,
		factory:     factory,
		cache:       cache,
		normalizer:  media.NewNormalizer(logger),
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "search").Logger(),
	}
}

type providerResult struct {
	provider string
	results  []media.Result
	err      error
}

// Search runs an aggregated search for the given kind. Provider failures
// are recorded in ServicesFailed and never abort the search; only a total
// absence of usable services is an error.
func (a *Aggregator) Search(ctx context.Context, query string, kind media.Kind) (*Response, error) {
	start := time.Now()

	if cached, ok := a.cachedResults(kind, query); ok {
		a.logger.Debug().Str("query", query).Str("kind", string(kind)).Msg("Cache hit")
		if a.broadcaster != nil {
			a.broadcaster.BroadcastSearchCompleted(query, string(kind), len(cached), true)
		}
		return &Response{
			Results:   cached,
			FromCache: true,
			Elapsed:   time.Since(start),
		}, nil
	}

	candidates, err := a.candidateServices(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoServices
	}

	tried := make([]string, 0, len(candidates))
	for _, svc := range candidates {
		tried = append(tried, svc.Name)
	}

	if a.broadcaster != nil {
		a.broadcaster.BroadcastSearchStarted(query, string(kind), tried)
	}

	a.logger.Info().
		Str("query", query).
		Str("kind", string(kind)).
		Int("services", len(candidates)).
		Msg("Starting aggregated search")

	outcomes := a.dispatchSearches(ctx, query, kind, candidates)

	var merged []media.Result
	var failed []string
	for _, svc := range candidates {
		outcome, ok := outcomes[svc.Name]
		if !ok {
			continue
		}
		if outcome.err != nil {
			failed = append(failed, svc.Name)
			continue
		}
		merged = append(merged, outcome.results...)
	}

	merged = media.Merge(merged, a.resultCap(ctx))

	// An empty answer is never cached: the next attempt should retry the
	// providers rather than repeat a miss for five minutes.
	if len(merged) > 0 {
		a.cache.Set(kind, query, merged)
	}

	if a.broadcaster != nil {
		a.broadcaster.BroadcastSearchCompleted(query, string(kind), len(merged), false)
	}

	a.logger.Info().
		Str("query", query).
		Int("results", len(merged)).
		Int("failed", len(failed)).
		Dur("elapsed", time.Since(start)).
		Msg("Aggregated search completed")

	return &Response{
		Results:        merged,
		ServicesTried:  tried,
		ServicesFailed: failed,
		Elapsed:        time.Since(start),
	}, nil
}

// dispatchSearches queries every candidate service in parallel, each call
// bounded by its own deadline. Results are collected keyed by service name
// so the merge order follows the candidate order, not completion order.
func (a *Aggregator) dispatchSearches(ctx context.Context, query string, kind media.Kind, candidates []*services.Service) map[string]providerResult {
	var wg sync.WaitGroup
	resultChan := make(chan providerResult, len(candidates))

	for _, svc := range candidates {
		client, err := a.factory.ClientFor(svc)
		if err != nil {
			a.logger.Error().Err(err).Str("service", svc.Name).Msg("Failed to build client")
			resultChan <- providerResult{provider: svc.Name, err: err}
			continue
		}

		wg.Add(1)
		go func(name string, client provider.Client) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
			defer cancel()

			raw, err := client.Search(callCtx, query, kind)
			if err != nil {
				resultChan <- providerResult{provider: name, err: err}
				return
			}
			resultChan <- providerResult{
				provider: name,
				results:  a.normalizer.Normalize(client.Name(), raw),
			}
		}(svc.Name, client)
	}

	wg.Wait()
	close(resultChan)

	outcomes := make(map[string]providerResult, len(candidates))
	for outcome := range resultChan {
		outcomes[outcome.provider] = outcome
	}
	return outcomes
}

// cachedResults answers a search from cache. A both-kind search is served
// from cache only when both the movie and series entries for the query are
// live, so a partial cache never narrows the result set.
func (a *Aggregator) cachedResults(kind media.Kind, query string) ([]media.Result, bool) {
	if kind != media.KindBoth {
		return a.cache.Get(kind, query)
	}

	combined, ok := a.cache.GetBoth(query)
	if !ok {
		return nil, false
	}
	return media.Merge(combined, 0), true
}

// candidateServices returns at most one enabled service per provider kind
// able to serve the search: the highest-priority configuration of each.
// Movie searches use Radarr and Overseerr, series searches use Sonarr and
// Overseerr, both-kind searches use all three. A kind with no enabled
// configuration simply contributes nothing.
func (a *Aggregator) candidateServices(ctx context.Context, kind media.Kind) ([]*services.Service, error) {
	var kinds []services.Kind
	switch kind {
	case media.KindMovie:
		kinds = []services.Kind{services.KindRadarr, services.KindOverseerr}
	case media.KindSeries:
		kinds = []services.Kind{services.KindSonarr, services.KindOverseerr}
	default:
		kinds = []services.Kind{services.KindRadarr, services.KindSonarr, services.KindOverseerr}
	}

	candidates := make([]*services.Service, 0, len(kinds))
	for _, svcKind := range kinds {
		matches, err := a.store.ListEnabledByKind(ctx, svcKind)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			candidates = append(candidates, matches[0])
		}
	}
	return candidates, nil
}

// resultCap returns the merged result limit: the largest MaxResults among
// all enabled services, or the default when none configure one. Every
// enabled service counts, not just the ones a given search fans out to,
// so movie and series answers truncate at the same point.
func (a *Aggregator) resultCap(ctx context.Context) int {
	limit := 0
	enabled, err := a.store.ListEnabled(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to list services for result cap")
	}
	for _, svc := range enabled {
		if svc.MaxResults > limit {
			limit = svc.MaxResults
		}
	}
	if limit == 0 {
		limit = services.DefaultMaxResults
	}
	return limit
}

// HighestPriorityService returns the enabled service best placed to fulfil
// a request for the given kind. Dedicated catalog managers win over the
// broker; ties break on configured priority.
func (a *Aggregator) HighestPriorityService(ctx context.Context, kind media.Kind) (*services.Service, error) {
	var preference []services.Kind
	switch kind {
	case media.KindMovie:
		preference = []services.Kind{services.KindRadarr, services.KindOverseerr}
	case media.KindSeries:
		preference = []services.Kind{services.KindSonarr, services.KindOverseerr}
	default:
		preference = []services.Kind{services.KindOverseerr}
	}

	for _, svcKind := range preference {
		matches, err := a.store.ListEnabledByKind(ctx, svcKind)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return nil, ErrNoServices
}

// Seasons lists the season numbers of a series via the highest-priority
// Sonarr instance.
func (a *Aggregator) Seasons(ctx context.Context, tvdbID int) ([]int, error) {
	instances, err := a.store.ListEnabledByKind(ctx, services.KindSonarr)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, ErrNoServices
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()

	return a.factory.SonarrFor(instances[0]).Seasons(ctx, tvdbID)
}

// Cache exposes the underlying cache for stats and administration.
func (a *Aggregator) Cache() *Cache {
	return a.cache
}
