package media

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Normalizer converts raw provider output into deduplicated, ranked Results.
type Normalizer struct {
	logger zerolog.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		logger: logger.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize maps raw records from a single provider into Results, dropping
// records that cannot be mapped. Provider is recorded for diagnostics.
func (n *Normalizer) Normalize(provider string, raw []RawResult) []Result {
	results := make([]Result, 0, len(raw))
	for _, rr := range raw {
		r := Result{
			Title:       strings.TrimSpace(rr.Title),
			Year:        rr.Year,
			Overview:    rr.Overview,
			PosterURL:   rr.PosterURL,
			TmdbID:      rr.TmdbID,
			TvdbID:      rr.TvdbID,
			SeasonCount: rr.SeasonCount,
			Provider:    provider,
		}

		switch rr.MediaType {
		case "tv", "series":
			r.Kind = KindSeries
		default:
			r.Kind = KindMovie
		}

		if !r.Valid() {
			n.logger.Warn().
				Str("provider", provider).
				Str("title", rr.Title).
				Str("mediaType", rr.MediaType).
				Msg("Dropping unmappable provider record")
			continue
		}

		results = append(results, r)
	}
	return results
}

// Dedupe removes duplicate results. The dedupe key prefers external
// identifiers and falls back to kind+title+year. First occurrence wins, so
// callers should order higher-trust providers first.
func Dedupe(results []Result) []Result {
	if len(results) == 0 {
		return results
	}

	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))

	for _, r := range results {
		key := dedupeKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}

	return out
}

// dedupeKey builds the identity key for a result.
func dedupeKey(r Result) string {
	if r.Kind == KindMovie && r.TmdbID > 0 {
		return fmt.Sprintf("movie:tmdb:%d", r.TmdbID)
	}
	if r.Kind == KindSeries && r.TvdbID > 0 {
		return fmt.Sprintf("series:tvdb:%d", r.TvdbID)
	}

	year := "unknown"
	if r.Year > 0 {
		year = fmt.Sprintf("%d", r.Year)
	}
	return fmt.Sprintf("%s:%s:%s", r.Kind, strings.ToLower(strings.TrimSpace(r.Title)), year)
}

// Rank stable-sorts results by year descending. Results without a year sort
// after all dated results, keeping their incoming relative order.
func Rank(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		yi, yj := results[i].Year, results[j].Year
		if yi == 0 {
			return false
		}
		if yj == 0 {
			return true
		}
		return yi > yj
	})
}

// Merge runs the full pipeline over already-normalized provider outputs:
// dedupe, rank, and truncate to max (max <= 0 means no truncation).
func Merge(results []Result, max int) []Result {
	merged := Dedupe(results)
	Rank(merged)
	if max > 0 && len(merged) > max {
		merged = merged[:max]
	}
	return merged
}
