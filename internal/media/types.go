// Package media defines the canonical search result model shared by all
// provider clients and the search aggregator.
package media

// Kind identifies the media type of a search or result.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
	KindBoth   Kind = "both"
)

// ParseKind maps a user-facing keyword to a Kind. Unrecognized input
// returns KindBoth.
func ParseKind(s string) Kind {
	switch s {
	case "movie", "film":
		return KindMovie
	case "series", "show", "tv":
		return KindSeries
	default:
		return KindBoth
	}
}

// RawResult is the shape a provider client returns before normalization.
// MediaType is the provider's own vocabulary: "movie" or "tv".
type RawResult struct {
	Title       string
	Year        int
	Overview    string
	PosterURL   string
	TmdbID      int
	TvdbID      int
	MediaType   string
	SeasonCount int
}

// Result is the canonical, provider-agnostic search hit.
type Result struct {
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	Overview    string `json:"overview,omitempty"`
	PosterURL   string `json:"posterUrl,omitempty"`
	TmdbID      int    `json:"tmdbId,omitempty"`
	TvdbID      int    `json:"tvdbId,omitempty"`
	RequestID   int    `json:"requestId,omitempty"`
	Kind        Kind   `json:"kind"`
	SeasonCount int    `json:"seasonCount,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// Valid reports whether a result carries enough identity to be usable.
// A result needs a title, plus either an external identifier or a year.
func (r Result) Valid() bool {
	if r.Title == "" {
		return false
	}
	if r.TmdbID == 0 && r.TvdbID == 0 && r.Year == 0 {
		return false
	}
	return true
}

// IsSeries reports whether the result represents a TV series.
func (r Result) IsSeries() bool {
	return r.Kind == KindSeries
}
