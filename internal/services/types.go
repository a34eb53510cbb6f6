// Package services manages operator-supplied media service configurations.
package services

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("service configuration not found")
	ErrInvalidConfig = errors.New("invalid service configuration")
)

// Kind identifies the type of external media service.
type Kind string

const (
	// KindRadarr is the movie catalog manager.
	KindRadarr Kind = "radarr"
	// KindSonarr is the series catalog manager.
	KindSonarr Kind = "sonarr"
	// KindOverseerr is the unified request broker.
	KindOverseerr Kind = "overseerr"
)

// DefaultMaxResults is the merged result limit when no service sets one.
const DefaultMaxResults = 10

// ValidKind reports whether k names a known service kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindRadarr, KindSonarr, KindOverseerr:
		return true
	}
	return false
}

// Service is one configured external media service.
type Service struct {
	ID               int64     `json:"id"`
	Kind             Kind      `json:"kind"`
	Name             string    `json:"name"`
	BaseURL          string    `json:"baseUrl"`
	APIKey           string    `json:"-"`
	Enabled          bool      `json:"enabled"`
	Priority         int       `json:"priority"`
	MaxResults       int       `json:"maxResults"`
	QualityProfileID int       `json:"qualityProfileId,omitempty"`
	RootFolder       string    `json:"rootFolder,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Validate checks required fields and clamps priority and max results into
// their allowed ranges (priority 1-5, max results 1-20).
func (s *Service) Validate() error {
	if !ValidKind(s.Kind) {
		return ErrInvalidConfig
	}
	if s.BaseURL == "" || s.APIKey == "" {
		return ErrInvalidConfig
	}
	if s.Name == "" {
		s.Name = string(s.Kind)
	}
	if s.Priority < 1 {
		s.Priority = 1
	}
	if s.Priority > 5 {
		s.Priority = 5
	}
	if s.MaxResults < 1 {
		s.MaxResults = DefaultMaxResults
	}
	if s.MaxResults > 20 {
		s.MaxResults = 20
	}
	return nil
}
