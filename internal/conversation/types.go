// Package conversation drives the per-requester dialogue that turns chat
// messages into media requests.
package conversation

import (
	"errors"
	"time"

	"github.com/chatarr/chatarr/internal/media"
)

var ErrNotFound = errors.New("session not found")

// SessionTTL is how long an in-progress conversation stays alive after its
// last update.
const SessionTTL = 5 * time.Minute

// State is the position of a session in the request dialogue.
type State string

const (
	// StateIdle means no conversation is in progress.
	StateIdle State = "IDLE"
	// StateSearching is the transient state while the aggregator runs.
	StateSearching State = "SEARCHING"
	// StateAwaitingSelection waits for the requester to pick a result.
	StateAwaitingSelection State = "AWAITING_SELECTION"
	// StateAwaitingSeasonSelection waits for a season choice on a series.
	StateAwaitingSeasonSelection State = "AWAITING_SEASON_SELECTION"
	// StateAwaitingConfirmation waits for a yes/no on the summary.
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	// StateProcessing is the transient state while the request is created.
	StateProcessing State = "PROCESSING"
)

// Session is one requester's conversation. At most one active session
// exists per requester; a session past ExpiresAt is treated as absent.
type Session struct {
	ID               string         `json:"id"`
	Requester        string         `json:"requester"`
	State            State          `json:"state"`
	Kind             media.Kind     `json:"kind,omitempty"`
	Query            string         `json:"query,omitempty"`
	Results          []media.Result `json:"results,omitempty"`
	SelectedIndex    *int           `json:"selectedIndex,omitempty"`
	Selected         *media.Result  `json:"selected,omitempty"`
	SeasonsAvailable []int          `json:"seasonsAvailable,omitempty"`
	SeasonsChosen    []int          `json:"seasonsChosen,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	ExpiresAt        time.Time      `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Select records the requester's chosen result. The index must already be
// validated against the result list.
func (s *Session) Select(index int) {
	chosen := s.Results[index]
	s.SelectedIndex = &index
	s.Selected = &chosen
}

// ClearSelection drops every pending choice, returning the session to a
// clean slate.
func (s *Session) ClearSelection() {
	s.Kind = ""
	s.Query = ""
	s.Results = nil
	s.SelectedIndex = nil
	s.Selected = nil
	s.SeasonsAvailable = nil
	s.SeasonsChosen = nil
}
