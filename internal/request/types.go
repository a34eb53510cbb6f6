// Package request persists durable media requests and their approval state.
package request

import (
	"errors"
	"time"

	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/services"
)

var ErrNotFound = errors.New("request not found")

// Status is the approval lifecycle state of a media request.
type Status string

const (
	// StatusPending awaits an operator or policy decision.
	StatusPending Status = "PENDING"
	// StatusSubmitted was accepted and handed to a catalog service.
	StatusSubmitted Status = "SUBMITTED"
	// StatusFailed was approved but the submission did not go through.
	StatusFailed Status = "FAILED"
	// StatusRejected was declined by the operator or policy.
	StatusRejected Status = "REJECTED"
)

// MediaRequest is the durable record of a fully specified request. It is
// created when a conversation reaches confirmation and mutated only by the
// approval workflow afterwards.
type MediaRequest struct {
	ID          string        `json:"id"`
	Requester   string        `json:"requester"`
	Title       string        `json:"title"`
	Year        int           `json:"year,omitempty"`
	TmdbID      int           `json:"tmdbId,omitempty"`
	TvdbID      int           `json:"tvdbId,omitempty"`
	Kind        media.Kind    `json:"kind"`
	Seasons     []int         `json:"seasons,omitempty"`
	Status      Status        `json:"status"`
	ServiceKind services.Kind `json:"serviceKind,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Actionable reports whether the request can still be approved or declined.
func (r *MediaRequest) Actionable() bool {
	return r.Status == StatusPending || r.Status == StatusFailed
}
