// Package approval decides what happens to finalized media requests:
// operator notification, policy-based auto-handling, and submission to the
// catalog services.
package approval

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/chat"
	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/provider"
	"github.com/chatarr/chatarr/internal/request"
	"github.com/chatarr/chatarr/internal/services"
)

// Policy is applied to new requests when no operator is reachable.
type Policy string

const (
	// PolicyManual leaves requests pending until an operator acts.
	PolicyManual Policy = "manual"
	// PolicyAutoApprove submits requests immediately.
	PolicyAutoApprove Policy = "auto_approve"
	// PolicyAutoDeny rejects requests immediately.
	PolicyAutoDeny Policy = "auto_deny"
)

// ValidPolicy reports whether p names a known policy.
func ValidPolicy(p Policy) bool {
	switch p {
	case PolicyManual, PolicyAutoApprove, PolicyAutoDeny:
		return true
	}
	return false
}

// Config holds the operator channel and fallback policy.
type Config struct {
	// OperatorID is the chat destination for approval prompts. Empty
	// disables operator notifications.
	OperatorID string
	Policy     Policy
}

// ServiceResolver picks the service that will fulfil a request.
type ServiceResolver interface {
	HighestPriorityService(ctx context.Context, kind media.Kind) (*services.Service, error)
}

// ClientFactory builds submission clients from service configurations.
type ClientFactory interface {
	ClientFor(svc *services.Service) (provider.Client, error)
}

// RequestStore is the persistence surface the workflow needs.
type RequestStore interface {
	GetByID(ctx context.Context, id string) (*request.MediaRequest, error)
	MostRecentPending(ctx context.Context) (*request.MediaRequest, error)
	UpdateStatus(ctx context.Context, id string, status request.Status, serviceKind, errText string) error
	Delete(ctx context.Context, id string) error
}

// Workflow routes finalized requests through approval and submission.
type Workflow struct {
	requests RequestStore
	resolver ServiceResolver
	factory  ClientFactory
	sender   chat.Sender
	config   Config
	logger   zerolog.Logger
}

// NewWorkflow creates an approval workflow.
func NewWorkflow(requests RequestStore, resolver ServiceResolver, factory ClientFactory, sender chat.Sender, config Config, logger zerolog.Logger) *Workflow {
	if config.Policy == "" {
		config.Policy = PolicyManual
	}
	return &Workflow{
		requests: requests,
		resolver: resolver,
		factory:  factory,
		sender:   sender,
		config:   config,
		logger:   logger.With().Str("component", "approval").Logger(),
	}
}

// RequestCreated handles a freshly finalized request: it asks the operator
// when a channel is configured and connected, otherwise it applies the
// fallback policy.
func (w *Workflow) RequestCreated(ctx context.Context, req *request.MediaRequest) {
	if w.config.OperatorID != "" && w.sender != nil && w.sender.Connected() {
		w.notifyOperator(ctx, req)
		return
	}

	switch w.config.Policy {
	case PolicyAutoApprove:
		w.logger.Info().Str("request", req.ID).Msg("Auto-approving request")
		w.approve(ctx, req)
	case PolicyAutoDeny:
		w.logger.Info().Str("request", req.ID).Msg("Auto-denying request")
		w.decline(ctx, req)
	default:
		w.logger.Info().Str("request", req.ID).Msg("Request held for manual approval")
	}
}

func (w *Workflow) notifyOperator(ctx context.Context, req *request.MediaRequest) {
	summary := fmt.Sprintf(
		"New request from %s: %s\nReply \"approve %s\", \"decline %s\", or manage it on the dashboard.",
		req.Requester, describeRequest(req), req.ID, req.ID)
	if err := w.sender.Send(ctx, w.config.OperatorID, summary); err != nil {
		w.logger.Warn().Err(err).Str("request", req.ID).Msg("Failed to notify operator")
	}
}

// HandleOperatorReply interprets an operator chat message as an approval
// action and returns the reply to send back to the operator. It returns an
// empty string when the message is not an approval command.
func (w *Workflow) HandleOperatorReply(ctx context.Context, text string) string {
	action, id := parseCommand(text)
	if action == "" {
		return ""
	}

	req, err := w.lookup(ctx, id)
	if err != nil {
		if id == "" {
			return "There are no pending requests."
		}
		return fmt.Sprintf("I couldn't find request %s.", id)
	}

	switch action {
	case "approve":
		if !req.Actionable() {
			return fmt.Sprintf("Request %s is already %s and can't be approved.", req.ID, strings.ToLower(string(req.Status)))
		}
		w.approve(ctx, req)
		updated, err := w.requests.GetByID(ctx, req.ID)
		if err != nil || updated.Status != request.StatusSubmitted {
			return fmt.Sprintf("Approved %s, but the submission failed. It stays retryable.", req.ID)
		}
		return fmt.Sprintf("Approved and submitted %s.", req.ID)
	case "decline":
		if !req.Actionable() {
			return fmt.Sprintf("Request %s is already %s and can't be declined.", req.ID, strings.ToLower(string(req.Status)))
		}
		w.decline(ctx, req)
		return fmt.Sprintf("Declined %s.", req.ID)
	case "delete":
		if err := w.requests.Delete(ctx, req.ID); err != nil {
			return fmt.Sprintf("Couldn't delete request %s.", req.ID)
		}
		return fmt.Sprintf("Deleted %s.", req.ID)
	}
	return ""
}

// Approve submits a request by id on behalf of the dashboard.
func (w *Workflow) Approve(ctx context.Context, id string) (*request.MediaRequest, error) {
	req, err := w.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Actionable() {
		return req, fmt.Errorf("request %s is %s", req.ID, req.Status)
	}
	w.approve(ctx, req)
	return w.requests.GetByID(ctx, id)
}

// Decline rejects a request by id on behalf of the dashboard.
func (w *Workflow) Decline(ctx context.Context, id string) (*request.MediaRequest, error) {
	req, err := w.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Actionable() {
		return req, fmt.Errorf("request %s is %s", req.ID, req.Status)
	}
	w.decline(ctx, req)
	return w.requests.GetByID(ctx, id)
}

// approve resolves the best service for the request's kind and submits it,
// recording the outcome and notifying the requester either way.
func (w *Workflow) approve(ctx context.Context, req *request.MediaRequest) {
	svc, err := w.resolver.HighestPriorityService(ctx, req.Kind)
	if err != nil {
		w.fail(ctx, req, "", fmt.Sprintf("no service available: %s", err))
		return
	}

	client, err := w.factory.ClientFor(svc)
	if err != nil {
		w.fail(ctx, req, svc.Kind, err.Error())
		return
	}

	err = client.Submit(ctx, provider.Submission{
		Title:            req.Title,
		Year:             req.Year,
		TmdbID:           req.TmdbID,
		TvdbID:           req.TvdbID,
		Kind:             req.Kind,
		Seasons:          req.Seasons,
		QualityProfileID: svc.QualityProfileID,
		RootFolder:       svc.RootFolder,
	})
	if err != nil {
		w.fail(ctx, req, svc.Kind, err.Error())
		return
	}

	if err := w.requests.UpdateStatus(ctx, req.ID, request.StatusSubmitted, string(svc.Kind), ""); err != nil {
		w.logger.Error().Err(err).Str("request", req.ID).Msg("Failed to record submission")
	}
	w.logger.Info().
		Str("request", req.ID).
		Str("service", svc.Name).
		Str("title", req.Title).
		Msg("Request submitted")

	w.notifyRequester(ctx, req,
		fmt.Sprintf("Good news! Your request for %s was approved and is on its way.", describeRequest(req)))
}

func (w *Workflow) fail(ctx context.Context, req *request.MediaRequest, svcKind services.Kind, errText string) {
	if err := w.requests.UpdateStatus(ctx, req.ID, request.StatusFailed, string(svcKind), errText); err != nil {
		w.logger.Error().Err(err).Str("request", req.ID).Msg("Failed to record failure")
	}
	w.logger.Warn().
		Str("request", req.ID).
		Str("error", errText).
		Msg("Request submission failed")

	w.notifyRequester(ctx, req,
		fmt.Sprintf("Your request for %s was approved, but submitting it hit a problem. The operator has been informed.", describeRequest(req)))
}

func (w *Workflow) decline(ctx context.Context, req *request.MediaRequest) {
	if err := w.requests.UpdateStatus(ctx, req.ID, request.StatusRejected, string(req.ServiceKind), ""); err != nil {
		w.logger.Error().Err(err).Str("request", req.ID).Msg("Failed to record rejection")
	}
	w.notifyRequester(ctx, req,
		fmt.Sprintf("Sorry, your request for %s was declined.", describeRequest(req)))
}

func (w *Workflow) notifyRequester(ctx context.Context, req *request.MediaRequest, text string) {
	if w.sender == nil || !w.sender.Connected() {
		return
	}
	if err := w.sender.Send(ctx, req.Requester, text); err != nil {
		w.logger.Warn().Err(err).Str("requester", req.Requester).Msg("Failed to notify requester")
	}
}

func (w *Workflow) lookup(ctx context.Context, id string) (*request.MediaRequest, error) {
	if id == "" {
		return w.requests.MostRecentPending(ctx)
	}
	return w.requests.GetByID(ctx, id)
}

func describeRequest(req *request.MediaRequest) string {
	label := req.Title
	if req.Year > 0 {
		label = fmt.Sprintf("%s (%d)", label, req.Year)
	}
	if req.Kind == media.KindSeries && len(req.Seasons) > 0 {
		label = fmt.Sprintf("%s, season(s) %s", label, joinInts(req.Seasons))
	}
	return label
}

func joinInts(ns []int) string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		parts = append(parts, fmt.Sprintf("%d", n))
	}
	return strings.Join(parts, ", ")
}

// parseCommand extracts an approval action and optional request id from an
// operator message. Unrecognized messages yield an empty action so other
// operator traffic passes through untouched.
func parseCommand(text string) (action, id string) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(text)))
	if len(fields) == 0 || len(fields) > 2 {
		return "", ""
	}

	switch fields[0] {
	case "approve", "accept":
		action = "approve"
	case "decline", "deny", "reject":
		action = "decline"
	case "delete", "remove":
		action = "delete"
	default:
		return "", ""
	}

	if len(fields) == 2 {
		id = fields[1]
	}
	return action, id
}
