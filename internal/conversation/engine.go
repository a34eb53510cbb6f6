package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/request"
	"github.com/chatarr/chatarr/internal/search"
)

// Searcher is the aggregator surface the engine depends on.
type Searcher interface {
	Search(ctx context.Context, query string, kind media.Kind) (*search.Response, error)
	Seasons(ctx context.Context, tvdbID int) ([]int, error)
}

// RequestCreator persists finalized requests.
type RequestCreator interface {
	Create(ctx context.Context, r *request.MediaRequest) (*request.MediaRequest, error)
}

// Approver takes over a freshly created request: notifying the operator or
// applying the auto-approval policy.
type Approver interface {
	RequestCreated(ctx context.Context, req *request.MediaRequest)
}

// Engine is the per-requester conversation state machine. Callers must
// serialize messages from the same requester; the chat dispatcher does this.
type Engine struct {
	sessions *Store
	contacts *ContactStore
	requests RequestCreator
	searcher Searcher
	approver Approver
	logger   zerolog.Logger
}

// NewEngine creates a conversation engine.
func NewEngine(sessions *Store, contacts *ContactStore, requests RequestCreator, searcher Searcher, approver Approver, logger zerolog.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		contacts: contacts,
		requests: requests,
		searcher: searcher,
		approver: approver,
		logger:   logger.With().Str("component", "conversation").Logger(),
	}
}

// HandleMessage advances a requester's conversation by one inbound message
// and returns the reply text.
func (e *Engine) HandleMessage(ctx context.Context, senderID, text string) string {
	if e.contacts != nil {
		if err := e.contacts.Touch(ctx, senderID, ""); err != nil {
			e.logger.Warn().Err(err).Str("requester", senderID).Msg("Failed to record contact")
		}
	}

	session := e.loadSession(ctx, senderID)
	intent := Classify(text)

	e.logger.Debug().
		Str("requester", senderID).
		Str("state", string(session.State)).
		Str("intent", string(intent.Type)).
		Msg("Handling message")

	// Cancel preempts every state-specific transition.
	if intent.Type == IntentCancel {
		if session.State == StateIdle {
			return replyHelp
		}
		e.retire(ctx, session)
		return replyCancelled
	}

	switch session.State {
	case StateIdle:
		return e.handleIdle(ctx, session, intent)
	case StateAwaitingSelection:
		return e.handleSelection(ctx, session, intent)
	case StateAwaitingSeasonSelection:
		return e.handleSeasonSelection(ctx, session, text)
	case StateAwaitingConfirmation:
		return e.handleConfirmation(ctx, session, intent)
	}

	// A session stuck in a transient state is stale; start over.
	e.retire(ctx, session)
	return replyHelp
}

// loadSession returns the requester's live session, or a fresh idle one if
// none exists or the stored one has expired.
func (e *Engine) loadSession(ctx context.Context, requester string) *Session {
	session, err := e.sessions.GetByRequester(ctx, requester)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.logger.Error().Err(err).Str("requester", requester).Msg("Failed to load session")
		}
		return &Session{Requester: requester, State: StateIdle}
	}
	if session.Expired() {
		e.retire(ctx, session)
		return &Session{Requester: requester, State: StateIdle}
	}
	return session
}

func (e *Engine) handleIdle(ctx context.Context, session *Session, intent Intent) string {
	if intent.Type != IntentMediaRequest {
		return replyHelp
	}

	session.State = StateSearching
	session.Query = intent.Query
	session.Kind = intent.Kind

	resp, err := e.searcher.Search(ctx, intent.Query, intent.Kind)
	if err != nil {
		e.logger.Error().Err(err).Str("query", intent.Query).Msg("Search failed")
		e.retire(ctx, session)
		return replySearchFailed
	}
	if len(resp.Results) == 0 {
		e.retire(ctx, session)
		return fmt.Sprintf(replyNotFound, intent.Query)
	}

	session.State = StateAwaitingSelection
	session.Results = resp.Results
	if err := e.sessions.Save(ctx, session); err != nil {
		e.logger.Error().Err(err).Str("requester", session.Requester).Msg("Failed to save session")
		return replySearchFailed
	}
	return formatResultList(intent.Query, resp.Results)
}

func (e *Engine) handleSelection(ctx context.Context, session *Session, intent Intent) string {
	if intent.Type != IntentSelection {
		return formatOutOfRange(len(session.Results))
	}
	if intent.Selection < 1 || intent.Selection > len(session.Results) {
		return formatOutOfRange(len(session.Results))
	}

	session.Select(intent.Selection - 1)
	selected := *session.Selected

	if selected.IsSeries() && selected.SeasonCount > 1 {
		session.SeasonsAvailable = e.seasonsFor(ctx, selected)
		session.State = StateAwaitingSeasonSelection
		if err := e.sessions.Save(ctx, session); err != nil {
			e.logger.Error().Err(err).Msg("Failed to save session")
			return replySearchFailed
		}
		return formatSeasonPrompt(selected, session.SeasonsAvailable)
	}

	session.State = StateAwaitingConfirmation
	if err := e.sessions.Save(ctx, session); err != nil {
		e.logger.Error().Err(err).Msg("Failed to save session")
		return replySearchFailed
	}
	return formatConfirmation(session)
}

// seasonsFor asks the series catalog for the season list, falling back to
// the season count snapshot when the catalog has no answer.
func (e *Engine) seasonsFor(ctx context.Context, selected media.Result) []int {
	if selected.TvdbID > 0 {
		if seasons, err := e.searcher.Seasons(ctx, selected.TvdbID); err == nil && len(seasons) > 0 {
			sort.Ints(seasons)
			return seasons
		}
	}
	seasons := make([]int, 0, selected.SeasonCount)
	for n := 1; n <= selected.SeasonCount; n++ {
		seasons = append(seasons, n)
	}
	return seasons
}

func (e *Engine) handleSeasonSelection(ctx context.Context, session *Session, text string) string {
	chosen, ok := parseSeasonChoice(text, session.SeasonsAvailable)
	if !ok {
		return formatSeasonPrompt(*session.Selected, session.SeasonsAvailable)
	}

	session.SeasonsChosen = chosen
	session.State = StateAwaitingConfirmation
	if err := e.sessions.Save(ctx, session); err != nil {
		e.logger.Error().Err(err).Msg("Failed to save session")
		return replySearchFailed
	}
	return formatConfirmation(session)
}

func (e *Engine) handleConfirmation(ctx context.Context, session *Session, intent Intent) string {
	switch intent.Type {
	case IntentAffirmative:
		return e.finalize(ctx, session)
	case IntentNegative:
		e.retire(ctx, session)
		return replyCancelled
	}
	return formatConfirmation(session)
}

// finalize creates the durable request, hands it to the approval workflow,
// and retires the session.
func (e *Engine) finalize(ctx context.Context, session *Session) string {
	session.State = StateProcessing
	selected := *session.Selected

	req, err := e.requests.Create(ctx, &request.MediaRequest{
		Requester: session.Requester,
		Title:     selected.Title,
		Year:      selected.Year,
		TmdbID:    selected.TmdbID,
		TvdbID:    selected.TvdbID,
		Kind:      selected.Kind,
		Seasons:   session.SeasonsChosen,
	})
	if err != nil {
		e.logger.Error().Err(err).Str("title", selected.Title).Msg("Failed to create request")
		return replySearchFailed
	}

	e.retire(ctx, session)
	e.approver.RequestCreated(ctx, req)

	e.logger.Info().
		Str("requester", session.Requester).
		Str("request", req.ID).
		Str("title", req.Title).
		Msg("Request finalized")

	return fmt.Sprintf(replySubmitted, describeResult(selected))
}

// retire drops the session, returning the requester to a clean idle state.
func (e *Engine) retire(ctx context.Context, session *Session) {
	session.ClearSelection()
	session.State = StateIdle
	if err := e.sessions.Delete(ctx, session.Requester); err != nil {
		e.logger.Warn().Err(err).Str("requester", session.Requester).Msg("Failed to delete session")
	}
}

// parseSeasonChoice interprets a season reply: "all" selects every
// available season, otherwise a comma- or space-separated list of numbers,
// each of which must be an available season.
func parseSeasonChoice(text string, available []int) ([]int, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return nil, false
	}
	if normalized == "all" || normalized == "everything" || normalized == "all seasons" {
		chosen := make([]int, len(available))
		copy(chosen, available)
		return chosen, true
	}

	valid := make(map[int]bool, len(available))
	for _, s := range available {
		valid[s] = true
	}

	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, false
	}

	seen := make(map[int]bool, len(fields))
	chosen := make([]int, 0, len(fields))
	for _, f := range fields {
		if f == "season" || f == "seasons" || f == "and" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || !valid[n] {
			return nil, false
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		chosen = append(chosen, n)
	}
	if len(chosen) == 0 {
		return nil, false
	}
	sort.Ints(chosen)
	return chosen, true
}
