package approval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatarr/chatarr/internal/chat"
	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/provider"
	"github.com/chatarr/chatarr/internal/request"
	"github.com/chatarr/chatarr/internal/services"
	"github.com/chatarr/chatarr/internal/testutil"
)

type stubResolver struct {
	svc *services.Service
	err error
}

func (r *stubResolver) HighestPriorityService(ctx context.Context, kind media.Kind) (*services.Service, error) {
	return r.svc, r.err
}

type stubSubmitClient struct {
	submitted []provider.Submission
	err       error
}

func (c *stubSubmitClient) Name() string { return "stub" }

func (c *stubSubmitClient) Search(ctx context.Context, query string, kind media.Kind) ([]media.RawResult, error) {
	return nil, nil
}

func (c *stubSubmitClient) Submit(ctx context.Context, sub provider.Submission) error {
	c.submitted = append(c.submitted, sub)
	return c.err
}

type stubFactory struct {
	client *stubSubmitClient
	err    error
}

func (f *stubFactory) ClientFor(svc *services.Service) (provider.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

type stubChatSender struct {
	sent      map[string][]string
	connected bool
	err       error
}

func newStubChatSender(connected bool) *stubChatSender {
	return &stubChatSender{sent: make(map[string][]string), connected: connected}
}

func (s *stubChatSender) Send(ctx context.Context, destination, text string) error {
	s.sent[destination] = append(s.sent[destination], text)
	return s.err
}

func (s *stubChatSender) Connected() bool { return s.connected }

var _ chat.Sender = (*stubChatSender)(nil)

type fixture struct {
	workflow *Workflow
	requests *request.Store
	client   *stubSubmitClient
	sender   *stubChatSender
	cleanup  func()
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)

	requests := request.NewStore(tdb.Conn, testutil.NopLogger())
	client := &stubSubmitClient{}
	sender := newStubChatSender(true)
	resolver := &stubResolver{svc: &services.Service{
		ID: 1, Kind: services.KindRadarr, Name: "radarr-main",
		QualityProfileID: 4, RootFolder: "/movies",
	}}

	return &fixture{
		workflow: NewWorkflow(requests, resolver, &stubFactory{client: client}, sender, config, testutil.NopLogger()),
		requests: requests,
		client:   client,
		sender:   sender,
		cleanup:  tdb.Close,
	}
}

func (f *fixture) createRequest(t *testing.T, req *request.MediaRequest) *request.MediaRequest {
	t.Helper()
	created, err := f.requests.Create(context.Background(), req)
	require.NoError(t, err)
	return created
}

func movieRequest() *request.MediaRequest {
	return &request.MediaRequest{
		Requester: "alice",
		Title:     "Inception",
		Year:      2010,
		TmdbID:    27205,
		Kind:      media.KindMovie,
	}
}

func TestWorkflow_OperatorNotified(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator", Policy: PolicyAutoApprove})
	defer f.cleanup()

	req := f.createRequest(t, movieRequest())
	f.workflow.RequestCreated(context.Background(), req)

	require.Len(t, f.sender.sent["operator"], 1)
	assert.Contains(t, f.sender.sent["operator"][0], req.ID, "operator messages carry the request id")
	assert.Empty(t, f.client.submitted, "policy does not fire while the operator channel works")

	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, stored.Status)
}

func TestWorkflow_AutoApproveWhenOperatorUnreachable(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator", Policy: PolicyAutoApprove})
	f.sender.connected = false
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())
	f.workflow.RequestCreated(ctx, req)

	require.Len(t, f.client.submitted, 1)
	sub := f.client.submitted[0]
	assert.Equal(t, 27205, sub.TmdbID)
	assert.Equal(t, 4, sub.QualityProfileID)
	assert.Equal(t, "/movies", sub.RootFolder)

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusSubmitted, stored.Status)
	assert.Equal(t, services.KindRadarr, stored.ServiceKind)
}

func TestWorkflow_AutoDeny(t *testing.T) {
	f := newFixture(t, Config{Policy: PolicyAutoDeny})
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())
	f.workflow.RequestCreated(ctx, req)

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, stored.Status)
	require.Len(t, f.sender.sent["alice"], 1)
	assert.Contains(t, f.sender.sent["alice"][0], "declined")
}

func TestWorkflow_ManualHoldsPending(t *testing.T) {
	f := newFixture(t, Config{Policy: PolicyManual})
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())
	f.workflow.RequestCreated(ctx, req)

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusPending, stored.Status)
	assert.Empty(t, f.client.submitted)
}

func TestWorkflow_OperatorApproveById(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())

	reply := f.workflow.HandleOperatorReply(ctx, "approve "+req.ID)
	assert.Contains(t, reply, "Approved and submitted")
	require.Len(t, f.client.submitted, 1)

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusSubmitted, stored.Status)

	require.Len(t, f.sender.sent["alice"], 1)
	assert.Contains(t, f.sender.sent["alice"][0], "approved")
}

func TestWorkflow_OperatorApproveWithoutIdUsesMostRecentPending(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()
	ctx := context.Background()

	f.createRequest(t, movieRequest())
	second := f.createRequest(t, &request.MediaRequest{
		Requester: "bob", Title: "Fargo", Year: 1996, TmdbID: 275, Kind: media.KindMovie,
	})

	reply := f.workflow.HandleOperatorReply(ctx, "approve")
	assert.Contains(t, reply, "Approved")

	stored, err := f.requests.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusSubmitted, stored.Status)
}

func TestWorkflow_SubmissionFailureRecordsError(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	f.client.err = errors.New("radarr add movie failed: status 500")
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())

	reply := f.workflow.HandleOperatorReply(ctx, "approve "+req.ID)
	assert.Contains(t, reply, "submission failed")

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "status 500")
	assert.True(t, stored.Actionable(), "failed requests stay retryable")

	// Retrying after the failure succeeds.
	f.client.err = nil
	reply = f.workflow.HandleOperatorReply(ctx, "approve "+req.ID)
	assert.Contains(t, reply, "Approved and submitted")
}

func TestWorkflow_OperatorDecline(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())

	reply := f.workflow.HandleOperatorReply(ctx, "decline "+req.ID)
	assert.Contains(t, reply, "Declined")

	stored, err := f.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, stored.Status)
	assert.Empty(t, f.client.submitted)
}

func TestWorkflow_OperatorDelete(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())

	reply := f.workflow.HandleOperatorReply(ctx, "delete "+req.ID)
	assert.Contains(t, reply, "Deleted")

	_, err := f.requests.GetByID(ctx, req.ID)
	assert.ErrorIs(t, err, request.ErrNotFound)
}

func TestWorkflow_NonActionableStatusIsNoOp(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()
	ctx := context.Background()

	req := f.createRequest(t, movieRequest())
	require.NoError(t, f.requests.UpdateStatus(ctx, req.ID, request.StatusSubmitted, "radarr", ""))

	reply := f.workflow.HandleOperatorReply(ctx, "approve "+req.ID)
	assert.Contains(t, reply, "already submitted")
	assert.Empty(t, f.client.submitted)

	reply = f.workflow.HandleOperatorReply(ctx, "decline "+req.ID)
	assert.Contains(t, reply, "already submitted")
}

func TestWorkflow_UnrecognizedOperatorMessagePassesThrough(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()

	assert.Empty(t, f.workflow.HandleOperatorReply(context.Background(), "what's the weather like"))
	assert.Empty(t, f.workflow.HandleOperatorReply(context.Background(), ""))
}

func TestWorkflow_NoPendingRequests(t *testing.T) {
	f := newFixture(t, Config{OperatorID: "operator"})
	defer f.cleanup()

	reply := f.workflow.HandleOperatorReply(context.Background(), "approve")
	assert.Equal(t, "There are no pending requests.", reply)
}

func TestWorkflow_NoServiceAvailable(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	ctx := context.Background()

	requests := request.NewStore(tdb.Conn, testutil.NopLogger())
	sender := newStubChatSender(true)
	workflow := NewWorkflow(requests,
		&stubResolver{err: errors.New("no enabled services for kind")},
		&stubFactory{client: &stubSubmitClient{}},
		sender, Config{Policy: PolicyAutoApprove}, testutil.NopLogger())

	req, err := requests.Create(ctx, movieRequest())
	require.NoError(t, err)

	workflow.RequestCreated(ctx, req)

	stored, err := requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "no service available")
}
