package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chatarr/chatarr/internal/approval"
	"github.com/chatarr/chatarr/internal/chat"
	"github.com/chatarr/chatarr/internal/config"
	"github.com/chatarr/chatarr/internal/conversation"
	"github.com/chatarr/chatarr/internal/media"
	"github.com/chatarr/chatarr/internal/provider"
	"github.com/chatarr/chatarr/internal/request"
	"github.com/chatarr/chatarr/internal/scheduler"
	"github.com/chatarr/chatarr/internal/search"
	"github.com/chatarr/chatarr/internal/services"
	"github.com/chatarr/chatarr/internal/testutil"
)

type sentMessage struct {
	Destination string
	Text        string
}

// captureSender records outbound chat messages and signals each delivery.
type captureSender struct {
	mu   sync.Mutex
	sent []sentMessage
	ch   chan sentMessage
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan sentMessage, 16)}
}

func (s *captureSender) Send(ctx context.Context, destination, text string) error {
	s.mu.Lock()
	s.sent = append(s.sent, sentMessage{Destination: destination, Text: text})
	s.mu.Unlock()
	s.ch <- sentMessage{Destination: destination, Text: text}
	return nil
}

func (s *captureSender) Connected() bool { return true }

func (s *captureSender) wait(t *testing.T) sentMessage {
	t.Helper()
	select {
	case msg := <-s.ch:
		return msg
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for outbound message")
		return sentMessage{}
	}
}

type testServer struct {
	*Server
	requests *request.Store
	sender   *captureSender
}

func setupTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()

	tdb := testutil.NewTestDB(t)
	logger := tdb.Logger

	cfg := config.Default()
	cfg.Approval.OperatorID = "operator"

	svcStore := services.NewStore(tdb.Conn, logger)
	reqStore := request.NewStore(tdb.Conn, logger)
	sessions := conversation.NewStore(tdb.Conn, logger)
	contacts := conversation.NewContactStore(tdb.Conn, logger)

	factory := provider.NewFactory(logger)
	cache := search.NewCache(search.DefaultCacheTTL)
	aggregator := search.NewAggregator(svcStore, NewSearchFactory(factory), cache, nil, logger)

	sender := newCaptureSender()
	workflow := approval.NewWorkflow(reqStore, aggregator, factory, sender, approval.Config{
		OperatorID: cfg.Approval.OperatorID,
		Policy:     approval.PolicyManual,
	}, logger)

	engine := conversation.NewEngine(sessions, contacts, reqStore, aggregator, workflow, logger)
	dispatcher := chat.NewDispatcher(engine, sender, logger)

	sched, err := scheduler.New(logger)
	if err != nil {
		tdb.Close()
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	server := NewServer(cfg, Dependencies{
		Services:   svcStore,
		Requests:   reqStore,
		Contacts:   contacts,
		Aggregator: aggregator,
		Workflow:   workflow,
		Dispatcher: dispatcher,
		Sender:     sender,
		Scheduler:  sched,
	}, logger)

	cleanup := func() {
		_ = sched.Stop()
		tdb.Close()
	}
	return &testServer{Server: server, requests: reqStore, sender: sender}, cleanup
}

func TestHealthCheck(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("HealthCheck status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("HealthCheck status = %q, want %q", response["status"], "ok")
	}
}

func TestGetStatus(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()

	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GetStatus status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if _, ok := response["version"]; !ok {
		t.Error("GetStatus missing version field")
	}
	if _, ok := response["serviceCount"]; !ok {
		t.Error("GetStatus missing serviceCount field")
	}
	if response["chatConnected"] != true {
		t.Error("GetStatus chatConnected should be true with a healthy sender")
	}
}

// Services API tests

func TestServicesAPI_Create(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	body := `{"kind": "radarr", "name": "radarr-main", "baseUrl": "http://radarr:7878", "apiKey": "key1", "priority": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Create service status = %d, want %d. Body: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var svc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &svc); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if svc["name"] != "radarr-main" {
		t.Errorf("Create service name = %v, want %q", svc["name"], "radarr-main")
	}
	if svc["enabled"] != true {
		t.Error("Create service should default to enabled")
	}
	if _, leaked := svc["apiKey"]; leaked {
		t.Error("Create service response must not expose the API key")
	}
}

func TestServicesAPI_Create_InvalidKind(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	body := `{"kind": "plex", "baseUrl": "http://plex:32400", "apiKey": "key"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Create invalid service status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestServicesAPI_UpdateKeepsAPIKey(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	create := `{"kind": "sonarr", "name": "sonarr-main", "baseUrl": "http://sonarr:8989", "apiKey": "original"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(create))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create service status = %d. Body: %s", rec.Code, rec.Body.String())
	}

	// Update without an apiKey field must keep the stored key.
	update := `{"kind": "sonarr", "name": "sonarr-renamed", "baseUrl": "http://sonarr:8989", "priority": 2}`
	req = httptest.NewRequest(http.MethodPut, "/api/v1/services/1", strings.NewReader(update))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Update service status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var svc map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &svc)
	if svc["name"] != "sonarr-renamed" {
		t.Errorf("Update service name = %v, want %q", svc["name"], "sonarr-renamed")
	}
}

func TestServicesAPI_Delete(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	create := `{"kind": "overseerr", "baseUrl": "http://overseerr:5055", "apiKey": "key"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/services", strings.NewReader(create))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/services/1", nil)
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Delete service status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/services/1", nil)
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Get deleted service status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// Requests API tests

func TestRequestsAPI_ListEmpty(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("List requests status = %d, want %d", rec.Code, http.StatusOK)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("List requests body = %s, want []", rec.Body.String())
	}
}

func TestRequestsAPI_InvalidStatusFilter(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?status=SHIPPED", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Invalid status filter = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequestsAPI_DeclineFlow(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	created, err := ts.requests.Create(context.Background(), &request.MediaRequest{
		Requester: "alice",
		Title:     "Heat",
		Year:      1995,
		TmdbID:    949,
		Kind:      media.KindMovie,
	})
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+created.ID+"/decline", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Decline status = %d, want %d. Body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var declined map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &declined)
	if declined["status"] != string(request.StatusRejected) {
		t.Errorf("Declined status = %v, want %s", declined["status"], request.StatusRejected)
	}

	// The requester is told about the decision.
	msg := ts.sender.wait(t)
	if msg.Destination != "alice" {
		t.Errorf("Decline notification went to %q, want alice", msg.Destination)
	}

	// Declining again conflicts: the request is no longer actionable.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/requests/"+created.ID+"/decline", nil)
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("Second decline status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRequestsAPI_ApproveUnknown(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/requests/nope/approve", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Approve unknown request status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRequestsAPI_Delete(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	created, err := ts.requests.Create(context.Background(), &request.MediaRequest{
		Requester: "bob",
		Title:     "Severance",
		TvdbID:    371980,
		Kind:      media.KindSeries,
		Seasons:   []int{1},
	})
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/requests/"+created.ID, nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Delete request status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+created.ID, nil)
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Get deleted request status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// Search API tests

func TestSearchAPI_MissingQuery(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Search without query status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSearchAPI_NoServices(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=heat&kind=movie", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Search with no services status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

// Cache API tests

func TestCacheAPI(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Cache stats status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cache/clear", nil)
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Cache clear status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// Scheduler API tests

func TestSchedulerTasksAPI(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/tasks", nil)
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Scheduler tasks status = %d, want %d", rec.Code, http.StatusOK)
	}
}

// Chat inbound tests

func TestChatInbound_RequiresToken(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	ts.cfg.Chat.WebhookToken = "secret"

	body := `{"sender": "alice", "text": "hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/inbound", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Inbound without token status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestChatInbound_MissingFields(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	body := `{"sender": "", "text": "hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/inbound", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Inbound without sender status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestChatInbound_DispatchesAndReplies(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	ts.cfg.Chat.WebhookToken = "secret"

	// No services configured, so a media request ends in a search failure
	// reply. The point is the full inbound -> dispatcher -> reply loop.
	body := `{"sender": "alice", "displayName": "Alice", "text": "find the matrix"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/inbound", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Inbound status = %d, want %d. Body: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	msg := ts.sender.wait(t)
	if msg.Destination != "alice" {
		t.Errorf("Reply destination = %q, want alice", msg.Destination)
	}
	if msg.Text == "" {
		t.Error("Reply text should not be empty")
	}

	// The gateway-supplied display name is recorded.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/contacts", nil)
	rec = httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("List contacts status = %d, want %d", rec.Code, http.StatusOK)
	}

	var contacts []map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &contacts)
	found := false
	for _, contact := range contacts {
		if contact["requester"] == "alice" && contact["displayName"] == "Alice" {
			found = true
		}
	}
	if !found {
		t.Errorf("Contacts missing alice with display name, got %v", contacts)
	}
}

func TestChatInbound_OperatorCommand(t *testing.T) {
	ts, cleanup := setupTestServer(t)
	defer cleanup()

	created, err := ts.requests.Create(context.Background(), &request.MediaRequest{
		Requester: "alice",
		Title:     "Heat",
		Year:      1995,
		TmdbID:    949,
		Kind:      media.KindMovie,
	})
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	body := `{"sender": "operator", "text": "decline"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/inbound", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Operator inbound status = %d, want %d", rec.Code, http.StatusAccepted)
	}

	// Two messages go out: the decline notice to the requester and the
	// confirmation to the operator, in workflow order.
	first := ts.sender.wait(t)
	second := ts.sender.wait(t)
	destinations := map[string]bool{first.Destination: true, second.Destination: true}
	if !destinations["alice"] || !destinations["operator"] {
		t.Errorf("Operator decline notified %v, want alice and operator", destinations)
	}

	updated, err := ts.requests.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Failed to reload request: %v", err)
	}
	if updated.Status != request.StatusRejected {
		t.Errorf("Request status = %s, want %s", updated.Status, request.StatusRejected)
	}
}
