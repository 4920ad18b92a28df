package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/act-mass/pendo/internal/approval"
	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/config"
	"github.com/act-mass/pendo/internal/engine"
	"github.com/act-mass/pendo/internal/llm"
	"github.com/act-mass/pendo/internal/memory"
	"github.com/act-mass/pendo/internal/protocol"
	"github.com/act-mass/pendo/internal/scoring"
	"github.com/act-mass/pendo/internal/specialist"
	"github.com/act-mass/pendo/internal/state"
)

func newTestServer(t *testing.T, entries []catalog.Entry) (*Server, *engine.Engine, *catalog.Catalog) {
	t.Helper()
	cat := catalog.New(entries)
	eng := engine.New(engine.Config{
		Executor: specialist.NewExecutor(llm.NewMockGenerator(), scoring.New(scoring.Config{})),
		Store:    memory.NewStore(memory.NewInMemoryBackend()),
		Catalog:  cat,
	})
	return New(config.Config{AllowAnyOrigin: true}, eng, cat), eng, cat
}

func lowEntries() []catalog.Entry {
	return []catalog.Entry{
		{Name: "Abode Energy Management", Type: state.OpportunityJob, Specialties: []string{"weatherization"}, PriorityScore: 4},
	}
}

func highEntries() []catalog.Entry {
	return []catalog.Entry{
		{Name: "Commonwealth Fusion", Type: state.OpportunityJob, Specialties: []string{"solar"}, PriorityScore: 10},
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTurnEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t, lowEntries())
	h := s.Router()

	rec := postJSON(t, h, "/v1/conversations/c1/turns", turnBody{UserID: "u1", Message: "weatherization jobs"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res engine.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Status != approval.StatusResolved || res.Reply == "" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Recommendations) != 1 {
		t.Fatalf("recommendations = %+v", res.Recommendations)
	}
}

func TestSubmitTurnValidationError(t *testing.T) {
	s, _, _ := newTestServer(t, lowEntries())
	rec := postJSON(t, s.Router(), "/v1/conversations/c1/turns", turnBody{UserID: "u1", Message: ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitTurnConflictWhilePending(t *testing.T) {
	s, _, _ := newTestServer(t, highEntries())
	h := s.Router()

	rec := postJSON(t, h, "/v1/conversations/c1/turns", turnBody{UserID: "u1", Message: "solar work"})
	if rec.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", rec.Code)
	}
	rec = postJSON(t, h, "/v1/conversations/c1/turns", turnBody{UserID: "u1", Message: "any update?"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second turn status = %d, want 409", rec.Code)
	}
}

func TestApprovalEndpoint(t *testing.T) {
	s, _, _ := newTestServer(t, highEntries())
	h := s.Router()

	if rec := postJSON(t, h, "/v1/conversations/c1/turns", turnBody{UserID: "u1", Message: "solar work"}); rec.Code != http.StatusOK {
		t.Fatalf("turn status = %d", rec.Code)
	}

	rec := postJSON(t, h, "/v1/conversations/c1/approval", approval.Decision{Kind: approval.DecisionApproveAll})
	if rec.Code != http.StatusOK {
		t.Fatalf("approval status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var res engine.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Status != approval.StatusResolved || len(res.Recommendations) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestApprovalWithoutHoldIs404(t *testing.T) {
	s, _, _ := newTestServer(t, lowEntries())
	rec := postJSON(t, s.Router(), "/v1/conversations/ghost/approval", approval.Decision{Kind: approval.DecisionApproveAll})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetConversation(t *testing.T) {
	s, _, _ := newTestServer(t, lowEntries())
	h := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/c1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 before any turn", rec.Code)
	}

	postJSON(t, h, "/v1/conversations/c1/turns", turnBody{UserID: "u1", Message: "weatherization jobs"})

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/conversations/c1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var conv state.ConversationState
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(conv.Messages))
	}
}

func TestCatalogSwapEndpoint(t *testing.T) {
	s, _, cat := newTestServer(t, lowEntries())
	h := s.Router()

	raw, _ := json.Marshal(highEntries())
	req := httptest.NewRequest(http.MethodPut, "/v1/catalog", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("swap status = %d", rec.Code)
	}
	entries := cat.ListEntries()
	if len(entries) != 1 || entries[0].Name != "Commonwealth Fusion" {
		t.Fatalf("entries after swap = %+v", entries)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/catalog", strings.NewReader("[]"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty swap status = %d, want 400", rec.Code)
	}
}

func TestHealthAndStats(t *testing.T) {
	s, _, _ := newTestServer(t, lowEntries())
	h := s.Router()

	for _, path := range []string{"/healthz", "/readyz", "/v1/turns/stats"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestConversationEventStream(t *testing.T) {
	s, eng, _ := newTestServer(t, lowEntries())
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/conversations/ws?conversation_id=c1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	if _, err := eng.SubmitTurn(context.Background(), engine.TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "weatherization jobs",
	}); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev protocol.TurnEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != protocol.TypeTurnStarted {
		t.Fatalf("first event = %v, want turn_started", ev.Type)
	}
}
