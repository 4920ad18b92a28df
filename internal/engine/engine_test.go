package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/act-mass/pendo/internal/approval"
	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/llm"
	"github.com/act-mass/pendo/internal/memory"
	"github.com/act-mass/pendo/internal/protocol"
	"github.com/act-mass/pendo/internal/scoring"
	"github.com/act-mass/pendo/internal/specialist"
	"github.com/act-mass/pendo/internal/state"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (g *fakeGenerator) Generate(_ context.Context, _ llm.Request) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func newTestEngine(t *testing.T, gen llm.Generator, entries []catalog.Entry) (*Engine, *memory.Store) {
	t.Helper()
	if gen == nil {
		gen = &fakeGenerator{reply: "Here is what I found for you."}
	}
	store := memory.NewStore(memory.NewInMemoryBackend())
	e := New(Config{
		Executor: specialist.NewExecutor(gen, scoring.New(scoring.Config{})),
		Store:    store,
		Catalog:  catalog.New(entries),
	})
	return e, store
}

// lowEntries score below both the action threshold and the approval bar.
func lowEntries() []catalog.Entry {
	return []catalog.Entry{
		{Name: "Abode Energy Management", Type: state.OpportunityJob, Specialties: []string{"weatherization"}, PriorityScore: 4},
	}
}

// highEntries score exactly 80 on a matching query (1 match + priority 10).
func highEntries() []catalog.Entry {
	return []catalog.Entry{
		{Name: "Commonwealth Fusion", Type: state.OpportunityJob, Specialties: []string{"solar"}, PriorityScore: 10},
	}
}

func TestSubmitTurnBasicFlow(t *testing.T) {
	e, store := newTestEngine(t, nil, lowEntries())

	res, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "I want a weatherization job",
	})
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if res.Status != approval.StatusResolved {
		t.Fatalf("Status = %v, want %v", res.Status, approval.StatusResolved)
	}
	if res.Role != state.RoleCareer {
		t.Fatalf("Role = %v, want career", res.Role)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].PartnerName != "Abode Energy Management" {
		t.Fatalf("Recommendations = %+v", res.Recommendations)
	}
	if res.Reply == "" || res.UsedFallback {
		t.Fatalf("Reply = %q fallback=%v", res.Reply, res.UsedFallback)
	}

	conv, ok := e.ConversationState("c1")
	if !ok {
		t.Fatalf("conversation state missing")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d, want user+assistant", len(conv.Messages))
	}

	store.Flush()
	mem, err := store.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(mem.InteractionHistory) != 1 {
		t.Fatalf("interaction history = %d, want 1", len(mem.InteractionHistory))
	}
}

func TestSubmitTurnValidation(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())
	cases := []TurnRequest{
		{ConversationID: "", UserID: "u1", Message: "hi"},
		{ConversationID: "c1", UserID: "", Message: "hi"},
		{ConversationID: "c1", UserID: "u1", Message: "   "},
	}
	for _, req := range cases {
		if _, err := e.SubmitTurn(context.Background(), req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("SubmitTurn(%+v) error = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestSubmitTurnRoutesVeteran(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())
	res, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "I'm a veteran looking for solar jobs",
	})
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if res.Role != state.RoleVeterans {
		t.Fatalf("Role = %v, want veterans", res.Role)
	}
}

func TestSubmitTurnGenerationFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider down")}
	e, _ := newTestEngine(t, gen, lowEntries())

	res, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "weatherization work near boston",
	})
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if !res.UsedFallback {
		t.Fatalf("expected fallback reply")
	}
	if res.Reply != specialist.FallbackFor(state.RoleCareer) {
		t.Fatalf("Reply = %q, want career fallback", res.Reply)
	}

	if res.Metrics.ErrorCount != 1 {
		t.Fatalf("result ErrorCount = %d, want 1", res.Metrics.ErrorCount)
	}

	conv, _ := e.ConversationState("c1")
	if conv.TurnMetrics.ErrorCount != 1 {
		t.Fatalf("ErrorCount = %d, want 1", conv.TurnMetrics.ErrorCount)
	}
}

func TestHighImpactRecommendationAwaitsApproval(t *testing.T) {
	e, store := newTestEngine(t, nil, highEntries())

	res, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "looking for solar work",
	})
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if res.Status != approval.StatusAwaitingApproval || !res.RequiresApproval {
		t.Fatalf("result = %+v, want awaiting approval", res)
	}
	if len(res.NewRecommendations) != 1 || res.NewRecommendations[0].RelevanceScore != 80 {
		t.Fatalf("NewRecommendations = %+v", res.NewRecommendations)
	}

	// Held recommendations are not committed yet.
	conv, _ := e.ConversationState("c1")
	if len(conv.Recommendations) != 0 {
		t.Fatalf("recommendations committed before approval: %+v", conv.Recommendations)
	}
	if !conv.Context.RequiresApproval {
		t.Fatalf("context.RequiresApproval not set")
	}

	// A new turn is rejected while the hold stands.
	if _, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "any update?",
	}); !errors.Is(err, ErrTurnPending) {
		t.Fatalf("second SubmitTurn() error = %v, want ErrTurnPending", err)
	}

	resumed, err := e.ResumeApproval(context.Background(), "c1", approval.Decision{Kind: approval.DecisionApproveAll})
	if err != nil {
		t.Fatalf("ResumeApproval() error = %v", err)
	}
	if resumed.Status != approval.StatusResolved {
		t.Fatalf("resumed Status = %v", resumed.Status)
	}
	if len(resumed.Recommendations) != 1 {
		t.Fatalf("resumed Recommendations = %+v", resumed.Recommendations)
	}

	conv, _ = e.ConversationState("c1")
	if len(conv.Recommendations) != 1 || conv.Context.RequiresApproval {
		t.Fatalf("post-resume state = %+v", conv)
	}

	// The approved introduction lands in memory.
	store.Flush()
	mem, _ := store.Load(context.Background(), "u1")
	if len(mem.PartnerInteractions) != 1 || mem.PartnerInteractions[0].PartnerName != "Commonwealth Fusion" {
		t.Fatalf("PartnerInteractions = %+v", mem.PartnerInteractions)
	}

	// After resolution the conversation accepts turns again.
	if _, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "thanks, what else?",
	}); err != nil {
		t.Fatalf("SubmitTurn() after resolve error = %v", err)
	}
}

func TestUrgentNegativeTurnAwaitsApproval(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())

	res, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1",
		Message: "This is urgent, I'm frustrated with no responses",
	})
	if err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}
	if res.Status != approval.StatusAwaitingApproval {
		t.Fatalf("Status = %v, want awaiting approval", res.Status)
	}
}

func TestResumeApprovalReject(t *testing.T) {
	e, _ := newTestEngine(t, nil, highEntries())

	if _, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "solar please",
	}); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	res, err := e.ResumeApproval(context.Background(), "c1", approval.Decision{Kind: approval.DecisionReject})
	if err != nil {
		t.Fatalf("ResumeApproval() error = %v", err)
	}
	if len(res.Recommendations) != 0 {
		t.Fatalf("rejected turn still committed recommendations: %+v", res.Recommendations)
	}
}

func TestResumeApprovalWithoutHold(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())
	if _, err := e.ResumeApproval(context.Background(), "ghost", approval.Decision{Kind: approval.DecisionApproveAll}); !errors.Is(err, approval.ErrNoPendingApproval) {
		t.Fatalf("ResumeApproval() error = %v, want ErrNoPendingApproval", err)
	}
}

func TestTurnEventStream(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())

	events, cancel := e.Subscribe("c1")
	defer cancel()

	if _, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1", Message: "weatherization jobs",
	}); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	var got []protocol.EventType
	for len(events) > 0 {
		got = append(got, (<-events).Type)
	}
	want := []protocol.EventType{
		protocol.TypeTurnStarted,
		protocol.TypeAssistantReply,
		protocol.TypeRecommendations,
		protocol.TypeTurnResolved,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParallelConversations(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_, errs[i] = e.SubmitTurn(context.Background(), TurnRequest{
				ConversationID: id, UserID: "u-" + id, Message: "weatherization jobs",
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("conversation %d error = %v", i, err)
		}
	}
}

func TestPIIRedactedBeforeState(t *testing.T) {
	e, _ := newTestEngine(t, nil, lowEntries())

	if _, err := e.SubmitTurn(context.Background(), TurnRequest{
		ConversationID: "c1", UserID: "u1",
		Message: "email me at jo@example.com about weatherization jobs",
	}); err != nil {
		t.Fatalf("SubmitTurn() error = %v", err)
	}

	conv, _ := e.ConversationState("c1")
	for _, m := range conv.Messages {
		if m.Role == "user" && containsEmail(m.Text) {
			t.Fatalf("stored message retains email: %q", m.Text)
		}
	}
}

func containsEmail(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '@' {
			return true
		}
	}
	return false
}
