// Package engine orchestrates conversation turns: routing, specialist
// execution, approval gating, and memory recording. Turns for one
// conversation run strictly one at a time; different conversations run in
// parallel.
package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/act-mass/pendo/internal/analytics"
	"github.com/act-mass/pendo/internal/approval"
	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/memory"
	"github.com/act-mass/pendo/internal/observability"
	"github.com/act-mass/pendo/internal/policy"
	"github.com/act-mass/pendo/internal/protocol"
	"github.com/act-mass/pendo/internal/router"
	"github.com/act-mass/pendo/internal/specialist"
	"github.com/act-mass/pendo/internal/state"
)

var (
	ErrInvalidInput = errors.New("invalid turn input")
	ErrTurnPending  = errors.New("conversation is awaiting approval")
)

// TurnRequest is one user message submitted to a conversation.
type TurnRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Message        string `json:"message"`
}

// TurnResult is the outcome of a submitted or resumed turn.
type TurnResult struct {
	ConversationID     string                 `json:"conversation_id"`
	TurnID             string                 `json:"turn_id"`
	Status             approval.Status        `json:"status"`
	Role               state.SpecialistRole   `json:"role"`
	Reply              string                 `json:"reply"`
	Recommendations    []state.Recommendation `json:"recommendations,omitempty"`
	NewRecommendations []state.Recommendation `json:"new_recommendations,omitempty"`
	UsedFallback       bool                   `json:"used_fallback,omitempty"`
	RequiresApproval   bool                   `json:"requires_approval,omitempty"`
	Metrics            state.TurnMetrics      `json:"metrics"`
}

// Config wires the engine's collaborators. Executor, Store, and Catalog are
// required; the rest default to working no-op or in-process implementations.
type Config struct {
	Executor *specialist.Executor
	Store    *memory.Store
	Catalog  *catalog.Catalog
	Gate     *approval.Gate
	Metrics  *observability.Metrics
	Stages   *observability.StageWindow
	Sink     analytics.Sink
}

type conversation struct {
	mu    sync.Mutex
	state state.ConversationState
}

type Engine struct {
	executor *specialist.Executor
	store    *memory.Store
	catalog  *catalog.Catalog
	gate     *approval.Gate
	metrics  *observability.Metrics
	stages   *observability.StageWindow
	sink     analytics.Sink
	bus      *eventBus
	now      func() time.Time

	mu    sync.Mutex
	convs map[string]*conversation
}

func New(cfg Config) *Engine {
	if cfg.Gate == nil {
		cfg.Gate = approval.NewGate()
	}
	if cfg.Stages == nil {
		cfg.Stages = observability.NewStageWindow(0)
	}
	if cfg.Sink == nil {
		cfg.Sink = analytics.NopSink{}
	}
	return &Engine{
		executor: cfg.Executor,
		store:    cfg.Store,
		catalog:  cfg.Catalog,
		gate:     cfg.Gate,
		metrics:  cfg.Metrics,
		stages:   cfg.Stages,
		sink:     cfg.Sink,
		bus:      newEventBus(),
		now:      time.Now,
		convs:    make(map[string]*conversation),
	}
}

// Subscribe returns the conversation's turn event stream.
func (e *Engine) Subscribe(conversationID string) (<-chan protocol.TurnEvent, func()) {
	return e.bus.Subscribe(conversationID)
}

// ConversationState returns a copy of the conversation's current state.
func (e *Engine) ConversationState(conversationID string) (state.ConversationState, bool) {
	e.mu.Lock()
	conv, ok := e.convs[conversationID]
	e.mu.Unlock()
	if !ok {
		return state.ConversationState{}, false
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return conv.state.Clone(), true
}

// StageSnapshot exposes the rolling turn-stage latency window.
func (e *Engine) StageSnapshot() observability.StageSnapshot {
	return e.stages.Snapshot()
}

func (e *Engine) conversation(conversationID string) *conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	conv, ok := e.convs[conversationID]
	if !ok {
		conv = &conversation{}
		e.convs[conversationID] = conv
	}
	return conv
}

// SubmitTurn runs one full turn for a conversation. It blocks while an
// earlier turn for the same conversation is in flight and fails fast with
// ErrTurnPending while the conversation is held in the approval gate.
func (e *Engine) SubmitTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Message = strings.TrimSpace(req.Message)
	if req.ConversationID == "" || req.UserID == "" || req.Message == "" {
		return TurnResult{}, ErrInvalidInput
	}

	conv := e.conversation(req.ConversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	if e.gate.Status(req.ConversationID) == approval.StatusAwaitingApproval {
		return TurnResult{}, ErrTurnPending
	}

	if e.metrics != nil {
		e.metrics.ActiveConversations.Inc()
		defer e.metrics.ActiveConversations.Dec()
	}

	start := e.now()
	turnID := uuid.NewString()
	e.countEvent("turn_started")
	e.bus.Publish(protocol.TurnEvent{
		Type:           protocol.TypeTurnStarted,
		ConversationID: req.ConversationID,
		TurnID:         turnID,
		At:             start.UTC(),
	})

	// Redact before the message reaches anything persistent.
	message, redacted := policy.RedactPII(req.Message)
	var signals []string
	if redacted {
		signals = append(signals, "pii_redacted")
		e.stages.ObserveSignal("pii_redacted")
	}

	routeStart := e.now()
	decision := router.Classify(message)
	routeMS := e.now().Sub(routeStart).Milliseconds()
	if e.metrics != nil {
		e.metrics.RouterDecisions.WithLabelValues(string(decision.Role)).Inc()
	}

	errorCount := 0
	mem, loadErr := e.store.Load(ctx, req.UserID)
	if loadErr != nil {
		errorCount++
		signals = append(signals, "memory_load_degraded")
		e.stages.ObserveSignal("memory_load_degraded")
	}

	entries := e.catalog.EntriesForRole(decision.Role)

	genStart := e.now()
	res := e.executor.Execute(ctx, specialist.Input{
		Role:    decision.Role,
		Message: message,
		History: conv.state.Messages,
		Memory:  mem,
		Catalog: entries,
	})
	genDur := e.now().Sub(genStart)
	if e.metrics != nil {
		e.metrics.ObserveGenerationLatency(genDur)
	}
	if res.GenerationErr != nil {
		errorCount++
		signals = append(signals, "fallback_reply")
		e.stages.ObserveSignal("fallback_reply")
		if e.metrics != nil {
			e.metrics.ProviderErrors.WithLabelValues("generator", "generate_failed").Inc()
		}
	}

	requires := policy.RequiresApproval(decision.Urgency, decision.Sentiment, res.Recommendations)

	turnAt := e.now().UTC()
	update := state.Update{
		UserID: req.UserID,
		Messages: []state.Message{
			{Role: "user", Text: message, Timestamp: turnAt},
			{Role: "assistant", Text: res.Reply, Timestamp: turnAt},
		},
		CurrentRole: decision.Role,
		Context: &state.ContextUpdate{
			Topic:            decision.Topic,
			Complexity:       decision.Complexity,
			Urgency:          decision.Urgency,
			Sentiment:        decision.Sentiment,
			RequiresApproval: &requires,
		},
		Metrics: state.MetricsDelta{
			Latencies: map[string]int64{
				"route":    routeMS,
				"generate": genDur.Milliseconds(),
			},
			ErrorCount: errorCount,
			Signals:    signals,
		},
	}

	e.bus.Publish(protocol.TurnEvent{
		Type:           protocol.TypeAssistantReply,
		ConversationID: req.ConversationID,
		TurnID:         turnID,
		Role:           decision.Role,
		Text:           res.Reply,
		UsedFallback:   res.UsedFallback,
		At:             turnAt,
	})

	if requires {
		// Recommendations stay out of the committed state until a reviewer
		// decides; the rest of the turn is recorded so the pause survives.
		conv.state = conv.state.Apply(update)
		if err := e.gate.Hold(approval.PendingTurn{
			ConversationID: req.ConversationID,
			UserID:         req.UserID,
			TurnID:         turnID,
			Reply:          res.Reply,
			State:          conv.state.Clone(),
			NewRecs:        res.Recommendations,
			HeldAt:         turnAt,
		}); err != nil {
			return TurnResult{}, err
		}
		e.countEvent("awaiting_approval")
		e.setPendingGauge()
		e.bus.Publish(protocol.TurnEvent{
			Type:            protocol.TypeAwaitingApproval,
			ConversationID:  req.ConversationID,
			TurnID:          turnID,
			Role:            decision.Role,
			Recommendations: res.Recommendations,
			At:              turnAt,
		})
		e.finishTurn(start, routeMS, genDur, analytics.TurnSummary{
			ConversationID:  req.ConversationID,
			TurnID:          turnID,
			UserID:          req.UserID,
			Role:            decision.Role,
			Recommendations: len(res.Recommendations),
			UsedFallback:    res.UsedFallback,
			AwaitedApproval: true,
			ErrorCount:      errorCount,
			At:              turnAt,
		})
		return TurnResult{
			ConversationID:     req.ConversationID,
			TurnID:             turnID,
			Status:             approval.StatusAwaitingApproval,
			Role:               decision.Role,
			Reply:              res.Reply,
			NewRecommendations: res.Recommendations,
			UsedFallback:       res.UsedFallback,
			RequiresApproval:   true,
			Metrics:            conv.state.TurnMetrics.Clone(),
		}, nil
	}

	update.Recommendations = res.Recommendations
	conv.state = conv.state.Apply(update)

	recordStart := e.now()
	e.recordTurnMemory(ctx, req.UserID, decision.Role, decision.Topic, res.Recommendations)
	recordMS := e.now().Sub(recordStart).Milliseconds()
	e.stages.Observe("record", float64(recordMS))

	if len(res.Recommendations) > 0 {
		e.bus.Publish(protocol.TurnEvent{
			Type:            protocol.TypeRecommendations,
			ConversationID:  req.ConversationID,
			TurnID:          turnID,
			Role:            decision.Role,
			Recommendations: res.Recommendations,
			At:              turnAt,
		})
	}
	e.countEvent("turn_resolved")
	e.bus.Publish(protocol.TurnEvent{
		Type:           protocol.TypeTurnResolved,
		ConversationID: req.ConversationID,
		TurnID:         turnID,
		Role:           decision.Role,
		At:             turnAt,
	})

	e.finishTurn(start, routeMS, genDur, analytics.TurnSummary{
		ConversationID:  req.ConversationID,
		TurnID:          turnID,
		UserID:          req.UserID,
		Role:            decision.Role,
		Recommendations: len(res.Recommendations),
		UsedFallback:    res.UsedFallback,
		ErrorCount:      errorCount,
		At:              turnAt,
	})

	return TurnResult{
		ConversationID:     req.ConversationID,
		TurnID:             turnID,
		Status:             approval.StatusResolved,
		Role:               decision.Role,
		Reply:              res.Reply,
		Recommendations:    conv.state.Recommendations,
		NewRecommendations: res.Recommendations,
		UsedFallback:       res.UsedFallback,
		Metrics:            conv.state.TurnMetrics.Clone(),
	}, nil
}

// ResumeApproval applies a reviewer decision to the conversation's held turn
// and commits the approved recommendations.
func (e *Engine) ResumeApproval(ctx context.Context, conversationID string, d approval.Decision) (TurnResult, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return TurnResult{}, ErrInvalidInput
	}

	conv := e.conversation(conversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	p, approved, err := e.gate.Resolve(conversationID, d)
	if err != nil {
		return TurnResult{}, err
	}
	e.setPendingGauge()

	// The registry can outlive the in-memory conversation map.
	if conv.state.UserID == "" {
		conv.state = p.State
	}

	resolved := false
	update := state.Update{
		Recommendations: approved,
		Context:         &state.ContextUpdate{RequiresApproval: &resolved},
	}
	conv.state = conv.state.Apply(update)

	e.recordTurnMemory(ctx, p.UserID, conv.state.CurrentRole, conv.state.Context.Topic, approved)

	turnAt := e.now().UTC()
	if len(approved) > 0 {
		e.bus.Publish(protocol.TurnEvent{
			Type:            protocol.TypeRecommendations,
			ConversationID:  conversationID,
			TurnID:          p.TurnID,
			Role:            conv.state.CurrentRole,
			Recommendations: approved,
			At:              turnAt,
		})
	}
	e.countEvent("turn_resolved")
	e.bus.Publish(protocol.TurnEvent{
		Type:           protocol.TypeTurnResolved,
		ConversationID: conversationID,
		TurnID:         p.TurnID,
		Role:           conv.state.CurrentRole,
		At:             turnAt,
	})

	return TurnResult{
		ConversationID:     conversationID,
		TurnID:             p.TurnID,
		Status:             approval.StatusResolved,
		Role:               conv.state.CurrentRole,
		Reply:              p.Reply,
		Recommendations:    conv.state.Recommendations,
		NewRecommendations: approved,
		Metrics:            conv.state.TurnMetrics.Clone(),
	}, nil
}

// recordTurnMemory folds the turn's durable facts into the user's memory.
// Recording is best-effort: a failure degrades the turn's metrics, never its
// outcome.
func (e *Engine) recordTurnMemory(ctx context.Context, userID string, role state.SpecialistRole, topic string, recs []state.Recommendation) {
	now := e.now().UTC()
	delta := state.MemoryDelta{
		Interactions: []state.Interaction{{Timestamp: now, Role: role, Topic: topic}},
	}
	for _, r := range recs {
		if !r.ActionRequired {
			continue
		}
		delta.PartnerInteractions = append(delta.PartnerInteractions, state.PartnerInteraction{
			PartnerName: r.PartnerName,
			Type:        "introduction",
			Timestamp:   now,
			Status:      "pending",
		})
	}
	if _, err := e.store.Record(ctx, userID, delta); err != nil {
		log.Printf("memory record degraded for user %s: %v", userID, err)
	}
}

func (e *Engine) finishTurn(start time.Time, routeMS int64, genDur time.Duration, sum analytics.TurnSummary) {
	total := e.now().Sub(start)
	sum.LatencyMS = total.Milliseconds()
	e.stages.Observe("route", float64(routeMS))
	e.stages.Observe("generate", float64(genDur.Milliseconds()))
	e.stages.Observe("turn_total", float64(total.Milliseconds()))
	if e.metrics != nil {
		e.metrics.ObserveTurnLatency(total)
	}
	e.sink.Emit(sum)
}

func (e *Engine) countEvent(name string) {
	if e.metrics != nil {
		e.metrics.TurnEvents.WithLabelValues(name).Inc()
	}
}

func (e *Engine) setPendingGauge() {
	if e.metrics != nil {
		e.metrics.PendingApprovals.Set(float64(e.gate.PendingCount()))
	}
}
