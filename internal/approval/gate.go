// Package approval holds turns that produced high-impact actions until a
// human decision arrives. A held turn has no timeout: it stays resumable for
// the life of the process.
package approval

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/act-mass/pendo/internal/state"
)

type Status string

const (
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusResolved         Status = "resolved"
)

type DecisionKind string

const (
	DecisionApproveAll    DecisionKind = "approve_all"
	DecisionApproveSubset DecisionKind = "approve_subset"
	DecisionReject        DecisionKind = "reject"
)

var (
	ErrNoPendingApproval = errors.New("no pending approval for conversation")
	ErrAlreadyPending    = errors.New("conversation already awaiting approval")
)

// Decision is a reviewer's verdict on a held turn.
type Decision struct {
	Kind              DecisionKind `json:"kind"`
	RecommendationIDs []string     `json:"recommendation_ids,omitempty"`
	Note              string       `json:"note,omitempty"`
}

func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionApproveAll, DecisionReject:
		return nil
	case DecisionApproveSubset:
		if len(d.RecommendationIDs) == 0 {
			return errors.New("approve_subset requires recommendation ids")
		}
		return nil
	default:
		return fmt.Errorf("unknown decision kind %q", d.Kind)
	}
}

// PendingTurn is the paused turn stored while awaiting approval.
type PendingTurn struct {
	ConversationID string
	UserID         string
	TurnID         string
	Reply          string
	State          state.ConversationState
	NewRecs        []state.Recommendation
	HeldAt         time.Time
}

// Gate is the pending-approval registry, keyed by conversation id.
type Gate struct {
	mu      sync.RWMutex
	pending map[string]PendingTurn
}

func NewGate() *Gate {
	return &Gate{pending: make(map[string]PendingTurn)}
}

// Hold parks a turn in AWAITING_APPROVAL. A conversation can hold at most
// one turn at a time.
func (g *Gate) Hold(p PendingTurn) error {
	if strings.TrimSpace(p.ConversationID) == "" {
		return errors.New("conversation id is required")
	}
	if p.HeldAt.IsZero() {
		p.HeldAt = time.Now().UTC()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[p.ConversationID]; ok {
		return ErrAlreadyPending
	}
	g.pending[p.ConversationID] = p
	return nil
}

// Status reports where a conversation sits in the gate's state machine.
// Conversations the gate has never held, or whose hold has been resolved,
// report StatusResolved.
func (g *Gate) Status(conversationID string) Status {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.pending[conversationID]; ok {
		return StatusAwaitingApproval
	}
	return StatusResolved
}

// Pending returns the held turn for a conversation, if any.
func (g *Gate) Pending(conversationID string) (PendingTurn, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.pending[conversationID]
	return p, ok
}

// PendingCount is the number of held turns, for the approvals gauge.
func (g *Gate) PendingCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pending)
}

// Resolve applies a decision to the held turn and removes it from the
// registry. It returns the held turn and the recommendations the decision
// approved.
func (g *Gate) Resolve(conversationID string, d Decision) (PendingTurn, []state.Recommendation, error) {
	if err := d.Validate(); err != nil {
		return PendingTurn{}, nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[conversationID]
	if !ok {
		return PendingTurn{}, nil, ErrNoPendingApproval
	}
	delete(g.pending, conversationID)

	switch d.Kind {
	case DecisionApproveAll:
		return p, p.NewRecs, nil
	case DecisionApproveSubset:
		keep := make(map[string]bool, len(d.RecommendationIDs))
		for _, id := range d.RecommendationIDs {
			keep[id] = true
		}
		approved := make([]state.Recommendation, 0, len(p.NewRecs))
		for _, r := range p.NewRecs {
			if keep[r.ID] {
				approved = append(approved, r)
			}
		}
		return p, approved, nil
	default: // DecisionReject
		return p, nil, nil
	}
}
