// Package protocol defines the typed JSON events streamed to websocket
// subscribers as a turn moves through the engine.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/act-mass/pendo/internal/state"
)

// EventType identifies turn lifecycle event variants.
type EventType string

const (
	TypeTurnStarted      EventType = "turn_started"
	TypeAssistantReply   EventType = "assistant_reply"
	TypeRecommendations  EventType = "recommendations"
	TypeAwaitingApproval EventType = "awaiting_approval"
	TypeTurnResolved     EventType = "turn_resolved"
	TypeErrorEvent       EventType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported event type")

// TurnEvent is one entry of a conversation's event stream.
type TurnEvent struct {
	Type            EventType              `json:"type"`
	ConversationID  string                 `json:"conversation_id"`
	TurnID          string                 `json:"turn_id,omitempty"`
	Role            state.SpecialistRole   `json:"role,omitempty"`
	Text            string                 `json:"text,omitempty"`
	Recommendations []state.Recommendation `json:"recommendations,omitempty"`
	UsedFallback    bool                   `json:"used_fallback,omitempty"`
	Detail          string                 `json:"detail,omitempty"`
	At              time.Time              `json:"at"`
}

func validType(t EventType) bool {
	switch t {
	case TypeTurnStarted, TypeAssistantReply, TypeRecommendations,
		TypeAwaitingApproval, TypeTurnResolved, TypeErrorEvent:
		return true
	}
	return false
}

// Encode serializes an event for the wire.
func Encode(ev TurnEvent) ([]byte, error) {
	if !validType(ev.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ev.Type)
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return json.Marshal(ev)
}

// Decode parses a wire payload and validates its type tag.
func Decode(data []byte) (TurnEvent, error) {
	var ev TurnEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return TurnEvent{}, fmt.Errorf("decode turn event: %w", err)
	}
	if !validType(ev.Type) {
		return TurnEvent{}, fmt.Errorf("%w: %q", ErrUnsupportedType, ev.Type)
	}
	return ev, nil
}
