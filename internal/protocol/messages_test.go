package protocol

import (
	"errors"
	"testing"
	"time"

	"github.com/act-mass/pendo/internal/state"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ev := TurnEvent{
		Type:           TypeAssistantReply,
		ConversationID: "c1",
		TurnID:         "t1",
		Role:           state.RoleVeterans,
		Text:           "Helmets to Hardhats is a strong fit.",
		At:             time.Unix(100, 0).UTC(),
	}
	data, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Type != ev.Type || got.ConversationID != ev.ConversationID || got.Text != ev.Text || got.Role != ev.Role {
		t.Fatalf("Decode() = %+v, want %+v", got, ev)
	}
}

func TestEncodeRejectsUnknownType(t *testing.T) {
	if _, err := Encode(TurnEvent{Type: "telemetry"}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Encode() error = %v, want ErrUnsupportedType", err)
	}
}

func TestEncodeStampsTime(t *testing.T) {
	data, err := Encode(TurnEvent{Type: TypeTurnStarted, ConversationID: "c1"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.At.IsZero() {
		t.Fatalf("At not stamped")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"audio_chunk"}`)); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("Decode() error = %v, want ErrUnsupportedType", err)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Fatalf("Decode() should fail on malformed payload")
	}
}
