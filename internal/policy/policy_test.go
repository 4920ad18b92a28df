package policy

import (
	"strings"
	"testing"

	"github.com/act-mass/pendo/internal/state"
)

func TestRedactPII(t *testing.T) {
	input := "Reach me at maria@example.com or +1 (617) 555-0143, SSN 042-68-4425."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_SSN]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIICleanText(t *testing.T) {
	input := "I want to move into offshore wind maintenance."
	out, changed := RedactPII(input)
	if changed || out != input {
		t.Fatalf("clean text was modified: %q", out)
	}
}

func TestRequiresApproval(t *testing.T) {
	highRec := []state.Recommendation{{PartnerName: "MassCEC", RelevanceScore: 85}}
	lowRec := []state.Recommendation{{PartnerName: "MassCEC", RelevanceScore: 60}}

	tests := []struct {
		name      string
		urgency   state.Urgency
		sentiment state.Sentiment
		recs      []state.Recommendation
		want      bool
	}{
		{"high urgency negative sentiment", state.UrgencyHigh, state.SentimentNegative, nil, true},
		{"high urgency neutral sentiment", state.UrgencyHigh, state.SentimentNeutral, lowRec, false},
		{"high impact recommendation", state.UrgencyLow, state.SentimentPositive, highRec, true},
		{"calm turn low scores", state.UrgencyLow, state.SentimentNeutral, lowRec, false},
		{"threshold is inclusive", state.UrgencyLow, state.SentimentNeutral, []state.Recommendation{{RelevanceScore: 80}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RequiresApproval(tt.urgency, tt.sentiment, tt.recs); got != tt.want {
				t.Fatalf("RequiresApproval() = %v, want %v", got, tt.want)
			}
		})
	}
}
