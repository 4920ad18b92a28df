// Package analytics emits best-effort per-turn summaries. A sink failure
// never affects the turn that produced the summary.
package analytics

import (
	"log"
	"time"

	"github.com/act-mass/pendo/internal/state"
)

// TurnSummary is the per-turn analytics record.
type TurnSummary struct {
	ConversationID  string               `json:"conversation_id"`
	TurnID          string               `json:"turn_id"`
	UserID          string               `json:"user_id"`
	Role            state.SpecialistRole `json:"role"`
	Recommendations int                  `json:"recommendations"`
	UsedFallback    bool                 `json:"used_fallback"`
	AwaitedApproval bool                 `json:"awaited_approval"`
	ErrorCount      int                  `json:"error_count"`
	LatencyMS       int64                `json:"latency_ms"`
	At              time.Time            `json:"at"`
}

// Sink receives turn summaries.
type Sink interface {
	Emit(summary TurnSummary)
}

// LogSink writes summaries to the process log.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Emit(sum TurnSummary) {
	log.Printf("turn conversation=%s turn=%s role=%s recs=%d fallback=%t approval=%t errors=%d latency_ms=%d",
		sum.ConversationID, sum.TurnID, sum.Role, sum.Recommendations,
		sum.UsedFallback, sum.AwaitedApproval, sum.ErrorCount, sum.LatencyMS)
}

// NopSink discards summaries.
type NopSink struct{}

func (NopSink) Emit(TurnSummary) {}
