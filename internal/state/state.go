package state

import "time"

type SpecialistRole string

const (
	RoleCareer               SpecialistRole = "career"
	RoleVeterans             SpecialistRole = "veterans"
	RoleInternational        SpecialistRole = "international"
	RoleEnvironmentalJustice SpecialistRole = "environmental_justice"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type OpportunityType string

const (
	OpportunityJob        OpportunityType = "job"
	OpportunityTraining   OpportunityType = "training"
	OpportunityNetworking OpportunityType = "networking"
	OpportunityResource   OpportunityType = "resource"
)

// Message is a single conversational utterance inside a turn.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Context carries the router's assessment of the current turn.
type Context struct {
	Topic            string     `json:"topic,omitempty"`
	Complexity       Complexity `json:"complexity,omitempty"`
	Urgency          Urgency    `json:"urgency,omitempty"`
	Sentiment        Sentiment  `json:"sentiment,omitempty"`
	RequiresApproval bool       `json:"requires_approval"`
}

// Recommendation is one scored partner opportunity.
type Recommendation struct {
	ID              string          `json:"id"`
	PartnerName     string          `json:"partner_name"`
	OpportunityType OpportunityType `json:"opportunity_type"`
	RelevanceScore  float64         `json:"relevance_score"`
	Reasoning       string          `json:"reasoning,omitempty"`
	ActionRequired  bool            `json:"action_required"`
	NextSteps       []string        `json:"next_steps,omitempty"`
	Contact         string          `json:"contact,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// RecommendationKey identifies a recommendation for dedup purposes.
type RecommendationKey struct {
	PartnerName     string
	OpportunityType OpportunityType
}

func (r Recommendation) Key() RecommendationKey {
	return RecommendationKey{PartnerName: r.PartnerName, OpportunityType: r.OpportunityType}
}

// TurnMetrics accumulates per-turn observability facts. Latencies are
// stage name to elapsed milliseconds.
type TurnMetrics struct {
	Latencies  map[string]int64 `json:"latencies,omitempty"`
	ErrorCount int              `json:"error_count"`
	Signals    []string         `json:"signals,omitempty"`
}

// Interaction is one entry of a user's long-lived interaction history.
type Interaction struct {
	Timestamp time.Time      `json:"timestamp"`
	Role      SpecialistRole `json:"role"`
	Topic     string         `json:"topic,omitempty"`
	Outcome   string         `json:"outcome,omitempty"`
}

// PartnerInteraction records contact between a user and a partner org.
type PartnerInteraction struct {
	PartnerName string    `json:"partner_name"`
	Type        string    `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status,omitempty"`
}

// CareerProgress tracks goals and actions across sessions.
type CareerProgress struct {
	Goals            []string `json:"goals,omitempty"`
	CompletedActions []string `json:"completed_actions,omitempty"`
	NextSteps        []string `json:"next_steps,omitempty"`
}

// MemoryState is the per-user durable record owned by the memory store.
// A ConversationState only references it during a turn.
type MemoryState struct {
	UserID              string               `json:"user_id"`
	Preferences         map[string]string    `json:"preferences,omitempty"`
	InteractionHistory  []Interaction        `json:"interaction_history,omitempty"`
	CareerProgress      CareerProgress       `json:"career_progress"`
	PartnerInteractions []PartnerInteraction `json:"partner_interactions,omitempty"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// ConversationState is the authoritative unit passed through a turn.
type ConversationState struct {
	UserID          string           `json:"user_id"`
	Messages        []Message        `json:"messages,omitempty"`
	CurrentRole     SpecialistRole   `json:"current_role,omitempty"`
	Context         Context          `json:"context"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Memory          *MemoryState     `json:"memory,omitempty"`
	TurnMetrics     TurnMetrics      `json:"turn_metrics"`
}

// Capacity limits enforced by the merge machinery.
const (
	MaxRecommendations     = 10
	MaxInteractionHistory  = 50
	MaxPartnerInteractions = 20
)

// Clone returns a deep copy so a failed step can never leave the caller
// holding a half-applied state.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Recommendations = cloneRecommendations(s.Recommendations)
	out.TurnMetrics = s.TurnMetrics.Clone()
	return out
}

func cloneRecommendations(recs []Recommendation) []Recommendation {
	if recs == nil {
		return nil
	}
	out := make([]Recommendation, len(recs))
	for i, r := range recs {
		r.NextSteps = append([]string(nil), r.NextSteps...)
		out[i] = r
	}
	return out
}

// Clone returns a deep copy of the metrics accumulator.
func (m TurnMetrics) Clone() TurnMetrics {
	out := m
	if m.Latencies != nil {
		out.Latencies = make(map[string]int64, len(m.Latencies))
		for k, v := range m.Latencies {
			out.Latencies[k] = v
		}
	}
	out.Signals = append([]string(nil), m.Signals...)
	return out
}

// Clone deep-copies a MemoryState snapshot.
func (m MemoryState) Clone() MemoryState {
	out := m
	if m.Preferences != nil {
		out.Preferences = make(map[string]string, len(m.Preferences))
		for k, v := range m.Preferences {
			out.Preferences[k] = v
		}
	}
	out.InteractionHistory = append([]Interaction(nil), m.InteractionHistory...)
	out.PartnerInteractions = append([]PartnerInteraction(nil), m.PartnerInteractions...)
	out.CareerProgress.Goals = append([]string(nil), m.CareerProgress.Goals...)
	out.CareerProgress.CompletedActions = append([]string(nil), m.CareerProgress.CompletedActions...)
	out.CareerProgress.NextSteps = append([]string(nil), m.CareerProgress.NextSteps...)
	return out
}
