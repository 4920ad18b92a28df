package state

// MergeKind names the fixed strategy a channel uses to combine an existing
// value with an update.
type MergeKind string

const (
	MergeReplace      MergeKind = "replace"
	MergeAppendCapped MergeKind = "append_capped"
	MergeSetUnion     MergeKind = "set_union"
	MergeKeyedUpsert  MergeKind = "keyed_upsert_max"
	MergeShallow      MergeKind = "shallow_merge"
)

// ContextUpdate overlays non-zero fields onto the turn context.
type ContextUpdate struct {
	Topic            string
	Complexity       Complexity
	Urgency          Urgency
	Sentiment        Sentiment
	RequiresApproval *bool
}

// MetricsDelta accumulates into TurnMetrics.
type MetricsDelta struct {
	Latencies  map[string]int64 // stage -> milliseconds
	ErrorCount int
	Signals    []string
}

// Update carries one turn's worth of channel updates. Zero-value fields are
// skipped by their channel's merge function.
type Update struct {
	UserID          string
	Messages        []Message
	CurrentRole     SpecialistRole
	Context         *ContextUpdate
	Recommendations []Recommendation
	Memory          *MemoryState
	Metrics         MetricsDelta
}

type conversationChannel struct {
	Name  string
	Kind  MergeKind
	apply func(next *ConversationState, u Update)
}

// conversationChannels is the full field-to-merge-kind table for
// ConversationState. Adding a field means adding one row here; Apply and its
// call sites stay untouched.
var conversationChannels = []conversationChannel{
	{Name: "user_id", Kind: MergeReplace, apply: func(next *ConversationState, u Update) {
		next.UserID = replaceNonZero(next.UserID, u.UserID)
	}},
	{Name: "messages", Kind: MergeAppendCapped, apply: func(next *ConversationState, u Update) {
		// Unbounded within a turn.
		next.Messages = appendCapped(next.Messages, u.Messages, 0)
	}},
	{Name: "current_role", Kind: MergeReplace, apply: func(next *ConversationState, u Update) {
		next.CurrentRole = replaceNonZero(next.CurrentRole, u.CurrentRole)
	}},
	{Name: "context", Kind: MergeShallow, apply: func(next *ConversationState, u Update) {
		if u.Context == nil {
			return
		}
		c := next.Context
		c.Topic = replaceNonZero(c.Topic, u.Context.Topic)
		c.Complexity = replaceNonZero(c.Complexity, u.Context.Complexity)
		c.Urgency = replaceNonZero(c.Urgency, u.Context.Urgency)
		c.Sentiment = replaceNonZero(c.Sentiment, u.Context.Sentiment)
		if u.Context.RequiresApproval != nil {
			c.RequiresApproval = *u.Context.RequiresApproval
		}
		next.Context = c
	}},
	{Name: "recommendations", Kind: MergeKeyedUpsert, apply: func(next *ConversationState, u Update) {
		next.Recommendations = MergeRecommendations(next.Recommendations, u.Recommendations, MaxRecommendations)
	}},
	{Name: "memory", Kind: MergeReplace, apply: func(next *ConversationState, u Update) {
		if u.Memory != nil {
			next.Memory = u.Memory
		}
	}},
	{Name: "turn_metrics", Kind: MergeShallow, apply: func(next *ConversationState, u Update) {
		m := next.TurnMetrics
		if len(u.Metrics.Latencies) > 0 {
			if m.Latencies == nil {
				m.Latencies = make(map[string]int64, len(u.Metrics.Latencies))
			}
			for stage, ms := range u.Metrics.Latencies {
				m.Latencies[stage] = ms
			}
		}
		m.ErrorCount += u.Metrics.ErrorCount
		m.Signals = append(m.Signals, u.Metrics.Signals...)
		next.TurnMetrics = m
	}},
}

// Apply folds an update into the state, one channel at a time, and returns
// the next state. The receiver is never mutated.
func (s ConversationState) Apply(u Update) ConversationState {
	next := s.Clone()
	for _, ch := range conversationChannels {
		ch.apply(&next, u)
	}
	return next
}

// ChannelKinds exposes the field-to-merge-kind mapping for introspection and
// tests.
func ChannelKinds() map[string]MergeKind {
	out := make(map[string]MergeKind, len(conversationChannels))
	for _, ch := range conversationChannels {
		out[ch.Name] = ch.Kind
	}
	return out
}

// MemoryDelta is the set of durable facts recorded after a turn.
type MemoryDelta struct {
	Preferences         map[string]string
	Interactions        []Interaction
	Goals               []string
	CompletedActions    []string
	NextSteps           []string
	PartnerInteractions []PartnerInteraction
}

// Empty reports whether the delta carries nothing to record.
func (d MemoryDelta) Empty() bool {
	return len(d.Preferences) == 0 &&
		len(d.Interactions) == 0 &&
		len(d.Goals) == 0 &&
		len(d.CompletedActions) == 0 &&
		len(d.NextSteps) == 0 &&
		len(d.PartnerInteractions) == 0
}

type memoryChannel struct {
	Name  string
	Kind  MergeKind
	apply func(next *MemoryState, d MemoryDelta)
}

var memoryChannels = []memoryChannel{
	{Name: "preferences", Kind: MergeShallow, apply: func(next *MemoryState, d MemoryDelta) {
		next.Preferences = shallowMergeMap(next.Preferences, d.Preferences)
	}},
	{Name: "interaction_history", Kind: MergeAppendCapped, apply: func(next *MemoryState, d MemoryDelta) {
		next.InteractionHistory = appendCapped(next.InteractionHistory, d.Interactions, MaxInteractionHistory)
	}},
	{Name: "career_progress.goals", Kind: MergeSetUnion, apply: func(next *MemoryState, d MemoryDelta) {
		next.CareerProgress.Goals = unionStrings(next.CareerProgress.Goals, d.Goals)
	}},
	{Name: "career_progress.completed_actions", Kind: MergeSetUnion, apply: func(next *MemoryState, d MemoryDelta) {
		next.CareerProgress.CompletedActions = unionStrings(next.CareerProgress.CompletedActions, d.CompletedActions)
	}},
	{Name: "career_progress.next_steps", Kind: MergeReplace, apply: func(next *MemoryState, d MemoryDelta) {
		if len(d.NextSteps) > 0 {
			next.CareerProgress.NextSteps = append([]string(nil), d.NextSteps...)
		}
	}},
	{Name: "partner_interactions", Kind: MergeAppendCapped, apply: func(next *MemoryState, d MemoryDelta) {
		next.PartnerInteractions = appendCapped(next.PartnerInteractions, d.PartnerInteractions, MaxPartnerInteractions)
	}},
}

// Apply folds a delta into the memory snapshot and returns the next value.
func (m MemoryState) Apply(d MemoryDelta) MemoryState {
	next := m.Clone()
	for _, ch := range memoryChannels {
		ch.apply(&next, d)
	}
	return next
}

// MemoryChannelKinds exposes the memory field-to-merge-kind mapping.
func MemoryChannelKinds() map[string]MergeKind {
	out := make(map[string]MergeKind, len(memoryChannels))
	for _, ch := range memoryChannels {
		out[ch.Name] = ch.Kind
	}
	return out
}
