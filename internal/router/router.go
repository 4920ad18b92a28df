// Package router classifies an incoming user message and picks the
// specialist role for the turn. Classification is a priority-ordered keyword
// rule set with no external calls, so it is cheap and fully deterministic:
// an ambiguous message always degrades to the default career role.
package router

import (
	"strings"

	"github.com/act-mass/pendo/internal/scoring"
	"github.com/act-mass/pendo/internal/state"
)

// Decision is the router's assessment of one message.
type Decision struct {
	Role       state.SpecialistRole
	Topic      string
	Complexity state.Complexity
	Urgency    state.Urgency
	Sentiment  state.Sentiment
}

type roleRule struct {
	role     state.SpecialistRole
	keywords []string
}

// First match wins; order encodes priority.
var roleRules = []roleRule{
	{role: state.RoleVeterans, keywords: []string{"veteran", "military", "service member", "deployed", "discharge"}},
	{role: state.RoleInternational, keywords: []string{"international", "visa", "green card", "work permit", "credential evaluation", "h-1b", "h1b"}},
	{role: state.RoleEnvironmentalJustice, keywords: []string{"community", "justice", "frontline", "equity"}},
}

var negativeMarkers = []string{
	"frustrated", "frustrating", "annoyed", "upset", "angry", "disappointed",
	"no responses", "no response", "nobody", "giving up", "waste of time", "complaint",
}

var positiveMarkers = []string{
	"thank", "thanks", "grateful", "appreciate", "excited", "great news", "love",
}

var urgencyMarkers = []string{"urgent", "asap", "immediately", "right away", "emergency"}

// higherComplexityRoles are flagged moderate by policy even without urgency
// markers in the message.
var higherComplexityRoles = map[state.SpecialistRole]bool{
	state.RoleInternational: true,
}

// Classify inspects the latest user message and returns the turn decision.
// It never fails.
func Classify(message string) Decision {
	norm := scoring.Normalize(message)

	d := Decision{
		Role:       state.RoleCareer,
		Complexity: state.ComplexitySimple,
		Urgency:    state.UrgencyLow,
		Sentiment:  state.SentimentNeutral,
	}

	for _, rule := range roleRules {
		if containsAny(norm, rule.keywords) {
			d.Role = rule.role
			break
		}
	}

	switch {
	case containsAny(norm, negativeMarkers):
		d.Sentiment = state.SentimentNegative
	case containsAny(norm, positiveMarkers):
		d.Sentiment = state.SentimentPositive
	}

	if containsAny(norm, urgencyMarkers) {
		d.Urgency = state.UrgencyHigh
		d.Complexity = state.ComplexityComplex
	} else if higherComplexityRoles[d.Role] {
		d.Urgency = state.UrgencyMedium
		d.Complexity = state.ComplexityModerate
	}

	d.Topic = topicOf(norm)
	return d
}

func topicOf(norm string) string {
	switch {
	case strings.Contains(norm, "solar"):
		return "solar"
	case strings.Contains(norm, "wind"):
		return "wind"
	case strings.Contains(norm, "training") || strings.Contains(norm, "program") || strings.Contains(norm, "certificate"):
		return "training"
	case strings.Contains(norm, "internship"):
		return "internship"
	case strings.Contains(norm, "job") || strings.Contains(norm, "career") || strings.Contains(norm, "work"):
		return "jobs"
	default:
		return "general"
	}
}

func containsAny(norm string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(norm, m) {
			return true
		}
	}
	return false
}
