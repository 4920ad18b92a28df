package policy

import (
	"github.com/act-mass/pendo/internal/state"
)

// HighImpactScore is the relevance score at which a recommendation is
// considered high-impact enough to require human sign-off before release.
const HighImpactScore = 80

// RequiresApproval decides whether the turn must pause before its
// recommendations are surfaced: high urgency combined with negative
// sentiment, or any newly produced high-impact recommendation.
func RequiresApproval(urgency state.Urgency, sentiment state.Sentiment, newRecs []state.Recommendation) bool {
	if urgency == state.UrgencyHigh && sentiment == state.SentimentNegative {
		return true
	}
	for _, r := range newRecs {
		if r.RelevanceScore >= HighImpactScore {
			return true
		}
	}
	return false
}
