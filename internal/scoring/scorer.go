// Package scoring ranks partner organizations against a user's query and
// skill profile. Scoring is deterministic: the same inputs always produce the
// same recommendation set regardless of catalog scan order.
package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/state"
)

const (
	// DefaultCatalogFloor drops weak catalog-driven matches.
	DefaultCatalogFloor = 20
	// DefaultSkillMatchFloor drops weak skill-ratio matches (0-100 scale).
	DefaultSkillMatchFloor = 40
	// ActionThreshold marks the score at which we broker a direct
	// introduction instead of asking the user to self-apply.
	ActionThreshold = 80

	keywordWeight    = 30
	priorityWeight   = 5
	skillGapBonus    = 10
	titleMentionBump = 0.2
	gapClosingBump   = 0.1
)

// Config tunes the scoring floors.
type Config struct {
	CatalogFloor    float64
	SkillMatchFloor float64
}

// Scorer computes deduplicated, ranked partner recommendations.
type Scorer struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Scorer {
	if cfg.CatalogFloor <= 0 {
		cfg.CatalogFloor = DefaultCatalogFloor
	}
	if cfg.SkillMatchFloor <= 0 {
		cfg.SkillMatchFloor = DefaultSkillMatchFloor
	}
	return &Scorer{cfg: cfg, now: time.Now}
}

// Profile carries the user facts scoring needs.
type Profile struct {
	Skills    []string
	SkillGaps []string
}

// ScoreCatalog scores catalog entries against the query text using keyword
// overlap, partner priority, and skill-gap bonuses. An empty catalog yields
// an empty result.
func (s *Scorer) ScoreCatalog(query string, profile Profile, entries []catalog.Entry) []state.Recommendation {
	norm := Normalize(query)
	out := make([]state.Recommendation, 0, len(entries))
	for _, e := range entries {
		matched := make([]string, 0, len(e.Specialties))
		gapHit := ""
		for _, spec := range e.Specialties {
			specNorm := Normalize(spec)
			if specNorm == "" {
				continue
			}
			if strings.Contains(norm, specNorm) {
				matched = append(matched, spec)
			}
			if gapHit == "" && matchesAny(specNorm, profile.SkillGaps) {
				gapHit = spec
			}
		}
		relevance := float64(len(matched))*keywordWeight + e.PriorityScore*priorityWeight
		if gapHit != "" {
			relevance += skillGapBonus
		}
		if relevance < s.cfg.CatalogFloor {
			continue
		}
		if relevance > 100 {
			relevance = 100
		}
		out = append(out, s.build(e.Name, e.Type, relevance, catalogReasoning(matched, gapHit), e.Contact, gapHit))
	}
	return s.finish(out)
}

// Opportunity is a structured opening used by the skill-match strategy.
type Opportunity struct {
	Title          string
	PartnerName    string
	Type           state.OpportunityType
	RequiredSkills []string
	Contact        string
}

// ScoreSkillMatch scores structured opportunities by the ratio of required
// skills the user already holds, with small bumps for a direct title mention
// and for closing a known skill gap. Scores are mapped to the 0-100 scale.
func (s *Scorer) ScoreSkillMatch(query string, profile Profile, opps []Opportunity) []state.Recommendation {
	norm := Normalize(query)
	out := make([]state.Recommendation, 0, len(opps))
	for _, opp := range opps {
		if len(opp.RequiredSkills) == 0 {
			continue
		}
		held := 0
		gapHit := ""
		for _, req := range opp.RequiredSkills {
			reqNorm := Normalize(req)
			if matchesAny(reqNorm, profile.Skills) {
				held++
			}
			if gapHit == "" && matchesAny(reqNorm, profile.SkillGaps) {
				gapHit = req
			}
		}
		ratio := float64(held) / float64(len(opp.RequiredSkills))
		if strings.Contains(norm, Normalize(opp.Title)) && Normalize(opp.Title) != "" {
			ratio += titleMentionBump
		}
		if gapHit != "" {
			ratio += gapClosingBump
		}
		if ratio > 1 {
			ratio = 1
		}
		relevance := ratio * 100
		if relevance < s.cfg.SkillMatchFloor {
			continue
		}
		reason := fmt.Sprintf("%d of %d required skills held for %s", held, len(opp.RequiredSkills), opp.Title)
		out = append(out, s.build(opp.PartnerName, opp.Type, relevance, reason, opp.Contact, gapHit))
	}
	return s.finish(out)
}

func (s *Scorer) build(partner string, typ state.OpportunityType, score float64, reason, contact, gapHit string) state.Recommendation {
	action := score >= ActionThreshold
	return state.Recommendation{
		ID:              uuid.NewString(),
		PartnerName:     partner,
		OpportunityType: typ,
		RelevanceScore:  score,
		Reasoning:       reason,
		ActionRequired:  action,
		NextSteps:       nextSteps(partner, typ, action, gapHit),
		Contact:         contact,
		Timestamp:       s.now().UTC(),
	}
}

// finish orders candidates deterministically before they hit the merge, so
// the final top-10 set does not depend on scan order even across ties.
func (s *Scorer) finish(recs []state.Recommendation) []state.Recommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].RelevanceScore != recs[j].RelevanceScore {
			return recs[i].RelevanceScore > recs[j].RelevanceScore
		}
		if recs[i].PartnerName != recs[j].PartnerName {
			return recs[i].PartnerName < recs[j].PartnerName
		}
		return recs[i].OpportunityType < recs[j].OpportunityType
	})
	return recs
}

func nextSteps(partner string, typ state.OpportunityType, action bool, gapHit string) []string {
	steps := make([]string, 0, 3)
	if action {
		steps = append(steps, fmt.Sprintf("We will broker a direct introduction to %s.", partner))
	} else {
		steps = append(steps, fmt.Sprintf("Apply directly through %s.", partner))
	}
	switch typ {
	case state.OpportunityTraining:
		steps = append(steps, "Review program schedules and enrollment windows.")
	case state.OpportunityNetworking:
		steps = append(steps, "Attend the next partner networking session.")
	}
	if gapHit != "" {
		steps = append(steps, fmt.Sprintf("This closes your %s skill gap.", strings.ToLower(gapHit)))
	}
	return steps
}

func catalogReasoning(matched []string, gapHit string) string {
	switch {
	case len(matched) > 0 && gapHit != "":
		return fmt.Sprintf("matches %s and closes a skill gap", strings.Join(matched, ", "))
	case len(matched) > 0:
		return "matches " + strings.Join(matched, ", ")
	case gapHit != "":
		return "closes a known skill gap"
	default:
		return "high-priority partner"
	}
}

// Normalize lowercases and collapses whitespace for keyword matching.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

func matchesAny(needle string, haystack []string) bool {
	if needle == "" {
		return false
	}
	for _, h := range haystack {
		hn := Normalize(h)
		if hn == "" {
			continue
		}
		if strings.Contains(hn, needle) || strings.Contains(needle, hn) {
			return true
		}
	}
	return false
}
