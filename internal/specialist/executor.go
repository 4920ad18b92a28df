package specialist

import (
	"context"
	"strings"

	"github.com/act-mass/pendo/internal/catalog"
	"github.com/act-mass/pendo/internal/llm"
	"github.com/act-mass/pendo/internal/scoring"
	"github.com/act-mass/pendo/internal/state"
)

// Input is everything a specialist needs for one turn. Catalog holds the
// role-scoped entries captured from the snapshot at turn start.
type Input struct {
	Role    state.SpecialistRole
	Message string
	History []state.Message
	Memory  state.MemoryState
	Catalog []catalog.Entry
}

// Result is the specialist's contribution to the turn. GenerationErr is
// informational: when set, Reply holds the role fallback and the turn still
// succeeds.
type Result struct {
	Reply           string
	Recommendations []state.Recommendation
	UsedFallback    bool
	GenerationErr   error
}

// Executor runs a specialist turn: one generation call plus deterministic
// recommendation scoring. It never hard-fails.
type Executor struct {
	generator llm.Generator
	scorer    *scoring.Scorer
}

func NewExecutor(generator llm.Generator, scorer *scoring.Scorer) *Executor {
	return &Executor{generator: generator, scorer: scorer}
}

func (e *Executor) Execute(ctx context.Context, in Input) Result {
	profile := ProfileFromMemory(in.Memory)
	recs := e.scorer.ScoreCatalog(in.Message, profile, in.Catalog)

	// The career specialist also runs the skill-match strategy when the
	// user's profile carries structured skills.
	if in.Role == state.RoleCareer && len(profile.Skills) > 0 {
		opps := opportunitiesFromCatalog(in.Catalog)
		recs = state.MergeRecommendations(recs,
			e.scorer.ScoreSkillMatch(in.Message, profile, opps),
			state.MaxRecommendations)
	}

	reply, err := e.generator.Generate(ctx, llm.Request{
		SystemPrompt: PromptFor(in.Role),
		History:      in.History,
		UserMessage:  in.Message,
	})
	if err != nil {
		return Result{
			Reply:           FallbackFor(in.Role),
			Recommendations: recs,
			UsedFallback:    true,
			GenerationErr:   err,
		}
	}

	return Result{Reply: reply, Recommendations: recs}
}

// ProfileFromMemory lifts structured skill facts out of the user's stored
// preferences. Skills and gaps are comma-separated lists.
func ProfileFromMemory(mem state.MemoryState) scoring.Profile {
	return scoring.Profile{
		Skills:    splitList(mem.Preferences["skills"]),
		SkillGaps: splitList(mem.Preferences["skill_gaps"]),
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// opportunitiesFromCatalog treats job-type partners as structured openings,
// with their specialties as the required skills.
func opportunitiesFromCatalog(entries []catalog.Entry) []scoring.Opportunity {
	out := make([]scoring.Opportunity, 0, len(entries))
	for _, e := range entries {
		if e.Type != state.OpportunityJob || len(e.Specialties) == 0 {
			continue
		}
		out = append(out, scoring.Opportunity{
			Title:          e.Name,
			PartnerName:    e.Name,
			Type:           e.Type,
			RequiredSkills: e.Specialties,
			Contact:        e.Contact,
		})
	}
	return out
}
