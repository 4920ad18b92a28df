package specialist

import "github.com/act-mass/pendo/internal/state"

// Role prompts mirror the advisor personas of the ACT product. Each
// specialist makes exactly one generation call per turn with its prompt.
var rolePrompts = map[state.SpecialistRole]string{
	state.RoleCareer: "You are Pendo, a Massachusetts clean energy career advisor. " +
		"Help the user find concrete next steps toward climate-economy jobs, " +
		"training programs, and employers. Be specific, encouraging, and brief.",
	state.RoleVeterans: "You are Pendo, a clean energy career advisor specialized in " +
		"supporting veterans and transitioning military members. Translate military " +
		"experience into clean energy roles and point to veteran-friendly programs.",
	state.RoleInternational: "You are Pendo, a clean energy career advisor specialized in " +
		"supporting internationally trained professionals. Address credential " +
		"recognition, visa-aware hiring, and employers open to international talent.",
	state.RoleEnvironmentalJustice: "You are Pendo, a clean energy career advisor focused on " +
		"environmental justice communities. Connect the user with community-based " +
		"programs, wraparound support, and equitable pathways into climate work.",
}

// Fallback replies keep a turn useful when generation fails or is cancelled.
var roleFallbacks = map[state.SpecialistRole]string{
	state.RoleCareer: "I'm having trouble generating a detailed answer right now, " +
		"but the partner matches below are a good starting point. Tell me more about " +
		"your background and I'll refine them.",
	state.RoleVeterans: "I couldn't pull together a full answer just now. The " +
		"veteran-friendly partners below are worth a look, and programs like " +
		"Helmets to Hardhats specialize in transitions like yours.",
	state.RoleInternational: "I couldn't generate a full answer right now. The partners " +
		"below work with internationally trained professionals; credential evaluation " +
		"is usually the best first step.",
	state.RoleEnvironmentalJustice: "I couldn't put together a full answer just now. The " +
		"community-based programs below offer training with wraparound support and are " +
		"a strong place to start.",
}

// PromptFor returns the generation prompt for a role, defaulting to the
// career persona for unknown roles.
func PromptFor(role state.SpecialistRole) string {
	if p, ok := rolePrompts[role]; ok {
		return p
	}
	return rolePrompts[state.RoleCareer]
}

// FallbackFor returns the static degraded-mode reply for a role.
func FallbackFor(role state.SpecialistRole) string {
	if f, ok := roleFallbacks[role]; ok {
		return f
	}
	return roleFallbacks[state.RoleCareer]
}
