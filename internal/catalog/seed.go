package catalog

import "github.com/act-mass/pendo/internal/state"

// Seed returns the built-in ACT member snapshot used when no catalog file is
// configured.
func Seed() []Entry {
	return []Entry{
		{
			Name:          "Abode Energy Management",
			Type:          state.OpportunityJob,
			Specialties:   []string{"energy efficiency", "decarbonization", "weatherization", "consulting"},
			PriorityScore: 8,
			Contact:       "careers@abodeem.com",
		},
		{
			Name:          "Agilitas Energy",
			Type:          state.OpportunityJob,
			Specialties:   []string{"solar", "energy storage", "construction", "operations"},
			PriorityScore: 7,
		},
		{
			Name:          "Commonwealth Fusion Systems",
			Type:          state.OpportunityJob,
			Specialties:   []string{"fusion", "engineering", "manufacturing", "research"},
			PriorityScore: 9,
		},
		{
			Name:          "CleanCapital",
			Type:          state.OpportunityJob,
			Specialties:   []string{"finance", "solar", "asset management"},
			PriorityScore: 6,
		},
		{
			Name:          "Action for Boston Community Development",
			Type:          state.OpportunityResource,
			Specialties:   []string{"community", "energy assistance", "weatherization", "justice"},
			PriorityScore: 8,
			Roles:         []string{"environmental_justice", "career"},
		},
		{
			Name:          "Franklin Cummings Tech",
			Type:          state.OpportunityTraining,
			Specialties:   []string{"hvac", "electrical", "renewable energy", "construction management"},
			PriorityScore: 9,
			Contact:       "admissions@franklincummings.edu",
		},
		{
			Name:          "MassCEC Internship Program",
			Type:          state.OpportunityTraining,
			Specialties:   []string{"internship", "solar", "wind", "clean transportation"},
			PriorityScore: 8,
		},
		{
			Name:          "MassCEC Climate Justice Internship",
			Type:          state.OpportunityTraining,
			Specialties:   []string{"environmental justice", "community", "policy"},
			PriorityScore: 7,
			Roles:         []string{"environmental_justice"},
		},
		{
			Name:          "Helmets to Hardhats Massachusetts",
			Type:          state.OpportunityNetworking,
			Specialties:   []string{"veteran", "construction", "apprenticeship", "trades"},
			PriorityScore: 8,
			Roles:         []string{"veterans"},
		},
		{
			Name:          "ACT Employer Network",
			Type:          state.OpportunityNetworking,
			Specialties:   []string{"clean energy", "climate tech", "networking"},
			PriorityScore: 5,
		},
		{
			Name:          "International Institute of New England",
			Type:          state.OpportunityResource,
			Specialties:   []string{"credential evaluation", "visa", "esol", "job placement"},
			PriorityScore: 8,
			Roles:         []string{"international"},
		},
	}
}
