// Package ai defines the contracts for the generative-AI collaborators: a
// metrics estimator for roles missing from the catalog and a content
// generator for role detail pages. Both are fallible and rate-limited;
// callers treat failures as "no data available" rather than fatal errors.
package ai

import (
	"context"

	"github.com/polarisnav/polaris/internal/catalog"
)

// RoleEstimate is the AI's judgement of an arbitrary role name: whether it
// is a technology role, how confident the model is, and the estimated
// work-style metrics.
type RoleEstimate struct {
	Role       string
	IsTechRole bool
	Confidence float64
	Metrics    catalog.Metrics
}

// SkillSuggestion lists the most important skills for a role, ordered by
// importance.
type SkillSuggestion struct {
	Role   string   `json:"role"`
	Skills []string `json:"skills"`
}

// Page is one of the four role detail pages. The Type field discriminates
// which of the optional fields are populated.
type Page struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Salary      string   `json:"salary,omitempty"`
	Degree      string   `json:"degree,omitempty"`
	Source      string   `json:"source,omitempty"`
	Tasks       []string `json:"tasks,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
}

// Page type discriminators.
const (
	PageOverview       = "overview"
	PageDayInLife      = "day_in_life"
	PageSweetSpots     = "sweet_spots"
	PageAreasForGrowth = "areas_for_growth"
)

// RolePages is the generated content for a role's detail view.
type RolePages struct {
	Pages []Page `json:"pages"`
}

// Estimator validates whether a role is tech-related and estimates its
// work-style metrics. Used only when a role fails both exact and fuzzy
// catalog resolution.
type Estimator interface {
	EstimateMetrics(ctx context.Context, role string) (*RoleEstimate, error)
}

// ContentGenerator produces descriptive content about roles.
type ContentGenerator interface {
	GenerateRolePages(ctx context.Context, role, currentRole string, metrics catalog.Metrics, userSkills []string) (*RolePages, error)
	SuggestSkills(ctx context.Context, role string) (*SkillSuggestion, error)
}

// Advisor bundles both AI capabilities.
type Advisor interface {
	Estimator
	ContentGenerator
}
