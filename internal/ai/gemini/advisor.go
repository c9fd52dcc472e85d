// Package gemini implements the AI advisor contracts on top of the Google
// GenAI API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/polarisnav/polaris/internal/ai"
	"github.com/polarisnav/polaris/internal/catalog"
	"github.com/polarisnav/polaris/internal/logger"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

//go:embed prompt_estimate.md
var estimatePromptTemplate string

//go:embed prompt_pages.md
var pagesPromptTemplate string

//go:embed prompt_skills.md
var skillsPromptTemplate string

const (
	systemInstruction = "You are a technology career advisor. Respond only with the requested JSON, no other text."

	defaultMaxLogLength = 200

	maxSuggestedSkills = 12

	maxExplanationRunes = 150
	maxTaskRunes        = 100
	pageTaskCount       = 5
	pageSkillCount      = 7
	maxSkillWords       = 4

	fallbackTask  = "Collaborate with team members on projects and tasks."
	fallbackSkill = "Core Skills"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Advisor implements ai.Advisor using a Gemini content generator. Responses
// are treated as untrusted: JSON is dug out of markdown fences, decoded
// leniently and clamped before anything downstream sees it.
type Advisor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

// NewAdvisor wraps the generator. maxLogLength bounds prompt/response
// previews in debug logs.
func NewAdvisor(generator contentGenerator, maxLogLength int, log *zap.Logger) *Advisor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Advisor{
		generator: generator,
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

type estimateResponse struct {
	IsTechRole bool    `mapstructure:"is_tech_role"`
	Confidence float64 `mapstructure:"confidence"`
	Technical  int     `mapstructure:"technical"`
	Creative   int     `mapstructure:"creative"`
	Business   int     `mapstructure:"business"`
	Customer   int     `mapstructure:"customer"`
}

// EstimateMetrics asks the model whether the role is tech-related and what
// its work-style metrics look like. A generation failure is returned to the
// caller; an unparsable response degrades to a zero-confidence neutral
// estimate, matching the lenient policy of the rest of the system.
func (a *Advisor) EstimateMetrics(ctx context.Context, role string) (*ai.RoleEstimate, error) {
	prompt := strings.ReplaceAll(estimatePromptTemplate, "{{ROLE}}", role)

	raw, err := a.generate(ctx, prompt, zap.String("role", role))
	if err != nil {
		return nil, err
	}

	estimate := &ai.RoleEstimate{
		Role:    role,
		Metrics: neutralMetrics(),
	}

	// Fields the model omits keep their neutral defaults.
	resp := estimateResponse{
		Confidence: 0.5,
		Technical:  5,
		Creative:   5,
		Business:   5,
		Customer:   5,
	}
	if err := decodeLooseJSON(raw, &resp); err != nil {
		a.logger.Error("parsing metrics estimate failed, using neutral estimate",
			zap.String("role", role),
			zap.Error(err),
		)
		return estimate, nil
	}

	estimate.IsTechRole = resp.IsTechRole
	estimate.Confidence = clampFloat(resp.Confidence, 0, 1)
	estimate.Metrics = catalog.Metrics{
		Technical: clampMetric(resp.Technical),
		Creative:  clampMetric(resp.Creative),
		Business:  clampMetric(resp.Business),
		Customer:  clampMetric(resp.Customer),
	}

	a.logger.Info("validated role via AI",
		zap.String("role", role),
		zap.Bool("is_tech_role", estimate.IsTechRole),
		zap.Float64("confidence", estimate.Confidence),
		zap.Int("technical", estimate.Metrics.Technical),
		zap.Int("creative", estimate.Metrics.Creative),
		zap.Int("business", estimate.Metrics.Business),
		zap.Int("customer", estimate.Metrics.Customer),
	)

	return estimate, nil
}

// GenerateRolePages produces the four role detail pages. Generation and
// parse failures both fall back to static pages; the caller always gets
// presentable content.
func (a *Advisor) GenerateRolePages(ctx context.Context, role, currentRole string, metrics catalog.Metrics, userSkills []string) (*ai.RolePages, error) {
	skillsContext := ""
	if len(userSkills) > 0 {
		skillsContext = "\nUser's selected skills: " + strings.Join(userSkills, ", ")
	}

	replacer := strings.NewReplacer(
		"{{ROLE}}", role,
		"{{CURRENT_ROLE}}", currentRole,
		"{{TECHNICAL}}", strconv.Itoa(metrics.Technical),
		"{{CREATIVE}}", strconv.Itoa(metrics.Creative),
		"{{BUSINESS}}", strconv.Itoa(metrics.Business),
		"{{CUSTOMER}}", strconv.Itoa(metrics.Customer),
		"{{SKILLS_CONTEXT}}", skillsContext,
	)
	prompt := replacer.Replace(pagesPromptTemplate)

	raw, err := a.generate(ctx, prompt, zap.String("role", role))
	if err != nil {
		a.logger.Warn("page generation failed, using fallback pages",
			zap.String("role", role),
			zap.Error(err),
		)
		return fallbackPages(role, currentRole, userSkills), nil
	}

	var pages ai.RolePages
	if err := json.Unmarshal([]byte(extractJSON(raw)), &pages); err != nil {
		a.logger.Error("parsing generated pages failed, using fallback pages",
			zap.String("role", role),
			zap.Error(err),
		)
		return fallbackPages(role, currentRole, userSkills), nil
	}

	enforceContentLimits(&pages)

	a.logger.Info("generated role pages", zap.String("role", role), zap.Int("pages", len(pages.Pages)))
	return &pages, nil
}

// SuggestSkills lists the most important skills for a role, capped at 12.
// Failures degrade to an empty list.
func (a *Advisor) SuggestSkills(ctx context.Context, role string) (*ai.SkillSuggestion, error) {
	prompt := strings.ReplaceAll(skillsPromptTemplate, "{{ROLE}}", role)

	suggestion := &ai.SkillSuggestion{Role: role, Skills: []string{}}

	raw, err := a.generate(ctx, prompt, zap.String("role", role))
	if err != nil {
		a.logger.Warn("skill suggestion failed", zap.String("role", role), zap.Error(err))
		return suggestion, nil
	}

	var resp struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &resp); err != nil {
		a.logger.Error("parsing skill suggestion failed", zap.String("role", role), zap.Error(err))
		return suggestion, nil
	}

	suggestion.Skills = resp.Skills[:min(maxSuggestedSkills, len(resp.Skills))]

	a.logger.Info("suggested skills", zap.String("role", role), zap.Int("count", len(suggestion.Skills)))
	return suggestion, nil
}

func (a *Advisor) generate(ctx context.Context, prompt string, fields ...zap.Field) (string, error) {
	requestFields := append([]zap.Field{
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, a.maxLogLen)),
	}, fields...)
	a.logger.Debug("gemini generate content request", requestFields...)

	raw, err := a.generator.GenerateContent(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}

	responseFields := append([]zap.Field{
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	}, fields...)
	a.logger.Debug("gemini generate content response", responseFields...)

	return raw, nil
}

// decodeLooseJSON digs JSON out of the raw response and decodes it weakly
// typed, so numbers arriving as strings or floats still land in the target.
func decodeLooseJSON(raw string, target any) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return fmt.Errorf("parse gemini response: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}

	return nil
}

// extractJSON strips markdown code fences the model tends to wrap its JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// enforceContentLimits truncates and pads generated pages to the fixed
// presentation budget, as a safety net against models ignoring the prompt.
func enforceContentLimits(pages *ai.RolePages) {
	for i := range pages.Pages {
		page := &pages.Pages[i]

		switch page.Type {
		case ai.PageOverview:
			page.Description = truncateRunes(page.Description, maxExplanationRunes)
		case ai.PageDayInLife:
			tasks := page.Tasks[:min(pageTaskCount, len(page.Tasks))]
			for j, task := range tasks {
				tasks[j] = truncateRunes(task, maxTaskRunes)
			}
			for len(tasks) < pageTaskCount {
				tasks = append(tasks, fallbackTask)
			}
			page.Tasks = tasks
		case ai.PageSweetSpots, ai.PageAreasForGrowth:
			skills := page.Skills[:min(pageSkillCount, len(page.Skills))]
			for j, skill := range skills {
				words := strings.Fields(skill)
				if len(words) > maxSkillWords {
					skills[j] = strings.Join(words[:maxSkillWords], " ")
				}
			}
			for len(skills) < pageSkillCount {
				skills = append(skills, fallbackSkill)
			}
			page.Skills = skills
			page.Explanation = truncateRunes(page.Explanation, maxExplanationRunes)
		}
	}
}

// fallbackPages builds static pages when generation fails.
func fallbackPages(role, currentRole string, userSkills []string) *ai.RolePages {
	var sweetSpotSkills []string
	var sweetSpotExplanation string

	if len(userSkills) > 0 {
		sweetSpotSkills = append(sweetSpotSkills, userSkills[:min(5, len(userSkills))]...)
		named := sweetSpotSkills[:min(3, len(sweetSpotSkills))]
		sweetSpotExplanation = fmt.Sprintf("Your skills in %s provide a strong foundation for %s.",
			strings.Join(named, ", "), role)
	} else {
		sweetSpotSkills = []string{"Problem Solving", "Communication", "Technical Skills", "Collaboration", "Analytical Thinking"}
		sweetSpotExplanation = fmt.Sprintf("Your background in %s provides foundational skills that transfer to %s.", currentRole, role)
	}

	for len(sweetSpotSkills) < pageSkillCount {
		sweetSpotSkills = append(sweetSpotSkills, fallbackSkill)
	}

	return &ai.RolePages{
		Pages: []ai.Page{
			{
				Type:        ai.PageOverview,
				Description: fmt.Sprintf("A %s is a professional role in the tech industry.", role),
				Salary:      "$80k - $120k",
				Degree:      "Bachelor's degree",
				Source:      "Bureau of Labor Statistics",
			},
			{
				Type: ai.PageDayInLife,
				Tasks: []string{
					"Complete assigned tasks and projects",
					"Collaborate with team members",
					"Participate in meetings and reviews",
					"Document work and progress",
					"Solve technical problems",
				},
			},
			{
				Type:        ai.PageSweetSpots,
				Skills:      sweetSpotSkills[:pageSkillCount],
				Explanation: truncateRunes(sweetSpotExplanation, maxExplanationRunes),
			},
			{
				Type: ai.PageAreasForGrowth,
				Skills: []string{
					"Advanced Technical", "Industry Knowledge", "Leadership",
					"Project Management", "Strategic Thinking", "Communication", "Analytics",
				},
				Explanation: truncateRunes(
					fmt.Sprintf("To excel as a %s, develop expertise in specialized areas beyond %s.", role, currentRole),
					maxExplanationRunes,
				),
			},
		},
	}
}

func neutralMetrics() catalog.Metrics {
	return catalog.Metrics{Technical: 5, Creative: 5, Business: 5, Customer: 5}
}

func clampMetric(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
