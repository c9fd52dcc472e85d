// Package resolve turns free-form role names into canonical catalog entries
// or AI estimates. Resolution runs an explicit ordered list of strategies so
// the precedence (database, then fuzzy match, then AI) is visible in one
// place instead of being buried in handler conditionals.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/polarisnav/polaris/internal/ai"
	"github.com/polarisnav/polaris/internal/catalog"

	"go.uber.org/zap"
)

// Resolution sources, in precedence order.
const (
	SourceDatabase = "database"
	SourceFuzzy    = "fuzzy_match"
	SourceAI       = "ai"
)

const (
	industryTechnology = "Technology"

	fuzzyConfidence = 0.95

	// AI estimates below this confidence are treated as unresolved.
	minAIConfidence = 0.75
)

// ErrUnresolved is returned when no strategy recognizes the role.
var ErrUnresolved = errors.New("role could not be resolved")

// Resolution is the outcome of resolving a role name. Metrics are embedded
// so they serialize flat alongside the role fields.
type Resolution struct {
	Role          string  `json:"role"`
	Industry      string  `json:"industry"`
	Confidence    float64 `json:"confidence"`
	Source        string  `json:"source"`
	OriginalInput string  `json:"original_input,omitempty"`
	catalog.Metrics
}

// Strategy is a single resolution step. Resolve returns nil without error
// when the strategy has no answer and the next one should be tried.
type Strategy interface {
	Name() string
	Enabled() bool
	Resolve(ctx context.Context, raw string) (*Resolution, error)
}

// Status reports runtime information about a strategy, for diagnostics.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Details map[string]string `json:"details,omitempty"`
}

// statusProvider is implemented by strategies with extra status details.
type statusProvider interface {
	Status() Status
}

// Chain resolves role names by walking its strategies in order.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds the standard chain: exact catalog lookup, fuzzy catalog
// lookup, then AI estimation. A nil estimator disables the AI step.
func NewChain(cat *catalog.Catalog, estimator ai.Estimator, log *zap.Logger) *Chain {
	return &Chain{
		strategies: []Strategy{
			&databaseStrategy{catalog: cat},
			&fuzzyStrategy{catalog: cat, cutoff: catalog.DefaultFuzzyCutoff},
			&aiStrategy{estimator: estimator},
		},
		logger: log,
	}
}

// Resolve runs the strategies in order and returns the first answer. A
// failing strategy is logged and skipped; exhausting the list yields
// ErrUnresolved.
func (c *Chain) Resolve(ctx context.Context, raw string) (*Resolution, error) {
	for _, strategy := range c.strategies {
		if !strategy.Enabled() {
			c.logger.Debug("resolution strategy disabled", zap.String("strategy", strategy.Name()))
			continue
		}

		resolution, err := strategy.Resolve(ctx, raw)
		if err != nil {
			c.logger.Warn("resolution strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.String("input", raw),
				zap.Error(err),
			)
			continue
		}
		if resolution == nil {
			continue
		}

		c.logger.Info("role resolved",
			zap.String("strategy", strategy.Name()),
			zap.String("input", raw),
			zap.String("role", resolution.Role),
			zap.Float64("confidence", resolution.Confidence),
		)
		return resolution, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnresolved, raw)
}

// Describe returns status entries for the chain's strategies.
func (c *Chain) Describe() []Status {
	statuses := make([]Status, 0, len(c.strategies))
	for _, strategy := range c.strategies {
		if reporter, ok := strategy.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    strategy.Name(),
			Enabled: strategy.Enabled(),
		})
	}
	return statuses
}

type databaseStrategy struct {
	catalog *catalog.Catalog
}

func (s *databaseStrategy) Name() string { return "database" }

func (s *databaseStrategy) Enabled() bool { return true }

func (s *databaseStrategy) Resolve(_ context.Context, raw string) (*Resolution, error) {
	canonical, ok := s.catalog.ResolveExact(raw)
	if !ok {
		return nil, nil
	}

	role, ok := s.catalog.Get(canonical)
	if !ok {
		return nil, fmt.Errorf("canonical role %q missing from catalog", canonical)
	}

	return &Resolution{
		Role:       role.Name,
		Industry:   industryTechnology,
		Confidence: 1.0,
		Source:     SourceDatabase,
		Metrics:    role.Metrics,
	}, nil
}

func (s *databaseStrategy) Status() Status {
	return Status{
		Name:    s.Name(),
		Enabled: true,
		Details: map[string]string{"roles": strconv.Itoa(s.catalog.Len())},
	}
}

type fuzzyStrategy struct {
	catalog *catalog.Catalog
	cutoff  float64
}

func (s *fuzzyStrategy) Name() string { return "fuzzy_match" }

func (s *fuzzyStrategy) Enabled() bool { return true }

func (s *fuzzyStrategy) Resolve(_ context.Context, raw string) (*Resolution, error) {
	canonical, ok := s.catalog.ResolveFuzzy(raw, s.cutoff)
	if !ok {
		return nil, nil
	}

	role, ok := s.catalog.Get(canonical)
	if !ok {
		return nil, fmt.Errorf("canonical role %q missing from catalog", canonical)
	}

	return &Resolution{
		Role:          role.Name,
		Industry:      industryTechnology,
		Confidence:    fuzzyConfidence,
		Source:        SourceFuzzy,
		OriginalInput: raw,
		Metrics:       role.Metrics,
	}, nil
}

func (s *fuzzyStrategy) Status() Status {
	return Status{
		Name:    s.Name(),
		Enabled: true,
		Details: map[string]string{"cutoff": strconv.FormatFloat(s.cutoff, 'f', 2, 64)},
	}
}

type aiStrategy struct {
	estimator ai.Estimator
}

func (s *aiStrategy) Name() string { return "ai" }

func (s *aiStrategy) Enabled() bool { return s.estimator != nil }

func (s *aiStrategy) Resolve(ctx context.Context, raw string) (*Resolution, error) {
	estimate, err := s.estimator.EstimateMetrics(ctx, raw)
	if err != nil {
		return nil, err
	}

	if !estimate.IsTechRole || estimate.Confidence < minAIConfidence {
		return nil, nil
	}

	return &Resolution{
		Role:       estimate.Role,
		Industry:   industryTechnology,
		Confidence: estimate.Confidence,
		Source:     SourceAI,
		Metrics:    estimate.Metrics,
	}, nil
}
