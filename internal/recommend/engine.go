// Package recommend selects diverse role recommendation sets from the
// catalog, mixing close matches with deliberate oddballs.
package recommend

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/polarisnav/polaris/internal/catalog"

	"go.uber.org/zap"
)

const (
	// DefaultCount is the number of roles presented on the exploration map.
	DefaultCount = 27
	// CloseMatchesCount is how many close matches are sampled per request.
	CloseMatchesCount = 20
	// OddballCount is how many diverse far-tail roles are sampled per request.
	OddballCount = 7
	// onTheFlyOddballPool is the far-tail width for uncatalogued roles. It
	// differs from the precomputed pool width on purpose; the two paths have
	// always been asymmetric.
	onTheFlyOddballPool = 10
)

// Request describes one recommendation query. CurrentRole and Metrics are
// both optional; Count falls back to DefaultCount when non-positive.
type Request struct {
	CurrentRole string
	Metrics     *catalog.Metrics
	Count       int
}

// ScoredRole is a copy of a catalog role, augmented with its distance to the
// reference point on personalized paths.
type ScoredRole struct {
	catalog.Role
	Distance *float64 `json:"distance,omitempty"`
}

// Result is the outcome of a recommendation query.
type Result struct {
	Roles        []ScoredRole `json:"roles"`
	Personalized bool         `json:"personalized"`
	CurrentRole  string       `json:"current_role,omitempty"`
	EdgeCase     bool         `json:"edge_case,omitempty"`
}

// Engine answers recommendation queries against an immutable catalog and its
// precomputed overlap index. The random source is injected so tests can pin
// the sampling; it is guarded by a mutex because engines are shared across
// request handlers.
type Engine struct {
	catalog *catalog.Catalog
	index   *catalog.Index
	logger  *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an engine. A nil logger defaults to a no-op logger.
func New(cat *catalog.Catalog, idx *catalog.Index, rng *rand.Rand, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		catalog: cat,
		index:   idx,
		rng:     rng,
		logger:  logger,
	}
}

// Recommend resolves the query through an ordered ladder: no role given →
// random sample; exact catalog match → precomputed overlaps; metrics
// supplied → on-the-fly overlaps; otherwise → random sample. Fuzzy name
// resolution is deliberately not applied here; that is the HTTP boundary's
// job.
func (e *Engine) Recommend(req Request) Result {
	count := req.Count
	if count <= 0 {
		count = DefaultCount
	}

	current := strings.TrimSpace(req.CurrentRole)
	if current == "" {
		return e.randomSample(count)
	}

	if canonical, ok := e.catalog.ResolveExact(current); ok {
		return e.fromIndex(canonical, count)
	}

	if req.Metrics != nil {
		return e.fromMetrics(*req.Metrics, current, count)
	}

	e.logger.Debug("role not resolvable and no metrics supplied, falling back to random sample",
		zap.String("current_role", current),
	)
	return e.randomSample(count)
}

// randomSample returns count roles drawn uniformly without replacement.
func (e *Engine) randomSample(count int) Result {
	roles := e.catalog.Roles()
	n := min(count, len(roles))

	picked := make([]ScoredRole, 0, n)
	e.mu.Lock()
	order := e.rng.Perm(len(roles))
	e.mu.Unlock()

	for _, i := range order[:n] {
		picked = append(picked, ScoredRole{Role: roles[i]})
	}

	return Result{Roles: picked, Personalized: false}
}

func (e *Engine) fromIndex(canonical string, count int) Result {
	entry, ok := e.index.Entry(canonical)
	if !ok {
		// A catalog role always has an index entry unless the index was
		// built against a different catalog. Degrade like an empty pool.
		e.logger.Warn("no overlap entry for catalog role", zap.String("role", canonical))
		return Result{Roles: []ScoredRole{}, Personalized: false}
	}

	return Result{
		Roles:        e.mixPools(entry, count),
		Personalized: true,
		CurrentRole:  canonical,
	}
}

func (e *Engine) fromMetrics(metrics catalog.Metrics, original string, count int) Result {
	entry := e.catalog.Overlap(metrics, "", CloseMatchesCount, onTheFlyOddballPool, OddballCount)

	return Result{
		Roles:        e.mixPools(entry, count),
		Personalized: true,
		CurrentRole:  original,
		EdgeCase:     true,
	}
}

// mixPools samples from the close and oddball pools without replacement,
// shuffles the union and truncates it to count, resolving every neighbor
// back to a full role copy with its stored distance.
func (e *Engine) mixPools(entry catalog.OverlapEntry, count int) []ScoredRole {
	e.mu.Lock()
	selected := e.sampleNeighbors(entry.Close, CloseMatchesCount)
	selected = append(selected, e.sampleNeighbors(entry.Oddball, OddballCount)...)
	e.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})
	e.mu.Unlock()

	selected = selected[:min(count, len(selected))]

	roles := make([]ScoredRole, 0, len(selected))
	for _, neighbor := range selected {
		role, ok := e.catalog.Get(neighbor.Name)
		if !ok {
			continue
		}
		distance := neighbor.Distance
		roles = append(roles, ScoredRole{Role: role, Distance: &distance})
	}

	return roles
}

// sampleNeighbors draws n entries without replacement, or all of them when
// the pool is smaller. Callers must hold e.mu.
func (e *Engine) sampleNeighbors(pool []catalog.Neighbor, n int) []catalog.Neighbor {
	n = min(n, len(pool))
	sampled := make([]catalog.Neighbor, 0, n)
	for _, i := range e.rng.Perm(len(pool))[:n] {
		sampled = append(sampled, pool[i])
	}
	return sampled
}
