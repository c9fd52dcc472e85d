package catalog

import (
	"math"
	"sort"
)

const (
	// ClosePoolSize is the number of nearest neighbors precomputed per role.
	ClosePoolSize = 15
	// OddballPoolSize is the number of far-tail neighbors precomputed per role.
	OddballPoolSize = 5
	// oddballPoolFactor widens the far tail before it is cut back down, so
	// the oddball pool is drawn from the boundary of the tail rather than
	// the single farthest entries.
	oddballPoolFactor = 1.6
)

// Neighbor is a catalog role paired with its metric-space distance to a
// reference role or vector.
type Neighbor struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// OverlapEntry holds the ranked neighbor pools for one reference point.
type OverlapEntry struct {
	Close   []Neighbor `json:"close"`
	Oddball []Neighbor `json:"oddball"`
}

// Distance is the Euclidean distance between two metric vectors in the
// 4-dimensional work-style space.
func Distance(a, b Metrics) float64 {
	dt := float64(a.Technical - b.Technical)
	dc := float64(a.Creative - b.Creative)
	db := float64(a.Business - b.Business)
	du := float64(a.Customer - b.Customer)
	return math.Sqrt(dt*dt + dc*dc + db*db + du*du)
}

// Overlap ranks every catalog role (minus exclude, when non-empty) by
// distance to target and slices the pools: close takes the closeN nearest,
// oddball takes the last oddballPool entries of the ascending ranking and
// keeps the first oddballN of that tail group. The sort is stable so ties
// keep catalog order.
func (c *Catalog) Overlap(target Metrics, exclude string, closeN, oddballPool, oddballN int) OverlapEntry {
	neighbors := make([]Neighbor, 0, len(c.roles))
	for _, role := range c.roles {
		if exclude != "" && role.Name == exclude {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			Name:     role.Name,
			Distance: Distance(target, role.Metrics),
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	entry := OverlapEntry{
		Close: append([]Neighbor(nil), neighbors[:min(closeN, len(neighbors))]...),
	}

	tail := neighbors[len(neighbors)-min(oddballPool, len(neighbors)):]
	entry.Oddball = append([]Neighbor(nil), tail[:min(oddballN, len(tail))]...)

	return entry
}

// Index holds the precomputed overlap entries for every catalog role. It
// trades an O(n²) one-time computation at load for O(1) lookups per request.
type Index struct {
	entries map[string]OverlapEntry
}

// BuildIndex computes the overlap entry of every role against the rest of
// the catalog. It must be rebuilt in full if the catalog ever changes.
func BuildIndex(c *Catalog) *Index {
	idx := &Index{entries: make(map[string]OverlapEntry, c.Len())}

	oddballPool := int(OddballPoolSize * oddballPoolFactor)
	for _, role := range c.roles {
		idx.entries[role.Name] = c.Overlap(role.Metrics, role.Name, ClosePoolSize, oddballPool, OddballPoolSize)
	}

	return idx
}

// Entry returns the precomputed overlap pools for a canonical role name.
func (i *Index) Entry(canonical string) (OverlapEntry, bool) {
	entry, ok := i.entries[canonical]
	return entry, ok
}

// Len returns the number of indexed roles.
func (i *Index) Len() int {
	return len(i.entries)
}
