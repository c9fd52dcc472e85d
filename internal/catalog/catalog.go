// Package catalog holds the immutable role catalog: the set of technology
// roles with their 4-dimensional work-style metrics, the normalized-name
// lookup table and the precomputed overlap index. Everything here is built
// once at startup and is read-only afterwards, so it is safe to share across
// concurrent request handlers without locking.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrDataSource marks a missing or unreadable/malformed catalog source.
// Callers are expected to degrade to an empty catalog with a logged warning
// instead of failing startup.
var ErrDataSource = errors.New("catalog data source error")

const (
	metricMin     = 1
	metricMax     = 10
	metricDefault = 5
)

// Metrics is the 4-dimensional work-style profile of a role. Each dimension
// is scored 1-10.
type Metrics struct {
	Technical int `json:"technical"`
	Creative  int `json:"creative"`
	Business  int `json:"business"`
	Customer  int `json:"customer"`
}

// Role is a single catalog entry. Name is the canonical display-cased
// spelling and is unique after normalization.
type Role struct {
	Name string `json:"name"`
	Metrics
}

// Catalog is the immutable in-memory role table.
type Catalog struct {
	roles []Role
	// byName maps the canonical name to an index into roles.
	byName map[string]int
	// normalized maps the normalized (lower-cased, trimmed) name to the
	// canonical name. Exactly one entry per role.
	normalized map[string]string
	// ordered holds the normalized names in catalog order. Fuzzy resolution
	// iterates this so tie-breaking stays deterministic.
	ordered []string
}

type catalogFile struct {
	Roles []roleRecord `json:"roles"`
}

// roleRecord is the wire shape of a role. Metric pointers distinguish an
// absent field (defaults to 5, as the data files omit neutral scores) from
// an explicit out-of-range value (malformed source).
type roleRecord struct {
	Name      string `json:"name"`
	Technical *int   `json:"technical"`
	Creative  *int   `json:"creative"`
	Business  *int   `json:"business"`
	Customer  *int   `json:"customer"`
}

// Load reads a catalog from a JSON document with a top-level "roles" array.
// Any failure is reported as an ErrDataSource so the caller can fall back to
// an empty catalog.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", ErrDataSource, path, err)
	}

	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %v", ErrDataSource, path, err)
	}

	roles := make([]Role, 0, len(file.Roles))
	for _, rec := range file.Roles {
		role, err := rec.toRole()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataSource, err)
		}
		roles = append(roles, role)
	}

	cat, err := New(roles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataSource, err)
	}

	return cat, nil
}

// New builds a catalog from the provided roles, enforcing uniqueness of
// normalized names.
func New(roles []Role) (*Catalog, error) {
	cat := &Catalog{
		roles:      make([]Role, len(roles)),
		byName:     make(map[string]int, len(roles)),
		normalized: make(map[string]string, len(roles)),
		ordered:    make([]string, 0, len(roles)),
	}
	copy(cat.roles, roles)

	for i, role := range cat.roles {
		norm := Normalize(role.Name)
		if norm == "" {
			return nil, fmt.Errorf("role %d has an empty name", i)
		}
		if existing, ok := cat.normalized[norm]; ok {
			return nil, fmt.Errorf("duplicate role name %q (conflicts with %q)", role.Name, existing)
		}
		cat.byName[role.Name] = i
		cat.normalized[norm] = role.Name
		cat.ordered = append(cat.ordered, norm)
	}

	return cat, nil
}

// Empty returns a catalog with no roles, used when the data source is
// missing and startup degrades gracefully.
func Empty() *Catalog {
	cat, _ := New(nil)
	return cat
}

func (r roleRecord) toRole() (Role, error) {
	if r.Name == "" {
		return Role{}, errors.New("role without a name")
	}

	role := Role{Name: r.Name}
	fields := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"technical", r.Technical, &role.Technical},
		{"creative", r.Creative, &role.Creative},
		{"business", r.Business, &role.Business},
		{"customer", r.Customer, &role.Customer},
	}

	for _, f := range fields {
		if f.src == nil {
			*f.dst = metricDefault
			continue
		}
		if *f.src < metricMin || *f.src > metricMax {
			return Role{}, fmt.Errorf("role %q: %s score %d out of range [%d,%d]",
				r.Name, f.name, *f.src, metricMin, metricMax)
		}
		*f.dst = *f.src
	}

	return role, nil
}

// Roles returns the catalog entries in load order. The slice is shared and
// must be treated as read-only.
func (c *Catalog) Roles() []Role {
	return c.roles
}

// Len returns the number of roles in the catalog.
func (c *Catalog) Len() int {
	return len(c.roles)
}

// NormalizedLen returns the size of the normalized-name table, exposed for
// startup logging and health reporting.
func (c *Catalog) NormalizedLen() int {
	return len(c.normalized)
}

// Get returns a copy of the role with the given canonical name.
func (c *Catalog) Get(name string) (Role, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Role{}, false
	}
	return c.roles[i], true
}
