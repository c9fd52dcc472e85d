package catalog

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultFuzzyCutoff is the minimum similarity ratio for a fuzzy name match.
const DefaultFuzzyCutoff = 0.85

// Normalize lower-cases and trims a role name. It is used everywhere names
// are compared, so exact lookups are case- and whitespace-insensitive.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ResolveExact maps the input to a canonical catalog name via the
// normalized-name table.
func (c *Catalog) ResolveExact(raw string) (string, bool) {
	canonical, ok := c.normalized[Normalize(raw)]
	return canonical, ok
}

// ResolveFuzzy returns the canonical name of the best fuzzy match whose
// similarity ratio clears the cutoff. The ratio is the classic sequence
// matcher ratio over characters, so one-character typos against typical role
// names score well above 0.85 while unrelated titles fall far below it.
// Ties keep the earliest catalog entry.
func (c *Catalog) ResolveFuzzy(raw string, cutoff float64) (string, bool) {
	if cutoff <= 0 {
		cutoff = DefaultFuzzyCutoff
	}

	target := splitChars(Normalize(raw))
	if len(target) == 0 {
		return "", false
	}

	var (
		best      string
		bestRatio float64
		found     bool
	)

	for _, candidate := range c.ordered {
		m := difflib.NewMatcher(splitChars(candidate), target)
		// Cheap upper bounds first, full ratio only for plausible candidates.
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		ratio := m.Ratio()
		if ratio >= cutoff && ratio > bestRatio {
			best = c.normalized[candidate]
			bestRatio = ratio
			found = true
		}
	}

	return best, found
}

func splitChars(s string) []string {
	chars := make([]string, 0, len(s))
	for _, r := range s {
		chars = append(chars, string(r))
	}
	return chars
}
