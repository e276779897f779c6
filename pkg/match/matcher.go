// Package match resolves changed-file paths to coverage dataset keys when the
// two sides disagree on separators or relative-path prefixes.
package match

import "strings"

// Step identifies which rule resolved a path
type Step int

const (
	None Step = iota
	Exact
	Normalized
	Suffix
)

func (s Step) String() string {
	switch s {
	case Exact:
		return "exact"
	case Normalized:
		return "normalized"
	case Suffix:
		return "suffix"
	default:
		return "none"
	}
}

type entry struct {
	key        string
	normalized string
}

// Matcher holds the lookup tables for one pipeline run. Build a new one per
// run; it is not shared between runs.
type Matcher struct {
	exact      map[string]bool
	normalized map[string]string // normalized key -> first original key
	entries    []entry           // dataset order, for the suffix fallback
}

// New indexes keys. The order of keys is the tie-break order for every rule.
func New(keys []string) *Matcher {
	m := &Matcher{
		exact:      make(map[string]bool, len(keys)),
		normalized: make(map[string]string, len(keys)),
		entries:    make([]entry, 0, len(keys)),
	}
	for _, k := range keys {
		m.exact[k] = true
		n := Normalize(k)
		if _, exists := m.normalized[n]; !exists {
			m.normalized[n] = k
		}
		m.entries = append(m.entries, entry{key: k, normalized: n})
	}
	return m
}

// Normalize canonicalizes separators to '/' and strips leading "./"
// segments.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// Match returns the dataset key that best represents path. The first rule
// to succeed wins: exact key, normalized equality, then suffix containment
// in either direction. Within a rule the first key in dataset order wins.
//
// The suffix rule does not check path boundaries, so "a.ts" matches
// "src/data.ts". Callers rely on this leniency for absolute coverage paths.
func (m *Matcher) Match(path string) (string, Step) {
	if path == "" {
		return "", None
	}
	if m.exact[path] {
		return path, Exact
	}

	n := Normalize(path)
	if n == "" {
		return "", None
	}
	if key, ok := m.normalized[n]; ok {
		return key, Normalized
	}

	for _, e := range m.entries {
		if e.normalized == "" {
			continue
		}
		if strings.HasSuffix(e.normalized, n) || strings.HasSuffix(n, e.normalized) {
			return e.key, Suffix
		}
	}

	return "", None
}
