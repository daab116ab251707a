// Package tag manages the tag catalog: normalized, deduplicated tag names and
// their lazy creation on first use.
package tag

import "strings"

// Normalize maps a tag name to its canonical form: trimmed and lowercased.
// Two literal tags differing only by case never coexist as separate entities.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeAll normalizes every name, drops empties, and deduplicates while
// preserving first-occurrence order. The preserved order matters: a record's
// tag-association order feeds relevance ranking.
func NormalizeAll(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = Normalize(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
