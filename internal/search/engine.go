// Package search evaluates boolean tag queries and ranks the results.
//
// The engine is pure: it holds no state and touches no storage, so it can run
// concurrently across requests without synchronization. The service layer
// feeds it candidate records with their tag names in association order.
package search

import (
	"sort"

	"github.com/mediabin/service/internal/tag"
)

// Query is a boolean tag predicate plus a ranking hint.
//
// A record matches iff it carries ALL required tags and NONE of the forbidden
// ones. Optional tags never exclude a record — they only raise its rank.
type Query struct {
	required  map[string]struct{}
	optional  map[string]struct{}
	forbidden map[string]struct{}
}

// NewQuery normalizes and deduplicates the three tag sets. Duplicates within a
// set are idempotent; empty strings are dropped.
func NewQuery(required, optional, forbidden []string) Query {
	return Query{
		required:  toSet(required),
		optional:  toSet(optional),
		forbidden: toSet(forbidden),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = tag.Normalize(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Matches reports whether a record with the given tags satisfies the query.
// With all three sets empty every record matches.
func (q Query) Matches(tags []string) bool {
	have := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		have[t] = struct{}{}
	}

	for t := range q.required {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	for t := range q.forbidden {
		if _, ok := have[t]; ok {
			return false
		}
	}
	return true
}

// Score computes the relevance of a record from its tags in association order.
// Each tag present in the optional set contributes a positional weight of
// 1 - index/n, so tags attached earlier count for more. A record with no tags
// scores zero; the n == 0 guard keeps the division safe.
func (q Query) Score(tags []string) float64 {
	n := len(tags)
	if n == 0 || len(q.optional) == 0 {
		return 0
	}

	var score float64
	for i, t := range tags {
		if _, ok := q.optional[t]; ok {
			score += 1 - float64(i)/float64(n)
		}
	}
	return score
}

// Item is one search candidate: a record identifier and its tag names in
// association order.
type Item struct {
	ID   int64
	Tags []string
}

// Result is a matched item with its relevance score.
type Result struct {
	ID    int64
	Score float64
}

// Run filters and ranks the candidates. Results are ordered by descending
// score, ties broken by ascending ID — including the degenerate all-zero case
// when the optional set is empty, where the order reduces to ID order. Zero
// matches yield an empty (non-nil) slice, never an error.
func Run(q Query, items []Item) []Result {
	results := make([]Result, 0, len(items))
	for _, it := range items {
		if !q.Matches(it.Tags) {
			continue
		}
		results = append(results, Result{ID: it.ID, Score: q.Score(it.Tags)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}
