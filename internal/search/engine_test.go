package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(results []Result) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestRequiredTagsFilter(t *testing.T) {
	items := []Item{
		{ID: 1, Tags: []string{"cat", "pet", "indoor"}},
		{ID: 2, Tags: []string{"dog", "pet"}},
		{ID: 3, Tags: []string{"cat"}},
	}

	results := Run(NewQuery([]string{"cat", "pet"}, nil, nil), items)
	assert.Equal(t, []int64{1}, ids(results))

	// A required tag never admits a record lacking it.
	for _, res := range Run(NewQuery([]string{"pet"}, nil, nil), items) {
		assert.NotEqual(t, int64(3), res.ID)
	}
}

func TestForbiddenTagsExclude(t *testing.T) {
	items := []Item{
		{ID: 1, Tags: []string{"cat", "outdoor"}},
		{ID: 2, Tags: []string{"cat", "indoor"}},
	}

	results := Run(NewQuery([]string{"cat"}, nil, []string{"outdoor"}), items)
	assert.Equal(t, []int64{2}, ids(results))
}

func TestEmptyQueryMatchesEverything(t *testing.T) {
	items := []Item{
		{ID: 3, Tags: []string{"a"}},
		{ID: 1, Tags: nil},
		{ID: 2, Tags: []string{"b", "c"}},
	}

	results := Run(NewQuery(nil, nil, nil), items)
	// All scores are zero, so order degrades to ascending id.
	assert.Equal(t, []int64{1, 2, 3}, ids(results))
}

func TestNoMatchesReturnsEmptyNotError(t *testing.T) {
	items := []Item{{ID: 1, Tags: []string{"cat"}}}

	results := Run(NewQuery([]string{"unicorn"}, nil, nil), items)
	require.NotNil(t, results)
	assert.Empty(t, results)
}

func TestOptionalTagsNeverExclude(t *testing.T) {
	items := []Item{
		{ID: 1, Tags: []string{"cat"}},
		{ID: 2, Tags: []string{"dog"}},
	}

	results := Run(NewQuery(nil, []string{"cat"}, nil), items)
	assert.Len(t, results, 2)
	// But they do rank: the cat record first.
	assert.Equal(t, []int64{1, 2}, ids(results))
}

func TestPositionalWeighting(t *testing.T) {
	q := NewQuery(nil, []string{"indoor"}, nil)

	// First of three tags: weight 1 - 0/3 = 1.
	assert.InDelta(t, 1.0, q.Score([]string{"indoor", "cat", "pet"}), 1e-9)
	// Last of three tags: weight 1 - 2/3.
	assert.InDelta(t, 1.0/3.0, q.Score([]string{"cat", "pet", "indoor"}), 1e-9)
	// Absent: zero.
	assert.Zero(t, q.Score([]string{"cat", "pet"}))
	// No tags at all: zero, no division fault.
	assert.Zero(t, q.Score(nil))
}

func TestOptionalDuplicatesScoreOnce(t *testing.T) {
	q := NewQuery(nil, []string{"cat", "cat", "CAT"}, nil)
	assert.InDelta(t, 1.0, q.Score([]string{"cat"}), 1e-9)
}

func TestCaseNormalization(t *testing.T) {
	items := []Item{{ID: 1, Tags: []string{"cat"}}}

	results := Run(NewQuery([]string{"CaT"}, nil, nil), items)
	assert.Equal(t, []int64{1}, ids(results))
}

func TestIndoorRankingScenario(t *testing.T) {
	// Five records, three tagged indoor at varying positions.
	items := []Item{
		{ID: 1, Tags: []string{"cat", "pet", "indoor"}},
		{ID: 2, Tags: []string{"dog", "outdoor"}},
		{ID: 3, Tags: []string{"indoor", "plant"}},
		{ID: 4, Tags: []string{"landscape"}},
		{ID: 5, Tags: []string{"sofa", "indoor"}},
	}

	results := Run(NewQuery(nil, []string{"indoor"}, nil), items)
	require.Len(t, results, 5)

	// The three indoor records rank first; the two zero-score records trail
	// in ascending id order.
	// Scores: id 3 → 1.0, id 5 → 0.5, id 1 → 1/3, ids 2 and 4 → 0.
	assert.Equal(t, []int64{3, 5, 1, 2, 4}, ids(results))
}

func TestTieBreakAscendingID(t *testing.T) {
	items := []Item{
		{ID: 9, Tags: []string{"indoor"}},
		{ID: 2, Tags: []string{"indoor"}},
		{ID: 5, Tags: []string{"indoor"}},
	}

	// All three score 1.0; order must be ascending id, not insertion order.
	results := Run(NewQuery(nil, []string{"indoor"}, nil), items)
	assert.Equal(t, []int64{2, 5, 9}, ids(results))
}

func TestRequiredAndForbiddenSameTag(t *testing.T) {
	items := []Item{
		{ID: 1, Tags: []string{"cat"}},
		{ID: 2, Tags: []string{"dog"}},
	}

	// Logically unsatisfiable, so simply empty — not an error.
	results := Run(NewQuery([]string{"cat"}, nil, []string{"cat"}), items)
	assert.Empty(t, results)
}
