package cochange_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/seam/core/cochange"
)

func TestWeigher_GraduatedWeights(t *testing.T) {
	w := cochange.NewWeigher()
	w.Add([]string{"a", "b"})
	w.Add([]string{"a", "b", "c"})
	w.Add([]string{"b", "a"})

	g := w.Graph()
	assert.Equal(t, 3, g.TotalCommitsAnalyzed)
	require.Len(t, g.Edges, 3)

	ab, ok := g.Edge("b", "a")
	require.True(t, ok)
	assert.Equal(t, [2]string{"a", "b"}, ab.Files)
	assert.InDelta(t, 2.5, ab.Weight, 1e-12)
	assert.Equal(t, 3, ab.CommitCount)

	assert.InDelta(t, 0.5, g.Weight("a", "c"), 1e-12)
	assert.InDelta(t, 0.5, g.Weight("c", "b"), 1e-12)
	assert.Zero(t, g.Weight("a", "z"))

	assert.Equal(t, map[string]int{"a": 3, "b": 3, "c": 1}, g.FileChanges)
}

func TestWeigher_SingleFileAndDuplicates(t *testing.T) {
	w := cochange.NewWeigher()
	w.Add([]string{"solo"})
	w.Add([]string{"x", "x", "y"})
	w.Add(nil)

	g := w.Graph()
	assert.Equal(t, 2, g.TotalCommitsAnalyzed)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, 1.0, g.Edges[0].Weight)
	assert.Equal(t, 1, g.FileChanges["solo"])
	assert.Equal(t, 1, g.FileChanges["x"])
}

func TestWeigher_MergeMatchesSinglePass(t *testing.T) {
	commits := [][]string{
		{"a", "b", "c", "d"},
		{"a", "b"},
		{"b", "c", "d"},
		{"a", "c", "e", "f", "g", "h", "i"},
		{"a", "b", "c"},
		{"c", "d"},
	}

	single := cochange.NewWeigher()
	for _, c := range commits {
		single.Add(c)
	}

	for split := 0; split <= len(commits); split++ {
		older, newer := cochange.NewWeigher(), cochange.NewWeigher()
		for _, c := range commits[:split] {
			older.Add(c)
		}
		for i := len(commits) - 1; i >= split; i-- {
			newer.Add(commits[i])
		}
		older.Merge(newer)

		want, err := json.Marshal(single.Graph())
		require.NoError(t, err)
		got, err := json.Marshal(older.Graph())
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), "split at %d", split)
	}
}

func TestGraph_JSONShape(t *testing.T) {
	w := cochange.NewWeigher()
	w.Add([]string{"a", "b"})
	g := w.Graph()
	g.Head = "abc"

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"edges": [{"files": ["a", "b"], "weight": 1, "commit_count": 1}],
		"total_commits_analyzed": 1,
		"file_changes": {"a": 1, "b": 1},
		"head": "abc",
		"signal": "available"
	}`, string(data))

	data, err = json.Marshal(cochange.Unavailable(cochange.SignalNoCommits))
	require.NoError(t, err)
	assert.JSONEq(t, `{"edges": [], "total_commits_analyzed": 0, "signal": "no_commits"}`, string(data))
}

func TestGraph_Rollup(t *testing.T) {
	w := cochange.NewWeigher()
	w.Add([]string{"api/a.go", "db/x.go"})
	w.Add([]string{"api/a.go", "api/b.go", "db/x.go"})
	w.Add([]string{"api/b.go", "docs/readme.md"})
	g := w.Graph()

	groups := map[string][]string{
		"api/a.go": {"api"},
		"api/b.go": {"api"},
		"db/x.go":  {"db"},
	}
	rolled := g.Rollup(func(f string) []string { return groups[f] })

	require.Len(t, rolled.Edges, 1)
	edge := rolled.Edges[0]
	assert.Equal(t, [2]string{"api", "db"}, edge.Files)
	// a-x: 1 + 0.5, b-x: 0.5
	assert.InDelta(t, 2.0, edge.Weight, 1e-12)
	assert.Equal(t, 3, edge.CommitCount)
	assert.Equal(t, 4, rolled.FileChanges["api"])
	assert.Equal(t, 2, rolled.FileChanges["db"])
	assert.Equal(t, g.TotalCommitsAnalyzed, rolled.TotalCommitsAnalyzed)
}

func TestGraph_RollupOverlappingGroups(t *testing.T) {
	w := cochange.NewWeigher()
	w.Add([]string{"api/x.go", "api/y.go"})
	w.Add([]string{"api/x.go", "db/z.go"})
	g := w.Graph()

	groups := map[string][]string{
		"api/x.go": {"api", "shared"},
		"api/y.go": {"api", "shared"},
		"db/z.go":  {"db"},
	}
	rolled := g.Rollup(func(f string) []string { return groups[f] })

	_, ok := rolled.Edge("api", "shared")
	assert.False(t, ok, "files sharing every group form no cross-group edge")

	require.Len(t, rolled.Edges, 2)
	for _, e := range rolled.Edges {
		assert.InDelta(t, 1.0, e.Weight, 1e-12, "edge %v", e.Files)
		assert.Equal(t, 1, e.CommitCount, "edge %v", e.Files)
	}
	assert.Equal(t, [2]string{"api", "db"}, rolled.Edges[0].Files)
	assert.Equal(t, [2]string{"db", "shared"}, rolled.Edges[1].Files)
}

func TestGraph_Files(t *testing.T) {
	w := cochange.NewWeigher()
	w.Add([]string{"c", "a"})
	w.Add([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b", "c"}, w.Graph().Files())
}
