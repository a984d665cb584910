// Package cochange turns commit history into a weighted file co-change
// graph. A commit that changes n files adds 1/(n-1) to the weight of every
// pair it touches, so narrow commits count for more than broad ones.
package cochange

import (
	"sort"
)

// Signal describes whether the graph carries usable evidence. An empty graph
// with a signal other than SignalAvailable means the history could not be
// read, not that the files are unrelated.
type Signal string

const (
	SignalAvailable      Signal = "available"
	SignalNoRepository   Signal = "no_repository"
	SignalNoCommits      Signal = "no_commits"
	SignalShallowHistory Signal = "shallow_history"
)

// Edge is an unordered file pair. Files are stored in lexical order.
type Edge struct {
	Files       [2]string `json:"files"`
	Weight      float64   `json:"weight"`
	CommitCount int       `json:"commit_count"`
}

// Graph is the co-change graph over the analysed commit range.
type Graph struct {
	Edges                []Edge         `json:"edges"`
	TotalCommitsAnalyzed int            `json:"total_commits_analyzed"`
	FileChanges          map[string]int `json:"file_changes,omitempty"`
	Skipped              map[string]int `json:"skipped,omitempty"`
	Head                 string         `json:"head,omitempty"`
	Signal               Signal         `json:"signal"`
}

// Unavailable returns an empty graph tagged with why no evidence exists.
func Unavailable(signal Signal) Graph {
	return Graph{Edges: []Edge{}, Signal: signal}
}

// Available reports whether the graph was built from readable history.
func (g Graph) Available() bool {
	return g.Signal == SignalAvailable
}

// Edge returns the edge between a and b in either order.
func (g Graph) Edge(a, b string) (Edge, bool) {
	files := orderPair(a, b)
	i := sort.Search(len(g.Edges), func(i int) bool {
		return !lessFiles(g.Edges[i].Files, files)
	})
	if i < len(g.Edges) && g.Edges[i].Files == files {
		return g.Edges[i], true
	}
	return Edge{}, false
}

// Weight returns the co-change weight between a and b, 0 when absent.
func (g Graph) Weight(a, b string) float64 {
	e, _ := g.Edge(a, b)
	return e.Weight
}

// Files returns every file that appears in an edge, sorted.
func (g Graph) Files() []string {
	set := make(map[string]struct{})
	for _, e := range g.Edges {
		set[e.Files[0]] = struct{}{}
		set[e.Files[1]] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Rollup aggregates the graph to coarser units. groupsOf maps a file to the
// units it belongs to; files mapping to no unit are dropped. Edge weights and
// commit counts are summed. An edge whose files share any unit lies inside
// that unit and disappears; otherwise it counts once per unordered unit pair.
func (g Graph) Rollup(groupsOf func(file string) []string) Graph {
	type acc struct {
		weight  float64
		commits int
	}
	pairs := make(map[[2]string]*acc)

	for _, e := range g.Edges {
		groupsA, groupsB := groupsOf(e.Files[0]), groupsOf(e.Files[1])
		if shareGroup(groupsA, groupsB) {
			continue
		}
		for _, ga := range groupsA {
			for _, gb := range groupsB {
				key := orderPair(ga, gb)
				a, ok := pairs[key]
				if !ok {
					a = &acc{}
					pairs[key] = a
				}
				a.weight += e.Weight
				a.commits += e.CommitCount
			}
		}
	}

	out := Graph{
		Edges:                make([]Edge, 0, len(pairs)),
		TotalCommitsAnalyzed: g.TotalCommitsAnalyzed,
		Skipped:              g.Skipped,
		Head:                 g.Head,
		Signal:               g.Signal,
	}
	for key, a := range pairs {
		out.Edges = append(out.Edges, Edge{Files: key, Weight: a.weight, CommitCount: a.commits})
	}
	sortEdges(out.Edges)

	if len(g.FileChanges) > 0 {
		out.FileChanges = make(map[string]int)
		for file, n := range g.FileChanges {
			for _, group := range groupsOf(file) {
				out.FileChanges[group] += n
			}
		}
	}
	return out
}

// shareGroup reports whether a and b have a unit in common. When they do
// not, every (x, y) drawn from a and b is a distinct unordered pair.
func shareGroup(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func orderPair(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

func lessFiles(a, b [2]string) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return lessFiles(edges[i].Files, edges[j].Files)
	})
}
