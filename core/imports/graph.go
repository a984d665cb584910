// Package imports models static import relationships between files,
// packages or components, and scans Go source trees to produce them.
package imports

import (
	"sort"
)

// Edge is a directed import: From imports To.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a set of weighted directed import edges. At file or package level
// every edge has weight 1; Rollup sums weights of the edges it merges.
type Graph struct {
	weights map[Edge]int
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{weights: make(map[Edge]int)}
}

// Add records that from imports to. Self imports and repeats are ignored.
func (g *Graph) Add(from, to string) {
	if from == to || from == "" || to == "" {
		return
	}
	e := Edge{From: from, To: to}
	if _, ok := g.weights[e]; !ok {
		g.weights[e] = 1
	}
}

func (g *Graph) add(e Edge, w int) {
	g.weights[e] += w
}

// Has reports whether from imports to.
func (g *Graph) Has(from, to string) bool {
	if g == nil {
		return false
	}
	_, ok := g.weights[Edge{From: from, To: to}]
	return ok
}

// Weight is the structural weight between a and b in either direction.
func (g *Graph) Weight(a, b string) float64 {
	if g == nil {
		return 0
	}
	return float64(g.weights[Edge{From: a, To: b}] + g.weights[Edge{From: b, To: a}])
}

// Len returns the number of directed edges.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.weights)
}

// Edges returns the directed edges sorted by From then To.
func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	out := make([]Edge, 0, len(g.weights))
	for e := range g.weights {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Pairs returns every unordered pair joined by an edge, each in lexical
// order, sorted.
func (g *Graph) Pairs() [][2]string {
	if g == nil {
		return nil
	}
	set := make(map[[2]string]struct{}, len(g.weights))
	for e := range g.weights {
		if e.From < e.To {
			set[[2]string{e.From, e.To}] = struct{}{}
		} else {
			set[[2]string{e.To, e.From}] = struct{}{}
		}
	}
	out := make([][2]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// Rollup maps every endpoint to its groups and sums the weights of edges
// that land on the same group pair. An edge whose endpoints share any group
// is internal to it and dropped, as are endpoints with no group.
func (g *Graph) Rollup(groupsOf func(node string) []string) *Graph {
	out := NewGraph()
	if g == nil {
		return out
	}
	for e, w := range g.weights {
		froms, tos := groupsOf(e.From), groupsOf(e.To)
		if overlap(froms, tos) {
			continue
		}
		for _, from := range froms {
			for _, to := range tos {
				out.add(Edge{From: from, To: to}, w)
			}
		}
	}
	return out
}

func overlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
