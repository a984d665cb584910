package dag

import (
	"sort"
)

// =============================================================================
// Layering
// =============================================================================

// Layers groups nodes into execution layers with Kahn's algorithm. A node is
// placed in the earliest layer after all of its predecessors, so no node waits
// longer than its dependencies require. Nodes inside a layer are in
// declaration order.
//
// Returns a *CycleError when no topological order exists; no partial layering
// is returned in that case.
func (g *Graph) Layers() ([][]string, error) {
	levels, err := g.levels()
	if err != nil {
		return nil, err
	}

	layers := make([][]string, len(levels))
	for i, level := range levels {
		layers[i] = g.names(level)
	}
	return layers, nil
}

// TopologicalOrder returns a topological order that visits layer by layer.
func (g *Graph) TopologicalOrder() ([]string, error) {
	levels, err := g.levels()
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(g.ids))
	for _, level := range levels {
		order = append(order, g.names(level)...)
	}
	return order, nil
}

// Validate returns nil when the graph is acyclic.
func (g *Graph) Validate() error {
	_, err := g.levels()
	return err
}

func (g *Graph) levels() ([][]int, error) {
	inDegree := g.buildInDegreeMap()
	frontier := g.collectZeroInDegree(inDegree)

	var levels [][]int
	visited := 0
	for len(frontier) > 0 {
		levels = append(levels, frontier)
		visited += len(frontier)
		frontier = g.releaseSuccessors(frontier, inDegree)
	}

	if visited != len(g.ids) {
		return nil, &CycleError{Nodes: g.names(g.cycleMembers(inDegree))}
	}
	return levels, nil
}

func (g *Graph) buildInDegreeMap() []int {
	inDegree := make([]int, len(g.ids))
	for i := range g.ids {
		inDegree[i] = len(g.pred[i])
	}
	return inDegree
}

func (g *Graph) collectZeroInDegree(inDegree []int) []int {
	frontier := make([]int, 0)
	for i, degree := range inDegree {
		if degree == 0 {
			frontier = append(frontier, i)
		}
	}
	return frontier
}

func (g *Graph) releaseSuccessors(frontier []int, inDegree []int) []int {
	next := make([]int, 0)
	for _, n := range frontier {
		for _, s := range g.succ[n] {
			inDegree[s]--
			if inDegree[s] == 0 {
				next = append(next, s)
			}
		}
	}
	sort.Ints(next)
	return next
}

// cycleMembers narrows the nodes Kahn could not release down to those that
// both descend from and lead back into a cycle, by repeatedly trimming nodes
// with no remaining successors.
func (g *Graph) cycleMembers(inDegree []int) []int {
	remaining := make(map[int]bool)
	for i, degree := range inDegree {
		if degree > 0 {
			remaining[i] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for n := range remaining {
			if !g.hasRemainingSuccessor(n, remaining) {
				delete(remaining, n)
				changed = true
			}
		}
	}

	members := make([]int, 0, len(remaining))
	for n := range remaining {
		members = append(members, n)
	}
	sort.Ints(members)
	return members
}

func (g *Graph) hasRemainingSuccessor(n int, remaining map[int]bool) bool {
	for _, s := range g.succ[n] {
		if remaining[s] {
			return true
		}
	}
	return false
}
