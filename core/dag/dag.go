// Package dag provides the ordering-constraint graph shared by the scheduling
// pipeline: declaration-ordered nodes, deduplicated directed edges, Kahn
// layering, cycle reporting and longest-path search.
package dag

import (
	"fmt"
)

// =============================================================================
// Graph
// =============================================================================

// Graph is a directed graph whose nodes remember the order they were declared
// in. Every traversal that has to break a tie does so by declaration order, so
// results are deterministic for a given sequence of AddNode/AddEdge calls.
//
// Graph is not safe for concurrent mutation.
type Graph struct {
	ids   []string
	index map[string]int
	succ  [][]int
	pred  [][]int
	edges map[[2]int]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		index: make(map[string]int),
		edges: make(map[[2]int]struct{}),
	}
}

// =============================================================================
// Node Management
// =============================================================================

// AddNode declares a node. Declaration order is significant.
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrEmptyNodeID
	}
	if _, exists := g.index[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}

	g.index[id] = len(g.ids)
	g.ids = append(g.ids, id)
	g.succ = append(g.succ, nil)
	g.pred = append(g.pred, nil)
	return nil
}

// HasNode reports whether id has been declared.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns node IDs in declaration order.
func (g *Graph) Nodes() []string {
	result := make([]string, len(g.ids))
	copy(result, g.ids)
	return result
}

// NodeCount returns the number of nodes
func (g *Graph) NodeCount() int {
	return len(g.ids)
}

// Position returns the declaration index of id, or -1.
func (g *Graph) Position(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// =============================================================================
// Edge Management
// =============================================================================

// AddEdge records that from must complete before to. Repeated edges are
// collapsed.
func (g *Graph) AddEdge(from, to string) error {
	fi, ok := g.index[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	ti, ok := g.index[to]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if fi == ti {
		return fmt.Errorf("%w: %s", ErrSelfLoop, from)
	}

	key := [2]int{fi, ti}
	if _, exists := g.edges[key]; exists {
		return nil
	}
	g.edges[key] = struct{}{}
	g.succ[fi] = insertSorted(g.succ[fi], ti)
	g.pred[ti] = insertSorted(g.pred[ti], fi)
	return nil
}

// HasEdge reports whether the edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	fi, ok := g.index[from]
	if !ok {
		return false
	}
	ti, ok := g.index[to]
	if !ok {
		return false
	}
	_, exists := g.edges[[2]int{fi, ti}]
	return exists
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Successors returns the direct successors of id in declaration order.
func (g *Graph) Successors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.succ[i])
}

// Predecessors returns the direct predecessors of id in declaration order.
func (g *Graph) Predecessors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.names(g.pred[i])
}

func (g *Graph) names(idx []int) []string {
	result := make([]string, len(idx))
	for i, n := range idx {
		result[i] = g.ids[n]
	}
	return result
}

func insertSorted(list []int, v int) []int {
	pos := len(list)
	for i, existing := range list {
		if existing > v {
			pos = i
			break
		}
	}
	list = append(list, 0)
	copy(list[pos+1:], list[pos:])
	list[pos] = v
	return list
}
