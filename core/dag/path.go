package dag

// =============================================================================
// Longest Path
// =============================================================================

// LongestPath returns the longest chain of nodes, measured in nodes, using
// dynamic programming over a topological order. Ties prefer the chain that
// ends, and then continues backwards, at the earliest declared node.
// An empty graph yields an empty path.
func (g *Graph) LongestPath() ([]string, error) {
	levels, err := g.levels()
	if err != nil {
		return nil, err
	}
	if len(g.ids) == 0 {
		return []string{}, nil
	}

	dist := make([]int, len(g.ids))
	parent := make([]int, len(g.ids))
	for _, level := range levels {
		for _, n := range level {
			dist[n], parent[n] = g.bestPredecessor(n, dist)
		}
	}

	end := 0
	for n := range g.ids {
		if dist[n] > dist[end] {
			end = n
		}
	}

	return g.tracePath(end, parent, dist[end]), nil
}

func (g *Graph) bestPredecessor(n int, dist []int) (int, int) {
	best, parent := 1, -1
	for _, p := range g.pred[n] {
		if dist[p]+1 > best {
			best, parent = dist[p]+1, p
		}
	}
	return best, parent
}

func (g *Graph) tracePath(end int, parent []int, length int) []string {
	path := make([]string, length)
	for n, i := end, length-1; n >= 0; n, i = parent[n], i-1 {
		path[i] = g.ids[n]
	}
	return path
}

// =============================================================================
// Reachability
// =============================================================================

// Descendants returns every node reachable from id, excluding id itself, in
// declaration order. Traversal is an iterative breadth-first search with a
// visited set, so depth and cycles are bounded.
func (g *Graph) Descendants(id string) []string {
	start, ok := g.index[id]
	if !ok {
		return nil
	}

	visited := make([]bool, len(g.ids))
	visited[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, s := range g.succ[n] {
			if !visited[s] {
				visited[s] = true
				queue = append(queue, s)
			}
		}
	}

	result := make([]string, 0)
	for n, seen := range visited {
		if seen && n != start {
			result = append(result, g.ids[n])
		}
	}
	return result
}
