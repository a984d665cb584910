package cochange

import (
	"sort"
)

// pairStats keeps each pair's evidence as exact integer counts per commit
// size. The float weight is derived on demand in a fixed order, so graphs
// built in one pass and graphs merged from several passes are identical.
type pairStats struct {
	bySize  map[int]int
	commits int
}

func (p *pairStats) weight() float64 {
	sizes := make([]int, 0, len(p.bySize))
	for n := range p.bySize {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)

	var w float64
	for _, n := range sizes {
		w += float64(p.bySize[n]) / float64(n-1)
	}
	return w
}

// Weigher accumulates co-change evidence commit by commit.
type Weigher struct {
	pairs       map[[2]string]*pairStats
	fileChanges map[string]int
	skipped     map[string]int
	commits     int
}

// NewWeigher creates an empty Weigher.
func NewWeigher() *Weigher {
	return &Weigher{
		pairs:       make(map[[2]string]*pairStats),
		fileChanges: make(map[string]int),
		skipped:     make(map[string]int),
	}
}

// Add records one qualifying commit's changed files. Duplicates are ignored.
// A single-file commit counts as analysed and as a change to that file but
// contributes no pairs.
func (w *Weigher) Add(files []string) {
	uniq := dedupe(files)
	if len(uniq) == 0 {
		return
	}

	w.commits++
	for _, f := range uniq {
		w.fileChanges[f]++
	}

	n := len(uniq)
	if n < 2 {
		return
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			key := [2]string{uniq[i], uniq[j]}
			p, ok := w.pairs[key]
			if !ok {
				p = &pairStats{bySize: make(map[int]int)}
				w.pairs[key] = p
			}
			p.bySize[n]++
			p.commits++
		}
	}
}

// Skip records a commit rejected by the filter.
func (w *Weigher) Skip(reason string) {
	w.skipped[reason]++
}

// Merge adds all evidence from other into w.
func (w *Weigher) Merge(other *Weigher) {
	for key, op := range other.pairs {
		p, ok := w.pairs[key]
		if !ok {
			p = &pairStats{bySize: make(map[int]int, len(op.bySize))}
			w.pairs[key] = p
		}
		for n, c := range op.bySize {
			p.bySize[n] += c
		}
		p.commits += op.commits
	}
	for f, c := range other.fileChanges {
		w.fileChanges[f] += c
	}
	for r, c := range other.skipped {
		w.skipped[r] += c
	}
	w.commits += other.commits
}

// Commits returns the number of qualifying commits recorded.
func (w *Weigher) Commits() int {
	return w.commits
}

// Graph renders the accumulated evidence.
func (w *Weigher) Graph() Graph {
	g := Graph{
		Edges:                make([]Edge, 0, len(w.pairs)),
		TotalCommitsAnalyzed: w.commits,
		FileChanges:          make(map[string]int, len(w.fileChanges)),
		Signal:               SignalAvailable,
	}
	for key, p := range w.pairs {
		g.Edges = append(g.Edges, Edge{Files: key, Weight: p.weight(), CommitCount: p.commits})
	}
	sortEdges(g.Edges)

	for f, c := range w.fileChanges {
		g.FileChanges[f] = c
	}
	if len(w.skipped) > 0 {
		g.Skipped = make(map[string]int, len(w.skipped))
		for r, c := range w.skipped {
			g.Skipped[r] = c
		}
	}
	return g
}

func dedupe(files []string) []string {
	if len(files) == 0 {
		return nil
	}
	out := make([]string, len(files))
	copy(out, files)
	sort.Strings(out)

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
