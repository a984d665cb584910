package coupling

import (
	"sort"

	"github.com/adalundhe/seam/core/cochange"
	"github.com/adalundhe/seam/core/registry"
)

// StructuralSource supplies import weights between pair members.
type StructuralSource interface {
	Weight(a, b string) float64
	Pairs() [][2]string
}

// Options control matrix construction. A zero threshold is calibrated from
// the data.
type Options struct {
	Registry   *registry.Registry
	Structural float64
	Behavioral float64

	// ComponentLevel marks pair members as component names rather than
	// paths, so registry path matching does not apply to them.
	ComponentLevel bool
}

// Entry is one classified pair. Pair members are in lexical order.
type Entry struct {
	Pair             [2]string      `json:"pair"`
	StructuralWeight float64        `json:"structural_weight"`
	BehavioralWeight float64        `json:"behavioral_weight"`
	Classification   Classification `json:"classification"`
	SameComponent    bool           `json:"same_component,omitempty"`
}

// Matrix is the classified set of pairs with either signal present.
type Matrix struct {
	Entries             []Entry         `json:"entries"`
	StructuralThreshold float64         `json:"structural_threshold"`
	BehavioralThreshold float64         `json:"behavioral_threshold"`
	Signal              cochange.Signal `json:"signal,omitempty"`

	registry       *registry.Registry
	componentLevel bool
	index          map[[2]string]int
}

// Build classifies every pair that has an import edge or a co-change edge.
func Build(co cochange.Graph, imp StructuralSource, opts Options) *Matrix {
	var pairs [][2]string
	if imp != nil {
		pairs = imp.Pairs()
	}

	t := Thresholds{Structural: opts.Structural, Behavioral: opts.Behavioral}
	if t.Structural <= 0 {
		weights := make([]float64, len(pairs))
		for i, p := range pairs {
			weights[i] = imp.Weight(p[0], p[1])
		}
		t.Structural = Calibrate(weights)
	}
	if t.Behavioral <= 0 {
		weights := make([]float64, len(co.Edges))
		for i, e := range co.Edges {
			weights[i] = e.Weight
		}
		t.Behavioral = Calibrate(weights)
	}

	m := &Matrix{
		StructuralThreshold: t.Structural,
		BehavioralThreshold: t.Behavioral,
		Signal:              co.Signal,
		registry:            opts.Registry,
		componentLevel:      opts.ComponentLevel,
		index:               make(map[[2]string]int),
	}

	add := func(p [2]string) {
		if _, ok := m.index[p]; ok {
			return
		}
		var structural float64
		if imp != nil {
			structural = imp.Weight(p[0], p[1])
		}
		behavioral := co.Weight(p[0], p[1])
		same := !opts.ComponentLevel && opts.Registry.SameComponent(p[0], p[1])

		m.index[p] = len(m.Entries)
		m.Entries = append(m.Entries, Entry{
			Pair:             p,
			StructuralWeight: structural,
			BehavioralWeight: behavioral,
			Classification:   Classify(structural, behavioral, t, same),
			SameComponent:    same,
		})
	}
	for _, p := range pairs {
		add(p)
	}
	for _, e := range co.Edges {
		add(e.Files)
	}

	sort.Slice(m.Entries, func(i, j int) bool {
		return lessPair(m.Entries[i].Pair, m.Entries[j].Pair)
	})
	for i, e := range m.Entries {
		m.index[e.Pair] = i
	}
	if m.Entries == nil {
		m.Entries = []Entry{}
	}
	return m
}

// Thresholds returns the cutoffs the matrix was classified with.
func (m *Matrix) Thresholds() Thresholds {
	return Thresholds{Structural: m.StructuralThreshold, Behavioral: m.BehavioralThreshold}
}

// Entry returns the entry for a and b in either order.
func (m *Matrix) Entry(a, b string) (Entry, bool) {
	p := [2]string{a, b}
	if b < a {
		p = [2]string{b, a}
	}
	i, ok := m.index[p]
	if !ok {
		return Entry{}, false
	}
	return m.Entries[i], true
}

// FindHiddenCoupling returns hidden-coupling entries, strongest co-change
// first.
func (m *Matrix) FindHiddenCoupling() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if e.Classification == HiddenCoupling {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BehavioralWeight != out[j].BehavioralWeight {
			return out[i].BehavioralWeight > out[j].BehavioralWeight
		}
		return lessPair(out[i].Pair, out[j].Pair)
	})
	return out
}

// ComponentCouplingProfile returns the entries with a member in component
// name. A member matches when it is the component itself (component-level
// matrices) or a path the registry assigns to it.
func (m *Matrix) ComponentCouplingProfile(name string) ([]Entry, error) {
	var out []Entry
	for _, e := range m.Entries {
		if m.touches(e.Pair[0], name) || m.touches(e.Pair[1], name) {
			out = append(out, e)
		}
	}
	if len(out) == 0 && !m.registry.Has(name) {
		return nil, registry.ErrUnknownComponent
	}
	return out, nil
}

func (m *Matrix) touches(member, name string) bool {
	if m.componentLevel {
		return member == name
	}
	return member == name || m.registry.Owns(name, member)
}

// Counts returns the number of entries per classification.
func (m *Matrix) Counts() map[Classification]int {
	counts := make(map[Classification]int, len(Classifications))
	for _, c := range Classifications {
		counts[c] = 0
	}
	for _, e := range m.Entries {
		counts[e.Classification]++
	}
	return counts
}

// Recompute reclassifies every entry from its stored weights. The result is
// identical to the original classification for the same thresholds.
func (m *Matrix) Recompute(t Thresholds) []Entry {
	out := make([]Entry, len(m.Entries))
	for i, e := range m.Entries {
		e.Classification = Classify(e.StructuralWeight, e.BehavioralWeight, t, e.SameComponent)
		out[i] = e
	}
	return out
}

func lessPair(a, b [2]string) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}
