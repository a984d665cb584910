// Package registry maps declared component names to the repository paths
// they own. A Registry is built once, validated, and never modified.
package registry

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrInvalidRegistry  = errors.New("invalid component registry")
	ErrUnknownComponent = errors.New("unknown component")
)

// =============================================================================
// Types
// =============================================================================

// Component declares a named set of paths. A path is a directory (every file
// beneath it belongs to the component), a single file, or a glob pattern
// using '/' as separator and '**' to cross directories.
type Component struct {
	Name  string
	Paths []string
}

type matcher struct {
	prefix string
	glob   glob.Glob
}

func (m matcher) match(file string) bool {
	if m.glob != nil {
		return m.glob.Match(file)
	}
	return file == m.prefix || strings.HasPrefix(file, m.prefix+"/")
}

type entry struct {
	name     string
	paths    []string
	matchers []matcher
}

// Registry is an immutable component lookup table. The zero value and a nil
// *Registry both behave as a registry with no components.
type Registry struct {
	entries []entry
	byName  map[string]int
}

// =============================================================================
// Construction
// =============================================================================

// New validates components and builds a Registry. Names must be unique and
// non-empty; every component needs at least one path.
func New(components []Component) (*Registry, error) {
	r := &Registry{byName: make(map[string]int, len(components))}
	var problems []string

	for i, c := range components {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("component %d: empty name", i))
			continue
		}
		if _, dup := r.byName[name]; dup {
			problems = append(problems, fmt.Sprintf("component %q: declared twice", name))
			continue
		}
		if len(c.Paths) == 0 {
			problems = append(problems, fmt.Sprintf("component %q: no paths", name))
			continue
		}

		e := entry{name: name}
		for _, p := range c.Paths {
			m, clean, err := compile(p)
			if err != nil {
				problems = append(problems, fmt.Sprintf("component %q: %v", name, err))
				continue
			}
			e.paths = append(e.paths, clean)
			e.matchers = append(e.matchers, m)
		}
		if len(e.matchers) == 0 {
			continue
		}

		r.byName[name] = len(r.entries)
		r.entries = append(r.entries, e)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRegistry, strings.Join(problems, "; "))
	}

	sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].name < r.entries[j].name })
	for i, e := range r.entries {
		r.byName[e.name] = i
	}
	return r, nil
}

func compile(p string) (matcher, string, error) {
	raw := strings.TrimSpace(p)
	if raw == "" {
		return matcher{}, "", errors.New("empty path")
	}
	if strings.HasPrefix(raw, "/") {
		return matcher{}, "", fmt.Errorf("path %q must be relative to the repository root", p)
	}

	if strings.ContainsAny(raw, "*?[{") {
		g, err := glob.Compile(strings.TrimPrefix(raw, "./"), '/')
		if err != nil {
			return matcher{}, "", fmt.Errorf("pattern %q: %v", p, err)
		}
		return matcher{glob: g}, raw, nil
	}

	clean := path.Clean(raw)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return matcher{}, "", fmt.Errorf("path %q escapes the repository", p)
	}
	if clean == "." {
		clean = ""
	}
	if clean == "" {
		return matcher{glob: glob.MustCompile("**")}, ".", nil
	}
	return matcher{prefix: clean}, clean, nil
}

// =============================================================================
// Lookups
// =============================================================================

// Len returns the number of components.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Names returns component names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Has reports whether name is declared.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byName[name]
	return ok
}

// Paths returns the declared paths of a component.
func (r *Registry) Paths(name string) ([]string, error) {
	if !r.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	paths := r.entries[r.byName[name]].paths
	out := make([]string, len(paths))
	copy(out, paths)
	return out, nil
}

// ComponentsOf returns every component owning file, sorted. A file may
// belong to several components when their paths overlap.
func (r *Registry) ComponentsOf(file string) []string {
	if r == nil {
		return nil
	}
	file = normalize(file)

	var out []string
	for _, e := range r.entries {
		for _, m := range e.matchers {
			if m.match(file) {
				out = append(out, e.name)
				break
			}
		}
	}
	return out
}

// SameComponent reports whether a and b share at least one component.
func (r *Registry) SameComponent(a, b string) bool {
	ca := r.ComponentsOf(a)
	if len(ca) == 0 {
		return false
	}
	for _, nb := range r.ComponentsOf(b) {
		for _, na := range ca {
			if na == nb {
				return true
			}
		}
	}
	return false
}

// Owns reports whether file belongs to the named component.
func (r *Registry) Owns(name, file string) bool {
	for _, n := range r.ComponentsOf(file) {
		if n == name {
			return true
		}
	}
	return false
}

func normalize(file string) string {
	file = strings.TrimPrefix(file, "./")
	if file == "" {
		return file
	}
	return path.Clean(file)
}
