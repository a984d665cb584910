package imports

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
)

// =============================================================================
// Errors
// =============================================================================

var ErrNoGoModule = errors.New("no go.mod found")

// =============================================================================
// Scanner
// =============================================================================

// Scanner produces the import structure of a source tree.
type Scanner interface {
	Scan(ctx context.Context, root string) (*Result, error)
}

// Result is the import structure of a tree. Paths are slash-separated and
// relative to the scanned root; the root package directory is ".".
type Result struct {
	// Packages holds package-directory edges.
	Packages *Graph

	// Files maps each package directory to its Go files.
	Files map[string][]string

	// Imports maps each Go file to the local package directories it imports.
	Imports map[string][]string

	// Modules maps module paths to their directories.
	Modules map[string]string

	// Unparsed lists files that could not be parsed.
	Unparsed []string
}

// FileGraph expands package imports to file level: a file importing package
// P is linked to every file of P.
func (r *Result) FileGraph() *Graph {
	g := NewGraph()
	for file, dirs := range r.Imports {
		for _, dir := range dirs {
			for _, target := range r.Files[dir] {
				g.Add(file, target)
			}
		}
	}
	return g
}

// PackageOf returns the directory that stands for file's package.
func PackageOf(file string) string {
	return path.Dir(strings.TrimPrefix(file, "./"))
}

// skippedDirs are never descended into.
var skippedDirs = map[string]struct{}{
	".git":         {},
	"vendor":       {},
	"node_modules": {},
	"testdata":     {},
}

// GoScanner reads Go import declarations. Imports are resolved to local
// directories through every go.mod in the tree, including local replace
// directives; imports of other modules are ignored.
type GoScanner struct {
	Logger *slog.Logger
}

type goFile struct {
	rel     string
	imports []string
}

// Scan walks root and returns the import structure of its Go packages.
func (s *GoScanner) Scan(ctx context.Context, root string) (*Result, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	result := &Result{
		Packages: NewGraph(),
		Files:    make(map[string][]string),
		Imports:  make(map[string][]string),
		Modules:  make(map[string]string),
	}

	fset := token.NewFileSet()
	var files []goFile

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p != absRoot && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.Name() == "go.mod":
			s.readModule(p, path.Dir(rel), result, logger)
		case strings.HasSuffix(d.Name(), ".go"):
			f, err := parser.ParseFile(fset, p, nil, parser.ImportsOnly)
			if err != nil {
				logger.Debug("skipping unparsable file", "file", rel, "error", err)
				result.Unparsed = append(result.Unparsed, rel)
				return nil
			}
			gf := goFile{rel: rel}
			for _, decl := range f.Imports {
				ip, err := strconv.Unquote(decl.Path.Value)
				if err == nil {
					gf.imports = append(gf.imports, ip)
				}
			}
			files = append(files, gf)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(result.Modules) == 0 {
		return result, ErrNoGoModule
	}

	resolve := newResolver(result.Modules)
	for _, f := range files {
		dir := PackageOf(f.rel)
		result.Files[dir] = append(result.Files[dir], f.rel)

		seen := make(map[string]struct{})
		for _, ip := range f.imports {
			target, ok := resolve(ip)
			if !ok || target == dir {
				continue
			}
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			result.Imports[f.rel] = append(result.Imports[f.rel], target)
			result.Packages.Add(dir, target)
		}
		sort.Strings(result.Imports[f.rel])
	}
	for dir := range result.Files {
		sort.Strings(result.Files[dir])
	}
	sort.Strings(result.Unparsed)

	return result, nil
}

func skipDir(name string) bool {
	if _, ok := skippedDirs[name]; ok {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// readModule records the module declared by a go.mod and any replace
// directives that point at directories inside the tree.
func (s *GoScanner) readModule(p, dir string, result *Result, logger *slog.Logger) {
	data, err := os.ReadFile(p)
	if err != nil {
		logger.Warn("failed to read go.mod", "path", p, "error", err)
		return
	}

	// ParseLax ignores replace directives, so it is only the fallback for
	// files the strict parser rejects.
	mf, err := modfile.Parse(p, data, nil)
	if err != nil {
		logger.Debug("strict go.mod parse failed, retrying lax", "path", p, "error", err)
		mf, err = modfile.ParseLax(p, data, nil)
	}
	if err != nil || mf.Module == nil {
		logger.Warn("failed to parse go.mod", "path", p, "error", err)
		return
	}
	result.Modules[mf.Module.Mod.Path] = dir

	for _, r := range mf.Replace {
		if r.New.Version != "" || !modfile.IsDirectoryPath(r.New.Path) {
			continue
		}
		local := path.Clean(path.Join(dir, filepath.ToSlash(r.New.Path)))
		if local == ".." || strings.HasPrefix(local, "../") {
			continue
		}
		if _, ok := result.Modules[r.Old.Path]; !ok {
			result.Modules[r.Old.Path] = local
		}
	}
}

// newResolver maps an import path to a local directory using the longest
// matching module path.
func newResolver(modules map[string]string) func(string) (string, bool) {
	paths := make([]string, 0, len(modules))
	for m := range modules {
		paths = append(paths, m)
	}
	sort.Slice(paths, func(i, j int) bool { return len(paths[i]) > len(paths[j]) })

	return func(importPath string) (string, bool) {
		for _, m := range paths {
			if importPath != m && !strings.HasPrefix(importPath, m+"/") {
				continue
			}
			dir := path.Join(modules[m], strings.TrimPrefix(importPath, m))
			return path.Clean(dir), true
		}
		return "", false
	}
}
