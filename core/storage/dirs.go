// Package storage resolves where seam keeps configuration and caches, with
// XDG support and per-project isolation.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// AppName names every directory seam creates.
const AppName = "seam"

// Dirs holds the user-level directories.
type Dirs struct {
	Config string // user configuration
	Cache  string // regenerable analysis caches
	State  string // logs
}

// ProjectDirs are the directories inside a repository.
type ProjectDirs struct {
	Root       string // .seam/
	Config     string // .seam/config.yaml (committed)
	Components string // .seam/components.yaml (committed)
	Local      string // .seam/local/ (gitignored)
}

var (
	resolveOnce sync.Once
	resolved    *Dirs
	resolvedErr error
)

// ResolveDirs honours XDG_CONFIG_HOME, XDG_CACHE_HOME and XDG_STATE_HOME,
// falling back to the platform defaults. The first result is reused for
// the life of the process.
func ResolveDirs() (*Dirs, error) {
	resolveOnce.Do(func() {
		resolved = &Dirs{
			Config: fromEnv("XDG_CONFIG_HOME", platformConfigDefault()),
			Cache:  fromEnv("XDG_CACHE_HOME", platformCacheDefault()),
			State:  fromEnv("XDG_STATE_HOME", platformStateDefault()),
		}
	})
	return resolved, resolvedErr
}

func fromEnv(name, fallback string) string {
	base := os.Getenv(name)
	if base == "" {
		return fallback
	}
	return filepath.Join(base, AppName)
}

// ResolveProjectDirs lays out the .seam directory of a repository.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+AppName)
	return &ProjectDirs{
		Root:       root,
		Config:     filepath.Join(root, "config.yaml"),
		Components: filepath.Join(root, "components.yaml"),
		Local:      filepath.Join(root, "local"),
	}
}

// ProjectHash is a 16-character digest of the absolute project path.
func ProjectHash(projectRoot string) string {
	path := projectRoot
	if abs, err := filepath.Abs(projectRoot); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:8])
}

// CacheKey names a project's cache entry of the given kind. Keys contain
// only characters safe in file names.
func CacheKey(projectRoot, kind string) string {
	return ProjectHash(projectRoot) + "-" + strings.ToLower(kind)
}

// EnsureDir creates path and its parents. A zero perm means 0700.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

// RemoveWithin deletes path recursively, but only when it lies inside one
// of roots.
func RemoveWithin(path string, roots ...string) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	for _, root := range roots {
		if within(target, root) {
			return os.RemoveAll(target)
		}
	}
	return &OutsideRootError{Path: target}
}

func within(target, root string) bool {
	root, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// OutsideRootError rejects a removal outside the permitted roots.
type OutsideRootError struct {
	Path string
}

func (e *OutsideRootError) Error() string {
	return "refusing to remove " + e.Path + ": outside managed directories"
}

func (d *Dirs) ConfigDir(elem ...string) string {
	return join(d.Config, elem)
}

func (d *Dirs) CacheDir(elem ...string) string {
	return join(d.Cache, elem)
}

func (d *Dirs) StateDir(elem ...string) string {
	return join(d.State, elem)
}

func join(base string, elem []string) string {
	return filepath.Join(append([]string{base}, elem...)...)
}

// CochangeCacheDir returns the directory holding co-change snapshots.
func (d *Dirs) CochangeCacheDir() string {
	return d.CacheDir("cochange")
}

// LockDir holds the cross-process cache locks.
func (d *Dirs) LockDir() string {
	return d.StateDir("locks")
}

func (d *Dirs) LogDir() string {
	return d.StateDir("logs")
}

// EnsureAll creates every user directory. Configuration stays private.
func (d *Dirs) EnsureAll() error {
	perms := []struct {
		path string
		perm os.FileMode
	}{
		{d.Config, 0700},
		{d.CochangeCacheDir(), 0755},
		{d.LockDir(), 0755},
		{d.LogDir(), 0755},
	}
	for _, p := range perms {
		if err := EnsureDir(p.path, p.perm); err != nil {
			return err
		}
	}
	return nil
}
