package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// =============================================================================
// GitLog
// =============================================================================

// GitLog reads commit history from a git repository with go-git/v5.
// It is safe for concurrent readers.
type GitLog struct {
	repoPath string
	root     string
	repo     *gogit.Repository
	mu       sync.RWMutex
	isRepo   bool
}

// NewGitLog creates a GitLog for the repository containing repoPath.
// Returns a usable value even if the path is not a git repository; callers
// check IsGitRepo or handle ErrNotGitRepo from the read methods.
// Returns an error only if the path is empty or cannot be resolved.
func NewGitLog(repoPath string) (*GitLog, error) {
	if repoPath == "" {
		return nil, ErrEmptyPath
	}

	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	g := &GitLog{repoPath: absPath, root: absPath}
	g.initRepository(absPath)
	return g, nil
}

// initRepository attempts to open the git repository at the given path.
func (g *GitLog) initRepository(repoPath string) {
	repo, err := gogit.PlainOpenWithOptions(repoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return
	}

	g.repo = repo
	g.isRepo = true

	if wt, err := repo.Worktree(); err == nil {
		g.root = wt.Filesystem.Root()
	}
}

// RepoPath returns the absolute path the log was opened with.
func (g *GitLog) RepoPath() string {
	return g.repoPath
}

// Root returns the top of the working tree, or the opened path when there
// is no worktree. Paths reported by Walk are relative to it.
func (g *GitLog) Root() string {
	return g.root
}

// IsGitRepo returns true if the path is a git repository.
func (g *GitLog) IsGitRepo() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.isRepo
}

// Close releases the repository handle. Safe to call multiple times.
func (g *GitLog) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.repo = nil
	g.isRepo = false
	return nil
}

// Shallow reports whether the repository is a shallow clone.
func (g *GitLog) Shallow() (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.isRepo {
		return false, ErrNotGitRepo
	}

	hashes, err := g.repo.Storer.Shallow()
	if err != nil {
		return false, err
	}
	return len(hashes) > 0, nil
}

// =============================================================================
// Head
// =============================================================================

// Head returns the HEAD commit hash.
func (g *GitLog) Head(ctx context.Context) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.isRepo {
		return "", ErrNotGitRepo
	}

	head, err := g.headCommit()
	if err != nil {
		return "", err
	}
	return head.Hash.String(), nil
}

func (g *GitLog) headCommit() (*object.Commit, error) {
	ref, err := g.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoCommits
		}
		return nil, err
	}
	return g.repo.CommitObject(ref.Hash())
}

// =============================================================================
// Walk
// =============================================================================

// Walk visits commits reachable from HEAD and not from stopAt, newest first.
func (g *GitLog) Walk(ctx context.Context, stopAt string, fn func(Commit) error) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.isRepo {
		return false, ErrNotGitRepo
	}

	head, err := g.headCommit()
	if err != nil {
		return false, err
	}

	seen, reached, err := g.stopSet(head, stopAt)
	if err != nil {
		return false, g.wrapWalkError(err)
	}
	if reached && seen[head.Hash] {
		return true, nil
	}

	iter := object.NewCommitPreorderIter(head, seen, nil)
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		commit, err := convertCommit(ctx, c)
		if err != nil {
			return err
		}

		if err := fn(commit); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return storer.ErrStop
			}
			return err
		}
		return nil
	})
	if err != nil {
		return false, g.wrapWalkError(err)
	}
	return reached, nil
}

// stopSet collects every commit reachable from stopAt, provided stopAt is
// still an ancestor of head. Otherwise the walk covers all of head's history.
func (g *GitLog) stopSet(head *object.Commit, stopAt string) (map[plumbing.Hash]bool, bool, error) {
	if stopAt == "" {
		return nil, false, nil
	}

	stop, err := g.repo.CommitObject(plumbing.NewHash(stopAt))
	if err != nil {
		return nil, false, nil
	}

	if stop.Hash != head.Hash {
		isAncestor, err := stop.IsAncestor(head)
		if err != nil {
			return nil, false, err
		}
		if !isAncestor {
			return nil, false, nil
		}
	}

	seen := make(map[plumbing.Hash]bool)
	iter := object.NewCommitPreorderIter(stop, nil, nil)
	defer iter.Close()
	err = iter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return seen, true, nil
}

func (g *GitLog) wrapWalkError(err error) error {
	if !errors.Is(err, plumbing.ErrObjectNotFound) {
		return err
	}
	if hashes, shallowErr := g.repo.Storer.Shallow(); shallowErr == nil && len(hashes) > 0 {
		return fmt.Errorf("%w: %v", ErrShallowHistory, err)
	}
	return err
}

// =============================================================================
// Commit Conversion
// =============================================================================

// convertCommit converts a go-git commit into a Commit with its changed files.
func convertCommit(ctx context.Context, c *object.Commit) (Commit, error) {
	commit := Commit{
		Hash:    c.Hash.String(),
		Subject: extractSubject(c.Message),
		When:    c.Committer.When,
		Merge:   c.NumParents() > 1,
	}
	if commit.Merge {
		return commit, nil
	}

	files, err := changedFiles(ctx, c)
	if err != nil {
		return Commit{}, fmt.Errorf("commit %s: %w", commit.Hash, err)
	}
	commit.Files = files
	return commit, nil
}

// changedFiles diffs a commit against its first parent. The root commit
// contributes every file in its tree.
func changedFiles(ctx context.Context, c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	if c.NumParents() == 0 {
		return treeFiles(tree)
	}

	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, parentTree, tree, nil)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(changes))
	for _, change := range changes {
		if change.From.Name != "" {
			set[change.From.Name] = struct{}{}
		}
		if change.To.Name != "" {
			set[change.To.Name] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

func treeFiles(tree *object.Tree) ([]string, error) {
	var files []string
	err := tree.Files().ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// File Contents
// =============================================================================

// FileRevisions returns commits that touched path, newest first.
func (g *GitLog) FileRevisions(ctx context.Context, path string, limit int) ([]Revision, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.isRepo {
		return nil, ErrNotGitRepo
	}

	head, err := g.headCommit()
	if err != nil {
		return nil, err
	}

	iter, err := g.repo.Log(&gogit.LogOptions{From: head.Hash, FileName: &path})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var revisions []Revision
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(revisions) >= limit {
			return storer.ErrStop
		}
		revisions = append(revisions, Revision{Hash: c.Hash.String(), When: c.Committer.When})
		return nil
	})
	if err != nil {
		return nil, g.wrapWalkError(err)
	}
	return revisions, nil
}

// BlobID returns the blob hash of path at commit rev, or at HEAD when rev is
// empty.
func (g *GitLog) BlobID(ctx context.Context, rev, path string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.isRepo {
		return "", ErrNotGitRepo
	}

	var commit *object.Commit
	var err error
	if rev == "" {
		commit, err = g.headCommit()
	} else {
		commit, err = g.repo.CommitObject(plumbing.NewHash(rev))
	}
	if err != nil {
		return "", fmt.Errorf("commit %s: %w", rev, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return "", err
	}
	entry, err := tree.FindEntry(path)
	if err != nil {
		if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
			return "", fmt.Errorf("%w: %s@%s", ErrFileNotFound, path, shortHash(commit.Hash))
		}
		return "", err
	}
	if !entry.Mode.IsFile() {
		return "", fmt.Errorf("%w: %s@%s", ErrFileNotFound, path, shortHash(commit.Hash))
	}
	return entry.Hash.String(), nil
}

// ReadBlob returns the text content of a blob.
func (g *GitLog) ReadBlob(ctx context.Context, blob string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.isRepo {
		return "", ErrNotGitRepo
	}

	b, err := g.repo.BlobObject(plumbing.NewHash(blob))
	if err != nil {
		return "", fmt.Errorf("blob %s: %w", blob, err)
	}

	file := object.NewFile("", filemode.Regular, b)
	binary, err := file.IsBinary()
	if err != nil {
		return "", err
	}
	if binary {
		return "", fmt.Errorf("%w: blob %s", ErrBinaryFile, blob)
	}
	return file.Contents()
}

func shortHash(h plumbing.Hash) string {
	return h.String()[:7]
}
