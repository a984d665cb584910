// Package history reads commit history and filters out commits that would add
// noise to co-change analysis. It reads repositories with go-git/v5 and also
// accepts raw commit tuples from any other log source.
package history

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptyPath indicates an empty repository path.
	ErrEmptyPath = errors.New("repository path cannot be empty")

	// ErrNotGitRepo indicates the path is not inside a git repository.
	ErrNotGitRepo = errors.New("path is not a git repository")

	// ErrNoCommits indicates the repository has no HEAD commit yet.
	ErrNoCommits = errors.New("repository has no commits")

	// ErrShallowHistory indicates a shallow clone with truncated history.
	ErrShallowHistory = errors.New("repository history is shallow")

	// ErrFileNotFound indicates the file does not exist at the revision.
	ErrFileNotFound = errors.New("file not found at revision")

	// ErrBinaryFile indicates the file content is binary.
	ErrBinaryFile = errors.New("file is binary")

	// ErrInvalidPattern indicates a skip or exclude pattern could not be compiled.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// =============================================================================
// Commit
// =============================================================================

// Commit is one entry of the log: a commit and the files it changed.
type Commit struct {
	// Hash is the full commit hash.
	Hash string

	// Subject is the first line of the commit message.
	Subject string

	// When is the committer time.
	When time.Time

	// Files are the changed paths, sorted, relative to the repository root.
	Files []string

	// Merge is true for commits with more than one parent.
	Merge bool
}

// Revision identifies a commit that touched a particular file.
type Revision struct {
	Hash string
	When time.Time
}

// =============================================================================
// LogReader
// =============================================================================

// LogReader enumerates commits newest first.
type LogReader interface {
	// Head returns the hash of the commit the walk starts from.
	Head(ctx context.Context) (string, error)

	// Walk calls fn for every commit reachable from Head that is not
	// reachable from stopAt. reachedStop is false when stopAt is empty or is
	// no longer part of Head's history, in which case every reachable commit
	// was visited. Returning ErrStopWalk from fn ends the walk early.
	Walk(ctx context.Context, stopAt string, fn func(Commit) error) (reachedStop bool, err error)
}

// ErrStopWalk can be returned by a Walk callback to end the walk without error.
var ErrStopWalk = errors.New("stop walk")

// ContentReader reads file revisions and contents.
type ContentReader interface {
	// FileRevisions returns commits that touched path, newest first. A limit
	// of zero returns all of them.
	FileRevisions(ctx context.Context, path string, limit int) ([]Revision, error)

	// BlobID returns the hash of the blob stored at path in commit rev. An
	// empty rev means Head.
	BlobID(ctx context.Context, rev, path string) (string, error)

	// ReadBlob returns the text content of a blob.
	ReadBlob(ctx context.Context, blob string) (string, error)
}

// extractSubject returns the first line of the commit message.
func extractSubject(message string) string {
	for i, c := range message {
		if c == '\n' || c == '\r' {
			return message[:i]
		}
	}
	return message
}
