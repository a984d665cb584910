package history

import (
	"context"
	"errors"
	"sort"
)

// SliceLog is an in-memory LogReader over raw commit tuples. Commits are
// given oldest first, the order they were made in; the walk reports them
// newest first like a real log.
type SliceLog struct {
	commits []Commit
}

// NewSliceLog creates a log from commits listed oldest first.
func NewSliceLog(commits ...Commit) *SliceLog {
	l := &SliceLog{}
	for _, c := range commits {
		l.Append(c)
	}
	return l
}

// Append records a new commit on top of the log.
func (l *SliceLog) Append(c Commit) {
	files := make([]string, len(c.Files))
	copy(files, c.Files)
	sort.Strings(files)
	c.Files = files
	l.commits = append(l.commits, c)
}

// Rewrite replaces the whole history, as a force-push would.
func (l *SliceLog) Rewrite(commits ...Commit) {
	l.commits = nil
	for _, c := range commits {
		l.Append(c)
	}
}

// Head returns the hash of the newest commit.
func (l *SliceLog) Head(ctx context.Context) (string, error) {
	if len(l.commits) == 0 {
		return "", ErrNoCommits
	}
	return l.commits[len(l.commits)-1].Hash, nil
}

// Walk visits commits newer than stopAt, newest first.
func (l *SliceLog) Walk(ctx context.Context, stopAt string, fn func(Commit) error) (bool, error) {
	if len(l.commits) == 0 {
		return false, ErrNoCommits
	}

	start, reached := 0, false
	if stopAt != "" {
		for i, c := range l.commits {
			if c.Hash == stopAt {
				start, reached = i+1, true
				break
			}
		}
	}

	for i := len(l.commits) - 1; i >= start; i-- {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if err := fn(l.commits[i]); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return reached, nil
			}
			return false, err
		}
	}
	return reached, nil
}
