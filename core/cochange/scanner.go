package cochange

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adalundhe/seam/core/cache"
	"github.com/adalundhe/seam/core/history"
)

// =============================================================================
// Scanner
// =============================================================================

// Scanner builds a co-change graph from a commit log, extending a cached
// snapshot when one exists for the same configuration. Concurrent scans
// sharing a Store and Key must be serialised by the caller.
type Scanner struct {
	Log    history.LogReader
	Config history.ScanConfig

	// Store and Key enable incremental scans. Either may be empty.
	Store cache.Store
	Key   string

	Logger *slog.Logger
}

type shallowReporter interface {
	Shallow() (bool, error)
}

// Scan returns the graph for every commit reachable from the log's head.
// Unreadable history yields an empty graph with a degraded Signal rather
// than an error.
func (s *Scanner) Scan(ctx context.Context) (Graph, error) {
	logger := s.logger()

	filter, err := history.NewFilter(s.Config)
	if err != nil {
		return Graph{}, err
	}

	if sr, ok := s.Log.(shallowReporter); ok {
		if shallow, err := sr.Shallow(); err == nil && shallow {
			logger.Warn("shallow clone, co-change signal unavailable")
			return Unavailable(SignalShallowHistory), nil
		}
	}

	head, err := s.Log.Head(ctx)
	if err != nil {
		return s.degrade(logger, err)
	}

	fingerprint := s.Config.Fingerprint()
	base, baseHead := s.load(ctx, logger, fingerprint)
	if base != nil && baseHead == head {
		logger.Debug("co-change cache is current", "head", head, "commits", base.Commits())
		return graphAt(base, head), nil
	}

	delta := NewWeigher()
	reached, err := s.Log.Walk(ctx, baseHead, func(c history.Commit) error {
		files, reason := filter.Apply(c)
		if reason != history.SkipNone {
			delta.Skip(string(reason))
			return nil
		}
		delta.Add(files)
		return nil
	})
	if err != nil {
		return s.degrade(logger, err)
	}

	w := delta
	if base != nil {
		if reached {
			base.Merge(delta)
			w = base
		} else {
			logger.Info("cached head no longer in history, rescanned", "cached_head", baseHead)
		}
	}

	logger.Debug("co-change scan complete",
		"head", head,
		"new_commits", delta.Commits(),
		"total_commits", w.Commits(),
		"incremental", base != nil && reached)

	s.save(ctx, logger, w, head, fingerprint)
	return graphAt(w, head), nil
}

func graphAt(w *Weigher, head string) Graph {
	g := w.Graph()
	g.Head = head
	return g
}

func (s *Scanner) degrade(logger *slog.Logger, err error) (Graph, error) {
	switch {
	case errors.Is(err, history.ErrNotGitRepo):
		logger.Warn("not a git repository, co-change signal unavailable")
		return Unavailable(SignalNoRepository), nil
	case errors.Is(err, history.ErrNoCommits):
		logger.Warn("repository has no commits, co-change signal unavailable")
		return Unavailable(SignalNoCommits), nil
	case errors.Is(err, history.ErrShallowHistory):
		logger.Warn("history is truncated, co-change signal unavailable", "error", err)
		return Unavailable(SignalShallowHistory), nil
	default:
		return Graph{}, err
	}
}

// =============================================================================
// Cache
// =============================================================================

func (s *Scanner) cached() bool {
	return s.Store != nil && s.Key != ""
}

func (s *Scanner) load(ctx context.Context, logger *slog.Logger, fingerprint string) (*Weigher, string) {
	if !s.cached() {
		return nil, ""
	}

	data, ok, err := s.Store.Get(ctx, s.Key)
	if err != nil {
		logger.Warn("co-change cache unreadable, running full scan", "key", s.Key, "error", err)
		return nil, ""
	}
	if !ok {
		return nil, ""
	}

	w, head, err := decodeSnapshot(data, fingerprint)
	if err != nil {
		if errors.Is(err, ErrSnapshotMismatch) {
			logger.Debug("co-change cache built with other settings, running full scan", "key", s.Key)
		} else {
			logger.Warn("co-change cache corrupt, running full scan", "key", s.Key, "error", err)
		}
		return nil, ""
	}
	return w, head
}

func (s *Scanner) save(ctx context.Context, logger *slog.Logger, w *Weigher, head, fingerprint string) {
	if !s.cached() {
		return
	}

	data, err := encodeSnapshot(w, head, fingerprint)
	if err != nil {
		logger.Warn("failed to encode co-change cache", "error", err)
		return
	}
	if err := s.Store.Put(ctx, s.Key, data); err != nil {
		logger.Warn("failed to write co-change cache", "key", s.Key, "error", err)
	}
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
