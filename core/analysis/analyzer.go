// Package analysis wires history, imports and the component registry into
// the co-change, coupling, hotspot and trend reports.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/adalundhe/seam/core/cache"
	"github.com/adalundhe/seam/core/cochange"
	"github.com/adalundhe/seam/core/config"
	"github.com/adalundhe/seam/core/coupling"
	"github.com/adalundhe/seam/core/history"
	"github.com/adalundhe/seam/core/hotspot"
	"github.com/adalundhe/seam/core/imports"
	"github.com/adalundhe/seam/core/registry"
	"github.com/adalundhe/seam/core/storage"
)

// =============================================================================
// Errors
// =============================================================================

const DefaultLockTimeout = 30 * time.Second

var (
	ErrNoRegistry   = errors.New("component level requires a component registry")
	ErrUnknownLevel = errors.New("unknown coupling level")
)

// =============================================================================
// Analyzer
// =============================================================================

// Analyzer runs the analyses against one repository at a time.
type Analyzer struct {
	Config *config.Config

	// Store enables incremental co-change scans. Nil scans from scratch.
	Store cache.Store

	// LockDir holds per-key lock files serialising snapshot writers across
	// processes. Empty disables locking.
	LockDir     string
	LockTimeout time.Duration

	// Registry is optional except for component-level coupling.
	Registry *registry.Registry

	// Imports defaults to a GoScanner.
	Imports imports.Scanner

	Logger *slog.Logger
}

func (a *Analyzer) config() *config.Config {
	if a.Config == nil {
		return config.DefaultConfig()
	}
	return a.Config
}

// run returns a logger tagged with a fresh run id.
func (a *Analyzer) run(op, repo string) *slog.Logger {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("run_id", uuid.NewString(), "op", op, "repo", repo)
}

func openLog(repo string) (*history.GitLog, error) {
	log, err := history.NewGitLog(repo)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return log, nil
}

// =============================================================================
// Co-Change
// =============================================================================

// CoChange returns the co-change graph of repo.
func (a *Analyzer) CoChange(ctx context.Context, repo string) (cochange.Graph, error) {
	logger := a.run("cochange", repo)

	log, err := openLog(repo)
	if err != nil {
		return cochange.Graph{}, err
	}
	defer log.Close()

	return a.scan(ctx, log, logger)
}

func (a *Analyzer) scan(ctx context.Context, log *history.GitLog, logger *slog.Logger) (cochange.Graph, error) {
	s := &cochange.Scanner{
		Log:    log,
		Config: a.config().ScanConfig(),
		Logger: logger,
	}
	if a.Store != nil {
		s.Store = a.Store
		s.Key = storage.CacheKey(log.Root(), "cochange")

		release, err := a.lock(ctx, s.Key)
		switch {
		case errors.Is(err, cache.ErrLockTimeout):
			logger.Warn("cache busy, scanning without it", "key", s.Key)
			s.Store, s.Key = nil, ""
		case err != nil:
			return cochange.Graph{}, err
		default:
			defer release()
		}
	}

	g, err := s.Scan(ctx)
	if err != nil {
		return cochange.Graph{}, err
	}
	logger.Info("co-change scan complete",
		"signal", g.Signal,
		"commits", g.TotalCommitsAnalyzed,
		"edges", len(g.Edges),
	)
	return g, nil
}

// lock takes the cross-process lock for key. The returned function releases
// it.
func (a *Analyzer) lock(ctx context.Context, key string) (func(), error) {
	if a.LockDir == "" {
		return func() {}, nil
	}

	l, err := cache.NewLock(a.LockDir, key)
	if err != nil {
		return nil, err
	}
	timeout := a.LockTimeout
	if timeout == 0 {
		timeout = DefaultLockTimeout
	}
	if err := l.Acquire(ctx, timeout); err != nil {
		return nil, err
	}
	return func() { l.Release() }, nil
}

// =============================================================================
// Coupling
// =============================================================================

// Coupling builds the coupling matrix of repo at level (file, package or
// component). An empty level uses the configured one.
func (a *Analyzer) Coupling(ctx context.Context, repo, level string) (*coupling.Matrix, error) {
	cfg := a.config()
	if level == "" {
		level = cfg.Coupling.Level
	}
	switch level {
	case config.LevelFile, config.LevelPackage:
	case config.LevelComponent:
		if a.Registry.Len() == 0 {
			return nil, ErrNoRegistry
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	logger := a.run("coupling", repo).With("level", level)

	log, err := openLog(repo)
	if err != nil {
		return nil, err
	}
	defer log.Close()

	var (
		co  cochange.Graph
		imp *imports.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		co, err = a.scan(gctx, log, logger)
		return err
	})
	g.Go(func() error {
		var err error
		imp, err = a.importsOf(gctx, log.Root(), logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var structural coupling.StructuralSource
	switch level {
	case config.LevelFile:
		structural = imp.FileGraph()
	case config.LevelPackage:
		co = co.Rollup(packageOf)
		structural = imp.Packages
	case config.LevelComponent:
		co = co.Rollup(a.Registry.ComponentsOf)
		structural = imp.FileGraph().Rollup(a.Registry.ComponentsOf)
	}

	m := coupling.Build(co, structural, coupling.Options{
		Registry:       a.Registry,
		ComponentLevel: level == config.LevelComponent,
		Structural:     cfg.Coupling.StructuralThreshold,
		Behavioral:     cfg.Coupling.BehavioralThreshold,
	})
	logger.Info("coupling matrix built",
		"entries", len(m.Entries),
		"structural_threshold", m.StructuralThreshold,
		"behavioral_threshold", m.BehavioralThreshold,
	)
	return m, nil
}

// importsOf scans root for imports. A tree without Go modules contributes
// no structural edges.
func (a *Analyzer) importsOf(ctx context.Context, root string, logger *slog.Logger) (*imports.Result, error) {
	scanner := a.Imports
	if scanner == nil {
		scanner = &imports.GoScanner{Logger: logger}
	}

	result, err := scanner.Scan(ctx, root)
	if errors.Is(err, imports.ErrNoGoModule) {
		logger.Warn("no go.mod found, structural signal unavailable", "root", root)
		return &imports.Result{Packages: imports.NewGraph()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan imports: %w", err)
	}
	if len(result.Unparsed) > 0 {
		logger.Warn("some files could not be parsed", "count", len(result.Unparsed))
	}
	return result, nil
}

func packageOf(file string) []string {
	return []string{imports.PackageOf(file)}
}

// =============================================================================
// Hotspots
// =============================================================================

// Hotspots ranks the files of repo by change frequency times current size.
// top <= 0 returns every file.
func (a *Analyzer) Hotspots(ctx context.Context, repo string, top int) ([]hotspot.Hotspot, error) {
	logger := a.run("hotspots", repo)

	log, err := openLog(repo)
	if err != nil {
		return nil, err
	}
	defer log.Close()

	g, err := a.scan(ctx, log, logger)
	if err != nil {
		return nil, err
	}
	if !g.Available() {
		return []hotspot.Hotspot{}, nil
	}

	metrics, err := hotspot.NewBlobMetrics(log, hotspot.DefaultMemoSize)
	if err != nil {
		return nil, err
	}
	hs, err := hotspot.Score(ctx, g.FileChanges, metrics)
	if err != nil {
		return nil, err
	}
	return hotspot.Top(hs, top), nil
}

// =============================================================================
// Trends
// =============================================================================

// Trends classifies the complexity trend of each file. Files missing from
// history are reported as errors.
func (a *Analyzer) Trends(ctx context.Context, repo string, files []string) ([]hotspot.TrendResult, error) {
	logger := a.run("trend", repo)

	opts, err := a.trendOptions()
	if err != nil {
		return nil, err
	}

	log, err := openLog(repo)
	if err != nil {
		return nil, err
	}
	defer log.Close()
	if !log.IsGitRepo() {
		return nil, history.ErrNotGitRepo
	}

	metrics, err := hotspot.NewBlobMetrics(log, hotspot.DefaultMemoSize)
	if err != nil {
		return nil, err
	}

	out := make([]hotspot.TrendResult, 0, len(files))
	for _, file := range files {
		result, err := hotspot.Trend(ctx, metrics, file, opts)
		if err != nil {
			return nil, fmt.Errorf("trend %s: %w", file, err)
		}
		logger.Debug("trend computed", "file", file, "direction", result.Direction, "samples", len(result.Samples))
		out = append(out, result)
	}
	return out, nil
}

func (a *Analyzer) trendOptions() (hotspot.TrendOptions, error) {
	cfg := a.config()
	proxy, err := hotspot.ParseProxy(cfg.Trend.Proxy)
	if err != nil {
		return hotspot.TrendOptions{}, err
	}
	return hotspot.TrendOptions{
		Samples:  cfg.Trend.Samples,
		DeadZone: cfg.Trend.DeadZone,
		Proxy:    proxy,
	}, nil
}
