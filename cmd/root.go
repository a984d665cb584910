// Package cmd provides the seam command-line interface.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/seam/core/analysis"
	"github.com/adalundhe/seam/core/cache"
	"github.com/adalundhe/seam/core/config"
	"github.com/adalundhe/seam/core/registry"
	"github.com/adalundhe/seam/core/storage"
)

// =============================================================================
// Root Command Flags
// =============================================================================

var (
	repoDir    string
	format     string
	configFile string
	noCache    bool
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "seam",
	Short: "Seam - coupling and change-risk analysis for git repositories",
	Long: `Seam mines a repository's history for files that change together,
compares that with the import structure, ranks hotspots, and schedules
task plans into conflict-free waves.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "Repository directory path")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", string(OutputAuto), "Output format (table, json, plain, auto)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Additional config file applied after the standard layers")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Scan history from scratch without reading or writing the cache")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json)")
}

// Execute runs the command line. An interrupt cancels the running analysis.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// =============================================================================
// Session
// =============================================================================

// session is the state shared by every command of one invocation.
type session struct {
	dirs   *storage.Dirs
	config *config.Config
	logger *slog.Logger
}

var current *session

func setup(cmd *cobra.Command, args []string) error {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return fmt.Errorf("resolve directories: %w", err)
	}

	manager := config.NewManager(dirs, repoDir)
	if configFile != "" {
		manager.AddLayer(configFile)
	}
	if err := manager.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := manager.Get()

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if noCache {
		cfg.Cache.Enabled = false
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	logger.Debug("config loaded", "sources", manager.Sources())

	current = &session{dirs: dirs, config: cfg, logger: logger}
	return nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

// cacheStore opens the configured store, or returns nil when caching is
// disabled.
func (s *session) cacheStore() (cache.Store, error) {
	if !s.config.Cache.Enabled {
		return nil, nil
	}

	dir := s.config.CacheDir(s.dirs)
	if s.config.Cache.Backend != cache.BackendMemory {
		if err := storage.EnsureDir(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	store, err := cache.Open(s.config.Cache.Backend, dir)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return store, nil
}

// analyzer builds an Analyzer for the session. The returned function
// releases the cache store.
func (s *session) analyzer(reg *registry.Registry) (*analysis.Analyzer, func(), error) {
	store, err := s.cacheStore()
	if err != nil {
		return nil, nil, err
	}

	a := &analysis.Analyzer{
		Config:   s.config,
		Store:    store,
		LockDir:  s.dirs.LockDir(),
		Registry: reg,
		Logger:   s.logger,
	}
	release := func() {
		if store == nil {
			return
		}
		if err := store.Close(); err != nil {
			s.logger.Warn("close cache", "error", err)
		}
	}
	return a, release, nil
}
