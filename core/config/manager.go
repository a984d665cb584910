// Package config loads seam's layered YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/adalundhe/seam/core/cache"
	"github.com/adalundhe/seam/core/history"
	"github.com/adalundhe/seam/core/storage"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Manager holds the active configuration. Readers never block; Load swaps
// in a fresh value.
type Manager struct {
	config      atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string
	layers      []string
	sources     []string
	watchers    []func(*Config)
	watcherMu   sync.RWMutex
}

type Config struct {
	History  HistoryConfig  `yaml:"history"`
	Coupling CouplingConfig `yaml:"coupling"`
	Trend    TrendConfig    `yaml:"trend"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

type HistoryConfig struct {
	MaxCommitFiles      int      `yaml:"max_commit_files"`
	SkipMessagePatterns []string `yaml:"skip_message_patterns"`
	ExcludePaths        []string `yaml:"exclude_paths"`
}

type CouplingConfig struct {
	// Zero thresholds are calibrated from the data.
	StructuralThreshold float64 `yaml:"structural_threshold"`
	BehavioralThreshold float64 `yaml:"behavioral_threshold"`
	Level               string  `yaml:"level"`
}

type TrendConfig struct {
	Samples  int     `yaml:"samples"`
	DeadZone float64 `yaml:"dead_zone"`
	Proxy    string  `yaml:"proxy"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend cache.Backend `yaml:"backend"`
	Dir     string        `yaml:"dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Coupling levels.
const (
	LevelFile      = "file"
	LevelPackage   = "package"
	LevelComponent = "component"
)

func NewManager(dirs *storage.Dirs, projectRoot string) *Manager {
	if projectRoot == "" {
		projectRoot = "."
	}
	m := &Manager{
		dirs:        dirs,
		projectRoot: projectRoot,
	}
	m.config.Store(DefaultConfig())
	return m
}

func DefaultConfig() *Config {
	scan := history.DefaultScanConfig()
	return &Config{
		History: HistoryConfig{
			MaxCommitFiles:      scan.MaxCommitFiles,
			SkipMessagePatterns: scan.SkipMessagePatterns,
			ExcludePaths:        scan.ExcludePaths,
		},
		Coupling: CouplingConfig{
			Level: LevelFile,
		},
		Trend: TrendConfig{
			Samples:  5,
			DeadZone: 0.05,
			Proxy:    "lines",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: cache.BackendFile,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// ScanConfig returns the commit filter settings.
func (c *Config) ScanConfig() history.ScanConfig {
	return history.ScanConfig{
		MaxCommitFiles:      c.History.MaxCommitFiles,
		SkipMessagePatterns: c.History.SkipMessagePatterns,
		ExcludePaths:        c.History.ExcludePaths,
	}
}

// CacheDir returns the configured cache directory, falling back to the
// user cache directory.
func (c *Config) CacheDir(dirs *storage.Dirs) string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	if dirs == nil {
		return ""
	}
	return dirs.CochangeCacheDir()
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	switch c.Coupling.Level {
	case LevelFile, LevelPackage, LevelComponent:
	default:
		problems = append(problems, fmt.Sprintf("coupling.level %q", c.Coupling.Level))
	}
	if c.Coupling.StructuralThreshold < 0 {
		problems = append(problems, "coupling.structural_threshold is negative")
	}
	if c.Coupling.BehavioralThreshold < 0 {
		problems = append(problems, "coupling.behavioral_threshold is negative")
	}
	if c.History.MaxCommitFiles < 0 {
		problems = append(problems, "history.max_commit_files is negative")
	}
	if c.Trend.Samples < 2 {
		problems = append(problems, fmt.Sprintf("trend.samples %d is below 2", c.Trend.Samples))
	}
	if c.Trend.DeadZone < 0 {
		problems = append(problems, "trend.dead_zone is negative")
	}
	if c.Trend.Proxy != "lines" && c.Trend.Proxy != "indent" {
		problems = append(problems, fmt.Sprintf("trend.proxy %q", c.Trend.Proxy))
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendSQLite, cache.BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q", c.Cache.Backend))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (m *Manager) Get() *Config {
	return m.config.Load()
}

// AddLayer appends a file applied after the standard layers and before the
// environment. Unlike the standard layers it must exist.
func (m *Manager) AddLayer(path string) {
	m.layers = append(m.layers, path)
}

// Sources lists the files the last Load actually read.
func (m *Manager) Sources() []string {
	return append([]string(nil), m.sources...)
}

// Load rebuilds the configuration from defaults, project, user, local and
// explicit files, then SEAM_* environment variables.
func (m *Manager) Load() error {
	cfg := DefaultConfig()
	m.sources = nil

	if err := m.loadProjectConfig(cfg); err != nil {
		return fmt.Errorf("project config: %w", err)
	}

	if err := m.loadUserConfig(cfg); err != nil {
		return fmt.Errorf("user config: %w", err)
	}

	if err := m.loadLocalConfig(cfg); err != nil {
		return fmt.Errorf("local config: %w", err)
	}

	for _, path := range m.layers {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
		if err := m.loadYAMLFile(path, cfg); err != nil {
			return fmt.Errorf("config %s: %w", path, err)
		}
	}

	if err := m.applyEnvironment(cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config.Store(cfg)
	m.notifyWatchers(cfg)

	return nil
}

func (m *Manager) loadProjectConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	return m.loadYAMLFile(projectDirs.Config, cfg)
}

func (m *Manager) loadUserConfig(cfg *Config) error {
	if m.dirs == nil {
		return nil
	}
	return m.loadYAMLFile(m.dirs.ConfigDir("config.yaml"), cfg)
}

func (m *Manager) loadLocalConfig(cfg *Config) error {
	projectDirs := storage.ResolveProjectDirs(m.projectRoot)
	localPath := filepath.Join(projectDirs.Local, "config.yaml")
	return m.loadYAMLFile(localPath, cfg)
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}
	m.sources = append(m.sources, path)
	return nil
}

func (m *Manager) applyEnvironment(cfg *Config) error {
	var errs []error
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	envFloat := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	envString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	envInt("SEAM_HISTORY_MAX_COMMIT_FILES", &cfg.History.MaxCommitFiles)
	envFloat("SEAM_COUPLING_STRUCTURAL_THRESHOLD", &cfg.Coupling.StructuralThreshold)
	envFloat("SEAM_COUPLING_BEHAVIORAL_THRESHOLD", &cfg.Coupling.BehavioralThreshold)
	envString("SEAM_COUPLING_LEVEL", &cfg.Coupling.Level)
	envInt("SEAM_TREND_SAMPLES", &cfg.Trend.Samples)
	envFloat("SEAM_TREND_DEAD_ZONE", &cfg.Trend.DeadZone)
	envString("SEAM_TREND_PROXY", &cfg.Trend.Proxy)
	if v := os.Getenv("SEAM_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = cache.Backend(v)
	}
	envString("SEAM_CACHE_DIR", &cfg.Cache.Dir)
	envString("SEAM_LOG_LEVEL", &cfg.Log.Level)
	envString("SEAM_LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("SEAM_CACHE_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEAM_CACHE_ENABLED: %w", err))
		} else {
			cfg.Cache.Enabled = b
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: environment: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

func (m *Manager) Reload() error {
	return m.Load()
}
