package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/adalundhe/seam/core/cache"
	"github.com/adalundhe/seam/core/history"
	"github.com/adalundhe/seam/core/storage"
)

func testDirs(t *testing.T) *storage.Dirs {
	t.Helper()
	return &storage.Dirs{
		Config: t.TempDir(),
		Cache:  t.TempDir(),
		State:  t.TempDir(),
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.History.MaxCommitFiles != history.DefaultMaxCommitFiles {
		t.Errorf("History.MaxCommitFiles: got %d, want %d", cfg.History.MaxCommitFiles, history.DefaultMaxCommitFiles)
	}
	if cfg.Coupling.Level != LevelFile {
		t.Errorf("Coupling.Level: got %s, want file", cfg.Coupling.Level)
	}
	if cfg.Trend.Samples != 5 || cfg.Trend.DeadZone != 0.05 || cfg.Trend.Proxy != "lines" {
		t.Errorf("Trend defaults: got %+v", cfg.Trend)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Backend != cache.BackendFile {
		t.Errorf("Cache defaults: got %+v", cfg.Cache)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestConfigScanConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ScanConfig().Fingerprint() != history.DefaultScanConfig().Fingerprint() {
		t.Error("Default config should produce the default scan config")
	}

	cfg.History.MaxCommitFiles = 10
	if cfg.ScanConfig().MaxCommitFiles != 10 {
		t.Errorf("MaxCommitFiles: got %d, want 10", cfg.ScanConfig().MaxCommitFiles)
	}
}

func TestConfigCacheDir(t *testing.T) {
	dirs := &storage.Dirs{Cache: "/k"}
	cfg := DefaultConfig()

	if got := cfg.CacheDir(dirs); got != filepath.Join("/k", "cochange") {
		t.Errorf("CacheDir default: got %s", got)
	}

	cfg.Cache.Dir = "/elsewhere"
	if got := cfg.CacheDir(dirs); got != "/elsewhere" {
		t.Errorf("CacheDir override: got %s", got)
	}
}

func TestManagerGet(t *testing.T) {
	m := NewManager(testDirs(t), t.TempDir())

	cfg := m.Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Coupling.Level != LevelFile {
		t.Errorf("Default level should be file")
	}
}

func TestManagerLoadFromFile(t *testing.T) {
	dirs := testDirs(t)

	writeFile(t, filepath.Join(dirs.Config, "config.yaml"), `
history:
  max_commit_files: 20
coupling:
  behavioral_threshold: 1.5
  level: component
cache:
  enabled: false
  backend: sqlite
`)

	m := NewManager(dirs, t.TempDir())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.History.MaxCommitFiles != 20 {
		t.Errorf("MaxCommitFiles: got %d, want 20", cfg.History.MaxCommitFiles)
	}
	if cfg.Coupling.BehavioralThreshold != 1.5 {
		t.Errorf("BehavioralThreshold: got %v, want 1.5", cfg.Coupling.BehavioralThreshold)
	}
	if cfg.Coupling.Level != LevelComponent {
		t.Errorf("Level: got %s, want component", cfg.Coupling.Level)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false")
	}
	if cfg.Cache.Backend != cache.BackendSQLite {
		t.Errorf("Backend: got %s, want sqlite", cfg.Cache.Backend)
	}
	if len(cfg.History.ExcludePaths) == 0 {
		t.Error("Unset sections should keep their defaults")
	}
}

func TestManagerLayerOrder(t *testing.T) {
	dirs := testDirs(t)
	root := t.TempDir()
	project := storage.ResolveProjectDirs(root)

	writeFile(t, project.Config, "trend:\n  samples: 3\n  proxy: indent\ncoupling:\n  level: package\n")
	writeFile(t, filepath.Join(dirs.Config, "config.yaml"), "trend:\n  samples: 4\n")
	writeFile(t, filepath.Join(project.Local, "config.yaml"), "trend:\n  samples: 6\n")
	explicit := filepath.Join(t.TempDir(), "seam.yaml")
	writeFile(t, explicit, "trend:\n  dead_zone: 0.1\n")

	m := NewManager(dirs, root)
	m.AddLayer(explicit)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Trend.Samples != 6 {
		t.Errorf("Local config should win: got %d samples", cfg.Trend.Samples)
	}
	if cfg.Trend.Proxy != "indent" {
		t.Errorf("Project value should survive later layers: got %s", cfg.Trend.Proxy)
	}
	if cfg.Coupling.Level != LevelPackage {
		t.Errorf("Level: got %s, want package", cfg.Coupling.Level)
	}
	if cfg.Trend.DeadZone != 0.1 {
		t.Errorf("Explicit layer: got dead zone %v, want 0.1", cfg.Trend.DeadZone)
	}
	if got := len(m.Sources()); got != 4 {
		t.Errorf("Sources: got %d files, want 4", got)
	}
}

func TestManagerMissingExplicitLayer(t *testing.T) {
	m := NewManager(testDirs(t), t.TempDir())
	m.AddLayer(filepath.Join(t.TempDir(), "absent.yaml"))

	if err := m.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a not-exist error, got %v", err)
	}
}

func TestManagerEnvironmentOverride(t *testing.T) {
	dirs := testDirs(t)
	writeFile(t, filepath.Join(dirs.Config, "config.yaml"), "history:\n  max_commit_files: 20\n")

	t.Setenv("SEAM_HISTORY_MAX_COMMIT_FILES", "30")
	t.Setenv("SEAM_COUPLING_STRUCTURAL_THRESHOLD", "2.5")
	t.Setenv("SEAM_CACHE_ENABLED", "false")
	t.Setenv("SEAM_CACHE_BACKEND", "memory")
	t.Setenv("SEAM_LOG_LEVEL", "debug")

	m := NewManager(dirs, t.TempDir())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.History.MaxCommitFiles != 30 {
		t.Errorf("MaxCommitFiles: got %d, want 30", cfg.History.MaxCommitFiles)
	}
	if cfg.Coupling.StructuralThreshold != 2.5 {
		t.Errorf("StructuralThreshold: got %v, want 2.5", cfg.Coupling.StructuralThreshold)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache should be disabled by the environment")
	}
	if cfg.Cache.Backend != cache.BackendMemory {
		t.Errorf("Backend: got %s, want memory", cfg.Cache.Backend)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log level: got %s, want debug", cfg.Log.Level)
	}
}

func TestManagerEnvironmentInvalid(t *testing.T) {
	t.Setenv("SEAM_TREND_SAMPLES", "many")

	m := NewManager(testDirs(t), t.TempDir())
	if err := m.Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestManagerRejectsInvalidConfig(t *testing.T) {
	dirs := testDirs(t)
	writeFile(t, filepath.Join(dirs.Config, "config.yaml"), `
coupling:
  level: module
trend:
  samples: 1
  proxy: tokens
cache:
  backend: redis
`)

	m := NewManager(dirs, t.TempDir())
	err := m.Load()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if m.Get().Coupling.Level != LevelFile {
		t.Error("A failed load should keep the previous config")
	}
}

func TestManagerMalformedYAML(t *testing.T) {
	dirs := testDirs(t)
	writeFile(t, filepath.Join(dirs.Config, "config.yaml"), "history: [unterminated\n")

	m := NewManager(dirs, t.TempDir())
	if err := m.Load(); err == nil {
		t.Error("Malformed YAML should fail to load")
	}
}

func TestManagerOnChange(t *testing.T) {
	m := NewManager(testDirs(t), t.TempDir())

	var seen *Config
	m.OnChange(func(cfg *Config) {
		seen = cfg
	})

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if seen == nil {
		t.Fatal("OnChange callback should have been called")
	}
	if seen != m.Get() {
		t.Error("Watcher should receive the stored config")
	}
}

func TestManagerReload(t *testing.T) {
	dirs := testDirs(t)
	configPath := filepath.Join(dirs.Config, "config.yaml")
	writeFile(t, configPath, "trend:\n  samples: 3\n")

	m := NewManager(dirs, t.TempDir())
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Get().Trend.Samples != 3 {
		t.Errorf("Initial Samples: got %d, want 3", m.Get().Trend.Samples)
	}

	writeFile(t, configPath, "trend:\n  samples: 7\n")

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if m.Get().Trend.Samples != 7 {
		t.Errorf("Reloaded Samples: got %d, want 7", m.Get().Trend.Samples)
	}
}
