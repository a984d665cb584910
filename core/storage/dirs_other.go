//go:build !linux && !windows

package storage

import (
	"os"
	"path/filepath"
)

func platformConfigDefault() string {
	return filepath.Join(homeDir(), "Library", "Application Support", AppName)
}

func platformCacheDefault() string {
	return filepath.Join(homeDir(), "Library", "Caches", AppName)
}

func platformStateDefault() string {
	return filepath.Join(homeDir(), "Library", "Logs", AppName)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}
