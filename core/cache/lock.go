package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var ErrLockTimeout = errors.New("timed out waiting for cache lock")

const lockPollInterval = 100 * time.Millisecond

// Lock is an advisory lock on one cache key, held across processes. It
// serialises the read-extend-write cycle of concurrent scans of the same
// repository. A Lock is not safe for concurrent use by multiple goroutines.
type Lock struct {
	path string
	file *os.File
}

// NewLock prepares the lock for key inside dir. Nothing is acquired yet.
func NewLock(dir, key string) (*Lock, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Lock{path: filepath.Join(dir, key+".lock")}, nil
}

func (l *Lock) Path() string {
	return l.path
}

func (l *Lock) Held() bool {
	return l.file != nil
}

// TryAcquire takes the lock if no one else holds it.
func (l *Lock) TryAcquire() (bool, error) {
	if l.file != nil {
		return true, nil
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return false, err
	}

	ok, err := tryLockFile(file)
	if err != nil || !ok {
		file.Close()
		return false, err
	}

	l.file = file
	return true, nil
}

// Acquire waits for the lock until ctx ends or timeout passes. A zero
// timeout waits on ctx alone.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.TryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if timeout > 0 && time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockTimeout, l.path)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	err := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil

	if err != nil {
		return err
	}
	return closeErr
}
