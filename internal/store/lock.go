package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	cserrors "github.com/Aman-CERP/contentsearch/internal/errors"
)

// DirLock is a cross-process lock on a data directory, held while an
// index run rewrites the language indices.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock for dir. The lock file is <dir>/.index.lock.
func NewDirLock(dir string) *DirLock {
	path := filepath.Join(dir, ".index.lock")
	return &DirLock{path: path, flock: flock.New(path)}
}

// Lock blocks until the lock is acquired.
func (l *DirLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock acquires the lock without blocking. A lock held elsewhere is
// reported as ERR_206_INDEX_LOCKED.
func (l *DirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return cserrors.New(cserrors.ErrCodeIndexLocked, "data directory is locked by another process", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the running index to finish, then retry")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked DirLock is a no-op.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}

// IsLocked reports whether this DirLock holds the lock.
func (l *DirLock) IsLocked() bool {
	return l.locked
}
