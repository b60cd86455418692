package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/compozy/specmatch/engine/speclib"
)

const lockRetryDelay = 50 * time.Millisecond

// Lock is an advisory cross-process lock on a library data directory.
type Lock struct {
	file *flock.Flock
}

// AcquireLock takes the exclusive lock at path, waiting at most wait. A zero
// wait tries once. It fails with speclib.ErrLibraryLocked when another process
// holds the lock.
func AcquireLock(ctx context.Context, path string, wait time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("library: create lock directory: %w", err)
	}
	file := flock.New(path)
	var (
		locked bool
		err    error
	)
	if wait <= 0 {
		locked, err = file.TryLock()
	} else {
		lockCtx, cancel := context.WithTimeout(ctx, wait)
		locked, err = file.TryLockContext(lockCtx, lockRetryDelay)
		cancel()
		if err != nil && ctx.Err() == nil {
			// timed out waiting
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("library: acquire lock %s: %w", path, err)
	}
	if !locked {
		return nil, speclib.NewError(speclib.KindLibraryLocked, "acquire lock", path, nil)
	}
	return &Lock{file: file}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.file.Path()
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := l.file.Unlock(); err != nil {
		return fmt.Errorf("library: release lock: %w", err)
	}
	return nil
}
