package workspace

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the output lock.
var ErrLocked = errors.New("output is locked by another run")

// Lock is an advisory lock on an output path, held in <output>.lock. The
// lock file is created on first use and never removed.
type Lock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for output.
func LockPath(output string) string { return output + ".lock" }

// AcquireLock takes the lock for output without blocking.
func AcquireLock(output string) (*Lock, error) {
	fl := flock.New(LockPath(output))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.fl.Path() }

// Release unlocks. The lock file stays on disk: unlinking it would let a
// run that already opened the old file lock a different inode than a run
// that creates a new one. Release is idempotent.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	err := l.fl.Unlock()
	l.fl = nil
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
