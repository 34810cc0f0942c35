package vfs

import (
	"fmt"

	"github.com/gofrs/flock"
)

// flockLocker adapts gofrs/flock to the io.Closer contract Lock returns.
// Unlike the OS-specific syscall pairs this replaces, flock.Flock is already
// cross-platform, so there is no build-tag split here.
type flockLocker struct {
	fl *flock.Flock
}

// lockFile acquires an exclusive, non-blocking advisory lock on name.
// The lock file is created if it does not already exist.
func lockFile(name string) (*flockLocker, error) {
	fl := flock.New(name)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("vfs: lock %s: %w", name, err)
	}
	if !locked {
		return nil, fmt.Errorf("vfs: lock %s: already held", name)
	}
	return &flockLocker{fl: fl}, nil
}

func (l *flockLocker) Close() error {
	return l.fl.Unlock()
}
