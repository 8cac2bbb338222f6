// Package lockedfile serializes access to a directory across processes
// with an advisory lock on a sentinel file.
package lockedfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// A Mutex guards a file path. The zero value is not usable; use MutexAt.
type Mutex struct {
	path string
}

// MutexAt returns a Mutex whose lock file is path.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: empty path")
	}
	return &Mutex{path: path}
}

// Lock blocks until the lock is held and returns the function that releases it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(mu.path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(mu.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", mu.path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
