package library

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/kozaktomas/photo-triage/internal/constants"
)

// ErrLocked means another sort run holds the output root.
var ErrLocked = errors.New("sorted directory is locked by another run")

// Lock is an exclusive hold on a sorted output root.
type Lock struct {
	fl *flock.Flock
}

// LockRoot creates root if needed and takes its lock file without waiting.
func LockRoot(root string) (*Lock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create sorted root: %w", err)
	}

	fl := flock.New(filepath.Join(root, constants.LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", root, err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	if err := os.Remove(l.fl.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
