// Package env describes the on-disk workspace a setup run owns.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// LockFileName is the lock file kept in the cache directory.
const LockFileName = ".gamesetup.lock"

// ErrLocked is returned by Lock when another run holds the workspace.
var ErrLocked = errors.New("another setup run is using this workspace")

// Layout holds the absolute directories of a workspace.
//
//	Root/
//	  extern/   # staged dependency
//	  cache/    # downloaded packages, named by URL tail
//	  build-*/  # generated build trees
type Layout struct {
	Root      string
	ExternDir string
	CacheDir  string
}

// NewLayout resolves root to an absolute path and places relative extern
// and cache directories under it.
func NewLayout(root, externDir, cacheDir string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, err
	}
	return Layout{
		Root:      abs,
		ExternDir: under(abs, externDir),
		CacheDir:  under(abs, cacheDir),
	}, nil
}

func under(root, dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}

// BuildDir returns the location of the build tree named name.
func (l Layout) BuildDir(name string) string {
	return under(l.Root, name)
}

// Lock takes an exclusive lock on the workspace. The caller must Unlock
// the returned handle.
func (l Layout) Lock() (*flock.Flock, error) {
	if err := os.MkdirAll(l.CacheDir, 0o755); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(l.CacheDir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	return fl, nil
}

// Nuke removes path and everything below it, if it exists.
func Nuke(log *zap.Logger, path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	log.Info("Nuking", zap.String("path", path))
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
