// Package stage places a fetched dependency package into the extern
// directory.
package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bugdom/gamesetup/internal/env"
	"github.com/bugdom/gamesetup/internal/run"
	"go.uber.org/zap"
)

// Kind is the container format of a dependency package.
type Kind int

const (
	Zip       Kind = iota // extracted whole into the extern directory
	DiskImage             // mounted; one subtree is copied out
)

func (k Kind) String() string {
	switch k {
	case Zip:
		return "zip"
	case DiskImage:
		return "dmg"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const stagingPattern = ".staging-"

// Stager unpacks packages into ExternDir.
type Stager struct {
	ExternDir string
	HdiUtil   string // disk image tool; "hdiutil" when empty
	Runner    run.Runner
	Log       *zap.Logger
}

// Stage replaces ExternDir/subtree with the contents of the package at
// pkgPath.
//
// The package is unpacked into a temporary directory inside ExternDir and
// its top-level entries are then renamed into place, so a failed extract
// or copy leaves no partial subtree behind.
func (s *Stager) Stage(ctx context.Context, pkgPath string, kind Kind, subtree string) error {
	if subtree == "" || subtree == "." || subtree == ".." || filepath.Base(subtree) != subtree {
		return fmt.Errorf("invalid subtree name %q", subtree)
	}
	if err := env.Nuke(s.Log, filepath.Join(s.ExternDir, subtree)); err != nil {
		return err
	}
	if err := os.MkdirAll(s.ExternDir, 0o755); err != nil {
		return err
	}
	if err := s.sweep(); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(s.ExternDir, stagingPattern)
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	switch kind {
	case Zip:
		err = extractZip(pkgPath, tmp)
	case DiskImage:
		err = s.copyFromImage(ctx, pkgPath, subtree, tmp)
	default:
		err = fmt.Errorf("unsupported package kind %v", kind)
	}
	if err != nil {
		return fmt.Errorf("stage %s: %w", filepath.Base(pkgPath), err)
	}
	return promote(tmp, s.ExternDir)
}

// sweep removes staging directories left by an interrupted run. Callers
// hold the workspace lock, so none of them belongs to a live stage.
func (s *Stager) sweep() error {
	stale, err := filepath.Glob(filepath.Join(s.ExternDir, stagingPattern+"*"))
	if err != nil {
		return err
	}
	for _, dir := range stale {
		s.Log.Debug("removing stale staging directory", zap.String("dir", dir))
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

// copyFromImage attaches the image at a temporary mount point, copies
// subtree into dst and always detaches.
func (s *Stager) copyFromImage(ctx context.Context, image, subtree, dst string) (err error) {
	tool := s.HdiUtil
	if tool == "" {
		tool = "hdiutil"
	}
	mountPoint, err := os.MkdirTemp("", "gamesetup-mnt-")
	if err != nil {
		return err
	}
	// Remove, not RemoveAll: the mount point may still hold a volume.
	defer os.Remove(mountPoint)

	if err := s.Runner.Run(ctx, tool, "attach", image, "-mountpoint", mountPoint, "-quiet").Failure(); err != nil {
		return err
	}
	defer func() {
		// Detach even when ctx is already cancelled.
		if derr := s.Runner.Run(context.WithoutCancel(ctx), tool, "detach", mountPoint, "-quiet").Failure(); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	return copyTree(filepath.Join(mountPoint, subtree), filepath.Join(dst, subtree))
}

// promote moves every top-level entry of src into dst, replacing entries
// of the same name.
func promote(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(dst, e.Name())
		if err := os.RemoveAll(target); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(src, e.Name()), target); err != nil {
			return err
		}
	}
	return nil
}
