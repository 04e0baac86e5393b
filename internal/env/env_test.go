package env

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLayout(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere")

	l, err := NewLayout(root, "extern", abs)
	if err != nil {
		t.Fatalf("NewLayout: %v", err)
	}
	if l.Root != root {
		t.Errorf("Root = %q, want %q", l.Root, root)
	}
	if want := filepath.Join(root, "extern"); l.ExternDir != want {
		t.Errorf("ExternDir = %q, want %q", l.ExternDir, want)
	}
	if l.CacheDir != abs {
		t.Errorf("CacheDir = %q, want %q", l.CacheDir, abs)
	}
	if want := filepath.Join(root, "build-debug"); l.BuildDir("build-debug") != want {
		t.Errorf("BuildDir = %q, want %q", l.BuildDir("build-debug"), want)
	}
}

func TestLockExclusive(t *testing.T) {
	l, err := NewLayout(t.TempDir(), "extern", "cache")
	if err != nil {
		t.Fatal(err)
	}

	fl, err := l.Lock()
	if err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	if _, err := os.Stat(filepath.Join(l.CacheDir, LockFileName)); err != nil {
		t.Errorf("lock file not created: %v", err)
	}

	if _, err := l.Lock(); !errors.Is(err, ErrLocked) {
		t.Errorf("second Lock error = %v, want ErrLocked", err)
	}

	if err := fl.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	fl2, err := l.Lock()
	if err != nil {
		t.Fatalf("Lock after Unlock: %v", err)
	}
	fl2.Unlock()
}

func TestNuke(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	dir := filepath.Join(t.TempDir(), "build-release")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "sub", "marker"), []byte("x"), 0o644)

	if err := Nuke(log, dir); err != nil {
		t.Fatalf("Nuke: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("directory still present: %v", err)
	}
	if logs.FilterMessage("Nuking").Len() != 1 {
		t.Errorf("expected one Nuking notice, got %d", logs.FilterMessage("Nuking").Len())
	}

	// Missing paths are not an error and are not announced.
	if err := Nuke(log, dir); err != nil {
		t.Fatalf("Nuke on missing path: %v", err)
	}
	if logs.FilterMessage("Nuking").Len() != 1 {
		t.Errorf("missing path was announced")
	}
}
