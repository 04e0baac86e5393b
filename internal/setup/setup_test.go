package setup

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bugdom/gamesetup/internal/config"
	"github.com/bugdom/gamesetup/internal/env"
	"github.com/bugdom/gamesetup/internal/platform"
	"github.com/bugdom/gamesetup/internal/run/runtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type harness struct {
	pipeline *Pipeline
	rec      *runtest.Recorder
	out      *bytes.Buffer
	logs     *observer.ObservedLogs
	layout   env.Layout
}

func newHarness(t *testing.T, goos, answer string, opts platform.Options, hook func(string, []string) error) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	layout, err := env.NewLayout(t.TempDir(), cfg.ExternDir, cfg.CacheDir)
	require.NoError(t, err)

	if opts.SDLVersion == "" {
		opts.SDLVersion = cfg.SDLVersion
	}
	plan, err := platform.Resolve(goos, opts)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	rec := &runtest.Recorder{Hook: hook}
	out := &bytes.Buffer{}
	p := New(cfg, layout, plan, Options{
		Runner: rec,
		In:     strings.NewReader(answer),
		Out:    out,
		Log:    zap.New(core),
	})
	return &harness{pipeline: p, rec: rec, out: out, logs: logs, layout: layout}
}

func TestRunUnixLikeEndToEnd(t *testing.T) {
	h := newHarness(t, "linux", "y\n", platform.Options{CPUs: 4}, nil)

	outcome, err := h.pipeline.Run(context.Background())
	require.NoError(t, err)

	root := h.layout.Root
	release := filepath.Join(root, "build-release")
	debug := filepath.Join(root, "build-debug")
	assert.Equal(t, []string{
		"cmake -S " + root + " -B " + release + " -DCMAKE_BUILD_TYPE=Release",
		"cmake -S " + root + " -B " + debug + " -DCMAKE_BUILD_TYPE=Debug",
		"cmake --build " + release + " -- -j 4",
	}, h.rec.Lines())
	assert.Equal(t, []string{"build-release", "build-debug"}, outcome.Generated)
	assert.True(t, outcome.Built)
	assert.Equal(t, "Build project 'build-release' now? (Y/N) ", h.out.String())
	assert.NotContains(t, strings.Join(h.rec.Lines(), "\n"), "--config")
	assert.Equal(t, 1, h.logs.FilterMessage("Ready to build.").Len())
	assert.Zero(t, h.logs.FilterMessage("Fetching SDL").Len())
}

func TestMaybeBuildAnswers(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"", false},
		{"yes\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.answer), func(t *testing.T) {
			h := newHarness(t, "linux", tt.answer, platform.Options{CPUs: 2}, nil)
			built, err := h.pipeline.MaybeBuild(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, built)
			if tt.want {
				assert.Len(t, h.rec.Calls, 1)
			} else {
				assert.Empty(t, h.rec.Calls, "no external tool may run when the build is skipped")
			}
		})
	}
}

func TestRunRegeneratesExistingTrees(t *testing.T) {
	h := newHarness(t, "linux", "n\n", platform.Options{CPUs: 1}, nil)
	stale := filepath.Join(h.layout.BuildDir("build-debug"), "CMakeCache.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	outcome, err := h.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, outcome.Built)
	assert.NoFileExists(t, stale)
	assert.Len(t, h.rec.Calls, 2)
}

func TestRunGenerateFailureAborts(t *testing.T) {
	boom := errors.New("CMake Error")
	h := newHarness(t, "linux", "y\n", platform.Options{CPUs: 1}, func(string, []string) error { return boom })

	outcome, err := h.pipeline.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Len(t, h.rec.Calls, 1, "second project must not be generated")
	assert.False(t, outcome.Built)
	assert.Empty(t, h.out.String(), "no prompt after a failed generation")
}

func sdlZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create("SDL2-2.0.14/include/SDL.h")
	require.NoError(t, err)
	fw.Write([]byte("header"))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRunWindows(t *testing.T) {
	body := sdlZip(t)
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		w.Write(body)
	}))
	defer srv.Close()

	h := newHarness(t, "windows", "n\n", platform.Options{BaseURL: srv.URL}, nil)
	outcome, err := h.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/SDL2-devel-2.0.14-VC.zip"}, requests)
	assert.FileExists(t, filepath.Join(h.layout.CacheDir, "SDL2-devel-2.0.14-VC.zip"))
	data, err := os.ReadFile(filepath.Join(h.layout.ExternDir, "SDL2-2.0.14", "include", "SDL.h"))
	require.NoError(t, err)
	assert.Equal(t, "header", string(data))

	assert.Equal(t, []string{"build-msvc"}, outcome.Generated)
	assert.Equal(t, []string{
		"cmake -S " + h.layout.Root + " -B " + h.layout.BuildDir("build-msvc") + " -G Visual Studio 16 2019 -A x64",
	}, h.rec.Lines())
	assert.False(t, outcome.Built)

	// A second run reuses the cached package.
	h.pipeline.In = strings.NewReader("y\n")
	_, err = h.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, "cmake --build "+h.layout.BuildDir("build-msvc")+" --config Release", h.rec.Lines()[len(h.rec.Lines())-1])
}

func TestRunDarwin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("dmg"))
	}))
	defer srv.Close()

	hook := func(name string, args []string) error {
		if name != "hdiutil" {
			return nil
		}
		switch args[0] {
		case "attach":
			return os.MkdirAll(filepath.Join(args[3], "SDL2.framework", "Headers"), 0o755)
		case "detach":
			return os.RemoveAll(filepath.Join(args[1], "SDL2.framework"))
		}
		return nil
	}
	h := newHarness(t, "darwin", "Y\n", platform.Options{BaseURL: srv.URL}, hook)

	outcome, err := h.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Built)
	assert.DirExists(t, filepath.Join(h.layout.ExternDir, "SDL2.framework", "Headers"))

	lines := h.rec.Lines()
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "hdiutil attach "+filepath.Join(h.layout.CacheDir, "SDL2-2.0.14.dmg")))
	assert.True(t, strings.HasPrefix(lines[1], "hdiutil detach "))
	assert.Equal(t, "cmake -S "+h.layout.Root+" -B "+h.layout.BuildDir("build-xcode")+" -G Xcode", lines[2])
	assert.Equal(t, "cmake --build "+h.layout.BuildDir("build-xcode")+" --config Release -- -quiet", lines[3])
}

func TestFetchDepsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h := newHarness(t, "windows", "", platform.Options{BaseURL: srv.URL}, nil)
	err := h.pipeline.FetchDeps(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
	assert.NoDirExists(t, filepath.Join(h.layout.ExternDir, "SDL2-2.0.14"))
}

func TestCheckSourceRoot(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join("src", "Enemies", "Enemy_WorkerBee.c")

	err := CheckSourceRoot(root, marker)
	require.ErrorIs(t, err, ErrWrongDirectory)

	require.NoError(t, os.MkdirAll(filepath.Join(root, marker), 0o755))
	require.ErrorIs(t, CheckSourceRoot(root, marker), ErrWrongDirectory)

	require.NoError(t, os.Remove(filepath.Join(root, marker)))
	require.NoError(t, os.WriteFile(filepath.Join(root, marker), nil, 0o644))
	require.NoError(t, CheckSourceRoot(root, marker))
}

func TestClean(t *testing.T) {
	h := newHarness(t, "linux", "", platform.Options{CPUs: 1}, nil)
	fl, err := h.layout.Lock()
	require.NoError(t, err)
	defer fl.Unlock()

	for _, dir := range []string{
		h.layout.ExternDir,
		h.layout.BuildDir("build-release"),
		h.layout.BuildDir("build-debug"),
	} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	pkg := filepath.Join(h.layout.CacheDir, "SDL2-2.0.14.dmg")
	require.NoError(t, os.WriteFile(pkg, []byte("x"), 0o644))
	keep := filepath.Join(h.layout.Root, "CMakeLists.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	require.NoError(t, h.pipeline.Clean())

	assert.NoDirExists(t, h.layout.ExternDir)
	assert.NoDirExists(t, h.layout.BuildDir("build-release"))
	assert.NoDirExists(t, h.layout.BuildDir("build-debug"))
	assert.NoFileExists(t, pkg)
	assert.FileExists(t, filepath.Join(h.layout.CacheDir, env.LockFileName))
	assert.FileExists(t, keep)
}
