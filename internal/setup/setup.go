// Package setup runs the bootstrap pipeline: fetch and stage SDL, generate
// the build trees, then offer to build the first one.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bugdom/gamesetup/internal/config"
	"github.com/bugdom/gamesetup/internal/env"
	"github.com/bugdom/gamesetup/internal/fetch"
	"github.com/bugdom/gamesetup/internal/platform"
	"github.com/bugdom/gamesetup/internal/project"
	"github.com/bugdom/gamesetup/internal/prompt"
	"github.com/bugdom/gamesetup/internal/run"
	"github.com/bugdom/gamesetup/internal/stage"
	"go.uber.org/zap"
)

// ErrWrongDirectory means the process was not started from the root of
// the game source tree.
var ErrWrongDirectory = errors.New("not in the root of the game source tree")

// CheckSourceRoot verifies that marker, a file only the game source tree
// has, exists below root.
func CheckSourceRoot(root, marker string) error {
	info, err := os.Stat(filepath.Join(root, marker))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s not found", ErrWrongDirectory, marker)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrWrongDirectory, marker)
	}
	return nil
}

// Options supplies the collaborators of a Pipeline. Zero fields get
// process defaults.
type Options struct {
	Runner run.Runner
	HTTP   fetch.Doer
	In     io.Reader
	Out    io.Writer
	Log    *zap.Logger
}

// Pipeline owns one setup run.
type Pipeline struct {
	Config    config.Config
	Layout    env.Layout
	Plan      platform.Plan
	Fetcher   *fetch.Fetcher
	Stager    *stage.Stager
	Generator *project.Generator
	In        io.Reader
	Out       io.Writer
	Log       *zap.Logger
}

// New wires a Pipeline for plan.
func New(cfg config.Config, layout env.Layout, plan platform.Plan, opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	runner := opts.Runner
	if runner == nil {
		runner = run.NewExec(log)
	}
	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	fetcher := fetch.New(layout.CacheDir, log)
	if opts.HTTP != nil {
		fetcher.Client = opts.HTTP
	}
	return &Pipeline{
		Config:  cfg,
		Layout:  layout,
		Plan:    plan,
		Fetcher: fetcher,
		Stager: &stage.Stager{
			ExternDir: layout.ExternDir,
			HdiUtil:   cfg.HdiUtil,
			Runner:    runner,
			Log:       log,
		},
		Generator: &project.Generator{
			Layout:  layout,
			Tool:    cfg.CMake,
			Defines: cfg.Defines,
			Runner:  runner,
			Log:     log,
		},
		In:  in,
		Out: out,
		Log: log,
	}
}

// Outcome summarizes a completed run.
type Outcome struct {
	Generated []string // build tree directories, in order
	Built     bool     // whether the operator asked for a build
}

// Run executes every phase in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context) (Outcome, error) {
	var out Outcome
	if err := p.FetchDeps(ctx); err != nil {
		return out, err
	}
	if err := p.Generator.GenerateAll(ctx, p.Plan.Projects); err != nil {
		return out, err
	}
	for _, proj := range p.Plan.Projects {
		out.Generated = append(out.Generated, proj.Dir)
	}

	p.Log.Info("Ready to build.")
	built, err := p.MaybeBuild(ctx)
	out.Built = built
	return out, err
}

// FetchDeps fetches and stages the plan's package, if it has one.
func (p *Pipeline) FetchDeps(ctx context.Context) error {
	pkg := p.Plan.Package
	if pkg == nil {
		p.Log.Debug("no package to stage", zap.Stringer("os", p.Plan.OS))
		return nil
	}
	p.Log.Info("Fetching SDL")
	path, err := p.Fetcher.Fetch(ctx, pkg.URL)
	if err != nil {
		return err
	}
	return p.Stager.Stage(ctx, path, pkg.Kind, pkg.Subtree)
}

// MaybeBuild asks whether to build the first project and builds it on a
// yes. It reports whether a build was attempted.
func (p *Pipeline) MaybeBuild(ctx context.Context) (bool, error) {
	first := p.Plan.First()
	ok, err := prompt.Confirm(p.In, p.Out, prompt.BuildQuestion(first.Dir))
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	if !ok {
		p.Log.Debug("build skipped", zap.String("dir", first.Dir))
		return false, nil
	}
	return true, p.Generator.Build(ctx, first, p.Plan.ExtraBuildArgs)
}

// Clean removes everything a run creates: the staged package, the
// download cache and every build tree of the plan. The workspace lock
// file is kept.
func (p *Pipeline) Clean() error {
	var errs []error
	entries, err := os.ReadDir(p.Layout.CacheDir)
	if err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	for _, e := range entries {
		if e.Name() == env.LockFileName {
			continue
		}
		if err := env.Nuke(p.Log, filepath.Join(p.Layout.CacheDir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	paths := []string{p.Layout.ExternDir}
	for _, proj := range p.Plan.Projects {
		paths = append(paths, p.Layout.BuildDir(proj.Dir))
	}
	for _, path := range paths {
		if err := env.Nuke(p.Log, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
