// Package project generates and builds the game's CMake build trees.
package project

import (
	"context"
	"fmt"

	"github.com/bugdom/gamesetup/internal/env"
	"github.com/bugdom/gamesetup/internal/run"
	"github.com/bugdom/gamesetup/x/cmake"
	"go.uber.org/zap"
)

// Project describes one out-of-source build tree.
type Project struct {
	Dir     string   // build tree directory, unique within a run
	GenArgs []string // passed to cmake when generating the tree
	Configs []string // named configurations; empty for single-config generators
}

// DefaultConfig returns the first configuration, or "" when the generator
// has no configuration concept.
func (p Project) DefaultConfig() string {
	if len(p.Configs) == 0 {
		return ""
	}
	return p.Configs[0]
}

// Generator runs cmake against one source tree.
type Generator struct {
	Layout  env.Layout
	Tool    string            // cmake executable; "cmake" when empty
	Defines map[string]string // applied to every generated tree
	Runner  run.Runner
	Log     *zap.Logger
}

func (g *Generator) cmake(p Project) *cmake.CMake {
	c := cmake.New(g.Runner, g.Layout.Root, g.Layout.BuildDir(p.Dir))
	if g.Tool != "" {
		c.Tool(g.Tool)
	}
	for k, v := range g.Defines {
		c.Define(k, v)
	}
	return c
}

// Generate removes any existing tree at p.Dir and generates a fresh one.
func (g *Generator) Generate(ctx context.Context, p Project) error {
	c := g.cmake(p)
	if err := env.Nuke(g.Log, c.BuildDir()); err != nil {
		return err
	}
	g.Log.Info("Preparing " + p.Dir)
	if err := c.Configure(ctx, p.GenArgs...); err != nil {
		return fmt.Errorf("generate %s: %w", p.Dir, err)
	}
	return nil
}

// GenerateAll generates every project in order and stops at the first
// failure.
func (g *Generator) GenerateAll(ctx context.Context, projects []Project) error {
	for _, p := range projects {
		if err := g.Generate(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Build compiles p using its first configuration, if any, appending extra
// arguments to the build command.
func (g *Generator) Build(ctx context.Context, p Project, extra []string) error {
	c := g.cmake(p)
	config := p.DefaultConfig()
	c.Config(config)
	if config != "" {
		g.Log.Info("Building the game: "+p.Dir, zap.String("config", config))
	} else {
		g.Log.Info("Building the game: " + p.Dir)
	}
	if err := c.Build(ctx, extra...); err != nil {
		return fmt.Errorf("build %s: %w", p.Dir, err)
	}
	return nil
}
