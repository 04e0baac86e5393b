// Package cmake wraps the cmake generate/build workflow.
package cmake

import (
	"context"
	"os"
	"sort"

	"github.com/bugdom/gamesetup/internal/run"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives one out-of-source build tree.
type CMake struct {
	runner    run.Runner
	tool      string
	sourceDir string
	buildDir  string
	config    string
	defines   map[string]defineValue
}

// New returns a CMake that invokes "cmake" through r.
func New(r run.Runner, sourceDir, buildDir string) *CMake {
	return &CMake{
		runner:    r,
		tool:      "cmake",
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]defineValue),
	}
}

// Tool overrides the cmake executable.
func (c *CMake) Tool(name string) { c.tool = name }

// Config selects the configuration of a multi-config generator
// (e.g. "Release") passed to --build via --config.
func (c *CMake) Config(name string) { c.config = name }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// BuildDir returns the build tree location.
func (c *CMake) BuildDir() string { return c.buildDir }

// Configure runs "cmake -S <source> -B <build>" followed by args and the
// definitions in key order.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	cmakeArgs = append(cmakeArgs, args...)
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return c.runner.Run(ctx, c.tool, cmakeArgs...).Failure()
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.config != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.config)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.runner.Run(ctx, c.tool, cmakeArgs...).Failure()
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
