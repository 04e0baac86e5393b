// Package platform decides, per host operating system, which SDL package
// to stage and which build trees to generate.
package platform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bugdom/gamesetup/internal/project"
	"github.com/bugdom/gamesetup/internal/stage"
	"golang.org/x/mod/semver"
)

// DefaultBaseURL is the SDL release host.
const DefaultBaseURL = "http://libsdl.org/release"

// OS is the family of host operating systems a plan is built for.
type OS int

const (
	Other   OS = iota // Unix-like hosts, and any name not matched below
	Windows
	Darwin
)

func (o OS) String() string {
	switch o {
	case Windows:
		return "windows"
	case Darwin:
		return "darwin"
	}
	return "other"
}

// Detect maps a GOOS-style name to its family.
func Detect(goos string) OS {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	}
	return Other
}

// Package is the dependency package a plan stages into extern/.
type Package struct {
	URL     string
	Kind    stage.Kind
	Subtree string // entry of extern/ replaced by staging
}

// Plan is everything the setup run does for one host.
type Plan struct {
	OS             OS
	Package        *Package // nil when the host provides SDL itself
	Projects       []project.Project
	ExtraBuildArgs []string // appended to the build command
}

// First returns the project offered for building.
func (p Plan) First() project.Project {
	return p.Projects[0]
}

// Options parameterize Resolve.
type Options struct {
	SDLVersion string
	BaseURL    string
	CPUs       int // parallel jobs passed to single-config builds
}

// Resolve builds the plan for goos. The result depends only on its
// arguments.
func Resolve(goos string, opts Options) (Plan, error) {
	if !semver.IsValid("v" + opts.SDLVersion) {
		return Plan{}, fmt.Errorf("invalid SDL version %q", opts.SDLVersion)
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	cpus := opts.CPUs
	if cpus < 1 {
		cpus = 1
	}
	ver := opts.SDLVersion

	plan := Plan{OS: Detect(goos)}
	switch plan.OS {
	case Windows:
		plan.Package = &Package{
			URL:     fmt.Sprintf("%s/SDL2-devel-%s-VC.zip", base, ver),
			Kind:    stage.Zip,
			Subtree: "SDL2-" + ver,
		}
		plan.Projects = []project.Project{
			{Dir: "build-msvc", GenArgs: []string{"-G", "Visual Studio 16 2019", "-A", "x64"}, Configs: []string{"Release", "Debug"}},
		}
	case Darwin:
		plan.Package = &Package{
			URL:     fmt.Sprintf("%s/SDL2-%s.dmg", base, ver),
			Kind:    stage.DiskImage,
			Subtree: "SDL2.framework",
		}
		plan.Projects = []project.Project{
			{Dir: "build-xcode", GenArgs: []string{"-G", "Xcode"}, Configs: []string{"Release", "Debug"}},
		}
		plan.ExtraBuildArgs = []string{"--", "-quiet"}
	default:
		plan.Projects = []project.Project{
			{Dir: "build-release", GenArgs: []string{"-DCMAKE_BUILD_TYPE=Release"}},
			{Dir: "build-debug", GenArgs: []string{"-DCMAKE_BUILD_TYPE=Debug"}},
		}
		plan.ExtraBuildArgs = []string{"--", "-j", strconv.Itoa(cpus)}
	}

	if err := plan.validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func (p Plan) validate() error {
	if len(p.Projects) == 0 {
		return fmt.Errorf("no projects for %v", p.OS)
	}
	seen := make(map[string]bool, len(p.Projects))
	for _, proj := range p.Projects {
		if seen[proj.Dir] {
			return fmt.Errorf("duplicate build directory %q", proj.Dir)
		}
		seen[proj.Dir] = true
	}
	return nil
}
