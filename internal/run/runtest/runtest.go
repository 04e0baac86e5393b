// Package runtest provides a run.Runner that records invocations instead of
// starting processes.
package runtest

import (
	"context"
	"strings"

	"github.com/bugdom/gamesetup/internal/run"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Recorder records every Run. When Hook is set it is called with each
// invocation and its error becomes the result's error.
type Recorder struct {
	Calls []Call
	Hook  func(name string, args []string) error
}

func (r *Recorder) Run(_ context.Context, name string, args ...string) run.Result {
	args = append([]string(nil), args...)
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
	res := run.Result{Command: append([]string{name}, args...)}
	if r.Hook != nil {
		if err := r.Hook(name, args); err != nil {
			res.Err = err
			res.ExitCode = 1
		}
	}
	return res
}

// Lines returns the recorded calls as command lines.
func (r *Recorder) Lines() []string {
	lines := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		lines[i] = c.String()
	}
	return lines
}
