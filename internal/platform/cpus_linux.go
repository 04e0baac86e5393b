//go:build linux

package platform

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// UsableCPUs returns the number of CPUs this process may run on.
func UsableCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return runtime.NumCPU()
	}
	if n := set.Count(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}
