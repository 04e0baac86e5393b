//go:build !linux

package platform

import "runtime"

// UsableCPUs returns the number of logical CPUs.
func UsableCPUs() int {
	return runtime.NumCPU()
}
