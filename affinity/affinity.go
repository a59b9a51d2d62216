// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_other.go) guarded by build tags.

package affinity

import "runtime"

// PinCurrent locks the calling goroutine to its OS thread and pins that
// thread to cpuID. The returned release unlocks the goroutine again; the
// thread keeps its affinity mask and dies with the goroutine if it is never
// released.
func PinCurrent(cpuID int) (release func(), err error) {
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpuID); err != nil {
		runtime.UnlockOSThread()
		return func() {}, err
	}
	return runtime.UnlockOSThread, nil
}
