//go:build !windows
// +build !windows

package platform

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// hostMachine returns the kernel's machine name (uname -m).
func hostMachine() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return runtime.GOARCH
	}
	return unix.ByteSliceToString(uts.Machine[:])
}
