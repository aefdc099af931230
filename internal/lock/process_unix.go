//go:build !windows
// +build !windows

package lock

import "golang.org/x/sys/unix"

// processRunning sends signal 0, which checks for existence only.
func processRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}
