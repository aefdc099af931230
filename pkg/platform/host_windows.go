//go:build windows
// +build windows

package platform

import (
	"os"
	"runtime"
)

// hostMachine returns the native processor architecture. A 32-bit process on
// a 64-bit system sees the native value in PROCESSOR_ARCHITEW6432.
func hostMachine() string {
	if v := os.Getenv("PROCESSOR_ARCHITEW6432"); v != "" {
		return v
	}
	if v := os.Getenv("PROCESSOR_ARCHITECTURE"); v != "" {
		return v
	}
	return runtime.GOARCH
}
