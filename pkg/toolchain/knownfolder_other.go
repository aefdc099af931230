//go:build !windows
// +build !windows

package toolchain

func knownProgramFiles(bool) string { return "" }
