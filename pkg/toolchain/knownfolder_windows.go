//go:build windows
// +build windows

package toolchain

import "golang.org/x/sys/windows"

// knownProgramFiles asks the shell for the Program Files folder when the
// environment does not carry it.
func knownProgramFiles(x86 bool) string {
	folder := windows.FOLDERID_ProgramFiles
	if x86 {
		folder = windows.FOLDERID_ProgramFilesX86
	}
	path, err := windows.KnownFolderPath(folder, windows.KF_FLAG_DEFAULT)
	if err != nil {
		return ""
	}
	return path
}
