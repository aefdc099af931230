//go:build windows
// +build windows

package workdir

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sys/windows"
)

// atomicReplace moves sourcePath over destPath with MoveFileEx, retrying
// while an editor or indexer holds the destination open.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	from, err := windows.UTF16PtrFromString(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to convert source path to UTF-16: %w", err)
	}
	to, err := windows.UTF16PtrFromString(destPath)
	if err != nil {
		return fmt.Errorf("failed to convert dest path to UTF-16: %w", err)
	}

	const flags = windows.MOVEFILE_REPLACE_EXISTING | windows.MOVEFILE_WRITE_THROUGH
	delay := 50 * time.Millisecond

	for attempt := 1; ; attempt++ {
		err = windows.MoveFileEx(from, to, flags)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("replacing %s failed after %d attempts: %w", destPath, attempt, err)
		}
		logger.Debug("Retrying file replacement", "dest", destPath, "attempt", attempt, "error", err)
		time.Sleep(delay)
		delay *= 2
	}
}
