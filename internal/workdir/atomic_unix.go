//go:build !windows
// +build !windows

package workdir

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

// atomicReplace moves sourcePath over destPath; rename(2) is atomic.
func atomicReplace(sourcePath, destPath string, logger hclog.Logger) error {
	logger.Trace("Replacing file", "source", sourcePath, "dest", destPath)

	if err := os.Rename(sourcePath, destPath); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
