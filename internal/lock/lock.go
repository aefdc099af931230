// SPDX-License-Identifier: Apache-2.0
// Package lock keeps two trellis runs from driving the same build tree.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	terrors "github.com/provide-io/trellis/pkg/errors"
	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// FileName is the lock file created inside the build directory.
const FileName = ".trellis.lock"

// Lock is a held pid lock file.
type Lock struct {
	path   string
	logger hclog.Logger
}

// Acquire takes the lock in dir, creating dir if needed. A lock left by a
// process that is no longer running is removed first.
func Acquire(dir string, logger hclog.Logger) (*Lock, error) {
	if err := os.MkdirAll(dir, permissions.DirPerms); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, FileName)
	removeStale(lockPath, logger)

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, permissions.FilePerms)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", terrors.ErrLocked, lockPath)
		}
		return nil, err
	}
	defer file.Close()

	pid := os.Getpid()
	if _, err := fmt.Fprintf(file, "%d\n", pid); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	logger.Debug("🔒 Acquired build lock", "path", lockPath, "pid", pid)
	return &Lock{path: lockPath, logger: logger}, nil
}

// removeStale deletes a lock whose owner is gone or unreadable.
func removeStale(lockPath string, logger hclog.Logger) {
	data, err := os.ReadFile(lockPath)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		logger.Info("🧹 Removing unreadable lock file", "path", lockPath)
		os.Remove(lockPath)
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		logger.Info("🧹 Removing invalid lock file (couldn't parse PID)", "path", lockPath)
		os.Remove(lockPath)
		return
	}
	if !processRunning(pid) {
		logger.Info("🧹 Removing stale lock from dead process", "pid", pid)
		os.Remove(lockPath)
		return
	}
	logger.Debug("🔒 Lock held by active process", "pid", pid)
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil {
		l.logger.Debug("⚠️ Failed to remove lock file", "error", err)
		return
	}
	l.logger.Debug("🔓 Released build lock")
}
