// Package workdir manages the directories trellis generates into and builds in.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// Ensure prepares dir. A regular file in its place is removed. With clean an
// existing directory is wiped; with create a missing directory is made.
// When the directory itself cannot be removed (a shell holding it open on
// Windows), its children are removed instead.
func Ensure(dir string, clean, create bool, logger hclog.Logger) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("removing file in place of directory %s: %w", dir, err)
		}
	case err == nil && clean:
		logger.Debug("🧹 Cleaning directory", "path", dir)
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("⚠️ Could not remove directory, emptying it instead", "path", dir, "error", err)
			if err := emptyDir(dir); err != nil {
				return err
			}
			return nil
		}
	case err != nil && !os.IsNotExist(err):
		return fmt.Errorf("inspecting %s: %w", dir, err)
	}

	if !create {
		return nil
	}
	if err := os.MkdirAll(dir, permissions.DirPerms); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// IsFileModified reports whether dst is missing or older than src.
func IsFileModified(dst, src string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("%q does not exist: %w", src, err)
	}
	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return srcInfo.ModTime().After(dstInfo.ModTime()), nil
}

// WriteFile writes data to a temporary sibling of path and moves it into place.
func WriteFile(path string, data []byte, logger hclog.Logger) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, permissions.FilePerms); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := atomicReplace(tmpPath, path, logger); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
