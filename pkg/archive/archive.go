// SPDX-License-Identifier: Apache-2.0
package archive

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/trellis/pkg/utils/permissions"
)

// Create packs every entry under srcDir into dst and returns the number of
// regular files written. Entry names are relative to srcDir and use forward
// slashes. dst is written to a temporary sibling and renamed into place.
func Create(srcDir, dst string, f Format, logger hclog.Logger) (int, error) {
	if info, err := os.Stat(srcDir); err != nil || !info.IsDir() {
		return 0, fmt.Errorf("archive source %s is not a directory", srcDir)
	}
	if err := os.MkdirAll(filepath.Dir(dst), permissions.DirPerms); err != nil {
		return 0, fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary archive: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	logger.Info("📦 Creating archive", "format", f.Name, "source", srcDir, "path", dst)

	count, err := write(tmp, srcDir, f)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("moving archive into place: %w", err)
	}

	logger.Info("✅ Archive created", "path", dst, "files", count)
	return count, nil
}

func write(out io.Writer, srcDir string, f Format) (int, error) {
	bw := bufio.NewWriter(out)

	var sink io.Writer = bw
	var compressor io.WriteCloser
	if f.codec != nil {
		var err error
		if compressor, err = f.codec.NewWriter(bw); err != nil {
			return 0, err
		}
		sink = compressor
	}

	tw := tar.NewWriter(sink)
	count, err := addTree(tw, srcDir)
	if err != nil {
		return 0, err
	}
	if err := tw.Close(); err != nil {
		return 0, fmt.Errorf("closing tar writer: %w", err)
	}
	if compressor != nil {
		if err := compressor.Close(); err != nil {
			return 0, fmt.Errorf("closing %s writer: %w", f.Name, err)
		}
	}
	return count, bw.Flush()
}

func addTree(tw *tar.Writer, srcDir string) (int, error) {
	count := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", rel, err)
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
		}
		header.Uname, header.Gname = "", ""
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("writing tar header: %w", err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		if _, err := io.Copy(tw, file); err != nil {
			return fmt.Errorf("writing tar data for %s: %w", rel, err)
		}
		count++
		return nil
	})
	return count, err
}

// Entries lists the entry names of an archive in stream order.
func Entries(path string, f Format) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var in io.Reader = bufio.NewReader(file)
	if f.codec != nil {
		rc, err := f.codec.NewReader(in)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		in = rc
	}

	var names []string
	tr := tar.NewReader(in)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar header: %w", err)
		}
		names = append(names, header.Name)
	}
}
