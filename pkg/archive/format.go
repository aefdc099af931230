// SPDX-License-Identifier: Apache-2.0
// Package archive packs an install prefix into a distributable tarball.
package archive

import (
	"fmt"
	"strings"
)

// Format is a tar stream with an optional compression layer.
type Format struct {
	Name  string
	Ext   string
	codec codec
}

var (
	Tar      = Format{Name: "tar", Ext: "tar"}
	TarGzip  = Format{Name: "tar.gz", Ext: "tar.gz", codec: gzipCodec{}}
	TarBzip2 = Format{Name: "tar.bz2", Ext: "tar.bz2", codec: bzip2Codec{}}
)

var namedFormats = map[string]Format{
	"tar":     Tar,
	"tar.gz":  TarGzip,
	"tgz":     TarGzip,
	"gz":      TarGzip,
	"tar.bz2": TarBzip2,
	"tbz2":    TarBzip2,
	"bz2":     TarBzip2,
}

// ParseFormat accepts tar, tar.gz, tgz, tar.bz2 and tbz2.
func ParseFormat(raw string) (Format, error) {
	f, ok := namedFormats[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return Format{}, fmt.Errorf("unknown archive format: %q", raw)
	}
	return f, nil
}

func (f Format) String() string { return f.Name }
