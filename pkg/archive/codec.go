package archive

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
)

// codec is the compression layer around the tar stream.
type codec interface {
	NewWriter(w io.Writer) (io.WriteCloser, error)
	NewReader(r io.Reader) (io.ReadCloser, error)
}

type gzipCodec struct{}

func (gzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	gw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	return gw, nil
}

func (gzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	return gr, nil
}

type bzip2Codec struct{}

func (bzip2Codec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: 9})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 writer: %w", err)
	}
	return bw, nil
}

func (bzip2Codec) NewReader(r io.Reader) (io.ReadCloser, error) {
	br, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
	if err != nil {
		return nil, fmt.Errorf("creating bzip2 reader: %w", err)
	}
	return br, nil
}
