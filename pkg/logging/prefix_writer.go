package logging

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter wraps an io.Writer and adds a prefix to each line.
// External build tools write stdout and stderr through the same
// PrefixWriter, so writes are serialised.
type PrefixWriter struct {
	mu     sync.Mutex
	prefix string
	writer io.Writer
	buffer bytes.Buffer
}

// NewPrefixWriter creates a new PrefixWriter.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{
		prefix: prefix,
		writer: w,
	}
}

// Write buffers data until a newline is seen, then writes the prefixed line.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	n := len(p)
	pw.buffer.Write(p)

	for {
		idx := bytes.IndexByte(pw.buffer.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := pw.buffer.Next(idx + 1)
		if err := pw.emit(line); err != nil {
			return 0, err
		}
	}

	return n, nil
}

// Flush writes any buffered partial line, terminated with a newline.
func (pw *PrefixWriter) Flush() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.buffer.Len() == 0 {
		return nil
	}
	line := append(pw.buffer.Next(pw.buffer.Len()), '\n')
	return pw.emit(line)
}

func (pw *PrefixWriter) emit(line []byte) error {
	if _, err := io.WriteString(pw.writer, pw.prefix); err != nil {
		return err
	}
	_, err := pw.writer.Write(line)
	return err
}
