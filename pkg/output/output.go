// Package output resolves render destinations and writes them atomically,
// optionally compressing the image stream.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the encoding applied to the image stream on disk
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionZstd   Compression = "zstd"
	CompressionSnappy Compression = "snappy"
)

// ErrUnknownCompression is returned for compression names that are not supported
var ErrUnknownCompression = errors.New("unknown compression")

// ErrClosed is returned when a file is committed after it was already finished
var ErrClosed = errors.New("output file already closed")

// ParseCompression maps a name to a Compression; empty means none.
func ParseCompression(raw string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd, "zst":
		return CompressionZstd, nil
	case CompressionSnappy, "sz":
		return CompressionSnappy, nil
	default:
		return CompressionNone, fmt.Errorf("%w: %q (want none, zstd or snappy)", ErrUnknownCompression, raw)
	}
}

// Extension returns the file suffix for an image written with this compression
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".ppm.zst"
	case CompressionSnappy:
		return ".ppm.sz"
	default:
		return ".ppm"
	}
}

// CompressionForPath infers the compression from a file name
func CompressionForPath(path string) Compression {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return CompressionZstd
	case strings.HasSuffix(path, ".sz"):
		return CompressionSnappy
	default:
		return CompressionNone
	}
}

// Path returns dir/<scene>/render_<timestamp><ext>
func Path(dir, sceneName string, now time.Time, c Compression) string {
	timestamp := now.Format("20060102_150405")
	return filepath.Join(dir, sceneName, fmt.Sprintf("render_%s%s", timestamp, c.Extension()))
}

// File is a render destination that only appears at its final path once committed
type File struct {
	path    string
	tmp     *os.File
	writer  io.Writer
	encoder io.WriteCloser // nil when uncompressed
	closed  bool
}

// Create opens a temporary file next to path, creating parent directories as needed
func Create(path string, c Compression) (*File, error) {
	c, err := ParseCompression(string(c))
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	f := &File{path: path, tmp: tmp, writer: tmp}
	switch c {
	case CompressionZstd:
		encoder, err := zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		f.writer, f.encoder = encoder, encoder
	case CompressionSnappy:
		encoder := snappy.NewBufferedWriter(tmp)
		f.writer, f.encoder = encoder, encoder
	}
	return f, nil
}

// Path returns the final destination path
func (f *File) Path() string {
	return f.path
}

// Write writes to the temporary file through the encoder
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	return f.writer.Write(p)
}

// Commit flushes everything to disk and moves the file to its final path.
// On failure the temporary file is removed.
func (f *File) Commit() error {
	if f.closed {
		return ErrClosed
	}
	f.closed = true

	if f.encoder != nil {
		if err := f.encoder.Close(); err != nil {
			f.discard()
			return fmt.Errorf("flush compressed output: %w", err)
		}
	}
	if err := f.tmp.Chmod(0o644); err != nil {
		f.discard()
		return fmt.Errorf("set output permissions: %w", err)
	}
	if err := f.tmp.Sync(); err != nil {
		f.discard()
		return fmt.Errorf("sync output: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		os.Remove(f.tmp.Name())
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(f.tmp.Name(), f.path); err != nil {
		os.Remove(f.tmp.Name())
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// Abort discards everything written so far. It is a no-op after Commit.
func (f *File) Abort() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.encoder != nil {
		f.encoder.Close()
	}
	return f.discard()
}

func (f *File) discard() error {
	f.tmp.Close()
	if err := os.Remove(f.tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	return nil
}
