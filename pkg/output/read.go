package output

import (
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error {
	return r.close()
}

// Open returns a reader over the decompressed image bytes of a committed render
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open render: %w", err)
	}

	switch CompressionForPath(path) {
	case CompressionZstd:
		decoder, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		return readCloser{Reader: decoder, close: func() error {
			decoder.Close()
			return file.Close()
		}}, nil
	case CompressionSnappy:
		return readCloser{Reader: snappy.NewReader(file), close: file.Close}, nil
	default:
		return file, nil
	}
}
