package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

var gzipWriterPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		return w
	},
}

var gzipReaderPool = sync.Pool{
	New: func() any {
		return new(gzip.Reader)
	},
}

// GzipCompressor provides gzip (deflate) compression.
//
// Gzip is slower than Zstd at a similar ratio; it exists for interoperability, the
// output is a standard gzip member.
type GzipCompressor struct{}

var (
	_ Codec             = (*GzipCompressor)(nil)
	_ SizedDecompressor = GzipCompressor{}
)

// NewGzipCompressor creates a new gzip compressor at the default level.
func NewGzipCompressor() GzipCompressor {
	return GzipCompressor{}
}

// Compress compresses the input data using gzip.
//
// Uses a pooled gzip.Writer for better performance.
func (c GzipCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	w, _ := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress decompresses gzip-compressed data.
func (c GzipCompressor) Decompress(data []byte) ([]byte, error) {
	return c.DecompressSized(data, len(data)*4)
}

// DecompressSized decompresses data into a buffer preallocated for size bytes.
func (c GzipCompressor) DecompressSized(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, _ := gzipReaderPool.Get().(*gzip.Reader)
	defer gzipReaderPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}

	out := bytes.NewBuffer(make([]byte, 0, size))
	if _, err := io.Copy(out, r); err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}
	if err := r.Close(); err != nil {
		return nil, fmt.Errorf("gzip decompression failed: %w", err)
	}

	return out.Bytes(), nil
}
