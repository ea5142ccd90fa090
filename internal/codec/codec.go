// Package codec selects a stream compression codec from a file name.
//
// Source files and dataset snapshots may be stored compressed. The codec is
// chosen by the outermost extension:
//
//	.gz   gzip  (klauspost/compress/gzip)
//	.zst  zstd  (klauspost/compress/zstd)
//	.lz4  lz4   (pierrec/lz4/v4 frame format)
//
// Any other extension is passed through unchanged.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a stream compression format.
type Codec uint8

// Supported codecs.
const (
	None Codec = iota
	Gzip
	Zstd
	LZ4
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

// ForName returns the codec implied by the outermost extension of name.
func ForName(name string) Codec {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// Strip removes a compression extension from name, if present.
// "EF 40a.csv.gz" becomes "EF 40a.csv".
func Strip(name string) string {
	if ForName(name) == None {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// NewReader wraps r with a decompressor chosen from name.
// The returned ReadCloser does not close r.
func NewReader(r io.Reader, name string) (io.ReadCloser, error) {
	switch ForName(name) {
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}

// NewWriter wraps w with a compressor chosen from name.
// Close flushes the compressor but does not close w.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	switch ForName(name) {
	case Gzip:
		return gzip.NewWriter(w), nil
	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("opening zstd writer: %w", err)
		}
		return zw, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
