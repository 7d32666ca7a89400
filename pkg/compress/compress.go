// Package compress wraps RSV streams in an optional compression layer.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm names a compression scheme. It implements pflag.Value so it can
// be used directly as a command line flag.
type Algorithm string

const (
	None Algorithm = "none"
	Zstd Algorithm = "zstd"
	LZ4  Algorithm = "lz4"
)

// Algorithms lists every supported algorithm, in flag completion order.
var Algorithms = []Algorithm{None, Zstd, LZ4}

func (a *Algorithm) String() string {
	if *a == "" {
		return string(None)
	}
	return string(*a)
}

func (a *Algorithm) Set(v string) error {
	p, err := ParseAlgorithm(v)
	if err != nil {
		return err
	}
	*a = p
	return nil
}

func (a *Algorithm) Type() string {
	return "Compression"
}

// ParseAlgorithm parses an algorithm name. The empty string means None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return "", fmt.Errorf("unknown compression %q, must be one of: none, zstd, lz4", name)
	}
}

// FromPath picks the algorithm implied by a file extension.
func FromPath(path string) Algorithm {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w. Closing the returned writer flushes the compressor but
// does not close w.
func NewWriter(w io.Writer, a Algorithm) (io.WriteCloser, error) {
	switch a {
	case "", None:
		return nopWriteCloser{w}, nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, nil
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %q", a)
	}
}

// NewReader wraps r. Closing the returned reader releases decompressor
// resources but does not close r.
func NewReader(r io.Reader, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case "", None:
		return io.NopCloser(r), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %q", a)
	}
}

// Compress compresses data in one shot. For None the input is returned
// unchanged.
func Compress(data []byte, a Algorithm) ([]byte, error) {
	if a == "" || a == None {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := NewWriter(&buf, a)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%s compress: %w", a, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compress: %w", a, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte, a Algorithm) ([]byte, error) {
	if a == "" || a == None {
		return data, nil
	}
	r, err := NewReader(bytes.NewReader(data), a)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", a, err)
	}
	return out, nil
}
