// Package rsvfile reads and writes whole RSV and JSON table files.
//
// Every operation performs one read and one write. Nothing is cleaned up if
// a write fails half way.
package rsvfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/rsv"
)

type options struct {
	strict      bool
	compression compress.Algorithm
	explicit    bool
	perm        os.FileMode
}

// Option configures a write.
type Option func(*options)

// WithStrict rejects text values containing reserved bytes instead of
// writing a corrupt file.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithCompression overrides the compression implied by the file extension.
func WithCompression(a compress.Algorithm) Option {
	return func(o *options) {
		o.compression = a
		o.explicit = true
	}
}

// WithPerm sets the mode of newly created files. The default is 0644.
func WithPerm(perm os.FileMode) Option {
	return func(o *options) { o.perm = perm }
}

func newOptions(path string, opts []Option) options {
	o := options{perm: 0o644}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.explicit {
		o.compression = compress.FromPath(path)
	}
	return o
}

// ReadFile decodes the RSV file at path. Files ending in .zst or .lz4 are
// decompressed first.
func ReadFile(path string) (rsv.Table, error) {
	return ReadFileCompressed(path, compress.FromPath(path))
}

// ReadFileCompressed is ReadFile with an explicit compression algorithm.
func ReadFileCompressed(path string, a compress.Algorithm) (rsv.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data, err = compress.Decompress(data, a)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := rsv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, nil
}

// WriteFile encodes t to path.
func WriteFile(path string, t rsv.Table, opts ...Option) error {
	o := newOptions(path, opts)
	data, err := encode(t, o)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, o.perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Write encodes t to w using the given options. The compression option is
// honored only when set explicitly.
func Write(w io.Writer, t rsv.Table, opts ...Option) error {
	o := newOptions("", opts)
	data, err := encode(t, o)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Read decodes an RSV stream from r with the given compression.
func Read(r io.Reader, a compress.Algorithm) (rsv.Table, error) {
	cr, err := compress.NewReader(r, a)
	if err != nil {
		return nil, err
	}
	defer cr.Close()
	return rsv.NewReader(cr).ReadAll()
}

func encode(t rsv.Table, o options) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if o.strict {
		data, err = rsv.EncodeStrict(t)
		if err != nil {
			return nil, err
		}
	} else {
		data = rsv.Encode(t)
	}
	return compress.Compress(data, o.compression)
}

// ReadJSONFile parses a JSON table file.
func ReadJSONFile(path string) (rsv.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := rsv.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// WriteJSONFile writes t as compact JSON.
func WriteJSONFile(path string, t rsv.Table) error {
	data, err := rsv.ToJSON(t)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FromJSON converts the JSON table at jsonPath into an RSV file at rsvPath.
func FromJSON(jsonPath, rsvPath string, opts ...Option) error {
	t, err := ReadJSONFile(jsonPath)
	if err != nil {
		return err
	}
	return WriteFile(rsvPath, t, opts...)
}

// ToJSON converts the RSV file at rsvPath into a JSON table at jsonPath.
func ToJSON(rsvPath, jsonPath string) error {
	t, err := ReadFile(rsvPath)
	if err != nil {
		return err
	}
	return WriteJSONFile(jsonPath, t)
}

// Verify decodes the file and checks that re-encoding reproduces the exact
// bytes. It returns the decoded table and whether the file is canonical.
// Streams with trailing bytes or values that skip their EOV decode fine but
// are not canonical.
func Verify(path string) (rsv.Table, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	data, err = compress.Decompress(data, compress.FromPath(path))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	t, err := rsv.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return t, bytes.Equal(rsv.Encode(t), data), nil
}
