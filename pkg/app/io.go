package app

import (
	"fmt"
	"io"
	"os"

	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/rsv"
	"github.com/birdayz/rsv/pkg/rsvfile"
)

// IsStdio reports whether path names standard input or output.
func IsStdio(path string) bool {
	return path == "" || path == "-"
}

// ReadInput returns the contents of path, or of standard input when path is
// empty or "-".
func (a *App) ReadInput(path string) ([]byte, error) {
	if IsStdio(path) {
		data, err := io.ReadAll(a.InReader)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteOutput writes data to path, or to standard output when path is empty
// or "-".
func (a *App) WriteOutput(path string, data []byte) error {
	if IsStdio(path) {
		_, err := a.OutWriter.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadTable decodes an RSV table from path or standard input. An empty
// algorithm means the one implied by the file extension.
func (a *App) ReadTable(path string, algo compress.Algorithm) (rsv.Table, error) {
	if IsStdio(path) {
		t, err := rsvfile.Read(a.InReader, algo)
		if err != nil {
			return nil, fmt.Errorf("decode stdin: %w", err)
		}
		return t, nil
	}
	if algo == "" {
		return rsvfile.ReadFile(path)
	}
	return rsvfile.ReadFileCompressed(path, algo)
}

// WriteTable encodes t as RSV to path or standard output, honoring the
// configured strictness.
func (a *App) WriteTable(path string, t rsv.Table, algo compress.Algorithm) error {
	opts := []rsvfile.Option{rsvfile.WithStrict(a.Strict())}
	if algo != "" {
		opts = append(opts, rsvfile.WithCompression(algo))
	}
	if IsStdio(path) {
		return rsvfile.Write(a.OutWriter, t, opts...)
	}
	return rsvfile.WriteFile(path, t, opts...)
}

// OutputCompression picks the compression for writing to path: an explicit
// flag wins, then the file extension, then the config.
func (a *App) OutputCompression(flag compress.Algorithm, explicit bool, path string) compress.Algorithm {
	if explicit {
		return flag
	}
	if !IsStdio(path) {
		if ext := compress.FromPath(path); ext != compress.None {
			return ext
		}
	}
	if a.Cfg.Compression != "" {
		return a.Cfg.Compression
	}
	return compress.None
}
