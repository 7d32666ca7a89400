package rsvfile

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/birdayz/rsv/pkg/compress"
	"github.com/birdayz/rsv/pkg/rsv"
)

var table = rsv.Table{
	rsv.TextRow("A", "B", "Hello", "Word"),
	{},
	{rsv.Text("C"), rsv.Null(), rsv.Text("D")},
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "from_vec_test.rsv")

	require.NoError(t, WriteFile(path, table))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{
		'A', rsv.EOV, 'B', rsv.EOV, 'H', 'e', 'l', 'l', 'o', rsv.EOV, 'W', 'o', 'r', 'd',
		rsv.EOV, rsv.EOR, rsv.EOR, 'C', rsv.EOV, rsv.NULL, rsv.EOV, 'D', rsv.EOV, rsv.EOR,
	}, raw)

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, table, got)
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want []byte
	}{
		{
			name: "one row",
			json: `[["Hello","🌎"]]`,
			want: []byte{72, 101, 108, 108, 111, 255, 240, 159, 140, 142, 255, 253},
		},
		{
			name: "empty row and null",
			json: `[["Hello","🌎"],[],[null,""]]`,
			want: []byte{72, 101, 108, 108, 111, 255, 240, 159, 140, 142, 255, 253, 253, 254, 255, 255, 253},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			in := filepath.Join(dir, "in.json")
			out := filepath.Join(dir, "out.rsv")
			require.NoError(t, os.WriteFile(in, []byte(tt.json), 0o644))

			require.NoError(t, FromJSON(in, out))

			got, err := os.ReadFile(out)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestToJSON(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "to_vec_test.rsv")
	out := filepath.Join(dir, "to_json_test.json")
	require.NoError(t, os.WriteFile(in, []byte{72, 101, 108, 108, 111, 255, 240, 159, 140, 142, 255, 253, 253, 254, 255, 255, 253}, 0o644))

	require.NoError(t, ToJSON(in, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, `[["Hello","🌎"],[],[null,""]]`, string(got))
}

func TestReadFile_NotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.rsv"))
	require.Error(t, err)
	require.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestReadFile_InvalidText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.rsv")
	require.NoError(t, os.WriteFile(path, []byte{0xC3, rsv.EOV, rsv.EOR}, 0o644))
	_, err := ReadFile(path)
	require.ErrorIs(t, err, rsv.ErrInvalidText)
}

func TestFromJSON_ParseError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	out := filepath.Join(dir, "out.rsv")
	require.NoError(t, os.WriteFile(in, []byte(`[["a",1]]`), 0o644))

	require.Error(t, FromJSON(in, out))
	_, err := os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

func TestWriteFile_Strict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.rsv")
	err := WriteFile(path, rsv.Table{rsv.TextRow("bad\xff")}, WithStrict(true))
	require.ErrorIs(t, err, rsv.ErrInvalidContent)
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))

	// Without strict mode the corrupt encoding is written as is.
	require.NoError(t, WriteFile(path, rsv.Table{rsv.TextRow("bad\xff")}))
}

func TestCompressedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"t.rsv.zst", "t.rsv.lz4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, table))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NotEqual(t, rsv.Encode(table), raw)

			got, err := ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, table, got)
		})
	}
}

func TestExplicitCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain-name.rsv")
	require.NoError(t, WriteFile(path, table, WithCompression(compress.Zstd)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, raw[:4], "zstd magic")

	got, err := ReadFileCompressed(path, compress.Zstd)
	require.NoError(t, err)
	require.Equal(t, table, got)
}

func TestReadWriteStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, table, WithCompression(compress.LZ4)))
	got, err := Read(&buf, compress.LZ4)
	require.NoError(t, err)
	require.Equal(t, table, got)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()

	canonical := filepath.Join(dir, "canonical.rsv")
	require.NoError(t, WriteFile(canonical, table))
	got, ok, err := Verify(canonical)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, table, got)

	trailing := filepath.Join(dir, "trailing.rsv")
	require.NoError(t, os.WriteFile(trailing, append(rsv.Encode(table), 'x', rsv.EOV), 0o644))
	got, ok, err = Verify(trailing)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, table, got)
}
