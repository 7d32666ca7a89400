package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]Algorithm{
		"":     None,
		"none": None,
		"ZSTD": Zstd,
		"zst":  Zstd,
		"lz4":  LZ4,
	} {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseAlgorithm("gzip")
	require.Error(t, err)
}

func TestFromPath(t *testing.T) {
	require.Equal(t, Zstd, FromPath("table.rsv.zst"))
	require.Equal(t, Zstd, FromPath("/tmp/x.ZSTD"))
	require.Equal(t, LZ4, FromPath("table.rsv.lz4"))
	require.Equal(t, None, FromPath("table.rsv"))
}

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("Hello\xff\xfd", 1000))
	for _, a := range Algorithms {
		t.Run(string(a), func(t *testing.T) {
			c, err := Compress(data, a)
			require.NoError(t, err)
			if a != None {
				require.Less(t, len(c), len(data))
			}
			d, err := Decompress(c, a)
			require.NoError(t, err)
			require.Equal(t, data, d)
		})
	}
}

func TestStreaming(t *testing.T) {
	data := []byte(strings.Repeat("row\xff\xfd", 500))
	for _, a := range Algorithms {
		t.Run(string(a), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, a)
			require.NoError(t, err)
			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			r, err := NewReader(&buf, a)
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, data, got)
		})
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	_, err := Decompress([]byte("definitely not zstd"), Zstd)
	require.Error(t, err)
}

func TestAlgorithmFlag(t *testing.T) {
	var a Algorithm
	require.Equal(t, "none", a.String())
	require.NoError(t, a.Set("lz4"))
	require.Equal(t, LZ4, a)
	require.Error(t, a.Set("brotli"))
	require.Equal(t, "Compression", a.Type())
}
