package digest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	// BLAKE3 of the empty input.
	require.Equal(t, "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", Sum(nil))
	require.Len(t, Sum([]byte("x")), 64)
	require.NotEqual(t, Sum([]byte("a")), Sum([]byte("b")))
}

func TestReader(t *testing.T) {
	data := []byte{'a', 0xFF, 0xFD}
	got, n, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, Sum(data), got)
}

func TestVerify(t *testing.T) {
	data := []byte("abc")
	require.NoError(t, Verify(data, Sum(data)))
	require.ErrorIs(t, Verify([]byte("abd"), Sum(data)), ErrDigestMismatch)
}
