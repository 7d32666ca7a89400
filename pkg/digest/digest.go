// Package digest computes content digests of encoded RSV streams.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Header is the Kafka record header carrying the digest of the record value.
const Header = "rsv-blake3"

var ErrDigestMismatch = errors.New("digest mismatch")

// Sum returns the hex encoded BLAKE3-256 digest of data.
func Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Reader hashes everything read from r.
func Reader(r io.Reader) (string, int64, error) {
	h := blake3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Verify checks data against a hex digest produced by Sum.
func Verify(data []byte, want string) error {
	if got := Sum(data); got != want {
		return fmt.Errorf("%w: got %s, want %s", ErrDigestMismatch, got, want)
	}
	return nil
}
