package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/birdayz/rsv/pkg/rsv"
)

// CBORCodec encodes a table as a CBOR array of arrays of null or text,
// using Core Deterministic Encoding so equal tables give equal bytes.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBORCodec() (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("encoder mode: %w", err)
	}
	dec, err := cbor.DecOptions{
		// Text values are UTF-8 already; reject anything else, like
		// the RSV decoder does.
		UTF8: cbor.UTF8RejectInvalid,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("decoder mode: %w", err)
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (*CBORCodec) Name() string { return "cbor" }

func (c *CBORCodec) EncodeTable(t rsv.Table) ([]byte, error) {
	return c.enc.Marshal(t.Strings())
}

func (c *CBORCodec) DecodeTable(in []byte) (rsv.Table, error) {
	var rows [][]*string
	if err := c.dec.Unmarshal(in, &rows); err != nil {
		return nil, err
	}
	return rsv.FromStrings(rows), nil
}
