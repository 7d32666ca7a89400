package codec

import "github.com/birdayz/rsv/pkg/rsv"

// RSVCodec encodes tables in the RSV format.
type RSVCodec struct {
	Strict bool
}

func (*RSVCodec) Name() string { return "rsv" }

func (c *RSVCodec) EncodeTable(t rsv.Table) ([]byte, error) {
	if c.Strict {
		return rsv.EncodeStrict(t)
	}
	return rsv.Encode(t), nil
}

func (*RSVCodec) DecodeTable(in []byte) (rsv.Table, error) {
	return rsv.Decode(in)
}
