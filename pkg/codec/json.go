package codec

import "github.com/birdayz/rsv/pkg/rsv"

// JSONCodec is the identity format: the wire form is the JSON form itself,
// normalized to compact output.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) EncodeTable(t rsv.Table) ([]byte, error) {
	return rsv.ToJSON(t)
}

func (JSONCodec) DecodeTable(in []byte) (rsv.Table, error) {
	return rsv.FromJSON(in)
}
