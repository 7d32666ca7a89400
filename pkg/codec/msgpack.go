package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/birdayz/rsv/pkg/rsv"
)

// MsgPackCodec encodes a table as a msgpack array of arrays of nil or str.
type MsgPackCodec struct{}

func (MsgPackCodec) Name() string { return "msgpack" }

func (MsgPackCodec) EncodeTable(t rsv.Table) ([]byte, error) {
	return msgpack.Marshal(t.Strings())
}

func (MsgPackCodec) DecodeTable(in []byte) (rsv.Table, error) {
	var rows [][]*string
	if err := msgpack.Unmarshal(in, &rows); err != nil {
		return nil, err
	}
	return rsv.FromStrings(rows), nil
}
