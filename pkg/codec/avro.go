package codec

import (
	"fmt"

	"github.com/linkedin/goavro/v2"

	"github.com/birdayz/rsv/pkg/rsv"
)

// TableSchema is the Avro schema every table is written with.
const TableSchema = `{"type":"array","items":{"type":"array","items":["null","string"]}}`

// AvroCodec encodes a table as Avro binary data of TableSchema.
type AvroCodec struct {
	codec *goavro.Codec
}

func NewAvroCodec() (*AvroCodec, error) {
	c, err := goavro.NewCodec(TableSchema)
	if err != nil {
		return nil, err
	}
	return &AvroCodec{codec: c}, nil
}

func (*AvroCodec) Name() string { return "avro" }

func (a *AvroCodec) EncodeTable(t rsv.Table) ([]byte, error) {
	native := make([]any, len(t))
	for i, row := range t {
		cells := make([]any, len(row))
		for j, c := range row {
			if c.Valid {
				cells[j] = goavro.Union("string", c.String)
			}
		}
		native[i] = cells
	}
	return a.codec.BinaryFromNative(nil, native)
}

func (a *AvroCodec) DecodeTable(in []byte) (rsv.Table, error) {
	native, rest, err := a.codec.NativeFromBinary(in)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%d trailing bytes after table", len(rest))
	}
	rows, ok := native.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array of rows, got %T", native)
	}
	t := make(rsv.Table, len(rows))
	for i, r := range rows {
		cells, ok := r.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d: expected array, got %T", i, r)
		}
		row := make(rsv.Row, len(cells))
		for j, c := range cells {
			switch v := c.(type) {
			case nil:
				row[j] = rsv.Null()
			case map[string]any:
				s, ok := v["string"].(string)
				if !ok {
					return nil, fmt.Errorf("row %d, cell %d: unexpected union %v", i, j, v)
				}
				row[j] = rsv.Text(s)
			default:
				return nil, fmt.Errorf("row %d, cell %d: unexpected value %T", i, j, c)
			}
		}
		t[i] = row
	}
	return t, nil
}
