// Package codec converts tables between their JSON form and binary wire
// formats. JSON (an array of arrays of string or null) is the common
// representation every codec reads and writes.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/birdayz/rsv/pkg/rsv"
)

// ErrUnknownFormat is returned by New for an unregistered codec name.
var ErrUnknownFormat = errors.New("unknown format")

// Encoder converts from json representation
// to bytes in the specified format
type Encoder interface {
	// Encode json to binary format
	Encode(in json.RawMessage) ([]byte, error)
}

// Decoder converts from binary representation to json
type Decoder interface {
	// Decode binary to json form
	Decode(in []byte) (json.RawMessage, error)
}

// TableCodec converts a decoded table to and from a wire format.
type TableCodec interface {
	Name() string
	EncodeTable(t rsv.Table) ([]byte, error)
	DecodeTable(in []byte) (rsv.Table, error)
}

// Codec is a TableCodec usable through the JSON based interfaces.
type Codec interface {
	Encoder
	Decoder
	TableCodec
}

// Options tune codec construction.
type Options struct {
	// Strict rejects text values containing RSV reserved bytes or invalid
	// UTF-8 when encoding to RSV.
	Strict bool
}

var constructors = map[string]func(Options) (TableCodec, error){
	"rsv":     func(o Options) (TableCodec, error) { return &RSVCodec{Strict: o.Strict}, nil },
	"json":    func(Options) (TableCodec, error) { return JSONCodec{}, nil },
	"msgpack": func(Options) (TableCodec, error) { return MsgPackCodec{}, nil },
	"cbor":    func(Options) (TableCodec, error) { return NewCBORCodec() },
	"avro":    func(Options) (TableCodec, error) { return NewAvroCodec() },
}

// Names returns the registered codec names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the codec registered under name.
func New(name string, opts Options) (Codec, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w %q, must be one of: %v", ErrUnknownFormat, name, Names())
	}
	tc, err := ctor(opts)
	if err != nil {
		return nil, fmt.Errorf("%s codec: %w", name, err)
	}
	return jsonAdapter{tc}, nil
}

// jsonAdapter routes the JSON interfaces through a TableCodec.
type jsonAdapter struct {
	TableCodec
}

func (a jsonAdapter) Encode(in json.RawMessage) ([]byte, error) {
	t, err := rsv.FromJSON(in)
	if err != nil {
		return nil, err
	}
	return a.EncodeTable(t)
}

func (a jsonAdapter) Decode(in []byte) (json.RawMessage, error) {
	t, err := a.DecodeTable(in)
	if err != nil {
		return nil, err
	}
	return rsv.ToJSON(t)
}

// Convert decodes in with from and re-encodes it with to.
func Convert(from, to TableCodec, in []byte) ([]byte, error) {
	t, err := from.DecodeTable(in)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", from.Name(), err)
	}
	out, err := to.EncodeTable(t)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", to.Name(), err)
	}
	return out, nil
}
