package rsv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var jsonNull = []byte("null")

func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return jsonNull, nil
	}
	return json.Marshal(c.String)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*c = Null()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = Text(s)
	return nil
}

// ToJSON renders t as a compact JSON array of arrays of string or null.
func ToJSON(t Table) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t.Strings()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// FromJSON parses a JSON array of arrays of string or null.
func FromJSON(data []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	if t == nil {
		return nil, errors.New("parse table: expected an array of rows, got null")
	}
	for i, r := range t {
		if r == nil {
			return nil, fmt.Errorf("parse table: row %d is null", i)
		}
	}
	return t, nil
}
