package rsv

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// decoder is the byte-level state machine shared by Decode and Reader.
//
// The accumulator and the pending-null flag survive an EOR: a value that is
// not terminated by EOV before the row ends is carried into the next row's
// first EOV rather than flushed.
type decoder struct {
	row         Row
	acc         []byte
	pendingNull bool

	rows   int
	offset int64
}

// step consumes one byte. It returns the finished row when b is EOR.
func (d *decoder) step(b byte) (Row, bool, error) {
	defer func() { d.offset++ }()

	switch b {
	case EOV:
		if d.pendingNull {
			d.pendingNull = false
			d.acc = d.acc[:0]
			return nil, false, nil
		}
		if !utf8.Valid(d.acc) {
			return nil, false, &DecodeError{Row: d.rows, Cell: len(d.row), Offset: d.offset, Err: ErrInvalidText}
		}
		d.row = append(d.row, Text(string(d.acc)))
		d.acc = d.acc[:0]
	case EOR:
		r := d.row
		if r == nil {
			r = Row{}
		}
		d.row = nil
		d.rows++
		return r, true, nil
	case NULL:
		d.row = append(d.row, Null())
		d.pendingNull = true
	default:
		d.acc = append(d.acc, b)
	}
	return nil, false, nil
}

// Decode parses an RSV stream. Only rows terminated by EOR are returned;
// trailing bytes after the last EOR are dropped. The only failure is a text
// value that is not valid UTF-8, reported as a *DecodeError wrapping
// ErrInvalidText.
func Decode(data []byte) (Table, error) {
	var d decoder
	t := Table{}
	for _, b := range data {
		r, done, err := d.step(b)
		if err != nil {
			return nil, err
		}
		if done {
			t = append(t, r)
		}
	}
	return t, nil
}

// Reader decodes rows one at a time from an io.Reader.
type Reader struct {
	r *bufio.Reader
	d decoder
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadRow returns the next complete row. At the end of the input it returns
// io.EOF; an unterminated trailing row is discarded.
func (r *Reader) ReadRow() (Row, error) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		row, done, err := r.d.step(b)
		if err != nil {
			return nil, err
		}
		if done {
			return row, nil
		}
	}
}

// ReadAll reads the remaining rows.
func (r *Reader) ReadAll() (Table, error) {
	t := Table{}
	for {
		row, err := r.ReadRow()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t = append(t, row)
	}
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int64 {
	return r.d.offset
}
