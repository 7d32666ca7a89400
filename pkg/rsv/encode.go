package rsv

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// Encode serializes t. It never fails and does not check text values for
// reserved bytes; a value containing one produces a stream that decodes
// differently. Use EncodeStrict when the input is not trusted.
func Encode(t Table) []byte {
	return AppendTable(make([]byte, 0, EncodedLen(t)), t)
}

// EncodeStrict validates t before encoding it.
func EncodeStrict(t Table) ([]byte, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	return Encode(t), nil
}

// AppendTable appends the encoding of t to dst.
func AppendTable(dst []byte, t Table) []byte {
	for _, r := range t {
		dst = AppendRow(dst, r)
	}
	return dst
}

// AppendRow appends the encoding of a single row, including its EOR.
func AppendRow(dst []byte, r Row) []byte {
	for _, c := range r {
		if c.Valid {
			dst = append(dst, c.String...)
		} else {
			dst = append(dst, NULL)
		}
		dst = append(dst, EOV)
	}
	return append(dst, EOR)
}

// EncodedLen returns the exact length of Encode(t).
func EncodedLen(t Table) int {
	n := 0
	for _, r := range t {
		n += rowLen(r)
	}
	return n
}

func rowLen(r Row) int {
	n := 1
	for _, c := range r {
		if c.Valid {
			n += len(c.String)
		} else {
			n++
		}
		n++
	}
	return n
}

// Validate returns a *ContentError for the first text value that contains a
// reserved byte or is not valid UTF-8. A table that passes encodes to a
// stream Decode accepts.
func Validate(t Table) error {
	for i, r := range t {
		if err := validateRow(i, r); err != nil {
			return err
		}
	}
	return nil
}

func validateRow(row int, r Row) error {
	for j, c := range r {
		if !c.Valid {
			continue
		}
		for k := 0; k < len(c.String); k++ {
			if IsReserved(c.String[k]) {
				return &ContentError{Row: row, Cell: j, Offset: k, Byte: c.String[k], Err: ErrInvalidContent}
			}
		}
		if !utf8.ValidString(c.String) {
			k := invalidUTF8(c.String)
			return &ContentError{Row: row, Cell: j, Offset: k, Byte: c.String[k], Err: ErrInvalidText}
		}
	}
	return nil
}

// invalidUTF8 returns the index of the first byte of s that does not start a
// valid UTF-8 sequence.
func invalidUTF8(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return len(s)
}

// Writer encodes rows to an underlying io.Writer. Output is buffered; call
// Flush when done.
type Writer struct {
	// Strict makes WriteRow reject text values that Validate rejects.
	Strict bool

	w    *bufio.Writer
	rows int
	buf  []byte
}

// NewWriter returns a non-strict Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteRow encodes a single row. In strict mode nothing is written for a
// row that fails validation.
func (w *Writer) WriteRow(r Row) error {
	if w.Strict {
		if err := validateRow(w.rows, r); err != nil {
			return err
		}
	}
	w.buf = AppendRow(w.buf[:0], r)
	if _, err := w.w.Write(w.buf); err != nil {
		return err
	}
	w.rows++
	return nil
}

// WriteAll writes every row of t and flushes.
func (w *Writer) WriteAll(t Table) error {
	for _, r := range t {
		if err := w.WriteRow(r); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() int {
	return w.rows
}
