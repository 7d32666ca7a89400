// Package rsv implements the RSV binary table format.
//
// An RSV stream is a flat sequence of bytes delimited by three reserved
// values that never occur in UTF-8 text:
//
//	0xFF  EOV   terminates every value
//	0xFE  NULL  marks the following value as absent, still followed by EOV
//	0xFD  EOR   terminates every row
//
// There is no header, no length prefix and no escaping. Text values therefore
// must not contain any of the reserved bytes; Encode does not check this,
// EncodeStrict and Validate do.
package rsv

import "slices"

// Reserved bytes.
const (
	EOV  byte = 0xFF
	NULL byte = 0xFE
	EOR  byte = 0xFD
)

// IsReserved reports whether b is one of the reserved bytes.
func IsReserved(b byte) bool {
	return b == EOV || b == NULL || b == EOR
}

// Cell is a single value of a row. A Cell with Valid == false is Null and its
// String is ignored; otherwise it holds text, possibly empty.
type Cell struct {
	String string
	Valid  bool
}

// Text returns a non-null cell holding s.
func Text(s string) Cell {
	return Cell{String: s, Valid: true}
}

// Null returns the absent cell.
func Null() Cell {
	return Cell{}
}

func (c Cell) IsNull() bool {
	return !c.Valid
}

// Ptr returns nil for Null and a pointer to a copy of the text otherwise.
func (c Cell) Ptr() *string {
	if !c.Valid {
		return nil
	}
	s := c.String
	return &s
}

// Equal compares two cells by variant and content. The text of a Null cell
// does not take part in the comparison.
func (c Cell) Equal(o Cell) bool {
	if c.Valid != o.Valid {
		return false
	}
	return !c.Valid || c.String == o.String
}

// Row is an ordered sequence of cells. A zero-length row is a valid row.
type Row []Cell

// NewRow builds a row from nullable strings.
func NewRow(values ...*string) Row {
	r := make(Row, len(values))
	for i, v := range values {
		if v != nil {
			r[i] = Text(*v)
		}
	}
	return r
}

// TextRow builds a row where every cell is text.
func TextRow(values ...string) Row {
	r := make(Row, len(values))
	for i, v := range values {
		r[i] = Text(v)
	}
	return r
}

func (r Row) Equal(o Row) bool {
	return slices.EqualFunc(r, o, Cell.Equal)
}

// Table is an ordered sequence of rows.
type Table []Row

func (t Table) Equal(o Table) bool {
	return slices.EqualFunc(t, o, Row.Equal)
}

// Strings converts the table to nested nullable strings. Rows are never nil,
// so an empty row stays distinguishable from a missing one.
func (t Table) Strings() [][]*string {
	out := make([][]*string, len(t))
	for i, row := range t {
		out[i] = make([]*string, len(row))
		for j, c := range row {
			out[i][j] = c.Ptr()
		}
	}
	return out
}

// FromStrings is the inverse of Table.Strings.
func FromStrings(rows [][]*string) Table {
	t := make(Table, len(rows))
	for i, r := range rows {
		t[i] = NewRow(r...)
	}
	return t
}

// Cells returns the total number of cells in the table.
func (t Table) Cells() int {
	n := 0
	for _, r := range t {
		n += len(r)
	}
	return n
}
