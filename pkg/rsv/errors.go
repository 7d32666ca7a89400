package rsv

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidText is returned when a decoded value is not valid UTF-8.
	ErrInvalidText = errors.New("rsv: value is not valid UTF-8")

	// ErrInvalidContent is returned by strict encoding when a text value
	// contains a reserved byte.
	ErrInvalidContent = errors.New("rsv: value contains a reserved byte")
)

// DecodeError locates a value that failed to decode. Row and Cell are zero
// based indexes into the table being built; Offset is the position in the
// input of the EOV that terminated the value.
type DecodeError struct {
	Row    int
	Cell   int
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("row %d, cell %d (offset %d): %v", e.Row, e.Cell, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ContentError locates a text value that cannot be encoded: either a reserved
// byte (Err is ErrInvalidContent) or invalid UTF-8 (Err is ErrInvalidText).
// Offset is the position of the offending byte within the value.
type ContentError struct {
	Row    int
	Cell   int
	Offset int
	Byte   byte
	Err    error
}

func (e *ContentError) Error() string {
	if errors.Is(e.Err, ErrInvalidText) {
		return fmt.Sprintf("row %d, cell %d: invalid UTF-8 byte 0x%X at offset %d: %v", e.Row, e.Cell, e.Byte, e.Offset, e.Err)
	}
	return fmt.Sprintf("row %d, cell %d: reserved byte 0x%X at offset %d: %v", e.Row, e.Cell, e.Byte, e.Offset, ErrInvalidContent)
}

func (e *ContentError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidContent
}
