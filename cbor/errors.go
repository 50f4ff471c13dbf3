package cbor

import "fmt"

// TruncatedError reports that an item declared more bytes or elements
// than the input has left. Offsets are byte positions in the buffer
// handed to the decode entry point.
type TruncatedError struct {
	Expected  int
	Remaining int
	Offset    int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("cbor: truncated input at offset %d: expected %d bytes, %d remain", e.Offset, e.Expected, e.Remaining)
}

// InvalidInitialByteError reports an initial byte with a reserved
// additional-info code point (28-30).
type InvalidInitialByteError struct {
	Byte   byte
	Offset int
}

func (e *InvalidInitialByteError) Error() string {
	return fmt.Sprintf("cbor: invalid initial byte 0x%02x at offset %d", e.Byte, e.Offset)
}

// UnsupportedTypeError reports a well-formed encoding outside the
// supported subset, such as indefinite-length containers or floats.
type UnsupportedTypeError struct {
	Byte   byte
	Offset int
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("cbor: unsupported item 0x%02x at offset %d: %s", e.Byte, e.Offset, e.Reason)
}

// InvalidUTF8Error reports a text string whose content is not valid
// UTF-8.
type InvalidUTF8Error struct {
	Offset int
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("cbor: invalid UTF-8 in text string at offset %d", e.Offset)
}

// IntegerOverflowError reports an integer argument that does not fit the
// decoded representation.
type IntegerOverflowError struct {
	Offset int
}

func (e *IntegerOverflowError) Error() string {
	return fmt.Sprintf("cbor: integer at offset %d overflows int64", e.Offset)
}

// InvalidMapKeyError is returned by callers that fold a decoded map into
// a unique-key structure and meet a key they cannot represent, such as a
// container. The decoder itself never returns it: maps decode to ordered
// pair lists with no uniqueness assumption.
type InvalidMapKeyError struct {
	KeyType Type
}

func (e *InvalidMapKeyError) Error() string {
	return fmt.Sprintf("cbor: map key of type %s cannot be used for lookup", e.KeyType)
}

// UnexpectedTypeError reports a typed accessor applied to the wrong
// Value variant.
type UnexpectedTypeError struct {
	Want Type
	Got  Type
}

func (e *UnexpectedTypeError) Error() string {
	return fmt.Sprintf("cbor: expected %s, got %s", e.Want, e.Got)
}

// ExtraneousDataError reports bytes left over after the single item a
// whole-buffer decode was asked for.
type ExtraneousDataError struct {
	Offset    int
	Remaining int
}

func (e *ExtraneousDataError) Error() string {
	return fmt.Sprintf("cbor: %d extraneous bytes after item at offset %d", e.Remaining, e.Offset)
}

// LimitError reports that a configured decode ceiling was exceeded.
type LimitError struct {
	Offset int
	What   string
	Limit  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("cbor: %s limit (%d) exceeded at offset %d", e.What, e.Limit, e.Offset)
}
