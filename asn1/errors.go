package asn1

import "fmt"

// TruncatedError reports a declared or required length exceeding the
// bytes that remain in the current content region.
type TruncatedError struct {
	Expected  int // bytes needed
	Remaining int // bytes left
	Offset    int // absolute offset at which the shortfall was detected
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("asn1: truncated input at offset %d: need %d bytes, have %d", e.Offset, e.Expected, e.Remaining)
}

// InvalidLengthError reports a length encoding that is not legal DER:
// the indefinite-length marker, more than four length bytes, or a value
// overflowing the platform int.
type InvalidLengthError struct {
	Offset int
	Reason string
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("asn1: invalid length at offset %d: %s", e.Offset, e.Reason)
}

// HighTagNumberError reports a tag byte using the high-tag-number form
// (tag number 31), which this reader does not support.
type HighTagNumberError struct {
	Offset int
}

func (e *HighTagNumberError) Error() string {
	return fmt.Sprintf("asn1: unsupported high-tag-number form at offset %d", e.Offset)
}

// UnexpectedTagError reports a tag mismatch from ExpectTag. The reader
// does not advance when returning it.
type UnexpectedTagError struct {
	Want   Tag
	Got    Tag
	Offset int
}

func (e *UnexpectedTagError) Error() string {
	return fmt.Sprintf("asn1: expected tag %s at offset %d, got %s", e.Want, e.Offset, e.Got)
}

// SyntaxError reports a structurally malformed encoding with a
// human-readable reason.
type SyntaxError struct {
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("asn1: malformed structure at offset %d: %s", e.Offset, e.Reason)
}

// LimitError reports that a configured decode ceiling was exceeded.
// Hitting one means the input demanded more work or memory than the
// limits.Limits value allows, not that the input is necessarily invalid.
type LimitError struct {
	Offset int
	What   string // which ceiling, e.g. "nesting depth"
	Limit  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("asn1: %s limit (%d) exceeded at offset %d", e.What, e.Limit, e.Offset)
}

// ValueError reports a typed accessor applied to a TLV whose tag or
// content does not carry a value of the requested kind.
type ValueError struct {
	Tag    Tag
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("asn1: cannot read %s value: %s", e.Tag, e.Reason)
}
