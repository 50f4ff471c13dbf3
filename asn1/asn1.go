// Package asn1 implements a defensive reader for DER-encoded ASN.1 data
// as defined in ITU-T Rec X.690. It offers two access modes over the same
// tag-length-value (TLV) core: a tree decoder that materializes a full
// node tree (Decode), and a streaming Reader that hands out one TLV at a
// time and scopes sub-readers to exactly one value's content bytes.
//
// The package performs structural parsing only. It never interprets a
// certificate or signature; it turns untrusted bytes into typed values
// without crashing, looping, or over-reading on adversarial input. All
// resource ceilings come from a limits.Limits value threaded through the
// whole decode.
//
// Only the DER subset needed by X.509 and CMS is supported: short- and
// long-form definite lengths with at most four length bytes, and tag
// numbers 0-30. Indefinite lengths and the high-tag-number form are
// rejected with typed errors.
package asn1

import "strconv"

// Class is the class of an ASN.1 tag, taken from bits 7-6 of the tag byte.
type Class uint8

const (
	ClassUniversal Class = iota
	ClassApplication
	ClassContextSpecific
	ClassPrivate
)

// String returns a human-readable class name.
func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "universal"
	case ClassApplication:
		return "application"
	case ClassContextSpecific:
		return "context-specific"
	case ClassPrivate:
		return "private"
	default:
		return "class(" + strconv.Itoa(int(c)) + ")"
	}
}

// Tag identifies one ASN.1 type: its class, its constructed flag and its
// tag number. Only low tag numbers (0-30) are representable; the
// high-tag-number escape 31 is rejected during parsing.
type Tag struct {
	Class       Class
	Constructed bool
	Number      uint8
}

// Universal tags used by X.509 and CMS.
var (
	TagBoolean         = Tag{Class: ClassUniversal, Number: 1}
	TagInteger         = Tag{Class: ClassUniversal, Number: 2}
	TagBitString       = Tag{Class: ClassUniversal, Number: 3}
	TagOctetString     = Tag{Class: ClassUniversal, Number: 4}
	TagNull            = Tag{Class: ClassUniversal, Number: 5}
	TagOID             = Tag{Class: ClassUniversal, Number: 6}
	TagUTF8String      = Tag{Class: ClassUniversal, Number: 12}
	TagSequence        = Tag{Class: ClassUniversal, Constructed: true, Number: 16}
	TagSet             = Tag{Class: ClassUniversal, Constructed: true, Number: 17}
	TagPrintableString = Tag{Class: ClassUniversal, Number: 19}
	TagIA5String       = Tag{Class: ClassUniversal, Number: 22}
	TagUTCTime         = Tag{Class: ClassUniversal, Number: 23}
	TagGeneralizedTime = Tag{Class: ClassUniversal, Number: 24}
)

// ContextConstructed returns the context-specific constructed tag [n],
// the pattern used for explicit tagging in X.509 and CMS.
func ContextConstructed(n uint8) Tag {
	return Tag{Class: ClassContextSpecific, Constructed: true, Number: n}
}

// ContextPrimitive returns the context-specific primitive tag [n], the
// pattern used for implicit tagging of primitive values.
func ContextPrimitive(n uint8) Tag {
	return Tag{Class: ClassContextSpecific, Number: n}
}

// String renders the tag in a compact debugging form such as
// "universal/c:16" for a SEQUENCE.
func (t Tag) String() string {
	s := t.Class.String()
	if t.Constructed {
		s += "/c:"
	} else {
		s += "/p:"
	}
	return s + strconv.Itoa(int(t.Number))
}

const highTagNumberForm = 0x1f

// parseTagByte decodes a single DER tag byte. The high-tag-number form
// (number bits all set) is not supported and yields a typed error rather
// than a silently truncated tag number.
func parseTagByte(b byte, offset int) (Tag, error) {
	number := b & 0x1f
	if number == highTagNumberForm {
		return Tag{}, &HighTagNumberError{Offset: offset}
	}
	return Tag{
		Class:       Class(b >> 6),
		Constructed: b&0x20 != 0,
		Number:      number,
	}, nil
}

// encode returns the single tag byte for t.
func (t Tag) encode() byte {
	b := byte(t.Class)<<6 | t.Number
	if t.Constructed {
		b |= 0x20
	}
	return b
}

// TLV is one decoded tag-length-value. Content aliases the input buffer
// and holds exactly Length bytes; Raw spans the tag byte, the length
// bytes and the content, so re-concatenating TLVs reproduces the input.
type TLV struct {
	Tag     Tag
	Length  int
	Content []byte
	Raw     []byte
	// Offset is the position of the tag byte in the buffer handed to the
	// outermost decode call. Used for error reporting.
	Offset int
}

// headerLen is the number of tag and length bytes preceding the content.
func (t TLV) headerLen() int {
	return len(t.Raw) - len(t.Content)
}

// contentOffset is the absolute offset of the first content byte.
func (t TLV) contentOffset() int {
	return t.Offset + t.headerLen()
}
