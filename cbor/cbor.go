// Package cbor implements a defensive reader for CBOR data items
// (RFC 8949, major types 0-7, definite lengths only). It decodes one
// self-describing item into a Value sum type, preserving the exact byte
// span of every item so the original input can be reconstructed from the
// decoded tree.
//
// Maps decode into ordered key/value pair lists and are deliberately not
// deduplicated: CBOR permits any value as a map key and does not mandate
// uniqueness on the wire, so folding into a unique-key structure is the
// caller's decision. Typed lookups in this module use first-wins
// semantics on duplicate keys.
//
// Indefinite-length containers and floating-point values are outside the
// supported subset and surface as typed unsupported-type errors.
package cbor

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/openattest/go-appattest/limits"
)

// Type discriminates the variants of a Value.
type Type uint8

const (
	TypeUint Type = iota
	TypeNegInt
	TypeBytes
	TypeText
	TypeArray
	TypeMap
	TypeTag
	TypeBool
	TypeNull
	TypeUndefined
	TypeSimple
)

// String returns a human-readable type name.
func (t Type) String() string {
	switch t {
	case TypeUint:
		return "unsigned integer"
	case TypeNegInt:
		return "negative integer"
	case TypeBytes:
		return "byte string"
	case TypeText:
		return "text string"
	case TypeArray:
		return "array"
	case TypeMap:
		return "map"
	case TypeTag:
		return "tag"
	case TypeBool:
		return "boolean"
	case TypeNull:
		return "null"
	case TypeUndefined:
		return "undefined"
	case TypeSimple:
		return "simple value"
	default:
		return "unknown"
	}
}

// Pair is one map entry. Entries keep wire order and may repeat keys.
type Pair struct {
	Key   Value
	Value Value
}

// Value is one decoded CBOR data item. Exactly the fields implied by
// Type are meaningful; Raw always holds the exact encoded span of the
// item, including its initial byte.
type Value struct {
	Type Type

	Uint      uint64 // TypeUint
	Int       int64  // TypeNegInt, already folded to -1 - argument
	Bytes     []byte // TypeBytes
	Text      string // TypeText
	Array     []Value
	Map       []Pair
	TagNumber uint64 // TypeTag
	Tagged    *Value // TypeTag
	Bool      bool   // TypeBool
	Simple    uint8  // TypeSimple

	Raw []byte
}

// Int64 folds the two integer variants into one int64.
func (v Value) Int64() (int64, error) {
	switch v.Type {
	case TypeUint:
		if v.Uint > math.MaxInt64 {
			return 0, &IntegerOverflowError{}
		}
		return int64(v.Uint), nil
	case TypeNegInt:
		return v.Int, nil
	default:
		return 0, &UnexpectedTypeError{Want: TypeUint, Got: v.Type}
	}
}

// MapGetInt returns the first map entry whose key is the integer label.
// First-wins lookup keeps duplicate keys from untrusted input harmless.
func (v Value) MapGetInt(label int64) (Value, bool) {
	for _, p := range v.Map {
		k, err := p.Key.Int64()
		if err == nil && k == label {
			return p.Value, true
		}
	}
	return Value{}, false
}

// MapGetText returns the first map entry whose key is the text string.
func (v Value) MapGetText(key string) (Value, bool) {
	for _, p := range v.Map {
		if p.Key.Type == TypeText && p.Key.Text == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Decode decodes exactly one CBOR data item spanning all of b, using the
// default limits. Trailing bytes are an error.
func Decode(b []byte) (Value, error) {
	return DecodeWithLimits(b, limits.Default())
}

// DecodeWithLimits is Decode with explicit resource ceilings.
func DecodeWithLimits(b []byte, l limits.Limits) (Value, error) {
	v, rest, err := DecodePrefixWithLimits(b, l)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, &ExtraneousDataError{Offset: len(b) - len(rest), Remaining: len(rest)}
	}
	return v, nil
}

// DecodePrefix decodes one CBOR data item from the front of b and
// returns the unread remainder.
func DecodePrefix(b []byte) (Value, []byte, error) {
	return DecodePrefixWithLimits(b, limits.Default())
}

// DecodePrefixWithLimits is DecodePrefix with explicit resource
// ceilings.
func DecodePrefixWithLimits(b []byte, l limits.Limits) (Value, []byte, error) {
	if !l.TotalBytesOK(len(b)) {
		return Value{}, b, &LimitError{Offset: 0, What: "total input bytes", Limit: l.MaxTotalBytes}
	}
	d := &decoder{buf: b, lim: l}
	v, err := d.decodeItem(1)
	if err != nil {
		return Value{}, b, err
	}
	return v, b[d.pos:], nil
}

type decoder struct {
	buf []byte
	pos int
	lim limits.Limits
}

// Additional-info code points of the initial byte.
const (
	addInfoUint8      = 24
	addInfoUint16     = 25
	addInfoUint32     = 26
	addInfoUint64     = 27
	addInfoIndefinite = 31
)

// decodeItem decodes one data item at the cursor. depth counts container
// nesting cumulatively across the whole decode.
func (d *decoder) decodeItem(depth int) (Value, error) {
	if !d.lim.DepthOK(depth) {
		return Value{}, &LimitError{Offset: d.pos, What: "nesting depth", Limit: d.lim.MaxDepth}
	}
	if d.pos >= len(d.buf) {
		return Value{}, &TruncatedError{Expected: 1, Remaining: 0, Offset: d.pos}
	}

	start := d.pos
	initial := d.buf[d.pos]
	d.pos++
	major := initial >> 5
	info := initial & 0x1f

	var v Value
	switch major {
	case 0:
		arg, err := d.readArgument(initial, info)
		if err != nil {
			return Value{}, err
		}
		v = Value{Type: TypeUint, Uint: arg}

	case 1:
		arg, err := d.readArgument(initial, info)
		if err != nil {
			return Value{}, err
		}
		if arg > math.MaxInt64 {
			return Value{}, &IntegerOverflowError{Offset: start}
		}
		v = Value{Type: TypeNegInt, Int: -1 - int64(arg)}

	case 2:
		content, err := d.readDefiniteString(initial, info)
		if err != nil {
			return Value{}, err
		}
		v = Value{Type: TypeBytes, Bytes: content}

	case 3:
		content, err := d.readDefiniteString(initial, info)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(content) {
			return Value{}, &InvalidUTF8Error{Offset: start}
		}
		v = Value{Type: TypeText, Text: string(content)}

	case 4:
		count, err := d.readContainerCount(initial, info, 1)
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, 0, min(count, 64))
		for i := 0; i < count; i++ {
			elem, err := d.decodeItem(depth + 1)
			if err != nil {
				return Value{}, err
			}
			arr = append(arr, elem)
		}
		v = Value{Type: TypeArray, Array: arr}

	case 5:
		count, err := d.readContainerCount(initial, info, 2)
		if err != nil {
			return Value{}, err
		}
		pairs := make([]Pair, 0, min(count, 64))
		for i := 0; i < count; i++ {
			key, err := d.decodeItem(depth + 1)
			if err != nil {
				return Value{}, err
			}
			val, err := d.decodeItem(depth + 1)
			if err != nil {
				return Value{}, err
			}
			pairs = append(pairs, Pair{Key: key, Value: val})
		}
		v = Value{Type: TypeMap, Map: pairs}

	case 6:
		arg, err := d.readArgument(initial, info)
		if err != nil {
			return Value{}, err
		}
		content, err := d.decodeItem(depth + 1)
		if err != nil {
			return Value{}, err
		}
		v = Value{Type: TypeTag, TagNumber: arg, Tagged: &content}

	case 7:
		sv, err := d.decodeSimple(initial, info, start)
		if err != nil {
			return Value{}, err
		}
		v = sv
	}

	v.Raw = d.buf[start:d.pos:d.pos]
	return v, nil
}

// readArgument decodes the argument encoded by the additional info:
// 0-23 literal, 24-27 the next 1/2/4/8 bytes big-endian. Anything else
// is not part of the supported subset.
func (d *decoder) readArgument(initial byte, info byte) (uint64, error) {
	if info < addInfoUint8 {
		return uint64(info), nil
	}
	var n int
	switch info {
	case addInfoUint8:
		n = 1
	case addInfoUint16:
		n = 2
	case addInfoUint32:
		n = 4
	case addInfoUint64:
		n = 8
	case addInfoIndefinite:
		return 0, &UnsupportedTypeError{Byte: initial, Offset: d.pos - 1, Reason: "indefinite-length items are not supported"}
	default:
		return 0, &InvalidInitialByteError{Byte: initial, Offset: d.pos - 1}
	}
	if remaining := len(d.buf) - d.pos; remaining < n {
		return 0, &TruncatedError{Expected: n, Remaining: remaining, Offset: d.pos}
	}
	var v uint64
	switch n {
	case 1:
		v = uint64(d.buf[d.pos])
	case 2:
		v = uint64(binary.BigEndian.Uint16(d.buf[d.pos:]))
	case 4:
		v = uint64(binary.BigEndian.Uint32(d.buf[d.pos:]))
	case 8:
		v = binary.BigEndian.Uint64(d.buf[d.pos:])
	}
	d.pos += n
	return v, nil
}

// readDefiniteString reads the declared count of content bytes for a
// byte or text string, validating the count against the remaining input
// and the value-size ceiling before slicing.
func (d *decoder) readDefiniteString(initial byte, info byte) ([]byte, error) {
	at := d.pos - 1
	arg, err := d.readArgument(initial, info)
	if err != nil {
		return nil, err
	}
	if arg > uint64(math.MaxInt32) {
		return nil, &TruncatedError{Expected: math.MaxInt32, Remaining: len(d.buf) - d.pos, Offset: at}
	}
	n := int(arg)
	if !d.lim.ValueBytesOK(n) {
		return nil, &LimitError{Offset: at, What: "value bytes", Limit: d.lim.MaxValueBytes}
	}
	if remaining := len(d.buf) - d.pos; remaining < n {
		return nil, &TruncatedError{Expected: n, Remaining: remaining, Offset: d.pos}
	}
	content := d.buf[d.pos : d.pos+n : d.pos+n]
	d.pos += n
	return content, nil
}

// readContainerCount validates a declared array or map count. A count
// whose items could not possibly fit in the remaining bytes (every item
// takes at least one byte) fails as truncated up front instead of
// decoding a partial prefix.
func (d *decoder) readContainerCount(initial byte, info byte, itemsPerEntry int) (int, error) {
	at := d.pos - 1
	arg, err := d.readArgument(initial, info)
	if err != nil {
		return 0, err
	}
	if arg > uint64(math.MaxInt32) {
		return 0, &TruncatedError{Expected: math.MaxInt32, Remaining: len(d.buf) - d.pos, Offset: at}
	}
	count := int(arg)
	if !d.lim.ChildrenOK(count) {
		return 0, &LimitError{Offset: at, What: "container size", Limit: d.lim.MaxChildren}
	}
	if need := count * itemsPerEntry; need > len(d.buf)-d.pos {
		return 0, &TruncatedError{Expected: need, Remaining: len(d.buf) - d.pos, Offset: at}
	}
	return count, nil
}

// decodeSimple handles major type 7: the well-known simple values
// (false/true/null/undefined), opaque simple values, and the
// unsupported float and break code points.
func (d *decoder) decodeSimple(initial byte, info byte, start int) (Value, error) {
	switch {
	case info == 20:
		return Value{Type: TypeBool, Bool: false}, nil
	case info == 21:
		return Value{Type: TypeBool, Bool: true}, nil
	case info == 22:
		return Value{Type: TypeNull}, nil
	case info == 23:
		return Value{Type: TypeUndefined}, nil
	case info < 20:
		return Value{Type: TypeSimple, Simple: info}, nil
	case info == addInfoUint8:
		if d.pos >= len(d.buf) {
			return Value{}, &TruncatedError{Expected: 1, Remaining: 0, Offset: d.pos}
		}
		sv := d.buf[d.pos]
		d.pos++
		return Value{Type: TypeSimple, Simple: sv}, nil
	case info == addInfoUint16, info == addInfoUint32, info == addInfoUint64:
		return Value{}, &UnsupportedTypeError{Byte: initial, Offset: start, Reason: "floating-point values are not supported"}
	case info == addInfoIndefinite:
		return Value{}, &UnsupportedTypeError{Byte: initial, Offset: start, Reason: "indefinite-length break outside a container"}
	default:
		return Value{}, &InvalidInitialByteError{Byte: initial, Offset: start}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
