package asn1

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Typed accessors derive Go values from a TLV's content bytes. They are
// computed on demand and never stored, so the TLV itself stays a plain
// byte-span view of the input.

// Integer reduces the content of an INTEGER to an int64, big-endian with
// sign extension. Values wider than eight bytes are rejected; callers
// that need arbitrary-width integers (certificate serials) keep the raw
// content bytes instead.
func (t TLV) Integer() (int64, error) {
	if t.Tag != TagInteger {
		return 0, &ValueError{Tag: t.Tag, Reason: "not an INTEGER"}
	}
	if len(t.Content) == 0 {
		return 0, &ValueError{Tag: t.Tag, Reason: "empty INTEGER"}
	}
	if len(t.Content) > 8 {
		return 0, &ValueError{Tag: t.Tag, Reason: "INTEGER too large for int64"}
	}
	var v int64
	for _, b := range t.Content {
		v = v<<8 | int64(b)
	}
	// Shift up and down to sign extend.
	shift := 64 - uint8(len(t.Content))*8
	return v << shift >> shift, nil
}

// Text returns the content of a UTF8String, PrintableString or IA5String
// as a Go string. Invalid UTF-8 is an error, never silently replaced.
func (t TLV) Text() (string, error) {
	switch t.Tag {
	case TagUTF8String, TagPrintableString, TagIA5String:
	default:
		return "", &ValueError{Tag: t.Tag, Reason: "not a string type"}
	}
	if !utf8.Valid(t.Content) {
		return "", &ValueError{Tag: t.Tag, Reason: "invalid UTF-8"}
	}
	return string(t.Content), nil
}

// ObjectIdentifier decodes an OBJECT IDENTIFIER into dotted-decimal
// form. The first content byte carries the first two arcs; the remaining
// bytes are base-128 continuation groups. A group that ends mid-stream
// (continuation bit set on the final byte) is rejected.
func (t TLV) ObjectIdentifier() (string, error) {
	if t.Tag != TagOID {
		return "", &ValueError{Tag: t.Tag, Reason: "not an OBJECT IDENTIFIER"}
	}
	if len(t.Content) == 0 {
		return "", &ValueError{Tag: t.Tag, Reason: "empty OBJECT IDENTIFIER"}
	}

	first := t.Content[0]
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(first / 40)))
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(int(first % 40)))

	var acc uint64
	pending := false
	for _, b := range t.Content[1:] {
		if acc > 1<<56 {
			return "", &ValueError{Tag: t.Tag, Reason: "OID arc overflows"}
		}
		acc = acc<<7 | uint64(b&0x7f)
		if b&0x80 != 0 {
			pending = true
			continue
		}
		sb.WriteByte('.')
		sb.WriteString(strconv.FormatUint(acc, 10))
		acc = 0
		pending = false
	}
	if pending {
		return "", &ValueError{Tag: t.Tag, Reason: "OID ends inside a continuation group"}
	}
	return sb.String(), nil
}

// MarshalOID encodes a dotted-decimal OID string into DER OBJECT
// IDENTIFIER content bytes (without tag and length). It is the inverse
// of ObjectIdentifier and exists mainly so tests and fixture builders
// can round-trip OIDs.
func MarshalOID(oid string) ([]byte, error) {
	parts := strings.Split(oid, ".")
	if len(parts) < 2 {
		return nil, &ValueError{Tag: TagOID, Reason: "OID needs at least two arcs"}
	}
	arcs := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, &ValueError{Tag: TagOID, Reason: "OID arc " + strconv.Itoa(i) + " is not a number"}
		}
		arcs[i] = v
	}

	head := arcs[0]*40 + arcs[1]
	if head > 0xff {
		return nil, &ValueError{Tag: TagOID, Reason: "first two arcs do not fit one byte"}
	}
	out := []byte{byte(head)}
	for _, arc := range arcs[2:] {
		out = appendBase128(out, arc)
	}
	return out, nil
}

// appendBase128 appends arc in base-128 groups, continuation bit on all
// but the final byte.
func appendBase128(dst []byte, arc uint64) []byte {
	var tmp [10]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = byte(arc & 0x7f)
		arc >>= 7
		if arc == 0 {
			break
		}
	}
	for j := i; j < len(tmp)-1; j++ {
		tmp[j] |= 0x80
	}
	return append(dst, tmp[i:]...)
}

// Time parses a UTCTime (yyMMddHHmmssZ) or GeneralizedTime
// (yyyyMMddHHmmssZ) against UTC. Fractional seconds and explicit zone
// offsets are rejected; DER certificates practically always use the
// 'Z' forms.
func (t TLV) Time() (time.Time, error) {
	switch t.Tag {
	case TagUTCTime:
		return parseTimestamp(t, t.Content, 2)
	case TagGeneralizedTime:
		return parseTimestamp(t, t.Content, 4)
	default:
		return time.Time{}, &ValueError{Tag: t.Tag, Reason: "not a time type"}
	}
}

// parseTimestamp decodes yearDigits+10 ASCII digits followed by 'Z'.
func parseTimestamp(t TLV, b []byte, yearDigits int) (time.Time, error) {
	want := yearDigits + 10 + 1
	if len(b) != want || b[len(b)-1] != 'Z' {
		return time.Time{}, &ValueError{Tag: t.Tag, Reason: "time does not match the UTC 'Z' pattern"}
	}
	digits := b[:len(b)-1]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return time.Time{}, &ValueError{Tag: t.Tag, Reason: "time contains a non-digit"}
		}
	}

	num := func(off, n int) int {
		v := 0
		for _, c := range digits[off : off+n] {
			v = v*10 + int(c-'0')
		}
		return v
	}

	year := num(0, yearDigits)
	if yearDigits == 2 {
		// RFC 5280 pivot: 00-49 are 20xx, 50-99 are 19xx.
		if year < 50 {
			year += 2000
		} else {
			year += 1900
		}
	}
	month := num(yearDigits, 2)
	day := num(yearDigits+2, 2)
	hour := num(yearDigits+4, 2)
	minute := num(yearDigits+6, 2)
	sec := num(yearDigits+8, 2)

	ts := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	// time.Date normalizes out-of-range components; a date that does not
	// survive the round trip was invalid.
	if ts.Year() != year || ts.Month() != time.Month(month) || ts.Day() != day ||
		ts.Hour() != hour || ts.Minute() != minute || ts.Second() != sec {
		return time.Time{}, &ValueError{Tag: t.Tag, Reason: "time components out of range"}
	}
	return ts, nil
}

// BitString returns the content of a BIT STRING with the leading
// unused-bits octet validated and dropped.
func (t TLV) BitString() ([]byte, error) {
	if t.Tag != TagBitString {
		return nil, &ValueError{Tag: t.Tag, Reason: "not a BIT STRING"}
	}
	if len(t.Content) == 0 {
		return nil, &ValueError{Tag: t.Tag, Reason: "empty BIT STRING"}
	}
	unused := t.Content[0]
	if unused > 7 || (len(t.Content) == 1 && unused > 0) {
		return nil, &ValueError{Tag: t.Tag, Reason: "invalid unused-bits count"}
	}
	return t.Content[1:], nil
}
