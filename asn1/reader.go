package asn1

import (
	"math"

	"github.com/openattest/go-appattest/limits"
)

// maxLengthBytes is how many long-form length bytes DER inputs may carry.
// Four bytes already describe contents far beyond the value-size ceiling.
const maxLengthBytes = 4

// Reader is the streaming access mode: a cursor over one content region.
// Every read either advances the cursor by exactly the bytes consumed or
// fails without advancing; there is no partial-consumption state.
//
// Readers derived with WithContent are bounded to exactly one TLV's
// content bytes and can never read past them, no matter what the caller
// does inside the scope.
type Reader struct {
	buf   []byte
	pos   int
	base  int // offset of buf[0] relative to the outermost input
	lim   limits.Limits
	depth int
}

// NewReader returns a Reader over b with the default limits.
func NewReader(b []byte) *Reader {
	return NewReaderWithLimits(b, limits.Default())
}

// NewReaderWithLimits returns a Reader over b applying l to every
// operation, including all sub-readers derived from it.
func NewReaderWithLimits(b []byte, l limits.Limits) *Reader {
	return &Reader{buf: b, lim: l}
}

// Len returns the number of unread bytes in the current region.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Empty reports whether the current region is fully consumed.
func (r *Reader) Empty() bool { return r.pos >= len(r.buf) }

// Offset returns the absolute offset of the cursor relative to the
// buffer handed to the outermost decode call.
func (r *Reader) Offset() int { return r.base + r.pos }

// PeekTag decodes the tag byte at the cursor without advancing. It is
// the mechanism behind optional-field detection in X.509 and CMS.
func (r *Reader) PeekTag() (Tag, error) {
	if r.Empty() {
		return Tag{}, &TruncatedError{Expected: 1, Remaining: 0, Offset: r.Offset()}
	}
	return parseTagByte(r.buf[r.pos], r.Offset())
}

// ReadTLV decodes the next tag-length-value and advances past it. The
// declared length is validated against the remaining bytes and the
// configured value-size ceiling before any content is touched.
func (r *Reader) ReadTLV() (TLV, error) {
	if !r.lim.TotalBytesOK(len(r.buf)) {
		return TLV{}, &LimitError{Offset: r.base, What: "total input bytes", Limit: r.lim.MaxTotalBytes}
	}

	start := r.pos
	tag, err := r.PeekTag()
	if err != nil {
		return TLV{}, err
	}

	p := start + 1
	if p >= len(r.buf) {
		return TLV{}, &TruncatedError{Expected: 1, Remaining: 0, Offset: r.base + p}
	}
	length, p, err := r.readLength(p)
	if err != nil {
		return TLV{}, err
	}

	if !r.lim.ValueBytesOK(length) {
		return TLV{}, &LimitError{Offset: r.base + start, What: "value bytes", Limit: r.lim.MaxValueBytes}
	}
	if remaining := len(r.buf) - p; remaining < length {
		return TLV{}, &TruncatedError{Expected: length, Remaining: remaining, Offset: r.base + p}
	}

	end := p + length
	tlv := TLV{
		Tag:     tag,
		Length:  length,
		Content: r.buf[p:end:end],
		Raw:     r.buf[start:end:end],
		Offset:  r.base + start,
	}
	r.pos = end
	return tlv, nil
}

// readLength decodes the length octets starting at p and returns the
// content length and the position of the first content byte.
func (r *Reader) readLength(p int) (int, int, error) {
	first := r.buf[p]
	p++
	if first&0x80 == 0 {
		// Short form, 0-127.
		return int(first), p, nil
	}

	n := int(first & 0x7f)
	if n == 0 {
		return 0, 0, &InvalidLengthError{Offset: r.base + p - 1, Reason: "indefinite length is not valid in DER"}
	}
	if n > maxLengthBytes {
		return 0, 0, &InvalidLengthError{Offset: r.base + p - 1, Reason: "more than 4 length bytes"}
	}
	if remaining := len(r.buf) - p; remaining < n {
		return 0, 0, &TruncatedError{Expected: n, Remaining: remaining, Offset: r.base + p}
	}

	var v uint64
	for i := 0; i < n; i++ {
		v = v<<8 | uint64(r.buf[p+i])
	}
	p += n
	if v > uint64(math.MaxInt32) {
		return 0, 0, &InvalidLengthError{Offset: r.base + p - n - 1, Reason: "declared length overflows"}
	}
	return int(v), p, nil
}

// ExpectTag reads the next TLV and fails with UnexpectedTagError if its
// tag differs from want. On any failure the cursor does not move.
func (r *Reader) ExpectTag(want Tag) (TLV, error) {
	save := r.pos
	tlv, err := r.ReadTLV()
	if err != nil {
		r.pos = save
		return TLV{}, err
	}
	if tlv.Tag != want {
		r.pos = save
		return TLV{}, &UnexpectedTagError{Want: want, Got: tlv.Tag, Offset: tlv.Offset}
	}
	return tlv, nil
}

// WithContent runs body with a sub-reader scoped to exactly tlv's
// content bytes. The sub-reader inherits the limits and counts one level
// of nesting depth; body is free to leave trailing content unread, which
// is how unknown optional DER fields are skipped.
func (r *Reader) WithContent(tlv TLV, body func(*Reader) error) error {
	depth := r.depth + 1
	if !r.lim.DepthOK(depth) {
		return &LimitError{Offset: tlv.Offset, What: "nesting depth", Limit: r.lim.MaxDepth}
	}
	sub := &Reader{
		buf:   tlv.Content,
		base:  tlv.contentOffset(),
		lim:   r.lim,
		depth: depth,
	}
	return body(sub)
}
