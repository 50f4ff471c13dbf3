package cose

import (
	"fmt"

	"github.com/openattest/go-appattest/cbor"
	"github.com/openattest/go-appattest/limits"
)

// tagSign1 is the CBOR tag wrapping a tagged COSE_Sign1 message.
const tagSign1 = 18

// Sign1 is a decoded COSE_Sign1 envelope: a 4-element CBOR array of
// protected header, unprotected header, payload and signature. A null
// payload is recorded explicitly via PayloadPresent rather than inferred
// from an empty slice.
type Sign1 struct {
	Protected Header
	// ProtectedRaw is the serialized protected header exactly as it
	// appeared inside its byte-string wrapper. Verifiers outside this
	// module need these bytes to rebuild the Sig_structure.
	ProtectedRaw []byte

	Unprotected Header

	Payload        []byte
	PayloadPresent bool

	Signature []byte
}

// DecodeSign1 decodes a CBOR-encoded COSE_Sign1 message with the
// default limits.
func DecodeSign1(b []byte) (Sign1, error) {
	return DecodeSign1WithLimits(b, limits.Default())
}

// DecodeSign1WithLimits is DecodeSign1 with explicit resource ceilings.
func DecodeSign1WithLimits(b []byte, l limits.Limits) (Sign1, error) {
	v, err := cbor.DecodeWithLimits(b, l)
	if err != nil {
		return Sign1{}, fmt.Errorf("decoding COSE_Sign1 envelope: %w", err)
	}
	return Sign1FromValueWithLimits(v, l)
}

// Sign1FromValue interprets an already-decoded CBOR value as a
// COSE_Sign1 message.
func Sign1FromValue(v cbor.Value) (Sign1, error) {
	return Sign1FromValueWithLimits(v, limits.Default())
}

// Sign1FromValueWithLimits is Sign1FromValue with explicit ceilings for
// the nested decode of the protected header bytes.
func Sign1FromValueWithLimits(v cbor.Value, l limits.Limits) (Sign1, error) {
	// A tagged message (tag 18) carries the same array inside.
	if v.Type == cbor.TypeTag {
		if v.TagNumber != tagSign1 || v.Tagged == nil {
			return Sign1{}, &StructureError{Reason: fmt.Sprintf("unexpected tag %d on COSE_Sign1", v.TagNumber)}
		}
		v = *v.Tagged
	}
	if v.Type != cbor.TypeArray {
		return Sign1{}, &StructureError{Reason: fmt.Sprintf("COSE_Sign1 must be an array, got %s", v.Type)}
	}
	if len(v.Array) != 4 {
		return Sign1{}, &StructureError{Reason: fmt.Sprintf("COSE_Sign1 must have exactly 4 elements, got %d", len(v.Array))}
	}

	var s Sign1

	protected := v.Array[0]
	if protected.Type != cbor.TypeBytes {
		return Sign1{}, &StructureError{Reason: fmt.Sprintf("protected header must be a byte string, got %s", protected.Type)}
	}
	s.ProtectedRaw = protected.Bytes
	inner, err := cbor.DecodeWithLimits(protected.Bytes, l)
	if err != nil {
		return Sign1{}, fmt.Errorf("decoding protected header bytes: %w", err)
	}
	s.Protected, err = HeaderFromValue(inner)
	if err != nil {
		return Sign1{}, fmt.Errorf("reading protected header: %w", err)
	}

	s.Unprotected, err = HeaderFromValue(v.Array[1])
	if err != nil {
		return Sign1{}, fmt.Errorf("reading unprotected header: %w", err)
	}

	switch payload := v.Array[2]; payload.Type {
	case cbor.TypeBytes:
		s.Payload = payload.Bytes
		s.PayloadPresent = true
	case cbor.TypeNull:
		// Detached payload: represented, not inferred.
	default:
		return Sign1{}, &PayloadError{Got: payload.Type}
	}

	if sig := v.Array[3]; sig.Type == cbor.TypeBytes {
		s.Signature = sig.Bytes
	} else {
		return Sign1{}, &StructureError{Reason: fmt.Sprintf("signature must be a byte string, got %s", sig.Type)}
	}

	return s, nil
}
