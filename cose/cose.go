// Package cose decodes COSE_Sign1 envelopes and their header maps
// (RFC 8152/9052) on top of the cbor package. Decoding is structural
// only: signatures are carried through as opaque bytes, never verified,
// and algorithm identifiers beyond ES256 decode to AlgorithmNone instead
// of failing, since algorithm use is a verification concern.
package cose

import (
	"fmt"

	"github.com/openattest/go-appattest/cbor"
)

// Algorithm is the COSE algorithm identifier from the protected header.
type Algorithm int64

const (
	// AlgorithmNone means the header carried no algorithm label or one
	// this package does not recognize.
	AlgorithmNone Algorithm = 0

	// AlgorithmES256 is ECDSA w/ SHA-256 (RFC 9053), the only algorithm
	// attestation leaf keys use.
	AlgorithmES256 Algorithm = -7
)

// String returns the IANA name for recognized algorithms.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmES256:
		return "ES256"
	case AlgorithmNone:
		return "none"
	default:
		return fmt.Sprintf("alg(%d)", int64(a))
	}
}

// Header map labels per RFC 9052 and RFC 9360.
const (
	labelAlgorithm = 1
	labelKeyID     = 4
	labelX5Chain   = 33
)

// Header is one decoded COSE header map. Unrecognized labels stay
// available through Raw but do not populate typed fields.
type Header struct {
	Algorithm Algorithm
	KeyID     []byte
	// X5Chain is the ordered certificate chain from the x5chain label,
	// one DER blob per certificate, leaf first.
	X5Chain [][]byte
	// Raw is the full decoded header map.
	Raw cbor.Value
}

// StructureError reports a COSE envelope or header map whose shape does
// not match the specification.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "cose: invalid structure: " + e.Reason
}

// PayloadError reports a COSE_Sign1 payload item that is neither a byte
// string nor null.
type PayloadError struct {
	Got cbor.Type
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("cose: invalid payload: expected byte string or null, got %s", e.Got)
}

// HeaderFromValue interprets a decoded CBOR map as a COSE header map.
// Labels are matched first-wins, so a duplicate label smuggled into an
// untrusted map cannot override the first occurrence.
func HeaderFromValue(v cbor.Value) (Header, error) {
	if v.Type != cbor.TypeMap {
		return Header{}, &StructureError{Reason: fmt.Sprintf("header must be a map, got %s", v.Type)}
	}
	h := Header{Raw: v}

	if alg, ok := v.MapGetInt(labelAlgorithm); ok {
		if id, err := alg.Int64(); err == nil && Algorithm(id) == AlgorithmES256 {
			h.Algorithm = AlgorithmES256
		}
	}
	if kid, ok := v.MapGetInt(labelKeyID); ok {
		if kid.Type != cbor.TypeBytes {
			return Header{}, &StructureError{Reason: fmt.Sprintf("key ID must be a byte string, got %s", kid.Type)}
		}
		h.KeyID = kid.Bytes
	}
	if x5c, ok := v.MapGetInt(labelX5Chain); ok {
		chain, err := certChain(x5c)
		if err != nil {
			return Header{}, err
		}
		h.X5Chain = chain
	}
	return h, nil
}

// certChain accepts the two wire shapes of x5chain (RFC 9360): a single
// byte string for a one-element chain, or an array of byte strings.
func certChain(v cbor.Value) ([][]byte, error) {
	switch v.Type {
	case cbor.TypeBytes:
		return [][]byte{v.Bytes}, nil
	case cbor.TypeArray:
		chain := make([][]byte, 0, len(v.Array))
		for i, elem := range v.Array {
			if elem.Type != cbor.TypeBytes {
				return nil, &StructureError{Reason: fmt.Sprintf("x5chain element %d must be a byte string, got %s", i, elem.Type)}
			}
			chain = append(chain, elem.Bytes)
		}
		return chain, nil
	default:
		return nil, &StructureError{Reason: fmt.Sprintf("x5chain must be a byte string or array, got %s", v.Type)}
	}
}
