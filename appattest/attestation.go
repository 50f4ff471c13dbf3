package appattest

import (
	"fmt"

	"github.com/openattest/go-appattest/cbor"
	"github.com/openattest/go-appattest/limits"
)

// FormatAppAttest is the only attestation statement format this package
// decodes.
const FormatAppAttest = "apple-appattest"

// AttestationObject is the decoded top-level CBOR envelope of an
// attestation: {fmt, attStmt: {x5c, receipt}, authData}.
type AttestationObject struct {
	Format string

	// CertChain is the x5c statement field: raw DER blobs, leaf first.
	CertChain [][]byte
	// Receipt is the raw receipt blob from the statement (a CMS
	// SignedData in practice), carried through undecoded.
	Receipt []byte

	AuthDataRaw []byte
	AuthData    AuthenticatorData
}

// AssertionObject is the decoded CBOR envelope of an assertion:
// {signature, authenticatorData}.
type AssertionObject struct {
	Signature   []byte
	AuthDataRaw []byte
	AuthData    AuthenticatorData
}

// ParseAttestationObject decodes an attestation envelope with the
// default limits.
func ParseAttestationObject(b []byte) (AttestationObject, error) {
	return ParseAttestationObjectWithLimits(b, limits.Default())
}

// ParseAttestationObjectWithLimits is ParseAttestationObject with
// explicit resource ceilings.
func ParseAttestationObjectWithLimits(b []byte, l limits.Limits) (AttestationObject, error) {
	v, err := cbor.DecodeWithLimits(b, l)
	if err != nil {
		return AttestationObject{}, fmt.Errorf("decoding attestation envelope: %w", err)
	}
	if v.Type != cbor.TypeMap {
		return AttestationObject{}, fmt.Errorf("attestation envelope must be a CBOR map, got %s", v.Type)
	}

	var obj AttestationObject

	format, ok := v.MapGetText("fmt")
	if !ok || format.Type != cbor.TypeText {
		return AttestationObject{}, fmt.Errorf("attestation envelope has no fmt field")
	}
	obj.Format = format.Text
	if obj.Format != FormatAppAttest {
		return AttestationObject{}, fmt.Errorf("unsupported attestation format %q (expected %q)", obj.Format, FormatAppAttest)
	}

	attStmt, ok := v.MapGetText("attStmt")
	if !ok || attStmt.Type != cbor.TypeMap {
		return AttestationObject{}, fmt.Errorf("attestation envelope has no attStmt map")
	}
	if x5c, ok := attStmt.MapGetText("x5c"); ok {
		if x5c.Type != cbor.TypeArray {
			return AttestationObject{}, fmt.Errorf("attStmt x5c must be an array, got %s", x5c.Type)
		}
		for i, elem := range x5c.Array {
			if elem.Type != cbor.TypeBytes {
				return AttestationObject{}, fmt.Errorf("attStmt x5c element %d must be a byte string, got %s", i, elem.Type)
			}
			obj.CertChain = append(obj.CertChain, elem.Bytes)
		}
	}
	if receipt, ok := attStmt.MapGetText("receipt"); ok {
		if receipt.Type != cbor.TypeBytes {
			return AttestationObject{}, fmt.Errorf("attStmt receipt must be a byte string, got %s", receipt.Type)
		}
		obj.Receipt = receipt.Bytes
	}

	authData, ok := v.MapGetText("authData")
	if !ok || authData.Type != cbor.TypeBytes {
		return AttestationObject{}, fmt.Errorf("attestation envelope has no authData byte string")
	}
	obj.AuthDataRaw = authData.Bytes
	if obj.AuthData, err = ParseAuthenticatorDataWithLimits(authData.Bytes, l); err != nil {
		return AttestationObject{}, fmt.Errorf("parsing authData: %w", err)
	}

	return obj, nil
}

// ParseAssertionObject decodes an assertion envelope with the default
// limits.
func ParseAssertionObject(b []byte) (AssertionObject, error) {
	return ParseAssertionObjectWithLimits(b, limits.Default())
}

// ParseAssertionObjectWithLimits is ParseAssertionObject with explicit
// resource ceilings.
func ParseAssertionObjectWithLimits(b []byte, l limits.Limits) (AssertionObject, error) {
	v, err := cbor.DecodeWithLimits(b, l)
	if err != nil {
		return AssertionObject{}, fmt.Errorf("decoding assertion envelope: %w", err)
	}
	if v.Type != cbor.TypeMap {
		return AssertionObject{}, fmt.Errorf("assertion envelope must be a CBOR map, got %s", v.Type)
	}

	var obj AssertionObject

	sig, ok := v.MapGetText("signature")
	if !ok || sig.Type != cbor.TypeBytes {
		return AssertionObject{}, fmt.Errorf("assertion envelope has no signature byte string")
	}
	obj.Signature = sig.Bytes

	authData, ok := v.MapGetText("authenticatorData")
	if !ok || authData.Type != cbor.TypeBytes {
		return AssertionObject{}, fmt.Errorf("assertion envelope has no authenticatorData byte string")
	}
	obj.AuthDataRaw = authData.Bytes
	if obj.AuthData, err = ParseAuthenticatorDataWithLimits(authData.Bytes, l); err != nil {
		return AssertionObject{}, fmt.Errorf("parsing authenticatorData: %w", err)
	}

	return obj, nil
}
