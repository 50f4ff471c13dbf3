// Package appattest decodes the proprietary pieces of an App Attest
// artifact: the vendor certificate extensions under the
// 1.2.840.113635.100.8 arc, the CBOR attestation and assertion
// envelopes, and the WebAuthn-style authenticator data they carry.
// Everything here is structural; nothing is verified or trusted.
package appattest

import (
	"fmt"
	"unicode/utf8"

	"github.com/openattest/go-appattest/asn1"
	"github.com/openattest/go-appattest/limits"
)

// Vendor extension OIDs. The assignments under the arc are documented by
// observation, not by a published specification, so unknown OIDs decode
// to ExtensionUnknown instead of failing.
const (
	OIDChallenge   = "1.2.840.113635.100.8.2"
	OIDKeyPurpose  = "1.2.840.113635.100.8.4"
	OIDReceipt     = "1.2.840.113635.100.8.5"
	OIDEnvironment = "1.2.840.113635.100.8.7"
	OIDOSVersion   = "1.2.840.113635.100.8.8"
	OIDDeviceClass = "1.2.840.113635.100.8.9"
)

// ExtensionKind discriminates the decoded variants of a vendor
// extension.
type ExtensionKind int

const (
	ExtensionUnknown ExtensionKind = iota
	ExtensionChallenge
	ExtensionKeyPurpose
	ExtensionReceipt
	ExtensionEnvironment
	ExtensionOSVersion
	ExtensionDeviceClass
)

// String returns the kind's display name.
func (k ExtensionKind) String() string {
	switch k {
	case ExtensionChallenge:
		return "challenge"
	case ExtensionKeyPurpose:
		return "keyPurpose"
	case ExtensionReceipt:
		return "receipt"
	case ExtensionEnvironment:
		return "environment"
	case ExtensionOSVersion:
		return "osVersion"
	case ExtensionDeviceClass:
		return "deviceClass"
	default:
		return "unknown"
	}
}

// Extension is one decoded vendor certificate extension. Exactly the
// fields implied by Kind are meaningful; Raw always keeps the original
// extnValue bytes.
type Extension struct {
	OID  string
	Kind ExtensionKind

	// Challenge holds the raw hash bytes for ExtensionChallenge.
	Challenge []byte
	// Value holds the UTF-8 string for the string-valued kinds
	// (keyPurpose, environment, osVersion, deviceClass).
	Value string
	// Receipt holds the decoded receipt map for ExtensionReceipt.
	Receipt *Receipt

	Raw []byte
}

// InvalidExtensionError reports a known vendor OID whose inner value
// does not have the observed encoding.
type InvalidExtensionError struct {
	OID    string
	Reason string
}

func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("appattest: invalid extension %s: %s", e.OID, e.Reason)
}

// DecodeExtension decodes one vendor extension from its OID and raw
// extnValue bytes, with the default limits.
func DecodeExtension(oid string, extnValue []byte) (Extension, error) {
	return DecodeExtensionWithLimits(oid, extnValue, limits.Default())
}

// DecodeExtensionWithLimits is DecodeExtension with explicit resource
// ceilings. Every known OID wraps its value in a DER OCTET STRING, so
// the DER reader is re-entered here; the receipt additionally re-enters
// the CBOR reader for its map.
func DecodeExtensionWithLimits(oid string, extnValue []byte, l limits.Limits) (Extension, error) {
	ext := Extension{OID: oid, Raw: extnValue}

	switch oid {
	case OIDChallenge:
		ext.Kind = ExtensionChallenge
	case OIDKeyPurpose:
		ext.Kind = ExtensionKeyPurpose
	case OIDReceipt:
		ext.Kind = ExtensionReceipt
	case OIDEnvironment:
		ext.Kind = ExtensionEnvironment
	case OIDOSVersion:
		ext.Kind = ExtensionOSVersion
	case OIDDeviceClass:
		ext.Kind = ExtensionDeviceClass
	default:
		return ext, nil
	}

	inner, err := unwrapOctetString(extnValue, l)
	if err != nil {
		return Extension{}, &InvalidExtensionError{OID: oid, Reason: err.Error()}
	}

	switch ext.Kind {
	case ExtensionChallenge:
		ext.Challenge = inner

	case ExtensionKeyPurpose, ExtensionEnvironment, ExtensionOSVersion, ExtensionDeviceClass:
		if !utf8.Valid(inner) {
			return Extension{}, &InvalidExtensionError{OID: oid, Reason: "value is not valid UTF-8"}
		}
		ext.Value = string(inner)

	case ExtensionReceipt:
		receipt, err := decodeReceipt(inner, l)
		if err != nil {
			return Extension{}, &InvalidExtensionError{OID: oid, Reason: err.Error()}
		}
		ext.Receipt = &receipt
	}
	return ext, nil
}

// unwrapOctetString DER-decodes extnValue and returns the content of the
// single OCTET STRING it must contain.
func unwrapOctetString(extnValue []byte, l limits.Limits) ([]byte, error) {
	node, err := asn1.DecodeWithLimits(extnValue, l)
	if err != nil {
		return nil, err
	}
	if node.Tag != asn1.TagOctetString {
		return nil, fmt.Errorf("expected an OCTET STRING wrapper, got %s", node.Tag)
	}
	return node.Content, nil
}
