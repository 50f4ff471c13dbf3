package appattest

import (
	"encoding/binary"
	"fmt"

	"github.com/openattest/go-appattest/cbor"
	"github.com/openattest/go-appattest/limits"
)

// Authenticator data flag bits.
const (
	FlagUserPresent            = byte(1)
	FlagUserVerified           = byte(1 << 2)
	FlagAttestedCredentialData = byte(1 << 6)
	FlagExtensionData          = byte(1 << 7)
)

// AttestedCredential is the attested credential data block that follows
// the fixed header when FlagAttestedCredentialData is set.
type AttestedCredential struct {
	AAGUID       [16]byte
	CredentialID []byte
	// PublicKey is the COSE key map that follows the credential ID,
	// decoded as a plain CBOR value.
	PublicKey cbor.Value
}

// AuthenticatorData is the fixed-layout WebAuthn authenticator data
// blob carried by attestation and assertion objects:
// rpIdHash(32) | flags(1) | signCount(4, big-endian) | attested
// credential data (optional).
type AuthenticatorData struct {
	RPIDHash   [32]byte
	Flags      byte
	SignCount  uint32
	Credential *AttestedCredential
}

// authDataFixedLen is the size of the fixed header.
const authDataFixedLen = 32 + 1 + 4

// ParseAuthenticatorData parses an authenticator data blob with the
// default limits.
func ParseAuthenticatorData(b []byte) (AuthenticatorData, error) {
	return ParseAuthenticatorDataWithLimits(b, limits.Default())
}

// ParseAuthenticatorDataWithLimits is ParseAuthenticatorData with
// explicit resource ceilings for the embedded COSE key decode.
func ParseAuthenticatorDataWithLimits(b []byte, l limits.Limits) (AuthenticatorData, error) {
	if len(b) < authDataFixedLen {
		return AuthenticatorData{}, fmt.Errorf("authenticator data is too short to be parsed (received: %d bytes)", len(b))
	}

	ad := AuthenticatorData{
		RPIDHash:  [32]byte(b[0:32]),
		Flags:     b[32],
		SignCount: binary.BigEndian.Uint32(b[33:37]),
	}
	if ad.Flags&FlagAttestedCredentialData == 0 {
		return ad, nil
	}

	rest := b[authDataFixedLen:]
	if len(rest) < 18 {
		return AuthenticatorData{}, fmt.Errorf("attested credential data is too short to be parsed (requires at least: 18 bytes, left: %d bytes)", len(rest))
	}
	cred := &AttestedCredential{AAGUID: [16]byte(rest[0:16])}

	credIDLen := int(binary.BigEndian.Uint16(rest[16:18]))
	if len(rest)-18 < credIDLen {
		return AuthenticatorData{}, fmt.Errorf("credential ID length is either incorrect or data is truncated (requires at least: %d bytes, left: %d bytes)", credIDLen, len(rest)-18)
	}
	cred.CredentialID = rest[18 : 18+credIDLen]

	key, _, err := cbor.DecodePrefixWithLimits(rest[18+credIDLen:], l)
	if err != nil {
		return AuthenticatorData{}, fmt.Errorf("decoding credential public key: %w", err)
	}
	cred.PublicKey = key

	ad.Credential = cred
	return ad, nil
}
