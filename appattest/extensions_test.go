package appattest

import (
	"testing"

	refcbor "github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openattest/go-appattest/cbor"
)

// derOctet wraps content in a DER OCTET STRING, the envelope every known
// vendor extension uses for its extnValue.
func derOctet(t *testing.T, content []byte) []byte {
	t.Helper()
	n := len(content)
	var header []byte
	switch {
	case n < 0x80:
		header = []byte{0x04, byte(n)}
	case n <= 0xff:
		header = []byte{0x04, 0x81, byte(n)}
	default:
		require.LessOrEqual(t, n, 0xffff)
		header = []byte{0x04, 0x82, byte(n >> 8), byte(n)}
	}
	return append(header, content...)
}

func TestDecodeChallengeExtension(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	challenge := []byte{0x01, 0x02, 0x03, 0x04}
	extnValue := derOctet(t, challenge)

	ext, err := DecodeExtension(OIDChallenge, extnValue)
	require.NoError(err)
	assert.Equal(ExtensionChallenge, ext.Kind)
	assert.Equal(challenge, ext.Challenge)
	assert.Equal(extnValue, ext.Raw)
}

func TestDecodeStringExtensions(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	testCases := map[string]struct {
		oid  string
		kind ExtensionKind
	}{
		"environment": {oid: OIDEnvironment, kind: ExtensionEnvironment},
		"keyPurpose":  {oid: OIDKeyPurpose, kind: ExtensionKeyPurpose},
		"osVersion":   {oid: OIDOSVersion, kind: ExtensionOSVersion},
		"deviceClass": {oid: OIDDeviceClass, kind: ExtensionDeviceClass},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ext, err := DecodeExtension(tc.oid, derOctet(t, []byte("production")))
			require.NoError(err)
			assert.Equal(tc.kind, ext.Kind)
			assert.Equal("production", ext.Value)
		})
	}
}

func TestDecodeExtensionRejectsInvalidUTF8(t *testing.T) {
	assert := assert.New(t)

	_, err := DecodeExtension(OIDEnvironment, derOctet(t, []byte{0xff, 0xfe}))
	var extErr *InvalidExtensionError
	assert.ErrorAs(err, &extErr)
	assert.Equal(OIDEnvironment, extErr.OID)
}

func TestDecodeExtensionUnknownOIDPassesThrough(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Unknown OIDs are carried through untouched, even with content that
	// is not DER at all.
	garbage := []byte{0xde, 0xad, 0xbe, 0xef}
	ext, err := DecodeExtension("1.2.3.4.5", garbage)
	require.NoError(err)
	assert.Equal(ExtensionUnknown, ext.Kind)
	assert.Equal(garbage, ext.Raw)
	assert.Empty(ext.Value)
}

func TestDecodeExtensionRejectsMissingWrapper(t *testing.T) {
	assert := assert.New(t)

	// An INTEGER where the OCTET STRING wrapper should be.
	_, err := DecodeExtension(OIDChallenge, []byte{0x02, 0x01, 0x07})
	var extErr *InvalidExtensionError
	assert.ErrorAs(err, &extErr)
}

func TestDecodeReceiptExtension(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	payload, err := refcbor.Marshal(map[int]any{
		4:  "com.example.app",
		5:  "TEAM123456",
		12: "2026-08-30T12:00:00Z",
		21: "2026-11-28T12:00:00Z",
		99: 7,
	})
	require.NoError(err)

	ext, err := DecodeExtension(OIDReceipt, derOctet(t, payload))
	require.NoError(err)
	assert.Equal(ExtensionReceipt, ext.Kind)
	require.NotNil(ext.Receipt)
	assert.Equal("com.example.app", ext.Receipt.BundleID)
	assert.Equal("TEAM123456", ext.Receipt.TeamID)
	assert.Equal("2026-08-30T12:00:00Z", ext.Receipt.CreationDate)
	assert.Equal("2026-11-28T12:00:00Z", ext.Receipt.ExpirationDate)

	// Unrecognized keys stay reachable through the raw map.
	extra, ok := ext.Receipt.Raw.MapGetInt(99)
	require.True(ok)
	assert.Equal(cbor.TypeUint, extra.Type)
	assert.EqualValues(7, extra.Uint)
}

func TestDecodeReceiptDuplicateKeyFirstWins(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// {4: "a", 4: "b"} hand-encoded; map encoders cannot produce it.
	payload := []byte{0xa2, 0x04, 0x61, 0x61, 0x04, 0x61, 0x62}
	ext, err := DecodeExtension(OIDReceipt, derOctet(t, payload))
	require.NoError(err)
	assert.Equal("a", ext.Receipt.BundleID)
}

func TestDecodeReceiptToleratesWrongTypedKeys(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	payload, err := refcbor.Marshal(map[int]any{4: 7, 5: "TEAM"})
	require.NoError(err)

	ext, err := DecodeExtension(OIDReceipt, derOctet(t, payload))
	require.NoError(err)
	assert.Empty(ext.Receipt.BundleID)
	assert.Equal("TEAM", ext.Receipt.TeamID)
}

func TestDecodeReceiptRejectsNonMap(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	payload, err := refcbor.Marshal([]int{1, 2, 3})
	require.NoError(err)

	_, err = DecodeExtension(OIDReceipt, derOctet(t, payload))
	var extErr *InvalidExtensionError
	assert.ErrorAs(err, &extErr)
	assert.Equal(OIDReceipt, extErr.OID)
}

func TestExtensionKindString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("challenge", ExtensionChallenge.String())
	assert.Equal("keyPurpose", ExtensionKeyPurpose.String())
	assert.Equal("receipt", ExtensionReceipt.String())
	assert.Equal("environment", ExtensionEnvironment.String())
	assert.Equal("osVersion", ExtensionOSVersion.String())
	assert.Equal("deviceClass", ExtensionDeviceClass.String())
	assert.Equal("unknown", ExtensionUnknown.String())
}

func FuzzDecodeExtension(f *testing.F) {
	f.Add(OIDChallenge, []byte{0x04, 0x02, 0x01, 0x02})
	f.Add(OIDReceipt, []byte{0x04, 0x01, 0xa0})
	f.Add(OIDEnvironment, []byte{0x04, 0x00})
	f.Fuzz(func(t *testing.T, oid string, extnValue []byte) {
		ext, err := DecodeExtension(oid, extnValue)
		if err != nil {
			return
		}
		assert.Equal(t, oid, ext.OID)
	})
}
