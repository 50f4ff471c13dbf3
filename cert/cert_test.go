package cert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openattest/go-appattest/asn1"
)

// DER fixture builders. Tests construct certificates bottom-up instead
// of carrying binary blobs.

func tlv(t *testing.T, tag byte, parts ...[]byte) []byte {
	t.Helper()
	var content []byte
	for _, p := range parts {
		content = append(content, p...)
	}
	n := len(content)
	var header []byte
	switch {
	case n < 0x80:
		header = []byte{tag, byte(n)}
	case n <= 0xff:
		header = []byte{tag, 0x81, byte(n)}
	default:
		require.LessOrEqual(t, n, 0xffff)
		header = []byte{tag, 0x82, byte(n >> 8), byte(n)}
	}
	return append(header, content...)
}

func derSeq(t *testing.T, parts ...[]byte) []byte { return tlv(t, 0x30, parts...) }
func derSet(t *testing.T, parts ...[]byte) []byte { return tlv(t, 0x31, parts...) }

func derOID(t *testing.T, oid string) []byte {
	t.Helper()
	content, err := asn1.MarshalOID(oid)
	require.NoError(t, err)
	return tlv(t, 0x06, content)
}

func derInt(t *testing.T, content ...byte) []byte  { return tlv(t, 0x02, content) }
func derUTF8(t *testing.T, s string) []byte        { return tlv(t, 0x0c, []byte(s)) }
func derUTC(t *testing.T, s string) []byte         { return tlv(t, 0x17, []byte(s)) }
func derOctet(t *testing.T, content []byte) []byte { return tlv(t, 0x04, content) }

func derBits(t *testing.T, content ...byte) []byte {
	return tlv(t, 0x03, append([]byte{0x00}, content...))
}

// derCtx builds a context-specific constructed [n] wrapper.
func derCtx(t *testing.T, n byte, parts ...[]byte) []byte {
	return tlv(t, 0xa0|n, parts...)
}

func derName(t *testing.T, attrs ...[]byte) []byte {
	t.Helper()
	var rdns [][]byte
	for _, a := range attrs {
		rdns = append(rdns, derSet(t, a))
	}
	return derSeq(t, rdns...)
}

func derAttr(t *testing.T, oid string, value []byte) []byte {
	return derSeq(t, derOID(t, oid), value)
}

func derAlg(t *testing.T, oid string) []byte {
	return derSeq(t, derOID(t, oid))
}

// testCertificate assembles a well-formed certificate fixture.
type testCertificate struct {
	serial     []byte
	extensions [][]byte
	// extra optional tbs fields placed before the [3] extensions.
	trailing [][]byte
	// omitVersion drops the [0] version field.
	omitVersion bool
}

func (tc testCertificate) build(t *testing.T) []byte {
	t.Helper()
	serial := tc.serial
	if serial == nil {
		serial = []byte{0x01}
	}

	issuer := derName(t,
		derAttr(t, "2.5.4.3", derUTF8(t, "Test Attestation CA")),
		derAttr(t, "2.5.4.10", derUTF8(t, "Example Org")),
	)
	subject := derName(t,
		derAttr(t, "2.5.4.3", derUTF8(t, "Test Leaf")),
	)
	validity := derSeq(t, derUTC(t, "250101000000Z"), derUTC(t, "350101000000Z"))
	spki := derSeq(t,
		derAlg(t, "1.2.840.10045.2.1"),
		derBits(t, 0x04, 0xaa, 0xbb),
	)

	var tbsParts [][]byte
	if !tc.omitVersion {
		tbsParts = append(tbsParts, derCtx(t, 0, derInt(t, 0x02)))
	}
	tbsParts = append(tbsParts,
		derInt(t, serial...),
		derAlg(t, "1.2.840.10045.4.3.2"),
		issuer,
		validity,
		subject,
		spki,
	)
	tbsParts = append(tbsParts, tc.trailing...)
	if tc.extensions != nil {
		tbsParts = append(tbsParts, derCtx(t, 3, derSeq(t, tc.extensions...)))
	}

	return derSeq(t,
		derSeq(t, tbsParts...),
		derAlg(t, "1.2.840.10045.4.3.2"),
		derBits(t, 0xca, 0xfe),
	)
}

func TestParseCertificate(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	envExt := derSeq(t,
		derOID(t, "1.2.840.113635.100.8.7"),
		derOctet(t, derOctet(t, []byte("production"))),
	)
	der := testCertificate{
		serial:     []byte{0x00, 0xde, 0xad, 0xbe, 0xef},
		extensions: [][]byte{envExt},
	}.build(t)

	c, err := Parse(der)
	require.NoError(err)

	assert.Equal([]byte{0x00, 0xde, 0xad, 0xbe, 0xef}, c.SerialNumber)
	assert.Equal("1.2.840.10045.4.3.2", c.SignatureAlgorithmOID)
	assert.Equal("CN=Test Attestation CA, O=Example Org", c.Issuer.String())
	assert.Equal("CN=Test Leaf", c.Subject.String())
	assert.Equal("Test Leaf", c.Subject.CommonName())
	assert.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), c.Validity.NotBefore)
	assert.Equal(time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC), c.Validity.NotAfter)
	assert.Equal("1.2.840.10045.2.1", c.PublicKeyAlgorithmOID)
	assert.Equal([]byte{0x04, 0xaa, 0xbb}, c.PublicKey)
	assert.Equal(der, c.Raw)

	require.Contains(c.Extensions, "1.2.840.113635.100.8.7")
	assert.Equal(derOctet(t, []byte("production")), c.Extensions["1.2.840.113635.100.8.7"])
}

func TestParseCertificateWithoutVersion(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	c, err := Parse(testCertificate{omitVersion: true}.build(t))
	require.NoError(err)
	assert.Equal([]byte{0x01}, c.SerialNumber)
}

func TestParseCertificateCriticalFlagDiscarded(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// critical TRUE between extnID and extnValue.
	ext := derSeq(t,
		derOID(t, "2.5.29.19"),
		tlv(t, 0x01, []byte{0xff}),
		derOctet(t, []byte{0x30, 0x00}),
	)
	c, err := Parse(testCertificate{extensions: [][]byte{ext}}.build(t))
	require.NoError(err)
	assert.Equal([]byte{0x30, 0x00}, c.Extensions["2.5.29.19"])
}

func TestParseCertificateDuplicateExtensionLastWins(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	first := derSeq(t, derOID(t, "2.5.29.19"), derOctet(t, []byte{0x01}))
	second := derSeq(t, derOID(t, "2.5.29.19"), derOctet(t, []byte{0x02}))
	c, err := Parse(testCertificate{extensions: [][]byte{first, second}}.build(t))
	require.NoError(err)
	assert.Equal([]byte{0x02}, c.Extensions["2.5.29.19"])
}

func TestParseCertificateSkipsUniqueIDs(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ext := derSeq(t, derOID(t, "2.5.29.19"), derOctet(t, []byte{0x01}))
	// [1] issuerUniqueID and [2] subjectUniqueID precede the extensions.
	c, err := Parse(testCertificate{
		trailing:   [][]byte{tlv(t, 0x81, []byte{0x00, 0xff}), tlv(t, 0x82, []byte{0x00, 0xee})},
		extensions: [][]byte{ext},
	}.build(t))
	require.NoError(err)
	assert.Equal([]byte{0x01}, c.Extensions["2.5.29.19"])
}

func TestParseCertificateRejectsMalformed(t *testing.T) {
	assert := assert.New(t)

	valid := testCertificate{}.build(t)
	testCases := map[string][]byte{
		"empty":         {},
		"not sequence":  {0x04, 0x01, 0x00},
		"truncated":     valid[:len(valid)-4],
		"inner garbage": derSeq(t, derOctet(t, []byte{0x01})),
	}
	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input)
			assert.Error(err)
		})
	}
}

func TestParseNameAttributeOrderAndFallback(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// A TeletexString value falls back to raw bytes; the unknown OID
	// renders as dotted decimal.
	name := derName(t,
		derAttr(t, "2.5.4.6", tlv(t, 0x13, []byte("US"))),
		derAttr(t, "2.5.4.3", derUTF8(t, "Leaf")),
		derAttr(t, "2.5.4.12", tlv(t, 0x14, []byte("legacy"))),
	)

	r := asn1.NewReader(name)
	parsed, err := ParseName(r)
	require.NoError(err)
	require.Len(parsed.Attributes, 3)
	assert.Equal("C=US, CN=Leaf, 2.5.4.12=legacy", parsed.String())
	assert.Equal("US", parsed.Get("2.5.4.6"))
	assert.Equal("", parsed.Get("2.5.4.99"))
}

func TestParseNameMultiValuedRDN(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// One SET holding two attributes flattens in encounter order.
	name := derSeq(t, derSet(t,
		derAttr(t, "2.5.4.3", derUTF8(t, "a")),
		derAttr(t, "2.5.4.10", derUTF8(t, "b")),
	))
	parsed, err := ParseName(asn1.NewReader(name))
	require.NoError(err)
	require.Len(parsed.Attributes, 2)
	assert.Equal("CN=a, O=b", parsed.String())
}

func TestParseNameRejectsInvalidUTF8(t *testing.T) {
	assert := assert.New(t)

	name := derName(t, derAttr(t, "2.5.4.3", derUTF8(t, string([]byte{0xff, 0xfe}))))
	_, err := ParseName(asn1.NewReader(name))
	assert.Error(err)
}

func FuzzParse(f *testing.F) {
	f.Fuzz(func(t *testing.T, a []byte) {
		c, err := Parse(a)
		if err != nil {
			return
		}
		// A certificate that parses does so again from its own raw bytes.
		again, err := Parse(c.Raw)
		require.NoError(t, err)
		assert.Equal(t, c.SerialNumber, again.SerialNumber)
	})
}
