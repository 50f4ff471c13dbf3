package cms

// Fixed lookup tables resolving algorithm OIDs to human-readable names
// for inspection output. Unlisted OIDs resolve to "unknown"; resolution
// never fails a decode.

var digestAlgorithmNames = map[string]string{
	"1.3.14.3.2.26":           "SHA-1",
	"2.16.840.1.101.3.4.2.1":  "SHA-256",
	"2.16.840.1.101.3.4.2.2":  "SHA-384",
	"2.16.840.1.101.3.4.2.3":  "SHA-512",
}

var signatureAlgorithmNames = map[string]string{
	"1.2.840.113549.1.1.1":  "RSA",
	"1.2.840.113549.1.1.5":  "SHA1-RSA",
	"1.2.840.113549.1.1.11": "SHA256-RSA",
	"1.2.840.113549.1.1.12": "SHA384-RSA",
	"1.2.840.113549.1.1.13": "SHA512-RSA",
	"1.2.840.10045.4.1":     "ECDSA-SHA1",
	"1.2.840.10045.4.3.2":   "ECDSA-SHA256",
	"1.2.840.10045.4.3.3":   "ECDSA-SHA384",
	"1.2.840.10045.4.3.4":   "ECDSA-SHA512",
}

// DigestAlgorithmName resolves a digest algorithm OID.
func DigestAlgorithmName(oid string) string {
	if name, ok := digestAlgorithmNames[oid]; ok {
		return name
	}
	return "unknown"
}

// SignatureAlgorithmName resolves a signature algorithm OID.
func SignatureAlgorithmName(oid string) string {
	if name, ok := signatureAlgorithmNames[oid]; ok {
		return name
	}
	return "unknown"
}
