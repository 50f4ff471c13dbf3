// Package cms decodes the SignedData subset of the Cryptographic
// Message Syntax (RFC 5652) used by attestation receipts: digest
// algorithms, the encapsulated content, embedded certificates and signer
// infos. CRLs and the enveloped/digested/encrypted content types are out
// of scope, and nothing is cryptographically verified.
package cms

import (
	"fmt"

	"github.com/openattest/go-appattest/asn1"
	"github.com/openattest/go-appattest/cert"
	"github.com/openattest/go-appattest/limits"
)

// OIDSignedData identifies the signed-data content type inside a
// ContentInfo wrapper.
const OIDSignedData = "1.2.840.113549.1.7.2"

// Algorithm pairs an algorithm OID with its resolved display name.
type Algorithm struct {
	OID  string
	Name string
}

// EncapContentInfo is the encapsulated content of a SignedData.
type EncapContentInfo struct {
	ContentType string
	// Content is empty when the eContent field is absent (detached
	// content).
	Content []byte
}

// IssuerAndSerial identifies a signer by issuer name and certificate
// serial.
type IssuerAndSerial struct {
	Issuer cert.Name
	// SerialNumber keeps the raw INTEGER content bytes.
	SerialNumber []byte
}

// SignerIdentifier is the SignerInfo sid CHOICE: exactly one of the two
// fields is set.
type SignerIdentifier struct {
	IssuerAndSerial *IssuerAndSerial
	SubjectKeyID    []byte
}

// SignerInfo is one decoded SignerInfo.
type SignerInfo struct {
	Version int64
	SID     SignerIdentifier

	DigestAlgorithm Algorithm

	// SignedAttrs is the raw encoding of the optional [0] signedAttrs
	// field, tag and length included, or nil when absent.
	SignedAttrs []byte

	SignatureAlgorithm Algorithm
	Signature          []byte
}

// SignedData is one decoded CMS SignedData.
type SignedData struct {
	Version          int64
	DigestAlgorithms []Algorithm
	EncapContentInfo EncapContentInfo
	// Certificates holds the raw DER of each embedded certificate, in
	// wire order.
	Certificates [][]byte
	SignerInfos  []SignerInfo
}

// Parse decodes a SignedData from der with the default limits. The
// input may be a full ContentInfo wrapper or a bare SignedData
// SEQUENCE; both shapes occur in practice and both are accepted.
func Parse(der []byte) (*SignedData, error) {
	return ParseWithLimits(der, limits.Default())
}

// ParseWithLimits is Parse with explicit resource ceilings.
func ParseWithLimits(der []byte, l limits.Limits) (*SignedData, error) {
	if !l.TotalBytesOK(len(der)) {
		return nil, fmt.Errorf("parsing SignedData: input of %d bytes exceeds the configured ceiling", len(der))
	}

	r := asn1.NewReaderWithLimits(der, l)
	outer, err := r.ExpectTag(asn1.TagSequence)
	if err != nil {
		return nil, fmt.Errorf("reading outer sequence: %w", err)
	}

	// ContentInfo detection: if the outer sequence starts with the
	// signed-data content-type OID, unwrap its [0] explicit content.
	// Any failure along that path falls back to treating the outer
	// sequence as the SignedData itself.
	sd := &SignedData{}
	target := outer
	if inner, ok := unwrapContentInfo(r, outer); ok {
		target = inner
	}
	if err := parseSignedDataTLV(r, target, sd); err != nil {
		return nil, err
	}
	return sd, nil
}

// unwrapContentInfo peeks into outer for ContentInfo ::= SEQUENCE{
// contentType OID, [0] EXPLICIT content}. It reports ok=false on any
// mismatch or parse error, leaving the caller to use the fallback path.
func unwrapContentInfo(r *asn1.Reader, outer asn1.TLV) (asn1.TLV, bool) {
	var inner asn1.TLV
	ok := false
	_ = r.WithContent(outer, func(ci *asn1.Reader) error {
		oidTLV, err := ci.ExpectTag(asn1.TagOID)
		if err != nil {
			return nil
		}
		oid, err := oidTLV.ObjectIdentifier()
		if err != nil || oid != OIDSignedData {
			return nil
		}
		explicit, err := ci.ExpectTag(asn1.ContextConstructed(0))
		if err != nil {
			return nil
		}
		return ci.WithContent(explicit, func(er *asn1.Reader) error {
			seq, err := er.ExpectTag(asn1.TagSequence)
			if err != nil {
				return nil
			}
			inner = seq
			ok = true
			return nil
		})
	})
	return inner, ok
}

// parseSignedDataTLV decodes the fields of a SignedData SEQUENCE.
func parseSignedDataTLV(r *asn1.Reader, seq asn1.TLV, sd *SignedData) error {
	return r.WithContent(seq, func(sr *asn1.Reader) error {
		version, err := sr.ExpectTag(asn1.TagInteger)
		if err != nil {
			return fmt.Errorf("reading SignedData version: %w", err)
		}
		// CMS versions are small by specification; reduction is safe.
		if sd.Version, err = version.Integer(); err != nil {
			return fmt.Errorf("reading SignedData version: %w", err)
		}

		if err := parseDigestAlgorithms(sr, sd); err != nil {
			return err
		}
		if err := parseEncapContentInfo(sr, sd); err != nil {
			return err
		}

		// Optional [0] implicit certificates SET: consumed only when the
		// next tag matches exactly; other optional fields ([1] crls and
		// anything context-specific) are skipped, not errored.
		for !sr.Empty() {
			tag, err := sr.PeekTag()
			if err != nil {
				return fmt.Errorf("peeking optional SignedData field: %w", err)
			}
			if tag.Class != asn1.ClassContextSpecific {
				break
			}
			tlv, err := sr.ReadTLV()
			if err != nil {
				return fmt.Errorf("reading optional SignedData field: %w", err)
			}
			if tag == asn1.ContextConstructed(0) && sd.Certificates == nil {
				if err := parseCertificates(sr, tlv, sd); err != nil {
					return err
				}
			}
		}

		return parseSignerInfos(sr, sd)
	})
}

func parseDigestAlgorithms(sr *asn1.Reader, sd *SignedData) error {
	set, err := sr.ExpectTag(asn1.TagSet)
	if err != nil {
		return fmt.Errorf("reading digestAlgorithms: %w", err)
	}
	return sr.WithContent(set, func(dr *asn1.Reader) error {
		for !dr.Empty() {
			alg, err := dr.ExpectTag(asn1.TagSequence)
			if err != nil {
				return fmt.Errorf("reading digest AlgorithmIdentifier: %w", err)
			}
			oid, err := algorithmIdentifierOID(dr, alg)
			if err != nil {
				return fmt.Errorf("reading digest algorithm OID: %w", err)
			}
			sd.DigestAlgorithms = append(sd.DigestAlgorithms, Algorithm{OID: oid, Name: DigestAlgorithmName(oid)})
		}
		return nil
	})
}

func parseEncapContentInfo(sr *asn1.Reader, sd *SignedData) error {
	seq, err := sr.ExpectTag(asn1.TagSequence)
	if err != nil {
		return fmt.Errorf("reading encapContentInfo: %w", err)
	}
	return sr.WithContent(seq, func(er *asn1.Reader) error {
		ctOID, err := er.ExpectTag(asn1.TagOID)
		if err != nil {
			return fmt.Errorf("reading eContentType: %w", err)
		}
		if sd.EncapContentInfo.ContentType, err = ctOID.ObjectIdentifier(); err != nil {
			return fmt.Errorf("reading eContentType: %w", err)
		}

		// Optional [0] eContent; absent means detached content, which
		// decodes as empty rather than failing.
		if er.Empty() {
			return nil
		}
		tag, err := er.PeekTag()
		if err != nil || tag.Class != asn1.ClassContextSpecific || tag.Number != 0 {
			return nil
		}
		tlv, err := er.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading eContent: %w", err)
		}
		sd.EncapContentInfo.Content = tlv.Content
		if tlv.Tag.Constructed {
			// An explicitly tagged eContent wraps one OCTET STRING.
			_ = er.WithContent(tlv, func(or *asn1.Reader) error {
				oct, err := or.ExpectTag(asn1.TagOctetString)
				if err == nil && or.Empty() {
					sd.EncapContentInfo.Content = oct.Content
				}
				return nil
			})
		}
		return nil
	})
}

func parseCertificates(sr *asn1.Reader, set asn1.TLV, sd *SignedData) error {
	sd.Certificates = [][]byte{}
	return sr.WithContent(set, func(cr *asn1.Reader) error {
		for !cr.Empty() {
			tlv, err := cr.ReadTLV()
			if err != nil {
				return fmt.Errorf("reading embedded certificate: %w", err)
			}
			sd.Certificates = append(sd.Certificates, tlv.Raw)
		}
		return nil
	})
}

func parseSignerInfos(sr *asn1.Reader, sd *SignedData) error {
	set, err := sr.ExpectTag(asn1.TagSet)
	if err != nil {
		return fmt.Errorf("reading signerInfos: %w", err)
	}
	return sr.WithContent(set, func(lr *asn1.Reader) error {
		for !lr.Empty() {
			seq, err := lr.ExpectTag(asn1.TagSequence)
			if err != nil {
				return fmt.Errorf("reading SignerInfo: %w", err)
			}
			var si SignerInfo
			if err := lr.WithContent(seq, func(ir *asn1.Reader) error {
				return parseSignerInfo(ir, &si)
			}); err != nil {
				return err
			}
			sd.SignerInfos = append(sd.SignerInfos, si)
		}
		return nil
	})
}

func parseSignerInfo(ir *asn1.Reader, si *SignerInfo) error {
	version, err := ir.ExpectTag(asn1.TagInteger)
	if err != nil {
		return fmt.Errorf("reading SignerInfo version: %w", err)
	}
	if si.Version, err = version.Integer(); err != nil {
		return fmt.Errorf("reading SignerInfo version: %w", err)
	}

	// sid CHOICE: a context-specific [0] carries issuerAndSerialNumber;
	// anything else is kept as a subjectKeyIdentifier.
	tag, err := ir.PeekTag()
	if err != nil {
		return fmt.Errorf("peeking signer identifier: %w", err)
	}
	if tag == asn1.ContextConstructed(0) {
		ias := &IssuerAndSerial{}
		sidTLV, err := ir.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading signer identifier: %w", err)
		}
		if err := ir.WithContent(sidTLV, func(vr *asn1.Reader) error {
			if ias.Issuer, err = cert.ParseName(vr); err != nil {
				return fmt.Errorf("reading signer issuer: %w", err)
			}
			serial, err := vr.ExpectTag(asn1.TagInteger)
			if err != nil {
				return fmt.Errorf("reading signer serial: %w", err)
			}
			ias.SerialNumber = serial.Content
			return nil
		}); err != nil {
			return err
		}
		si.SID.IssuerAndSerial = ias
	} else {
		tlv, err := ir.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading subjectKeyIdentifier: %w", err)
		}
		si.SID.SubjectKeyID = tlv.Content
	}

	digest, err := ir.ExpectTag(asn1.TagSequence)
	if err != nil {
		return fmt.Errorf("reading signer digestAlgorithm: %w", err)
	}
	digestOID, err := algorithmIdentifierOID(ir, digest)
	if err != nil {
		return fmt.Errorf("reading signer digestAlgorithm OID: %w", err)
	}
	si.DigestAlgorithm = Algorithm{OID: digestOID, Name: DigestAlgorithmName(digestOID)}

	// Optional [0] implicit signedAttrs: consumed only when present with
	// exactly that tag.
	if tag, err := ir.PeekTag(); err == nil && tag == asn1.ContextConstructed(0) {
		tlv, err := ir.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading signedAttrs: %w", err)
		}
		si.SignedAttrs = tlv.Raw
	}

	sigAlg, err := ir.ExpectTag(asn1.TagSequence)
	if err != nil {
		return fmt.Errorf("reading signatureAlgorithm: %w", err)
	}
	sigOID, err := algorithmIdentifierOID(ir, sigAlg)
	if err != nil {
		return fmt.Errorf("reading signatureAlgorithm OID: %w", err)
	}
	si.SignatureAlgorithm = Algorithm{OID: sigOID, Name: SignatureAlgorithmName(sigOID)}

	sig, err := ir.ExpectTag(asn1.TagOctetString)
	if err != nil {
		return fmt.Errorf("reading signature: %w", err)
	}
	si.Signature = sig.Content
	return nil
}

// algorithmIdentifierOID reads the OID out of an AlgorithmIdentifier
// SEQUENCE, ignoring parameters.
func algorithmIdentifierOID(r *asn1.Reader, alg asn1.TLV) (string, error) {
	var oid string
	err := r.WithContent(alg, func(ar *asn1.Reader) error {
		oidTLV, err := ar.ExpectTag(asn1.TagOID)
		if err != nil {
			return err
		}
		oid, err = oidTLV.ObjectIdentifier()
		return err
	})
	return oid, err
}
