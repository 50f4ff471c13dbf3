// Package cert decodes the subset of an X.509 certificate (RFC 5280)
// needed to inspect a device-attestation chain: serial, algorithm OIDs,
// names, validity window, subject public key bits and raw extension
// values. It is built on the streaming mode of the asn1 package and
// performs no signature or chain validation whatsoever.
package cert

import (
	"fmt"
	"time"

	"github.com/openattest/go-appattest/asn1"
	"github.com/openattest/go-appattest/limits"
)

// Validity is the notBefore/notAfter window of a certificate. The
// package records it; it never enforces it.
type Validity struct {
	NotBefore time.Time
	NotAfter  time.Time
}

// Certificate is the decoded subset of one X.509 certificate.
type Certificate struct {
	// SerialNumber keeps the raw INTEGER content bytes. Serials routinely
	// exceed native integer width, so they are never reduced.
	SerialNumber []byte

	SignatureAlgorithmOID string

	Issuer  Name
	Subject Name

	Validity Validity

	PublicKeyAlgorithmOID string
	// PublicKey is the SubjectPublicKeyInfo BIT STRING content with the
	// unused-bits octet dropped.
	PublicKey []byte

	// Extensions maps extension OID to raw extnValue bytes. Duplicate
	// OIDs overwrite (last one wins); X.509 in practice never repeats
	// extension OIDs.
	Extensions map[string][]byte

	// Raw is the full original DER encoding.
	Raw []byte
}

// Parse decodes one DER certificate with the default limits.
func Parse(der []byte) (*Certificate, error) {
	return ParseWithLimits(der, limits.Default())
}

// ParseWithLimits is Parse with explicit resource ceilings.
func ParseWithLimits(der []byte, l limits.Limits) (*Certificate, error) {
	if !l.TotalBytesOK(len(der)) {
		return nil, fmt.Errorf("parsing certificate: input of %d bytes exceeds the configured ceiling", len(der))
	}

	r := asn1.NewReaderWithLimits(der, l)
	outer, err := r.ExpectTag(asn1.TagSequence)
	if err != nil {
		return nil, fmt.Errorf("reading Certificate sequence: %w", err)
	}

	c := &Certificate{Raw: outer.Raw}
	err = r.WithContent(outer, func(cr *asn1.Reader) error {
		tbs, err := cr.ExpectTag(asn1.TagSequence)
		if err != nil {
			return fmt.Errorf("reading tbsCertificate: %w", err)
		}
		if err := cr.WithContent(tbs, c.parseTBS); err != nil {
			return err
		}

		sigAlg, err := cr.ExpectTag(asn1.TagSequence)
		if err != nil {
			return fmt.Errorf("reading signatureAlgorithm: %w", err)
		}
		c.SignatureAlgorithmOID, err = algorithmOID(cr, sigAlg)
		if err != nil {
			return fmt.Errorf("reading signatureAlgorithm OID: %w", err)
		}

		if _, err := cr.ExpectTag(asn1.TagBitString); err != nil {
			return fmt.Errorf("reading signatureValue: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// parseTBS walks the TBSCertificate fields in their fixed RFC 5280
// order.
func (c *Certificate) parseTBS(tr *asn1.Reader) error {
	// Optional explicit [0] version. The version number carries no
	// inspection-relevant signal, so it is consumed and discarded.
	if tag, err := tr.PeekTag(); err == nil && tag == asn1.ContextConstructed(0) {
		if _, err := tr.ReadTLV(); err != nil {
			return fmt.Errorf("reading version: %w", err)
		}
	}

	serial, err := tr.ExpectTag(asn1.TagInteger)
	if err != nil {
		return fmt.Errorf("reading serialNumber: %w", err)
	}
	c.SerialNumber = serial.Content

	// The tbs signature AlgorithmIdentifier duplicates the outer one and
	// is skipped structurally.
	if _, err := tr.ExpectTag(asn1.TagSequence); err != nil {
		return fmt.Errorf("reading tbs signature algorithm: %w", err)
	}

	if c.Issuer, err = ParseName(tr); err != nil {
		return fmt.Errorf("reading issuer: %w", err)
	}

	if err := c.parseValidity(tr); err != nil {
		return err
	}

	if c.Subject, err = ParseName(tr); err != nil {
		return fmt.Errorf("reading subject: %w", err)
	}

	if err := c.parseSPKI(tr); err != nil {
		return err
	}

	// Remaining optional fields: [3] explicit Extensions is decoded,
	// everything else (issuerUniqueID, subjectUniqueID) is read as an
	// opaque TLV and discarded.
	for !tr.Empty() {
		tlv, err := tr.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading optional tbs field: %w", err)
		}
		if tlv.Tag == asn1.ContextConstructed(3) {
			if err := tr.WithContent(tlv, c.parseExtensions); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Certificate) parseValidity(tr *asn1.Reader) error {
	validity, err := tr.ExpectTag(asn1.TagSequence)
	if err != nil {
		return fmt.Errorf("reading validity: %w", err)
	}
	return tr.WithContent(validity, func(vr *asn1.Reader) error {
		notBefore, err := vr.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading notBefore: %w", err)
		}
		if c.Validity.NotBefore, err = notBefore.Time(); err != nil {
			return fmt.Errorf("reading notBefore: %w", err)
		}
		notAfter, err := vr.ReadTLV()
		if err != nil {
			return fmt.Errorf("reading notAfter: %w", err)
		}
		if c.Validity.NotAfter, err = notAfter.Time(); err != nil {
			return fmt.Errorf("reading notAfter: %w", err)
		}
		return nil
	})
}

func (c *Certificate) parseSPKI(tr *asn1.Reader) error {
	spki, err := tr.ExpectTag(asn1.TagSequence)
	if err != nil {
		return fmt.Errorf("reading subjectPublicKeyInfo: %w", err)
	}
	return tr.WithContent(spki, func(sr *asn1.Reader) error {
		alg, err := sr.ExpectTag(asn1.TagSequence)
		if err != nil {
			return fmt.Errorf("reading public key algorithm: %w", err)
		}
		if c.PublicKeyAlgorithmOID, err = algorithmOID(sr, alg); err != nil {
			return fmt.Errorf("reading public key algorithm OID: %w", err)
		}
		bits, err := sr.ExpectTag(asn1.TagBitString)
		if err != nil {
			return fmt.Errorf("reading subjectPublicKey: %w", err)
		}
		if c.PublicKey, err = bits.BitString(); err != nil {
			return fmt.Errorf("reading subjectPublicKey: %w", err)
		}
		return nil
	})
}

// parseExtensions reads Extensions ::= SEQUENCE OF SEQUENCE{extnID,
// critical OPTIONAL, extnValue}. Criticality is not this tool's concern
// and is discarded.
func (c *Certificate) parseExtensions(xr *asn1.Reader) error {
	seq, err := xr.ExpectTag(asn1.TagSequence)
	if err != nil {
		return fmt.Errorf("reading Extensions sequence: %w", err)
	}
	c.Extensions = make(map[string][]byte)
	return xr.WithContent(seq, func(lr *asn1.Reader) error {
		for !lr.Empty() {
			entry, err := lr.ExpectTag(asn1.TagSequence)
			if err != nil {
				return fmt.Errorf("reading extension entry: %w", err)
			}
			if err := lr.WithContent(entry, func(er *asn1.Reader) error {
				oidTLV, err := er.ExpectTag(asn1.TagOID)
				if err != nil {
					return fmt.Errorf("reading extnID: %w", err)
				}
				oid, err := oidTLV.ObjectIdentifier()
				if err != nil {
					return fmt.Errorf("reading extnID: %w", err)
				}
				if tag, err := er.PeekTag(); err == nil && tag == asn1.TagBoolean {
					if _, err := er.ReadTLV(); err != nil {
						return fmt.Errorf("reading critical flag: %w", err)
					}
				}
				value, err := er.ExpectTag(asn1.TagOctetString)
				if err != nil {
					return fmt.Errorf("reading extnValue: %w", err)
				}
				c.Extensions[oid] = value.Content
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// algorithmOID reads the OID out of an already-read AlgorithmIdentifier
// SEQUENCE, ignoring any parameters that follow.
func algorithmOID(r *asn1.Reader, alg asn1.TLV) (string, error) {
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
