// Package inspect maps the decoded trees produced by the parser
// packages onto a flat, JSON-serializable report for human inspection.
// It annotates but never enforces: an expired certificate is labeled
// expired, not rejected.
package inspect

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"k8s.io/utils/clock"

	"github.com/openattest/go-appattest/appattest"
	"github.com/openattest/go-appattest/cbor"
	"github.com/openattest/go-appattest/cert"
	"github.com/openattest/go-appattest/cms"
	"github.com/openattest/go-appattest/limits"
)

// Validity annotations for certificate summaries.
const (
	StatusValid       = "valid"
	StatusExpired     = "expired"
	StatusNotYetValid = "notYetValid"
)

// ExtensionSummary is one certificate extension in display form.
type ExtensionSummary struct {
	OID   string `json:"oid"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

// CertificateSummary is the display form of one decoded certificate.
type CertificateSummary struct {
	Subject               string             `json:"subject"`
	Issuer                string             `json:"issuer"`
	SerialNumber          string             `json:"serialNumber"`
	SignatureAlgorithmOID string             `json:"signatureAlgorithmOID"`
	NotBefore             time.Time          `json:"notBefore"`
	NotAfter              time.Time          `json:"notAfter"`
	Status                string             `json:"status"`
	Extensions            []ExtensionSummary `json:"extensions,omitempty"`
}

// ReceiptSummary is the display form of a decoded receipt.
type ReceiptSummary struct {
	BundleID       string            `json:"bundleId,omitempty"`
	TeamID         string            `json:"teamId,omitempty"`
	CreationDate   string            `json:"creationDate,omitempty"`
	ExpirationDate string            `json:"expirationDate,omitempty"`
	Fields         map[string]string `json:"fields,omitempty"`
}

// Report is the flattened view of one attestation object.
type Report struct {
	DecodedAt time.Time `json:"decodedAt"`
	Format    string    `json:"format"`

	RPIDHash     string `json:"rpIdHash"`
	SignCount    uint32 `json:"signCount"`
	AAGUID       string `json:"aaguid,omitempty"`
	CredentialID string `json:"credentialId,omitempty"`

	Environment string `json:"environment,omitempty"`
	Challenge   string `json:"challenge,omitempty"`

	Certificates []CertificateSummary `json:"certificates,omitempty"`
	Receipt      *ReceiptSummary      `json:"receipt,omitempty"`
}

// AssertionReport is the flattened view of one assertion object.
type AssertionReport struct {
	DecodedAt time.Time `json:"decodedAt"`

	RPIDHash  string `json:"rpIdHash"`
	SignCount uint32 `json:"signCount"`
	Signature string `json:"signature"`
}

// Inspector builds reports. The clock is injectable so tests can pin
// the decode timestamp and validity annotations.
type Inspector struct {
	clock clock.PassiveClock
	lim   limits.Limits
}

// New returns an Inspector using the wall clock and default limits.
func New() *Inspector {
	return &Inspector{clock: clock.RealClock{}, lim: limits.Default()}
}

// NewWithClock returns an Inspector with an explicit clock and limits.
func NewWithClock(c clock.PassiveClock, l limits.Limits) *Inspector {
	return &Inspector{clock: c, lim: l}
}

// Attestation decodes an attestation object and flattens it into a
// Report.
func (i *Inspector) Attestation(b []byte) (Report, error) {
	obj, err := appattest.ParseAttestationObjectWithLimits(b, i.lim)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		DecodedAt: i.clock.Now().UTC(),
		Format:    obj.Format,
		RPIDHash:  hex.EncodeToString(obj.AuthData.RPIDHash[:]),
		SignCount: obj.AuthData.SignCount,
	}
	if cred := obj.AuthData.Credential; cred != nil {
		report.AAGUID = hex.EncodeToString(cred.AAGUID[:])
		report.CredentialID = hex.EncodeToString(cred.CredentialID)
	}

	for idx, der := range obj.CertChain {
		summary, err := i.Certificate(der)
		if err != nil {
			return Report{}, fmt.Errorf("summarizing certificate %d: %w", idx, err)
		}
		report.Certificates = append(report.Certificates, summary)
	}

	// Vendor extensions live on the leaf certificate.
	if len(obj.CertChain) > 0 {
		leaf, err := cert.ParseWithLimits(obj.CertChain[0], i.lim)
		if err == nil {
			i.applyLeafExtensions(&report, leaf)
		}
	}
	return report, nil
}

// applyLeafExtensions lifts decodable vendor extensions into top-level
// report fields. Extensions that fail to decode are left out of the
// report rather than failing it; the full certificate summary already
// lists them by OID.
func (i *Inspector) applyLeafExtensions(report *Report, leaf *cert.Certificate) {
	for oid, raw := range leaf.Extensions {
		ext, err := appattest.DecodeExtensionWithLimits(oid, raw, i.lim)
		if err != nil {
			continue
		}
		switch ext.Kind {
		case appattest.ExtensionEnvironment:
			report.Environment = ext.Value
		case appattest.ExtensionChallenge:
			report.Challenge = hex.EncodeToString(ext.Challenge)
		case appattest.ExtensionReceipt:
			summary := receiptSummary(*ext.Receipt)
			report.Receipt = &summary
		}
	}
}

// Assertion decodes an assertion object and flattens it into an
// AssertionReport.
func (i *Inspector) Assertion(b []byte) (AssertionReport, error) {
	obj, err := appattest.ParseAssertionObjectWithLimits(b, i.lim)
	if err != nil {
		return AssertionReport{}, err
	}
	return AssertionReport{
		DecodedAt: i.clock.Now().UTC(),
		RPIDHash:  hex.EncodeToString(obj.AuthData.RPIDHash[:]),
		SignCount: obj.AuthData.SignCount,
		Signature: hex.EncodeToString(obj.Signature),
	}, nil
}

// Certificate decodes one DER certificate into its display form.
func (i *Inspector) Certificate(der []byte) (CertificateSummary, error) {
	c, err := cert.ParseWithLimits(der, i.lim)
	if err != nil {
		return CertificateSummary{}, err
	}

	now := i.clock.Now()
	status := StatusValid
	switch {
	case now.After(c.Validity.NotAfter):
		status = StatusExpired
	case now.Before(c.Validity.NotBefore):
		status = StatusNotYetValid
	}

	summary := CertificateSummary{
		Subject:               c.Subject.String(),
		Issuer:                c.Issuer.String(),
		SerialNumber:          hex.EncodeToString(c.SerialNumber),
		SignatureAlgorithmOID: c.SignatureAlgorithmOID,
		NotBefore:             c.Validity.NotBefore,
		NotAfter:              c.Validity.NotAfter,
		Status:                status,
	}
	for oid, raw := range c.Extensions {
		entry := ExtensionSummary{OID: oid, Kind: appattest.ExtensionUnknown.String()}
		if ext, err := appattest.DecodeExtensionWithLimits(oid, raw, i.lim); err == nil {
			entry.Kind = ext.Kind.String()
			entry.Value = ext.Value
		}
		summary.Extensions = append(summary.Extensions, entry)
	}
	return summary, nil
}

// SignedData decodes a CMS blob and returns it directly; the decoded
// struct is already display-shaped.
func (i *Inspector) SignedData(der []byte) (*cms.SignedData, error) {
	return cms.ParseWithLimits(der, i.lim)
}

// receiptSummary flattens a decoded receipt, folding the full map into
// display fields keyed by their wire label.
func receiptSummary(r appattest.Receipt) ReceiptSummary {
	summary := ReceiptSummary{
		BundleID:       r.BundleID,
		TeamID:         r.TeamID,
		CreationDate:   r.CreationDate,
		ExpirationDate: r.ExpirationDate,
	}
	fields, err := foldMap(r.Raw)
	if err == nil {
		summary.Fields = fields
	}
	return summary
}

// foldMap flattens a CBOR map into string keys and diagnostic-notation
// values, first-wins on duplicates. Keys that are themselves containers
// cannot label a field and yield an InvalidMapKeyError.
func foldMap(v cbor.Value) (map[string]string, error) {
	if v.Type != cbor.TypeMap {
		return nil, &cbor.UnexpectedTypeError{Want: cbor.TypeMap, Got: v.Type}
	}
	out := make(map[string]string, len(v.Map))
	for _, p := range v.Map {
		var key string
		switch p.Key.Type {
		case cbor.TypeUint:
			key = strconv.FormatUint(p.Key.Uint, 10)
		case cbor.TypeNegInt:
			key = strconv.FormatInt(p.Key.Int, 10)
		case cbor.TypeText:
			key = p.Key.Text
		default:
			return nil, &cbor.InvalidMapKeyError{KeyType: p.Key.Type}
		}
		if _, exists := out[key]; exists {
			continue
		}
		out[key] = cbor.Diagnostic(p.Value)
	}
	return out, nil
}
