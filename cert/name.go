package cert

import (
	"strings"

	"github.com/openattest/go-appattest/asn1"
)

// Attribute is one AttributeTypeAndValue from a distinguished name.
type Attribute struct {
	OID   string
	Value string
}

// Name is an X.501 distinguished name flattened to its attributes in
// encounter order. Multi-valued RDNs lose their SET grouping, which is
// fine for inspection output; a consumer that needs RDN boundaries would
// need a richer model.
type Name struct {
	Attributes []Attribute
}

// Short names for the attribute types that commonly appear in
// certificate subjects, used by String.
var attributeNames = map[string]string{
	"2.5.4.3":  "CN",
	"2.5.4.5":  "SERIALNUMBER",
	"2.5.4.6":  "C",
	"2.5.4.7":  "L",
	"2.5.4.8":  "ST",
	"2.5.4.10": "O",
	"2.5.4.11": "OU",
}

// Get returns the first attribute value with the given type OID, or the
// empty string.
func (n Name) Get(oid string) string {
	for _, a := range n.Attributes {
		if a.OID == oid {
			return a.Value
		}
	}
	return ""
}

// CommonName returns the first CN attribute value.
func (n Name) CommonName() string {
	return n.Get("2.5.4.3")
}

// String renders the name in the usual comma-joined form, e.g.
// "CN=Apple App Attestation CA 1, O=Apple Inc., ST=California".
func (n Name) String() string {
	parts := make([]string, 0, len(n.Attributes))
	for _, a := range n.Attributes {
		label, ok := attributeNames[a.OID]
		if !ok {
			label = a.OID
		}
		parts = append(parts, label+"="+a.Value)
	}
	return strings.Join(parts, ", ")
}

// ParseName reads a Name (SEQUENCE OF RelativeDistinguishedName) at the
// reader's cursor. It is shared with the CMS reader for
// issuerAndSerialNumber fields.
func ParseName(r *asn1.Reader) (Name, error) {
	seq, err := r.ExpectTag(asn1.TagSequence)
	if err != nil {
		return Name{}, err
	}
	var name Name
	err = r.WithContent(seq, func(nr *asn1.Reader) error {
		for !nr.Empty() {
			set, err := nr.ExpectTag(asn1.TagSet)
			if err != nil {
				return err
			}
			if err := nr.WithContent(set, func(sr *asn1.Reader) error {
				return parseRDN(sr, &name)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Name{}, err
	}
	return name, nil
}

// parseRDN reads every AttributeTypeAndValue inside one SET.
func parseRDN(sr *asn1.Reader, name *Name) error {
	for !sr.Empty() {
		atv, err := sr.ExpectTag(asn1.TagSequence)
		if err != nil {
			return err
		}
		if err := sr.WithContent(atv, func(ar *asn1.Reader) error {
			oidTLV, err := ar.ExpectTag(asn1.TagOID)
			if err != nil {
				return err
			}
			oid, err := oidTLV.ObjectIdentifier()
			if err != nil {
				return err
			}
			valTLV, err := ar.ReadTLV()
			if err != nil {
				return err
			}
			value, err := attributeValue(valTLV)
			if err != nil {
				return err
			}
			name.Attributes = append(name.Attributes, Attribute{OID: oid, Value: value})
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// attributeValue decodes the known string types strictly and falls back
// to the raw content bytes for anything else. Directory strings in the
// wild still use legacy types (T61String, BMPString) that inspection
// output should surface rather than reject.
func attributeValue(t asn1.TLV) (string, error) {
	switch t.Tag {
	case asn1.TagUTF8String, asn1.TagPrintableString, asn1.TagIA5String:
		return t.Text()
	default:
		return string(t.Content), nil
	}
}
