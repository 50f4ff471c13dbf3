package appattest

import (
	"fmt"

	"github.com/openattest/go-appattest/cbor"
	"github.com/openattest/go-appattest/limits"
)

// Receipt map keys observed in the wild. The key table is not a
// documented contract: unknown keys stay available through Raw, and a
// known key with an unexpected value type is left untyped rather than
// failing the decode.
const (
	receiptKeyBundleID       = 4
	receiptKeyTeamID         = 5
	receiptKeyCreationDate   = 12
	receiptKeyExpirationDate = 21
)

// Receipt is the decoded receipt extension: a CBOR map with small
// positive integer keys. Date fields carry ISO-8601 text as found on the
// wire; interpreting them is left to inspection layers.
type Receipt struct {
	BundleID       string
	TeamID         string
	CreationDate   string
	ExpirationDate string

	// Raw is the full decoded map including unrecognized keys.
	Raw cbor.Value
}

// decodeReceipt decodes the CBOR receipt map from the unwrapped
// extension bytes. Duplicate keys resolve first-wins.
func decodeReceipt(b []byte, l limits.Limits) (Receipt, error) {
	v, err := cbor.DecodeWithLimits(b, l)
	if err != nil {
		return Receipt{}, err
	}
	if v.Type != cbor.TypeMap {
		return Receipt{}, fmt.Errorf("receipt must be a CBOR map, got %s", v.Type)
	}

	r := Receipt{Raw: v}
	r.BundleID = textField(v, receiptKeyBundleID)
	r.TeamID = textField(v, receiptKeyTeamID)
	r.CreationDate = textField(v, receiptKeyCreationDate)
	r.ExpirationDate = textField(v, receiptKeyExpirationDate)
	return r, nil
}

// textField returns the text value for an integer key, or "" when the
// key is absent or carries a non-text value.
func textField(v cbor.Value, key int64) string {
	field, ok := v.MapGetInt(key)
	if !ok || field.Type != cbor.TypeText {
		return ""
	}
	return field.Text
}
