package inspect

import (
	"encoding/hex"

	"github.com/openattest/go-appattest/asn1"
)

// DERNode is the JSON-friendly form of one TLV tree node.
type DERNode struct {
	Class       string    `json:"class"`
	Tag         uint8     `json:"tag"`
	Constructed bool      `json:"constructed"`
	Length      int       `json:"length"`
	Value       string    `json:"value,omitempty"`
	Children    []DERNode `json:"children,omitempty"`
}

// maxDumpValueBytes caps how much primitive content a dump inlines.
const maxDumpValueBytes = 64

// DERTree decodes b as a TLV tree and converts it for JSON output.
// Primitive content longer than a screenful is truncated with an
// ellipsis; the dump is for eyes, not for round-tripping.
func (i *Inspector) DERTree(b []byte) (DERNode, error) {
	node, err := asn1.DecodeWithLimits(b, i.lim)
	if err != nil {
		return DERNode{}, err
	}
	return derNode(node), nil
}

func derNode(n *asn1.Node) DERNode {
	out := DERNode{
		Class:       n.Tag.Class.String(),
		Tag:         n.Tag.Number,
		Constructed: n.Tag.Constructed,
		Length:      n.Length,
	}
	if len(n.Children) > 0 {
		for _, child := range n.Children {
			out.Children = append(out.Children, derNode(child))
		}
		return out
	}
	if len(n.Content) > maxDumpValueBytes {
		out.Value = hex.EncodeToString(n.Content[:maxDumpValueBytes]) + "…"
	} else {
		out.Value = hex.EncodeToString(n.Content)
	}
	return out
}
