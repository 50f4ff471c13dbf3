package cbor

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Diagnostic renders a decoded value in RFC 8949 diagnostic notation,
// e.g. {1: -7, 33: h'3082...'}. It is meant for inspection output, not
// for round-tripping.
func Diagnostic(v Value) string {
	var sb strings.Builder
	writeDiag(&sb, v)
	return sb.String()
}

func writeDiag(sb *strings.Builder, v Value) {
	switch v.Type {
	case TypeUint:
		sb.WriteString(strconv.FormatUint(v.Uint, 10))
	case TypeNegInt:
		sb.WriteString(strconv.FormatInt(v.Int, 10))
	case TypeBytes:
		sb.WriteString("h'")
		sb.WriteString(hex.EncodeToString(v.Bytes))
		sb.WriteString("'")
	case TypeText:
		sb.WriteString(strconv.Quote(v.Text))
	case TypeArray:
		sb.WriteString("[")
		for i, elem := range v.Array {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDiag(sb, elem)
		}
		sb.WriteString("]")
	case TypeMap:
		sb.WriteString("{")
		for i, p := range v.Map {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeDiag(sb, p.Key)
			sb.WriteString(": ")
			writeDiag(sb, p.Value)
		}
		sb.WriteString("}")
	case TypeTag:
		sb.WriteString(strconv.FormatUint(v.TagNumber, 10))
		sb.WriteString("(")
		if v.Tagged != nil {
			writeDiag(sb, *v.Tagged)
		}
		sb.WriteString(")")
	case TypeBool:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case TypeNull:
		sb.WriteString("null")
	case TypeUndefined:
		sb.WriteString("undefined")
	case TypeSimple:
		sb.WriteString("simple(")
		sb.WriteString(strconv.Itoa(int(v.Simple)))
		sb.WriteString(")")
	}
}
