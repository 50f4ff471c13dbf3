package asn1

import "github.com/openattest/go-appattest/limits"

// Node is one element of a fully materialized TLV tree. Raw spans the
// tag, length and content bytes so that concatenating a constructed
// node's children reproduces its content exactly; the tree is lossless.
type Node struct {
	Tag     Tag
	Length  int
	Raw     []byte
	Content []byte
	// Children holds the decoded content of a constructed node in
	// encounter order. It is empty for primitive nodes.
	Children []*Node
}

// Decode materializes the single TLV tree encoded by b using the default
// limits. Trailing bytes after the top-level element are an error.
func Decode(b []byte) (*Node, error) {
	return DecodeWithLimits(b, limits.Default())
}

// DecodeWithLimits is Decode with explicit resource ceilings. Depth is
// tracked cumulatively across the whole input, so a deeply nested but
// narrow structure fails with a LimitError instead of exhausting the
// native stack.
func DecodeWithLimits(b []byte, l limits.Limits) (*Node, error) {
	if !l.TotalBytesOK(len(b)) {
		return nil, &LimitError{Offset: 0, What: "total input bytes", Limit: l.MaxTotalBytes}
	}
	r := NewReaderWithLimits(b, l)
	n, err := decodeNode(r, 1)
	if err != nil {
		return nil, err
	}
	if !r.Empty() {
		return nil, &SyntaxError{Offset: r.Offset(), Reason: "trailing data after top-level element"}
	}
	return n, nil
}

// decodeNode reads one TLV at the reader's cursor and, for constructed
// tags, recursively decodes its content region into children.
func decodeNode(r *Reader, depth int) (*Node, error) {
	if !r.lim.DepthOK(depth) {
		return nil, &LimitError{Offset: r.Offset(), What: "nesting depth", Limit: r.lim.MaxDepth}
	}

	tlv, err := r.ReadTLV()
	if err != nil {
		return nil, err
	}
	node := &Node{
		Tag:     tlv.Tag,
		Length:  tlv.Length,
		Raw:     tlv.Raw,
		Content: tlv.Content,
	}
	if !tlv.Tag.Constructed {
		return node, nil
	}

	sub := &Reader{
		buf:   tlv.Content,
		base:  tlv.contentOffset(),
		lim:   r.lim,
		depth: depth,
	}
	for !sub.Empty() {
		before := sub.pos
		child, err := decodeNode(sub, depth+1)
		if err != nil {
			return nil, err
		}
		if sub.pos <= before {
			// A successful read always consumes at least the tag and
			// length bytes; this guards the loop invariant regardless.
			return nil, &SyntaxError{Offset: sub.Offset(), Reason: "parser made no progress"}
		}
		node.Children = append(node.Children, child)
		if !r.lim.ChildrenOK(len(node.Children)) {
			return nil, &LimitError{Offset: sub.Offset(), What: "children per node", Limit: r.lim.MaxChildren}
		}
	}
	return node, nil
}

// TLV returns the node's data as a streaming-mode TLV so the typed
// accessors apply to both access modes.
func (n *Node) TLV() TLV {
	return TLV{Tag: n.Tag, Length: n.Length, Content: n.Content, Raw: n.Raw}
}
