// Package limits declares the resource ceilings shared by all decoders in
// this module. Every decoder entry point accepts a Limits value and threads
// it through the whole recursive descent, so a hostile input can neither
// exhaust the native stack nor make the process allocate unbounded memory.
package limits

const (
	// DefaultMaxDepth is the nesting ceiling for constructed DER nodes and
	// CBOR containers, counted across the whole decode.
	DefaultMaxDepth = 32

	// DefaultMaxChildren is the ceiling on sibling nodes within one
	// constructed DER content region and on declared CBOR container sizes.
	DefaultMaxChildren = 10_000

	// DefaultMaxValueBytes is the ceiling on a single declared TLV or CBOR
	// string length. 10 MiB.
	DefaultMaxValueBytes = 10 * 1024 * 1024

	// DefaultMaxTotalBytes is the ceiling on the size of one input buffer.
	DefaultMaxTotalBytes = 10 * 1024 * 1024
)

// Limits bounds the work and memory of one decode call.
type Limits struct {
	// MaxDepth is the maximum nesting depth of constructed/container
	// values. Zero or negative disables the bound.
	MaxDepth int

	// MaxChildren is the maximum number of sibling items decoded within one
	// constructed content region, and the maximum declared element count of
	// a CBOR array or map. Zero or negative disables the bound.
	MaxChildren int

	// MaxValueBytes is the maximum declared content length of a single TLV
	// or CBOR byte/text string. Zero or negative disables the bound.
	MaxValueBytes int

	// MaxTotalBytes is the maximum size of the input buffer handed to a
	// decode entry point. Zero or negative disables the bound.
	MaxTotalBytes int
}

// Default returns the limits applied when a caller does not supply any.
func Default() Limits {
	return Limits{
		MaxDepth:      DefaultMaxDepth,
		MaxChildren:   DefaultMaxChildren,
		MaxValueBytes: DefaultMaxValueBytes,
		MaxTotalBytes: DefaultMaxTotalBytes,
	}
}

// DepthOK reports whether depth is within the configured ceiling.
func (l Limits) DepthOK(depth int) bool {
	return l.MaxDepth <= 0 || depth <= l.MaxDepth
}

// ChildrenOK reports whether n siblings or container elements are within
// the configured ceiling.
func (l Limits) ChildrenOK(n int) bool {
	return l.MaxChildren <= 0 || n <= l.MaxChildren
}

// ValueBytesOK reports whether a single declared length is within the
// configured ceiling.
func (l Limits) ValueBytesOK(n int) bool {
	return l.MaxValueBytes <= 0 || n <= l.MaxValueBytes
}

// TotalBytesOK reports whether an input buffer size is within the
// configured ceiling.
func (l Limits) TotalBytesOK(n int) bool {
	return l.MaxTotalBytes <= 0 || n <= l.MaxTotalBytes
}
