package utcp

import "github.com/soypat/seqs"

// Value and Size are sequence-space types: Value identifies a byte position
// in a connection's 32-bit modular stream, Size a span of such positions.
// Both are reused directly from the seqs package rather than reimplemented,
// and ordering/distance between Values is computed with seqs.LessThan and
// seqs.Sizeof rather than hand-rolled subtraction.
type (
	Value = seqs.Value
	Size  = seqs.Size
)
