package vms

import "github.com/pkg/errors"

// Error classes returned by the codec; match them with errors.Cause.
var (
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrNonContiguousDrawcalls = errors.New("non-contiguous drawcalls")
	ErrFormatMismatch         = errors.New("format mismatch")
	ErrUnsupportedFormat      = errors.New("unsupported vertex format")
	ErrTruncated              = errors.New("truncated data")
)

const (
	// 3*MaxTriangles must fit the 16-bit index count
	MaxTriangles = 21845
	MaxIndices   = 0xffff
	MaxVertices  = 0xffff
)
