package vms

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// VertexFormat is the flexible vertex format bitmask stored in mesh data.
// Position is always present; the other bits select optional attributes.
type VertexFormat uint16

const (
	FVF_XYZ     VertexFormat = 0x002
	FVF_NORMAL  VertexFormat = 0x010
	FVF_DIFFUSE VertexFormat = 0x040
	FVF_TEX1    VertexFormat = 0x100
	FVF_TEX2    VertexFormat = 0x200

	fvfTexMask = FVF_TEX1 | FVF_TEX2
	fvfKnown   = FVF_XYZ | FVF_NORMAL | FVF_DIFFUSE | fvfTexMask
)

func (f VertexFormat) HasNormal() bool  { return f&FVF_NORMAL != 0 }
func (f VertexFormat) HasDiffuse() bool { return f&FVF_DIFFUSE != 0 }

// TexCoords returns how many uv sets each vertex carries (0, 1 or 2).
func (f VertexFormat) TexCoords() int {
	switch {
	case f&FVF_TEX2 != 0:
		return 2
	case f&FVF_TEX1 != 0:
		return 1
	default:
		return 0
	}
}

// WithTexCoords sets the uv state to exactly n sets. A second set
// promotes TEX1 to TEX2, never both.
func (f VertexFormat) WithTexCoords(n int) VertexFormat {
	f &^= fvfTexMask
	switch n {
	case 1:
		f |= FVF_TEX1
	case 2:
		f |= FVF_TEX2
	}
	return f
}

// Stride is the size in bytes of one encoded vertex.
func (f VertexFormat) Stride() int {
	stride := 12
	if f.HasNormal() {
		stride += 12
	}
	if f.HasDiffuse() {
		stride += 4
	}
	return stride + 8*f.TexCoords()
}

func (f VertexFormat) Validate() error {
	if f&FVF_XYZ == 0 {
		return errors.Wrapf(ErrUnsupportedFormat, "format 0x%.4x has no position", uint16(f))
	}
	if f&^fvfKnown != 0 {
		return errors.Wrapf(ErrUnsupportedFormat, "format 0x%.4x has unknown bits 0x%.4x", uint16(f), uint16(f&^fvfKnown))
	}
	if f&fvfTexMask == fvfTexMask {
		return errors.Wrapf(ErrUnsupportedFormat, "format 0x%.4x has both TEX1 and TEX2", uint16(f))
	}
	return nil
}

func (f VertexFormat) String() string {
	parts := []string{"XYZ"}
	if f.HasNormal() {
		parts = append(parts, "NORMAL")
	}
	if f.HasDiffuse() {
		parts = append(parts, "DIFFUSE")
	}
	if n := f.TexCoords(); n != 0 {
		parts = append(parts, fmt.Sprintf("TEX%d", n))
	}
	return strings.Join(parts, "|")
}
