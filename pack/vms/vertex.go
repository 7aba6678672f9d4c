package vms

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex carries every attribute a mesh can have. Which fields are meaningful
// is decided by the VertexFormat of the owning geometry.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Diffuse  uint32 // packed 0xRRGGBBAA
	UV1      mgl32.Vec2
	UV2      mgl32.Vec2
}

const (
	hashOffset uint32 = 2166136261
	hashPrime  uint32 = 16777619
)

func mixHash(h, v uint32) uint32 {
	return h*hashPrime ^ v
}

func mixFloats(h uint32, fs ...float32) uint32 {
	for _, f := range fs {
		h = mixHash(h, math.Float32bits(f))
	}
	return h
}

// Hash mixes the populated fields in the order position, normal, uv1, uv2, diffuse.
func (v *Vertex) Hash(f VertexFormat) uint32 {
	h := mixFloats(hashOffset, v.Position[:]...)
	if f.HasNormal() {
		h = mixFloats(h, v.Normal[:]...)
	}
	tex := f.TexCoords()
	if tex > 0 {
		h = mixFloats(h, v.UV1[:]...)
	}
	if tex > 1 {
		h = mixFloats(h, v.UV2[:]...)
	}
	if f.HasDiffuse() {
		h = mixHash(h, v.Diffuse)
	}
	return h
}

func bitsEqual(a, b []float32) bool {
	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			return false
		}
	}
	return true
}

// Equal compares populated fields bit for bit. No tolerance is applied.
func (v *Vertex) Equal(o *Vertex, f VertexFormat) bool {
	if !bitsEqual(v.Position[:], o.Position[:]) {
		return false
	}
	if f.HasNormal() && !bitsEqual(v.Normal[:], o.Normal[:]) {
		return false
	}
	tex := f.TexCoords()
	if tex > 0 && !bitsEqual(v.UV1[:], o.UV1[:]) {
		return false
	}
	if tex > 1 && !bitsEqual(v.UV2[:], o.UV2[:]) {
		return false
	}
	if f.HasDiffuse() && v.Diffuse != o.Diffuse {
		return false
	}
	return true
}

// Mask zeroes the fields the format does not carry.
func (v Vertex) Mask(f VertexFormat) Vertex {
	r := Vertex{Position: v.Position}
	if f.HasNormal() {
		r.Normal = v.Normal
	}
	if f.HasDiffuse() {
		r.Diffuse = v.Diffuse
	}
	tex := f.TexCoords()
	if tex > 0 {
		r.UV1 = v.UV1
	}
	if tex > 1 {
		r.UV2 = v.UV2
	}
	return r
}

func PackColor(c mgl32.Vec4) uint32 {
	var packed uint32
	for _, ch := range c {
		packed = packed<<8 | uint32(colorByte(ch))
	}
	return packed
}

func UnpackColor(packed uint32) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(packed>>24) / 255,
		float32((packed>>16)&0xff) / 255,
		float32((packed>>8)&0xff) / 255,
		float32(packed&0xff) / 255,
	}
}

func colorByte(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 0xff
	default:
		return uint8(math.Round(float64(f) * 255))
	}
}
