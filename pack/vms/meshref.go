package vms

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/vmeshconv/utils"
)

const MESH_REF_SIZE = 0x3c

// MeshRef locates a region of a mesh data blob and carries its bounding volume.
type MeshRef struct {
	HeaderSize  uint32
	MeshHash    uint32
	StartVertex uint16
	VertexCount uint16
	StartIndex  uint16
	IndexCount  uint16
	StartMesh   uint16
	MeshCount   uint16
	Max         mgl32.Vec3
	Min         mgl32.Vec3
	Center      mgl32.Vec3
	Radius      float32
}

// NewMeshRef describes the whole of g, stored in the mesh data named meshName.
func NewMeshRef(g *Geometry, meshName string) (*MeshRef, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	b := g.Bounds()
	return &MeshRef{
		HeaderSize:  MESH_REF_SIZE,
		MeshHash:    utils.ModelNameHash(meshName),
		VertexCount: uint16(len(g.Vertices)),
		IndexCount:  uint16(len(g.Indices)),
		MeshCount:   uint16(len(g.Drawcalls)),
		Max:         b.Max,
		Min:         b.Min,
		Center:      b.Center,
		Radius:      b.Radius,
	}, nil
}

func putFloat(b []byte, f float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
}

func getFloat(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func (r *MeshRef) Marshal() []byte {
	buf := make([]byte, MESH_REF_SIZE)
	binary.LittleEndian.PutUint32(buf[0x00:], r.HeaderSize)
	binary.LittleEndian.PutUint32(buf[0x04:], r.MeshHash)
	binary.LittleEndian.PutUint16(buf[0x08:], r.StartVertex)
	binary.LittleEndian.PutUint16(buf[0x0a:], r.VertexCount)
	binary.LittleEndian.PutUint16(buf[0x0c:], r.StartIndex)
	binary.LittleEndian.PutUint16(buf[0x0e:], r.IndexCount)
	binary.LittleEndian.PutUint16(buf[0x10:], r.StartMesh)
	binary.LittleEndian.PutUint16(buf[0x12:], r.MeshCount)
	for axis := 0; axis < 3; axis++ {
		putFloat(buf[0x14+axis*8:], r.Max[axis])
		putFloat(buf[0x18+axis*8:], r.Min[axis])
	}
	for axis := 0; axis < 3; axis++ {
		putFloat(buf[0x2c+axis*4:], r.Center[axis])
	}
	putFloat(buf[0x38:], r.Radius)
	return buf
}

func UnmarshalMeshRef(b []byte) (*MeshRef, error) {
	if len(b) < MESH_REF_SIZE {
		return nil, errors.Wrapf(ErrTruncated, "mesh reference is %d bytes, need %d", len(b), MESH_REF_SIZE)
	}
	r := &MeshRef{
		HeaderSize:  binary.LittleEndian.Uint32(b[0x00:]),
		MeshHash:    binary.LittleEndian.Uint32(b[0x04:]),
		StartVertex: binary.LittleEndian.Uint16(b[0x08:]),
		VertexCount: binary.LittleEndian.Uint16(b[0x0a:]),
		StartIndex:  binary.LittleEndian.Uint16(b[0x0c:]),
		IndexCount:  binary.LittleEndian.Uint16(b[0x0e:]),
		StartMesh:   binary.LittleEndian.Uint16(b[0x10:]),
		MeshCount:   binary.LittleEndian.Uint16(b[0x12:]),
	}
	if r.HeaderSize != MESH_REF_SIZE {
		return nil, errors.Wrapf(ErrFormatMismatch, "mesh reference header size %d, expected %d", r.HeaderSize, MESH_REF_SIZE)
	}
	for axis := 0; axis < 3; axis++ {
		r.Max[axis] = getFloat(b[0x14+axis*8:])
		r.Min[axis] = getFloat(b[0x18+axis*8:])
	}
	for axis := 0; axis < 3; axis++ {
		r.Center[axis] = getFloat(b[0x2c+axis*4:])
	}
	r.Radius = getFloat(b[0x38:])
	return r, nil
}
