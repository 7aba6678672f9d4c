package vms

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mogaika/vmeshconv/utils"
)

const (
	MESH_DATA_HEADER_SIZE = 0x10
	MESH_HEADER_SIZE      = 0xc

	MESH_DATA_TYPE         = 1
	MESH_DATA_SURFACE_TYPE = 4
	MESH_HEADER_PADDING    = 0xcc
)

// MeshHeader describes one sub-mesh. Its first index is not stored: it is the
// sum of NumRefVertices of all previous headers.
type MeshHeader struct {
	MaterialHash   uint32
	StartVertex    uint16
	EndVertex      uint16
	NumRefVertices uint16
	Padding        uint16

	StartIndex int `json:"-"`
}

func (mh *MeshHeader) TriangleCount() int { return int(mh.NumRefVertices) / 3 }

// MeshData is the decoded form of a mesh data blob. Indices are relative to
// the StartVertex of the sub-mesh they belong to.
type MeshData struct {
	MeshType    uint32
	SurfaceType uint32
	Format      VertexFormat
	Meshes      []MeshHeader
	Indices     []uint16
	Vertices    []Vertex
}

func EncodeMeshData(g *Geometry) ([]byte, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, "Can't encode mesh data")
	}

	bw := utils.NewBufWriter(MESH_DATA_HEADER_SIZE + len(g.Drawcalls)*MESH_HEADER_SIZE +
		len(g.Indices)*2 + len(g.Vertices)*g.Format.Stride())

	bw.WriteLU32(MESH_DATA_TYPE)
	bw.WriteLU32(MESH_DATA_SURFACE_TYPE)
	bw.WriteLU16(uint16(len(g.Drawcalls)))
	bw.WriteLU16(uint16(len(g.Indices)))
	bw.WriteLU16(uint16(g.Format))
	bw.WriteLU16(uint16(len(g.Vertices)))

	for i := range g.Drawcalls {
		dc := &g.Drawcalls[i]
		start, end := dc.MinVertex, dc.MaxVertex
		if dc.TriCount == 0 {
			start, end = 0, 0
		}
		bw.WriteLU32(utils.ModelNameHash(dc.Material))
		bw.WriteLU16(start)
		bw.WriteLU16(end)
		bw.WriteLU16(uint16(dc.IndexCount()))
		bw.WriteLU16(MESH_HEADER_PADDING)
	}

	for i := range g.Drawcalls {
		dc := &g.Drawcalls[i]
		for _, idx := range g.Indices[dc.StartIndex : dc.StartIndex+dc.IndexCount()] {
			bw.WriteLU16(idx - dc.MinVertex)
		}
	}

	for i := range g.Vertices {
		writeVertex(bw, &g.Vertices[i], g.Format)
	}

	return bw.Bytes(), nil
}

func writeVertex(bw *utils.BufWriter, v *Vertex, f VertexFormat) {
	bw.WriteVec3(v.Position)
	if f.HasNormal() {
		bw.WriteVec3(v.Normal)
	}
	// diffuse bytes are R, G, B, A in file order, not a little endian uint32
	if f.HasDiffuse() {
		bw.Write([]byte{byte(v.Diffuse >> 24), byte(v.Diffuse >> 16), byte(v.Diffuse >> 8), byte(v.Diffuse)})
	}
	tex := f.TexCoords()
	if tex > 0 {
		bw.WriteVec2(flipV(v.UV1))
	}
	if tex > 1 {
		bw.WriteVec2(flipV(v.UV2))
	}
}

// flipV converts between document and runtime texture space. It is its own inverse.
func flipV(uv mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{uv[0], 1 - uv[1]}
}

func readVertex(bs *utils.BufStack, f VertexFormat) Vertex {
	var v Vertex
	v.Position = bs.ReadVec3()
	if f.HasNormal() {
		v.Normal = bs.ReadVec3()
	}
	if f.HasDiffuse() {
		c := bs.Read(4)
		v.Diffuse = uint32(c[0])<<24 | uint32(c[1])<<16 | uint32(c[2])<<8 | uint32(c[3])
	}
	tex := f.TexCoords()
	if tex > 0 {
		v.UV1 = flipV(bs.ReadVec2())
	}
	if tex > 1 {
		v.UV2 = flipV(bs.ReadVec2())
	}
	return v
}

func DecodeMeshData(b []byte) (*MeshData, error) {
	bs := utils.NewBufStack("vmeshdata", b)
	if bs.Size() < MESH_DATA_HEADER_SIZE {
		return nil, errors.Wrapf(ErrTruncated, "mesh data is %d bytes, header needs %d", bs.Size(), MESH_DATA_HEADER_SIZE)
	}

	md := &MeshData{
		MeshType:    bs.ReadLU32(),
		SurfaceType: bs.ReadLU32(),
	}
	meshCount := int(bs.ReadLU16())
	indexCount := int(bs.ReadLU16())
	md.Format = VertexFormat(bs.ReadLU16())
	vertexCount := int(bs.ReadLU16())

	if err := md.Format.Validate(); err != nil {
		return nil, err
	}
	need := MESH_DATA_HEADER_SIZE + meshCount*MESH_HEADER_SIZE + indexCount*2 + vertexCount*md.Format.Stride()
	if bs.Size() < need {
		return nil, errors.Wrapf(ErrTruncated, "mesh data is %d bytes, layout needs %d", bs.Size(), need)
	}

	md.Meshes = make([]MeshHeader, meshCount)
	start := 0
	for i := range md.Meshes {
		mh := &md.Meshes[i]
		mh.MaterialHash = bs.ReadLU32()
		mh.StartVertex = bs.ReadLU16()
		mh.EndVertex = bs.ReadLU16()
		mh.NumRefVertices = bs.ReadLU16()
		mh.Padding = bs.ReadLU16()
		mh.StartIndex = start

		if mh.NumRefVertices%3 != 0 {
			return nil, errors.Wrapf(ErrFormatMismatch, "sub-mesh %d references %d vertices, not whole triangles",
				i, mh.NumRefVertices)
		}
		if mh.NumRefVertices != 0 && (mh.StartVertex > mh.EndVertex || int(mh.EndVertex) >= vertexCount) {
			return nil, errors.Wrapf(ErrFormatMismatch, "sub-mesh %d vertex span [%d,%d] outside %d vertices",
				i, mh.StartVertex, mh.EndVertex, vertexCount)
		}
		start += int(mh.NumRefVertices)
	}
	if start != indexCount {
		return nil, errors.Wrapf(ErrFormatMismatch, "sub-meshes reference %d indices, header declares %d",
			start, indexCount)
	}

	md.Indices = make([]uint16, indexCount)
	for i := range md.Indices {
		md.Indices[i] = bs.ReadLU16()
	}
	for i := range md.Meshes {
		mh := &md.Meshes[i]
		for _, idx := range md.Indices[mh.StartIndex : mh.StartIndex+int(mh.NumRefVertices)] {
			if int(mh.StartVertex)+int(idx) > int(mh.EndVertex) {
				return nil, errors.Wrapf(ErrFormatMismatch, "sub-mesh %d index %d past end vertex %d",
					i, int(mh.StartVertex)+int(idx), mh.EndVertex)
			}
		}
	}

	md.Vertices = make([]Vertex, vertexCount)
	for i := range md.Vertices {
		md.Vertices[i] = readVertex(bs, md.Format)
	}
	if err := bs.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't decode mesh data")
	}

	if utils.Log.Core().Enabled(zapcore.DebugLevel) {
		utils.Log.Debug("decoded mesh data",
			zap.Int("meshes", meshCount),
			zap.Int("indices", indexCount),
			zap.Int("vertices", vertexCount),
			zap.Stringer("format", md.Format),
			zap.String("headers", utils.SDump(md.Meshes)))
	}
	if bs.Remaining() != 0 {
		utils.Log.Warn("trailing bytes after mesh data", zap.Int("offset", bs.Pos()), zap.Int("bytes", bs.Remaining()))
	}
	return md, nil
}

// FullRef returns a mesh reference covering the whole blob.
func (md *MeshData) FullRef() *MeshRef {
	return &MeshRef{
		HeaderSize:  MESH_REF_SIZE,
		VertexCount: uint16(len(md.Vertices)),
		IndexCount:  uint16(len(md.Indices)),
		MeshCount:   uint16(len(md.Meshes)),
	}
}

func (md *MeshData) isFullRange(ref *MeshRef) bool {
	return ref.StartVertex == 0 && int(ref.VertexCount) == len(md.Vertices) &&
		ref.StartMesh == 0 && int(ref.MeshCount) == len(md.Meshes)
}

// Geometry extracts the region addressed by ref as a standalone geometry.
// A nil ref selects the whole blob. Partial regions are re-welded so the
// result holds only the vertices it uses. Material names come from lookup.
func (md *MeshData) Geometry(ref *MeshRef, lookup MaterialLookup) (*Geometry, []Material, error) {
	if ref == nil {
		ref = md.FullRef()
	}
	endMesh := int(ref.StartMesh) + int(ref.MeshCount)
	if endMesh > len(md.Meshes) {
		return nil, nil, errors.Wrapf(ErrFormatMismatch, "reference selects meshes [%d,%d) of %d",
			ref.StartMesh, endMesh, len(md.Meshes))
	}
	if int(ref.StartVertex)+int(ref.VertexCount) > len(md.Vertices) {
		return nil, nil, errors.Wrapf(ErrFormatMismatch, "reference selects vertices [%d,%d) of %d",
			ref.StartVertex, int(ref.StartVertex)+int(ref.VertexCount), len(md.Vertices))
	}

	g := &Geometry{Format: md.Format}
	full := md.isFullRange(ref)
	var welder *Welder
	if full {
		g.Vertices = make([]Vertex, len(md.Vertices))
		copy(g.Vertices, md.Vertices)
	} else {
		welder = NewWelder(md.Format)
	}

	materials := make([]Material, 0)
	seen := make(map[string]struct{})

	for i := int(ref.StartMesh); i < endMesh; i++ {
		mh := &md.Meshes[i]
		mat := ResolveMaterial(lookup, mh.MaterialHash)
		if _, ok := seen[mat.Name]; !ok {
			seen[mat.Name] = struct{}{}
			materials = append(materials, mat)
		}

		dc := Drawcall{
			StartIndex: len(g.Indices),
			TriCount:   mh.TriangleCount(),
			Material:   mat.Name,
		}
		for _, idx := range md.Indices[mh.StartIndex : mh.StartIndex+int(mh.NumRefVertices)] {
			vi := int(ref.StartVertex) + int(mh.StartVertex) + int(idx)
			if vi >= len(md.Vertices) {
				return nil, nil, errors.Wrapf(ErrFormatMismatch, "sub-mesh %d vertex %d out of %d",
					i, vi, len(md.Vertices))
			}
			if full {
				g.Indices = append(g.Indices, uint16(vi))
				continue
			}
			local, err := welder.Weld(md.Vertices[vi])
			if err != nil {
				return nil, nil, err
			}
			g.Indices = append(g.Indices, local)
		}
		g.Drawcalls = append(g.Drawcalls, dc)
	}
	if !full {
		g.Vertices = welder.Vertices()
	}
	g.UpdateSpans()
	return g, materials, nil
}
