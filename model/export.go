package model

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/vmeshconv/collada"
	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/utils/gltfutils"
)

func colladaPart(p *Part) *collada.Part {
	cp := &collada.Part{
		Name:      p.Name,
		Transform: p.Transform(),
		Levels:    make([]*vms.Geometry, len(p.Levels)),
	}
	for i, level := range p.Levels {
		cp.Levels[i] = level.Geometry
	}
	if p.Construct != nil {
		cp.Properties = JointProperties(p.Construct)
	}
	for _, child := range p.Children {
		cp.Children = append(cp.Children, colladaPart(child))
	}
	return cp
}

// ExportCollada writes the model as a Y up interchange document. Lower LODs
// become "_lodN" siblings and joints become node properties.
func (m *Model) ExportCollada(w io.Writer, opts collada.WriteOptions) error {
	if m.Root == nil {
		return errors.New("model has no root part")
	}
	return collada.WriteDocument(w, []*collada.Part{colladaPart(m.Root)}, m.Materials, opts)
}

type gltfExporter struct {
	doc       *gltf.Document
	materials map[string]uint32
}

func (ge *gltfExporter) material(m vms.Material) uint32 {
	if index, ok := ge.materials[m.Name]; ok {
		return index
	}
	color := [4]float32(m.Diffuse)
	index := uint32(len(ge.doc.Materials))
	ge.doc.Materials = append(ge.doc.Materials, &gltf.Material{
		Name:        m.Name,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &color,
		},
	})
	ge.materials[m.Name] = index
	return index
}

func (ge *gltfExporter) mesh(name string, g *vms.Geometry) uint32 {
	doc := ge.doc
	attributes := make(map[string]uint32)

	positions := make([][3]float32, len(g.Vertices))
	for i := range g.Vertices {
		positions[i] = g.Vertices[i].Position
	}
	attributes["POSITION"] = modeler.WritePosition(doc, positions)

	if g.Format.HasNormal() {
		normals := make([][3]float32, len(g.Vertices))
		for i := range g.Vertices {
			normal := g.Vertices[i].Normal
			if normal.Len() > 0.5 {
				normal = normal.Normalize()
			}
			normals[i] = normal
		}
		attributes["NORMAL"] = modeler.WriteNormal(doc, normals)
	}
	if g.Format.HasDiffuse() {
		colors := make([][4]uint8, len(g.Vertices))
		for i := range g.Vertices {
			c := g.Vertices[i].Diffuse
			colors[i] = [4]uint8{uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)}
		}
		attributes["COLOR_0"] = modeler.WriteColor(doc, colors)
	}
	// glTF texture space has its origin in the top left corner
	tex := g.Format.TexCoords()
	for layer := 0; layer < tex; layer++ {
		uvs := make([][2]float32, len(g.Vertices))
		for i := range g.Vertices {
			uv := g.Vertices[i].UV1
			if layer == 1 {
				uv = g.Vertices[i].UV2
			}
			uvs[i] = [2]float32{uv[0], 1 - uv[1]}
		}
		if layer == 0 {
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, uvs)
		} else {
			attributes["TEXCOORD_1"] = modeler.WriteTextureCoord(doc, uvs)
		}
	}

	mesh := &gltf.Mesh{Name: name}
	for _, dc := range g.Drawcalls {
		if dc.TriCount == 0 {
			continue
		}
		indices := make([]uint32, dc.IndexCount())
		for i, idx := range g.Indices[dc.StartIndex : dc.StartIndex+dc.IndexCount()] {
			indices[i] = uint32(idx)
		}
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(doc, indices)),
			Attributes: attributes,
			Material:   gltf.Index(ge.material(vms.Material{Name: dc.Material, Diffuse: mgl32.Vec4{1, 1, 1, 1}})),
		})
	}
	doc.Meshes = append(doc.Meshes, mesh)
	return uint32(len(doc.Meshes) - 1)
}

func (ge *gltfExporter) part(p *Part, parent *uint32) {
	node := &gltf.Node{
		Name:   p.Name,
		Matrix: gltfutils.Matrix(p.Transform()),
	}
	if len(p.Levels) > 0 {
		node.Mesh = gltf.Index(ge.mesh(p.Name, p.Levels[0].Geometry))
	}
	index := gltfutils.AddNode(ge.doc, parent, node)
	for _, child := range p.Children {
		ge.part(child, &index)
	}
}

// GLTF converts the highest detail level of every part to a glTF document,
// one node per part and one primitive per drawcall.
func (m *Model) GLTF() (*gltf.Document, error) {
	if m.Root == nil {
		return nil, errors.New("model has no root part")
	}
	ge := &gltfExporter{
		doc:       gltfutils.NewDocument(),
		materials: make(map[string]uint32),
	}
	for _, mat := range m.Materials {
		ge.material(mat)
	}
	ge.part(m.Root, nil)
	return ge.doc, nil
}

func (m *Model) ExportGLTF(w io.Writer) error {
	doc, err := m.GLTF()
	if err != nil {
		return err
	}
	return errors.Wrap(gltfutils.ExportBinary(w, doc), "Failed to encode glTF")
}
