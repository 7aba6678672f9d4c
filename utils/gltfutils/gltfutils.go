package gltfutils

import (
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

// AddNode appends node as a child of parent, or as a scene root when parent is nil.
func AddNode(doc *gltf.Document, parent *uint32, node *gltf.Node) uint32 {
	index := uint32(len(doc.Nodes))
	doc.Nodes = append(doc.Nodes, node)
	if parent != nil {
		doc.Nodes[*parent].Children = append(doc.Nodes[*parent].Children, index)
	} else {
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, index)
	}
	return index
}

// Matrix converts a transform to the glTF column major layout, which mgl32 shares.
func Matrix(m mgl32.Mat4) [16]float32 {
	return [16]float32(m)
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}
