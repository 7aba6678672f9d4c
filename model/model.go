// Package model assembles articulated models from interchange scenes and
// converts them to and from the binary mesh, construct and LOD records.
package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/pack/vms"
)

// ROOT_NAME is the construct name of the root part in binary records.
const ROOT_NAME = "Root"

// Level is one LOD of a part. Levels are numbered without gaps.
type Level struct {
	MeshName string
	Geometry *vms.Geometry
	Ref      *vms.MeshRef
}

type Part struct {
	// Name is the part name used in mesh names.
	Name string
	// ObjectName addresses the part in construct and reference records.
	ObjectName string
	Construct  *cmp.Construct // nil for the root
	Levels     []*Level
	Switch2    []float32
	Parent     *Part
	Children   []*Part
}

// Transform is the part transform relative to its parent.
func (p *Part) Transform() mgl32.Mat4 {
	if p.Construct == nil {
		return mgl32.Ident4()
	}
	return p.Construct.Transform()
}

func (p *Part) AddChild(child *Part) {
	child.Parent = p
	p.Children = append(p.Children, child)
}

type Model struct {
	Name      string
	Root      *Part
	Materials []vms.Material
}

// Walk visits parts depth first, parents before children.
func (m *Model) Walk(fn func(p *Part, depth int) error) error {
	var walk func(p *Part, depth int) error
	walk = func(p *Part, depth int) error {
		if err := fn(p, depth); err != nil {
			return err
		}
		for _, child := range p.Children {
			if err := walk(child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if m.Root == nil {
		return nil
	}
	return walk(m.Root, 0)
}

func (m *Model) Parts() []*Part {
	result := make([]*Part, 0)
	m.Walk(func(p *Part, depth int) error {
		result = append(result, p)
		return nil
	})
	return result
}

func (m *Model) Constructs() []*cmp.Construct {
	result := make([]*cmp.Construct, 0)
	m.Walk(func(p *Part, depth int) error {
		if p.Construct != nil {
			result = append(result, p.Construct)
		}
		return nil
	})
	return result
}

func (m *Model) addMaterials(materials []vms.Material) {
	for _, mat := range materials {
		found := false
		for _, known := range m.Materials {
			if known.Name == mat.Name {
				found = true
				break
			}
		}
		if !found {
			m.Materials = append(m.Materials, mat)
		}
	}
}

// MeshName is the library name of one LOD mesh: <model>-<part>.lod<N>.<fvf>.vms
func MeshName(model, part string, level int, format vms.VertexFormat) string {
	return fmt.Sprintf("%s-%s.lod%d.%d.vms", model, part, level, int(format))
}

// ParseMeshName splits a MeshName into "<model>-<part>", the level and the vertex format.
func ParseMeshName(name string) (base string, level int, format vms.VertexFormat, ok bool) {
	rest := strings.TrimSuffix(name, ".vms")
	if rest == name {
		return "", 0, 0, false
	}
	dot := strings.LastIndexByte(rest, '.')
	if dot < 0 {
		return "", 0, 0, false
	}
	fvf, err := strconv.ParseUint(rest[dot+1:], 10, 16)
	if err != nil {
		return "", 0, 0, false
	}
	rest = rest[:dot]
	dot = strings.LastIndexByte(rest, '.')
	if dot < 0 || !strings.HasPrefix(rest[dot+1:], "lod") {
		return "", 0, 0, false
	}
	if level, err = strconv.Atoi(rest[dot+4:]); err != nil {
		return "", 0, 0, false
	}
	return rest[:dot], level, vms.VertexFormat(fvf), true
}
