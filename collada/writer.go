package collada

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/scene"
	"github.com/mogaika/vmeshconv/utils"
)

// Part is one node of an exported model: its LOD geometries (level 0 first),
// its transform relative to the parent and the joint properties to store.
type Part struct {
	Name       string
	Transform  mgl32.Mat4
	Levels     []*vms.Geometry
	Properties map[string]scene.Property
	Children   []*Part
}

type WriteOptions struct {
	AuthoringTool string
	Author        string
	Created       string
}

func formatFloats(fs ...float32) string {
	var sb strings.Builder
	for i, f := range fs {
		if i != 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	return sb.String()
}

func formatIndices(indices []int) string {
	var sb strings.Builder
	for i, idx := range indices {
		if i != 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

func materialID(name string) string { return name + scene.MATERIAL_SUFFIX }
func effectID(name string) string { return name + "-effect" }

func LevelNodeName(part string, level int) string {
	if level == 0 {
		return part
	}
	return fmt.Sprintf("%s_lod%d", part, level)
}

type documentWriter struct {
	doc       *Document
	materials []vms.Material
	known     map[string]bool
}

// NewDocument builds a Y up document with roots as top level nodes.
// Materials used by drawcalls but missing from materials get white effects.
func NewDocument(roots []*Part, materials []vms.Material, opts WriteOptions) *Document {
	dw := &documentWriter{
		doc: &Document{
			Xmlns:   COLLADA_NAMESPACE,
			Version: COLLADA_VERSION,
			Asset: Asset{
				Contributor: &Contributor{Author: opts.Author, AuthoringTool: opts.AuthoringTool},
				Created:     opts.Created,
				Modified:    opts.Created,
				Unit:        &Unit{Name: "meter", Meter: 1},
				UpAxis:      scene.Y_UP.String(),
			},
			LibraryEffects:      &LibraryEffects{},
			LibraryMaterials:    &LibraryMaterials{},
			LibraryGeometries:   &LibraryGeometries{},
			LibraryVisualScenes: &LibraryVisualScenes{},
			Scene:               &SceneInstance{InstanceVisualScene: InstanceURL{URL: "#main-scene"}},
		},
		known: make(map[string]bool),
	}
	for _, m := range materials {
		dw.addMaterial(m)
	}

	vs := VisualScene{ID: "main-scene", Name: "main-scene"}
	for _, root := range roots {
		vs.Nodes = append(vs.Nodes, dw.partNodes(root)...)
	}
	dw.doc.LibraryVisualScenes.VisualScenes = []VisualScene{vs}
	return dw.doc
}

func WriteDocument(w io.Writer, roots []*Part, materials []vms.Material, opts WriteOptions) error {
	return NewDocument(roots, materials, opts).Encode(w)
}

func (dw *documentWriter) addMaterial(m vms.Material) {
	if dw.known[m.Name] {
		return
	}
	dw.known[m.Name] = true
	dw.doc.LibraryMaterials.Materials = append(dw.doc.LibraryMaterials.Materials, Material{
		ID:             materialID(m.Name),
		Name:           m.Name,
		InstanceEffect: InstanceURL{URL: "#" + effectID(m.Name)},
	})
	dw.doc.LibraryEffects.Effects = append(dw.doc.LibraryEffects.Effects, Effect{
		ID: effectID(m.Name),
		ProfileCommon: ProfileCommon{Technique: EffectTechnique{
			Sid: "common",
			Phong: &Shading{
				Emission: &ColorOrTexture{Color: &Value{Sid: "emission", Text: formatFloats(0, 0, 0, 1)}},
				Ambient:  &ColorOrTexture{Color: &Value{Sid: "ambient", Text: formatFloats(0, 0, 0, 1)}},
				Diffuse:  &ColorOrTexture{Color: &Value{Sid: "diffuse", Text: formatFloats(m.Diffuse[:]...)}},
				Specular: &ColorOrTexture{Color: &Value{Sid: "specular", Text: formatFloats(0.25, 0.25, 0.25, 1)}},
			},
		}},
	})
}

// partNodes returns the node of p followed by sibling nodes for its lower LODs.
func (dw *documentWriter) partNodes(p *Part) []Node {
	rows := utils.Mat4RowMajor(p.Transform)
	matrix := []Value{{Sid: "transform", Text: formatFloats(rows[:]...)}}

	nodes := make([]Node, 0, 1+len(p.Levels))
	for level, g := range p.Levels {
		if level == 0 || g == nil {
			continue
		}
		name := LevelNodeName(p.Name, level)
		nodes = append(nodes, Node{
			ID:               name,
			Name:             name,
			Matrix:           matrix,
			InstanceGeometry: []InstanceGeometry{dw.addGeometry(p.Name, level, g)},
		})
	}

	main := Node{ID: p.Name, Name: p.Name, Matrix: matrix}
	if len(p.Levels) > 0 && p.Levels[0] != nil {
		main.InstanceGeometry = []InstanceGeometry{dw.addGeometry(p.Name, 0, p.Levels[0])}
	}
	if len(p.Properties) != 0 {
		keys := make([]string, 0, len(p.Properties))
		for k := range p.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tech := ExtraTechnique{Profile: EXTRA_PROFILE}
		for _, k := range keys {
			prop := ExtraProperty{Text: p.Properties[k].Text}
			prop.XMLName.Local = k
			tech.Properties = append(tech.Properties, prop)
		}
		main.Extra = []Extra{{Techniques: []ExtraTechnique{tech}}}
	}
	for _, child := range p.Children {
		main.Children = append(main.Children, dw.partNodes(child)...)
	}
	return append([]Node{main}, nodes...)
}

func (dw *documentWriter) addGeometry(part string, level int, g *vms.Geometry) InstanceGeometry {
	id := fmt.Sprintf("%s-level%d", part, level)
	mesh := &Mesh{}

	n := len(g.Vertices)
	addSource := func(suffix string, params []string, value func(v *vms.Vertex) []float32) string {
		data := make([]float32, 0, n*len(params))
		for i := range g.Vertices {
			data = append(data, value(&g.Vertices[i])...)
		}
		srcID := id + "-" + suffix
		acc := &Accessor{Source: "#" + srcID + "-array", Count: n, Stride: len(params)}
		for _, p := range params {
			acc.Params = append(acc.Params, Param{Name: p, Type: "float"})
		}
		mesh.Sources = append(mesh.Sources, Source{
			ID:              srcID,
			FloatArray:      &FloatArray{ID: srcID + "-array", Count: len(data), Text: formatFloats(data...)},
			TechniqueCommon: SourceTechniqueCommon{Accessor: acc},
		})
		return "#" + srcID
	}

	positions := addSource("positions", []string{"X", "Y", "Z"}, func(v *vms.Vertex) []float32 { return v.Position[:] })
	mesh.Vertices = []Vertices{{
		ID:     id + "-vertices",
		Inputs: []Input{{Semantic: scene.SEMANTIC_POSITION, Source: positions}},
	}}
	inputs := []Input{{Semantic: scene.SEMANTIC_VERTEX, Source: "#" + id + "-vertices", Offset: 0}}
	if g.Format.HasNormal() {
		src := addSource("normals", []string{"X", "Y", "Z"}, func(v *vms.Vertex) []float32 { return v.Normal[:] })
		inputs = append(inputs, Input{Semantic: scene.SEMANTIC_NORMAL, Source: src, Offset: len(inputs)})
	}
	if g.Format.HasDiffuse() {
		src := addSource("color", []string{"R", "G", "B", "A"}, func(v *vms.Vertex) []float32 {
			c := vms.UnpackColor(v.Diffuse)
			return c[:]
		})
		inputs = append(inputs, Input{Semantic: scene.SEMANTIC_COLOR, Source: src, Offset: len(inputs)})
	}
	if tex := g.Format.TexCoords(); tex > 0 {
		src := addSource("tex1", []string{"S", "T"}, func(v *vms.Vertex) []float32 { return v.UV1[:] })
		inputs = append(inputs, Input{Semantic: scene.SEMANTIC_TEXCOORD, Source: src, Offset: len(inputs), Set: "0"})
		if tex > 1 {
			src := addSource("tex2", []string{"S", "T"}, func(v *vms.Vertex) []float32 { return v.UV2[:] })
			inputs = append(inputs, Input{Semantic: scene.SEMANTIC_TEXCOORD, Source: src, Offset: len(inputs), Set: "1"})
		}
	}

	bind := &BindMaterial{}
	bound := make(map[string]bool)
	for _, dc := range g.Drawcalls {
		if dc.TriCount == 0 {
			continue
		}
		dw.addMaterial(vms.Material{Name: dc.Material, Diffuse: mgl32.Vec4{1, 1, 1, 1}})
		indices := make([]int, 0, dc.IndexCount()*len(inputs))
		for _, idx := range g.Indices[dc.StartIndex : dc.StartIndex+dc.IndexCount()] {
			for range inputs {
				indices = append(indices, int(idx))
			}
		}
		mesh.Primitives = append(mesh.Primitives, Primitive{
			Kind:     "triangles",
			Material: materialID(dc.Material),
			Count:    dc.TriCount,
			Inputs:   inputs,
			P:        []string{formatIndices(indices)},
		})
		if !bound[dc.Material] {
			bound[dc.Material] = true
			bind.TechniqueCommon.InstanceMaterials = append(bind.TechniqueCommon.InstanceMaterials, InstanceMaterial{
				Symbol: materialID(dc.Material),
				Target: "#" + materialID(dc.Material),
			})
		}
	}

	dw.doc.LibraryGeometries.Geometries = append(dw.doc.LibraryGeometries.Geometries, Geometry{
		ID:   id,
		Name: id,
		Mesh: mesh,
	})
	return InstanceGeometry{URL: "#" + id, BindMaterial: bind}
}
