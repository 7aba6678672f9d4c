package collada

import (
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/scene"
	"github.com/mogaika/vmeshconv/utils"
)

// ReadScene parses a document and converts it to a scene graph.
func ReadScene(r io.Reader) (*scene.Scene, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return doc.ToScene()
}

// localRef strips the leading '#' of a document local URI.
func localRef(uri string) (string, error) {
	if !strings.HasPrefix(uri, "#") || len(uri) == 1 {
		return "", errors.Wrapf(ErrUnsupported, "reference %q is not document local", uri)
	}
	return uri[1:], nil
}

func parseFloats(text string) ([]float32, error) {
	fields := strings.Fields(text)
	result := make([]float32, len(fields))
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "float %d", i)
		}
		result[i] = float32(f)
	}
	return result, nil
}

func parseInts(text string) ([]int, error) {
	fields := strings.Fields(text)
	result := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "index %d", i)
		}
		result[i] = v
	}
	return result, nil
}

type sceneReader struct {
	doc        *Document
	result     *scene.Scene
	effects    map[string]mgl32.Vec4
	materials  map[string]Material
	geometries map[string]*scene.RawGeometry
	rawByID    map[string]*Geometry
}

func (doc *Document) ToScene() (*scene.Scene, error) {
	sr := &sceneReader{
		doc:        doc,
		result:     scene.NewScene(),
		effects:    make(map[string]mgl32.Vec4),
		materials:  make(map[string]Material),
		geometries: make(map[string]*scene.RawGeometry),
		rawByID:    make(map[string]*Geometry),
	}

	up, err := scene.ParseUpAxis(doc.Asset.UpAxis)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupported, err.Error())
	}
	if up == scene.X_UP {
		return nil, errors.Wrap(ErrUnsupported, "X_UP documents are not supported")
	}
	sr.result.UpAxis = up
	if doc.Asset.Contributor != nil {
		sr.result.AuthoringTool = strings.TrimSpace(doc.Asset.Contributor.AuthoringTool)
	}

	if err := sr.readEffects(); err != nil {
		return nil, err
	}
	if doc.LibraryMaterials != nil {
		for _, m := range doc.LibraryMaterials.Materials {
			sr.materials[m.ID] = m
		}
	}
	if doc.LibraryGeometries != nil {
		for i := range doc.LibraryGeometries.Geometries {
			g := &doc.LibraryGeometries.Geometries[i]
			sr.rawByID[g.ID] = g
		}
	}

	vs, err := sr.visualScene()
	if err != nil {
		return nil, err
	}
	if vs != nil {
		for i := range vs.Nodes {
			n, err := sr.readNode(&vs.Nodes[i])
			if err != nil {
				return nil, err
			}
			sr.result.Nodes = append(sr.result.Nodes, n)
		}
	}
	return sr.result, nil
}

func (sr *sceneReader) readEffects() error {
	if sr.doc.LibraryEffects == nil {
		return nil
	}
	for _, e := range sr.doc.LibraryEffects.Effects {
		diffuse := mgl32.Vec4{1, 1, 1, 1}
		if s := e.ProfileCommon.Technique.Shading(); s != nil && s.Diffuse != nil && s.Diffuse.Color != nil {
			c, err := parseFloats(s.Diffuse.Color.Text)
			if err != nil || len(c) < 3 {
				return errors.Wrapf(ErrUnsupported, "effect %q diffuse color %q", e.ID, s.Diffuse.Color.Text)
			}
			copy(diffuse[:], c)
		}
		sr.effects[e.ID] = diffuse
	}
	return nil
}

func (sr *sceneReader) visualScene() (*VisualScene, error) {
	lib := sr.doc.LibraryVisualScenes
	if lib == nil || len(lib.VisualScenes) == 0 {
		return nil, nil
	}
	if sr.doc.Scene == nil || sr.doc.Scene.InstanceVisualScene.URL == "" {
		return &lib.VisualScenes[0], nil
	}
	id, err := localRef(sr.doc.Scene.InstanceVisualScene.URL)
	if err != nil {
		return nil, err
	}
	for i := range lib.VisualScenes {
		if lib.VisualScenes[i].ID == id {
			return &lib.VisualScenes[i], nil
		}
	}
	return nil, errors.Errorf("visual scene %q not found", id)
}

// materialColor resolves a material id to its effect diffuse colour.
func (sr *sceneReader) materialColor(id string) (mgl32.Vec4, bool) {
	m, ok := sr.materials[id]
	if !ok {
		return mgl32.Vec4{}, false
	}
	effect, err := localRef(m.InstanceEffect.URL)
	if err != nil {
		return mgl32.Vec4{}, false
	}
	c, ok := sr.effects[effect]
	return c, ok
}

func (sr *sceneReader) bindMaterials(ig *InstanceGeometry, raw *scene.RawGeometry) error {
	targets := make(map[string]string)
	if ig.BindMaterial != nil {
		for _, im := range ig.BindMaterial.TechniqueCommon.InstanceMaterials {
			target, err := localRef(im.Target)
			if err != nil {
				return err
			}
			targets[im.Symbol] = target
		}
	}
	for _, p := range raw.Primitives {
		if p.Material == "" {
			continue
		}
		if _, ok := sr.result.Materials[p.Material]; ok {
			continue
		}
		target, ok := targets[p.Material]
		if !ok {
			target = p.Material
		}
		diffuse, ok := sr.materialColor(target)
		if !ok {
			utils.Log.Debug("material without effect colour", zap.String("material", p.Material))
			diffuse = mgl32.Vec4{1, 1, 1, 1}
		}
		sr.result.Materials[p.Material] = &scene.Material{Name: p.Material, Diffuse: diffuse}
	}
	return nil
}

func nodeTransform(n *Node) (mgl32.Mat4, error) {
	m := mgl32.Ident4()
	// element order is lost when decoding, so only matrices can be composed
	for _, el := range []struct {
		name   string
		values []Value
	}{
		{"translate", n.Translate},
		{"rotate", n.Rotate},
		{"scale", n.Scale},
		{"lookat", n.Lookat},
		{"skew", n.Skew},
	} {
		if len(el.values) != 0 {
			return m, errors.Wrapf(ErrUnsupported, "node %q uses <%s>, only <matrix> transforms are supported",
				n.Name, el.name)
		}
	}
	for _, mv := range n.Matrix {
		f, err := parseFloats(mv.Text)
		if err != nil {
			return m, errors.Wrapf(ErrUnsupported, "node %q matrix: %v", n.Name, err)
		}
		switch len(f) {
		case 16:
			m = m.Mul4(utils.Mat4FromRowMajor(f))
		case 9:
			var rot [9]float32
			copy(rot[:], f)
			m = m.Mul4(utils.Mat3FromRowMajor(rot).Mat4())
		default:
			return m, errors.Wrapf(ErrUnsupported, "node %q matrix has %d values", n.Name, len(f))
		}
	}
	return m, nil
}

func (sr *sceneReader) readNode(n *Node) (*scene.Node, error) {
	name := n.Name
	if name == "" {
		name = n.ID
	}
	result := scene.NewNode(name)
	result.ID = n.ID

	transform, err := nodeTransform(n)
	if err != nil {
		return nil, err
	}
	result.Transform = transform

	if len(n.InstanceNode) != 0 {
		return nil, errors.Wrapf(ErrUnsupported, "node %q uses instance_node", name)
	}
	if len(n.InstanceGeometry) > 1 {
		utils.Log.Warn("node instances several geometries, using the first",
			zap.String("node", name), zap.Int("count", len(n.InstanceGeometry)))
	}
	if len(n.InstanceGeometry) > 0 {
		ig := &n.InstanceGeometry[0]
		id, err := localRef(ig.URL)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		raw, err := sr.geometry(id)
		if err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		if err := sr.bindMaterials(ig, raw); err != nil {
			return nil, errors.Wrapf(err, "node %q", name)
		}
		result.Geometry = raw
	}

	for _, extra := range n.Extra {
		for _, tech := range extra.Techniques {
			if tech.Profile != EXTRA_PROFILE {
				continue
			}
			for _, prop := range tech.Properties {
				result.SetProperty(prop.XMLName.Local, scene.ParseProperty(prop.Text))
			}
		}
	}

	for i := range n.Children {
		child, err := sr.readNode(&n.Children[i])
		if err != nil {
			return nil, err
		}
		result.AddChild(child)
	}
	return result, nil
}

func (sr *sceneReader) geometry(id string) (*scene.RawGeometry, error) {
	if raw, ok := sr.geometries[id]; ok {
		return raw, nil
	}
	g, ok := sr.rawByID[id]
	if !ok {
		return nil, errors.Errorf("geometry %q not found", id)
	}
	raw, err := convertGeometry(g)
	if err != nil {
		return nil, errors.Wrapf(err, "geometry %q", id)
	}
	sr.geometries[id] = raw
	return raw, nil
}

var primitiveKinds = map[string]scene.PrimitiveKind{
	"triangles":  scene.PRIMITIVE_TRIANGLES,
	"polylist":   scene.PRIMITIVE_POLYLIST,
	"polygons":   scene.PRIMITIVE_POLYGONS,
	"lines":      scene.PRIMITIVE_LINES,
	"linestrips": scene.PRIMITIVE_LINESTRIPS,
	"trifans":    scene.PRIMITIVE_TRIFANS,
	"tristrips":  scene.PRIMITIVE_TRISTRIPS,
}

func convertInputs(inputs []Input) ([]scene.Input, error) {
	result := make([]scene.Input, len(inputs))
	for i, in := range inputs {
		src, err := localRef(in.Source)
		if err != nil {
			return nil, err
		}
		set := 0
		if in.Set != "" {
			if set, err = strconv.Atoi(in.Set); err != nil {
				return nil, errors.Wrapf(err, "input %s set", in.Semantic)
			}
		}
		result[i] = scene.Input{Semantic: in.Semantic, Source: src, Offset: in.Offset, Set: set}
	}
	return result, nil
}

func convertSource(s *Source) (*scene.Source, error) {
	acc := s.TechniqueCommon.Accessor
	if s.FloatArray == nil || acc == nil {
		return nil, errors.Wrapf(ErrUnsupported, "source %q is not a float array with accessor", s.ID)
	}
	ref, err := localRef(acc.Source)
	if err != nil {
		return nil, err
	}
	if ref != s.FloatArray.ID {
		return nil, errors.Wrapf(ErrUnsupported, "source %q accessor reads foreign array %q", s.ID, ref)
	}
	data, err := parseFloats(s.FloatArray.Text)
	if err != nil {
		return nil, errors.Wrapf(err, "source %q", s.ID)
	}
	stride := acc.Stride
	if stride == 0 {
		stride = 1
	}
	return &scene.Source{
		ID:     s.ID,
		Data:   data,
		Offset: acc.Offset,
		Stride: stride,
		Count:  acc.Count,
		Params: len(acc.Params),
	}, nil
}

// checkCount compares the declared count with what the index data holds.
// A ragged index list is left for the geometry builder to report.
func checkCount(p *Primitive, prim *scene.Primitive) error {
	stride := prim.Stride()
	if stride == 0 || len(prim.Indices)%stride != 0 {
		return nil
	}
	tuples := len(prim.Indices) / stride

	var got int
	switch p.Kind {
	case "triangles":
		got = tuples / 3
		if tuples%3 != 0 {
			got = -1
		}
	case "lines":
		got = tuples / 2
		if tuples%2 != 0 {
			got = -1
		}
	case "polylist":
		got = len(prim.VCount)
	default:
		got = len(p.P)
	}
	if got != p.Count {
		return errors.Wrapf(ErrUnsupported, "count %d does not match %d index tuples", p.Count, tuples)
	}
	return nil
}

func convertGeometry(g *Geometry) (*scene.RawGeometry, error) {
	name := g.Name
	if name == "" {
		name = g.ID
	}
	raw := scene.NewRawGeometry(g.ID, name)
	if g.Mesh == nil {
		return nil, errors.Wrap(ErrUnsupported, "geometry is not a mesh")
	}
	for i := range g.Mesh.Sources {
		src, err := convertSource(&g.Mesh.Sources[i])
		if err != nil {
			return nil, err
		}
		raw.AddSource(src)
	}
	for _, v := range g.Mesh.Vertices {
		inputs, err := convertInputs(v.Inputs)
		if err != nil {
			return nil, errors.Wrapf(err, "vertices %q", v.ID)
		}
		raw.Vertices[v.ID] = inputs
	}
	for i, p := range g.Mesh.Primitives {
		inputs, err := convertInputs(p.Inputs)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %d", p.Kind, i)
		}
		prim := scene.Primitive{
			Kind:     primitiveKinds[p.Kind],
			Material: p.Material,
			Count:    p.Count,
			Inputs:   inputs,
		}
		if prim.VCount, err = parseInts(p.VCount); err != nil {
			return nil, errors.Wrapf(err, "%s %d vcount", p.Kind, i)
		}
		for _, text := range p.P {
			indices, err := parseInts(text)
			if err != nil {
				return nil, errors.Wrapf(err, "%s %d", p.Kind, i)
			}
			prim.Indices = append(prim.Indices, indices...)
		}
		if err := checkCount(&p, &prim); err != nil {
			return nil, errors.Wrapf(err, "%s %d", p.Kind, i)
		}
		raw.Primitives = append(raw.Primitives, prim)
	}
	return raw, nil
}
