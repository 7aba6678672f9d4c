package scene

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/utils"
)

const MATERIAL_SUFFIX = "-material"

type BuildOptions struct {
	UpAxis UpAxis
	// StripMaterialSuffix drops a trailing "-material" from material names.
	StripMaterialSuffix bool
	// Materials supplies diffuse colours by material name; unknown names are white.
	Materials map[string]mgl32.Vec4
}

// channels is the resolved attribute layout of one primitive.
type channels struct {
	position *channel
	normal   *channel
	color    *channel
	uv       []*channel
}

type channel struct {
	source *Source
	offset int
}

func (c *channels) format() vms.VertexFormat {
	f := vms.FVF_XYZ
	if c.normal != nil {
		f |= vms.FVF_NORMAL
	}
	if c.color != nil {
		f |= vms.FVF_DIFFUSE
	}
	return f.WithTexCoords(len(c.uv))
}

func (c *channels) add(g *RawGeometry, p *Primitive, in Input, offset int) error {
	if in.Semantic == SEMANTIC_VERTEX {
		bundle, ok := g.Vertices[in.Source]
		if !ok {
			return errors.Wrapf(ErrUnsupported, "%s input references unknown vertices %q", p.Kind, in.Source)
		}
		for _, sub := range bundle {
			if sub.Semantic == SEMANTIC_VERTEX {
				return errors.Wrapf(ErrUnsupported, "vertices %q nest another VERTEX input", in.Source)
			}
			if err := c.add(g, p, sub, offset); err != nil {
				return err
			}
		}
		return nil
	}

	src, ok := g.Sources[in.Source]
	if !ok {
		return errors.Wrapf(ErrUnsupported, "%s input references unknown source %q", in.Semantic, in.Source)
	}
	ch := &channel{source: src, offset: offset}

	switch in.Semantic {
	case SEMANTIC_POSITION:
		if c.position != nil {
			return errors.Wrapf(ErrUnsupported, "second POSITION input %q", in.Source)
		}
		c.position = ch
		return src.validate(3)
	case SEMANTIC_NORMAL:
		if c.normal != nil {
			return errors.Wrapf(ErrUnsupported, "second NORMAL input %q", in.Source)
		}
		c.normal = ch
		return src.validate(3)
	case SEMANTIC_COLOR:
		if c.color != nil {
			return errors.Wrapf(ErrUnsupported, "second COLOR input %q", in.Source)
		}
		c.color = ch
		return src.validate(3, 4)
	case SEMANTIC_TEXCOORD:
		if len(c.uv) == 2 {
			return errors.Wrapf(ErrUnsupported, "third TEXCOORD input %q (set %d)", in.Source, in.Set)
		}
		c.uv = append(c.uv, ch)
		return src.validate(2)
	}
	utils.Log.Debug("ignoring input", zap.String("semantic", in.Semantic), zap.String("source", in.Source))
	return nil
}

func resolveChannels(g *RawGeometry, p *Primitive) (*channels, error) {
	c := &channels{}
	for _, in := range p.Inputs {
		if err := c.add(g, p, in, in.Offset); err != nil {
			return nil, err
		}
	}
	if c.position == nil {
		return nil, errors.Wrapf(ErrUnsupported, "%s has no POSITION input", p.Kind)
	}
	return c, nil
}

// vertexCount checks the primitive is made of whole triangles and returns
// how many index tuples it has.
func vertexCount(p *Primitive, stride int) (int, error) {
	if stride == 0 || len(p.Indices)%stride != 0 {
		return 0, errors.Wrapf(ErrUnsupported, "%s has %d indices, not a multiple of input stride %d",
			p.Kind, len(p.Indices), stride)
	}
	n := len(p.Indices) / stride

	switch p.Kind {
	case PRIMITIVE_TRIANGLES:
	case PRIMITIVE_POLYLIST:
		total := 0
		for i, vc := range p.VCount {
			if vc != 3 {
				return 0, errors.Wrapf(ErrUnsupported, "polylist polygon %d has %d vertices, only triangles are supported", i, vc)
			}
			total += vc
		}
		if total != n {
			return 0, errors.Wrapf(ErrUnsupported, "polylist vcount covers %d vertices, indices hold %d", total, n)
		}
	default:
		return 0, errors.Wrapf(ErrUnsupported, "primitive %s", p.Kind)
	}

	if n%3 != 0 {
		return 0, errors.Wrapf(ErrUnsupported, "%s has %d vertices, not whole triangles", p.Kind, n)
	}
	return n, nil
}

type preparedPrimitive struct {
	prim     *Primitive
	channels *channels
	stride   int
	vertices int
}

// BuildGeometry welds the triangles of raw into a Geometry with one drawcall
// per run of primitives sharing a material, and returns the materials used.
func BuildGeometry(raw *RawGeometry, opts BuildOptions) (*vms.Geometry, []vms.Material, error) {
	g, materials, err := buildGeometry(raw, opts)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "geometry %q", raw.Name)
	}
	return g, materials, nil
}

func buildGeometry(raw *RawGeometry, opts BuildOptions) (*vms.Geometry, []vms.Material, error) {
	if opts.UpAxis != Y_UP && opts.UpAxis != Z_UP {
		return nil, nil, errors.Wrapf(ErrUnsupported, "up axis %v", opts.UpAxis)
	}

	prepared := make([]preparedPrimitive, 0, len(raw.Primitives))
	format := vms.FVF_XYZ
	triangles := 0
	for i := range raw.Primitives {
		p := &raw.Primitives[i]
		ch, err := resolveChannels(raw, p)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "primitive %d", i)
		}
		stride := p.Stride()
		n, err := vertexCount(p, stride)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "primitive %d", i)
		}
		if n == 0 {
			continue
		}
		triangles += n / 3
		if triangles > vms.MaxTriangles {
			return nil, nil, errors.Wrapf(vms.ErrCapacityExceeded, "%d triangles, limit %d", triangles, vms.MaxTriangles)
		}
		format |= ch.format() &^ (vms.FVF_TEX1 | vms.FVF_TEX2)
		if len(ch.uv) > format.TexCoords() {
			format = format.WithTexCoords(len(ch.uv))
		}
		prepared = append(prepared, preparedPrimitive{prim: p, channels: ch, stride: stride, vertices: n})
	}

	g := &vms.Geometry{Name: raw.Name, Format: format}
	welder := vms.NewWelder(format)
	materials := make([]vms.Material, 0)
	seen := make(map[string]struct{})

	for ordinal, pp := range prepared {
		name := materialName(raw.Name, pp.prim.Material, ordinal, opts.StripMaterialSuffix)
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			diffuse, ok := opts.Materials[name]
			if !ok {
				diffuse, ok = opts.Materials[pp.prim.Material]
			}
			if !ok {
				diffuse = mgl32.Vec4{1, 1, 1, 1}
			}
			materials = append(materials, vms.Material{Name: name, Diffuse: diffuse})
		}

		if len(g.Drawcalls) == 0 || g.Drawcalls[len(g.Drawcalls)-1].Material != name {
			g.Drawcalls = append(g.Drawcalls, vms.Drawcall{StartIndex: len(g.Indices), Material: name})
		}
		dc := &g.Drawcalls[len(g.Drawcalls)-1]

		for v := 0; v < pp.vertices; v++ {
			vertex, err := assembleVertex(pp.channels, pp.prim.Indices[v*pp.stride:(v+1)*pp.stride], opts.UpAxis)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "primitive %d vertex %d", ordinal, v)
			}
			idx, err := welder.Weld(vertex)
			if err != nil {
				return nil, nil, err
			}
			g.Indices = append(g.Indices, idx)
		}
		dc.TriCount += pp.vertices / 3
	}

	g.Vertices = welder.Vertices()
	g.UpdateSpans()
	if err := g.Validate(); err != nil {
		return nil, nil, err
	}
	utils.Log.Debug("built geometry",
		zap.String("name", g.Name),
		zap.Stringer("format", g.Format),
		zap.Int("vertices", len(g.Vertices)),
		zap.Int("triangles", g.TriangleCount()),
		zap.Int("drawcalls", len(g.Drawcalls)))
	return g, materials, nil
}

func materialName(geometry, name string, ordinal int, strip bool) string {
	if strip {
		name = strings.TrimSuffix(name, MATERIAL_SUFFIX)
	}
	if name == "" {
		name = fmt.Sprintf("%s_mat%d", geometry, ordinal)
	}
	return name
}

func assembleVertex(c *channels, tuple []int, up UpAxis) (vms.Vertex, error) {
	var v vms.Vertex
	v.Diffuse = 0xffffffff

	pos, err := c.position.source.Element(tuple[c.position.offset])
	if err != nil {
		return v, err
	}
	v.Position = up.ToYUp(mgl32.Vec3{pos[0], pos[1], pos[2]})

	if c.normal != nil {
		n, err := c.normal.source.Element(tuple[c.normal.offset])
		if err != nil {
			return v, err
		}
		v.Normal = up.ToYUp(mgl32.Vec3{n[0], n[1], n[2]})
	}
	if c.color != nil {
		col, err := c.color.source.Element(tuple[c.color.offset])
		if err != nil {
			return v, err
		}
		rgba := mgl32.Vec4{col[0], col[1], col[2], 1}
		if len(col) > 3 {
			rgba[3] = col[3]
		}
		v.Diffuse = vms.PackColor(rgba)
	}
	for i, ch := range c.uv {
		uv, err := ch.source.Element(tuple[ch.offset])
		if err != nil {
			return v, err
		}
		if i == 0 {
			v.UV1 = mgl32.Vec2{uv[0], uv[1]}
		} else {
			v.UV2 = mgl32.Vec2{uv[0], uv[1]}
		}
	}
	return v, nil
}
