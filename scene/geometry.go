package scene

import (
	"github.com/pkg/errors"
)

const (
	SEMANTIC_VERTEX   = "VERTEX"
	SEMANTIC_POSITION = "POSITION"
	SEMANTIC_NORMAL   = "NORMAL"
	SEMANTIC_COLOR    = "COLOR"
	SEMANTIC_TEXCOORD = "TEXCOORD"
)

// Source is a flat float array read through an accessor.
type Source struct {
	ID     string
	Data   []float32
	Offset int
	Stride int
	Count  int
	Params int
}

// validate checks the accessor against the strides a semantic accepts.
// The first stride is also the minimum param count.
func (s *Source) validate(strides ...int) error {
	known := false
	for _, stride := range strides {
		known = known || s.Stride == stride
	}
	if !known || s.Params < strides[0] || s.Params > s.Stride {
		return errors.Wrapf(ErrUnsupported, "source %q accessor has stride %d and %d params, expected stride %v",
			s.ID, s.Stride, s.Params, strides)
	}
	if s.Offset < 0 || s.Count < 0 {
		return errors.Wrapf(ErrUnsupported, "source %q accessor has offset %d and count %d", s.ID, s.Offset, s.Count)
	}
	if s.Count > 0 && s.Offset+s.Stride*(s.Count-1)+s.Params > len(s.Data) {
		return errors.Wrapf(ErrUnsupported, "source %q accessor reads %d elements past %d floats",
			s.ID, s.Count, len(s.Data))
	}
	return nil
}

// Element returns the params of element i.
func (s *Source) Element(i int) ([]float32, error) {
	if i < 0 || i >= s.Count {
		return nil, errors.Wrapf(ErrUnsupported, "source %q element %d out of %d", s.ID, i, s.Count)
	}
	start := s.Offset + i*s.Stride
	return s.Data[start : start+s.Params], nil
}

// Input binds a semantic to a source (or, for VERTEX, to the vertex bundle)
// at a fixed offset inside every interleaved index tuple.
type Input struct {
	Semantic string
	Source   string
	Offset   int
	Set      int
}

type PrimitiveKind int

const (
	PRIMITIVE_TRIANGLES PrimitiveKind = iota
	PRIMITIVE_POLYLIST
	PRIMITIVE_POLYGONS
	PRIMITIVE_LINES
	PRIMITIVE_LINESTRIPS
	PRIMITIVE_TRIFANS
	PRIMITIVE_TRISTRIPS
)

var primitiveKindNames = [...]string{
	PRIMITIVE_TRIANGLES:  "triangles",
	PRIMITIVE_POLYLIST:   "polylist",
	PRIMITIVE_POLYGONS:   "polygons",
	PRIMITIVE_LINES:      "lines",
	PRIMITIVE_LINESTRIPS: "linestrips",
	PRIMITIVE_TRIFANS:    "trifans",
	PRIMITIVE_TRISTRIPS:  "tristrips",
}

func (k PrimitiveKind) String() string {
	if k < 0 || int(k) >= len(primitiveKindNames) {
		return "unknown"
	}
	return primitiveKindNames[k]
}

// Primitive is one group of faces sharing a material. Indices are
// interleaved: every vertex takes Stride() consecutive values.
type Primitive struct {
	Kind     PrimitiveKind
	Material string
	Count    int
	Inputs   []Input
	VCount   []int
	Indices  []int
}

func (p *Primitive) Stride() int {
	stride := 0
	for _, in := range p.Inputs {
		if in.Offset+1 > stride {
			stride = in.Offset + 1
		}
	}
	return stride
}

type RawGeometry struct {
	ID         string
	Name       string
	Sources    map[string]*Source
	Vertices   map[string][]Input
	Primitives []Primitive
}

func NewRawGeometry(id, name string) *RawGeometry {
	return &RawGeometry{
		ID:       id,
		Name:     name,
		Sources:  make(map[string]*Source),
		Vertices: make(map[string][]Input),
	}
}

func (g *RawGeometry) AddSource(s *Source) {
	g.Sources[s.ID] = s
}
