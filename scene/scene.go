// Package scene holds the format neutral object graph read from interchange
// documents and turns its raw geometry into welded, drawcall ordered meshes.
package scene

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

var ErrUnsupported = errors.New("unsupported scene content")

type UpAxis int

const (
	Y_UP UpAxis = iota
	Z_UP
	X_UP
)

func (a UpAxis) String() string {
	switch a {
	case Y_UP:
		return "Y_UP"
	case Z_UP:
		return "Z_UP"
	case X_UP:
		return "X_UP"
	}
	return "UNKNOWN_UP"
}

func ParseUpAxis(s string) (UpAxis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "Y_UP":
		return Y_UP, nil
	case "Z_UP":
		return Z_UP, nil
	case "X_UP":
		return X_UP, nil
	}
	return Y_UP, errors.Wrapf(ErrUnsupported, "up axis %q", s)
}

// ToYUp converts a point or direction of a Z up scene to the Y up convention.
func (a UpAxis) ToYUp(v mgl32.Vec3) mgl32.Vec3 {
	if a == Z_UP {
		return mgl32.Vec3{v[0], v[2], -v[1]}
	}
	return v
}

// zUpToYUp is the basis change applied by UpAxis.ToYUp.
var zUpToYUp = mgl32.Mat4{
	1, 0, 0, 0,
	0, 0, -1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// TransformToYUp converts a node transform between Z up and Y up spaces.
func (a UpAxis) TransformToYUp(m mgl32.Mat4) mgl32.Mat4 {
	if a != Z_UP {
		return m
	}
	return zUpToYUp.Mul4(m).Mul4(zUpToYUp.Transpose())
}

// Property is a node extra value: free text plus the floats parsed from it.
type Property struct {
	Text   string
	Values []float32
}

func ParseProperty(text string) Property {
	p := Property{Text: strings.TrimSpace(text)}
	for _, field := range strings.Fields(p.Text) {
		f, err := strconv.ParseFloat(field, 32)
		if err != nil {
			p.Values = nil
			break
		}
		p.Values = append(p.Values, float32(f))
	}
	return p
}

func FloatProperty(f float32) Property {
	return Property{Text: strconv.FormatFloat(float64(f), 'g', -1, 32), Values: []float32{f}}
}

func Vec3Property(v mgl32.Vec3) Property {
	fields := make([]string, 3)
	for i := range v {
		fields[i] = strconv.FormatFloat(float64(v[i]), 'g', -1, 32)
	}
	return Property{Text: strings.Join(fields, " "), Values: v[:]}
}

func (p Property) AsFloat() (float32, bool) {
	if len(p.Values) != 1 {
		return 0, false
	}
	return p.Values[0], true
}

func (p Property) AsVec3() (mgl32.Vec3, bool) {
	if len(p.Values) != 3 {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{p.Values[0], p.Values[1], p.Values[2]}, true
}

type Material struct {
	Name    string
	Diffuse mgl32.Vec4
}

type Node struct {
	ID         string
	Name       string
	Transform  mgl32.Mat4
	Geometry   *RawGeometry
	Properties map[string]Property
	Children   []*Node
	Parent     *Node
}

func NewNode(name string) *Node {
	return &Node{
		ID:         name,
		Name:       name,
		Transform:  mgl32.Ident4(),
		Properties: make(map[string]Property),
	}
}

func (n *Node) AddChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) Property(name string) (Property, bool) {
	p, ok := n.Properties[strings.ToLower(name)]
	return p, ok
}

func (n *Node) SetProperty(name string, p Property) {
	if n.Properties == nil {
		n.Properties = make(map[string]Property)
	}
	n.Properties[strings.ToLower(name)] = p
}

// Scene is a parsed interchange document. Nodes holds the top level nodes.
type Scene struct {
	UpAxis        UpAxis
	AuthoringTool string
	Nodes         []*Node
	Materials     map[string]*Material
}

func NewScene() *Scene {
	return &Scene{Materials: make(map[string]*Material)}
}

// Walk visits every node depth first, parents before children.
func (s *Scene) Walk(fn func(n *Node) error) error {
	var walk func(nodes []*Node) error
	walk = func(nodes []*Node) error {
		for _, n := range nodes {
			if err := fn(n); err != nil {
				return err
			}
			if err := walk(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(s.Nodes)
}

// MaterialColors maps material names to their diffuse colour.
func (s *Scene) MaterialColors() map[string]mgl32.Vec4 {
	result := make(map[string]mgl32.Vec4, len(s.Materials))
	for name, m := range s.Materials {
		result[name] = m.Diffuse
	}
	return result
}
