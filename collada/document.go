// Package collada reads and writes the subset of COLLADA 1.4 documents the
// converter exchanges: triangle meshes, phong/lambert materials and a node
// hierarchy with matrix transforms and joint properties in extras.
package collada

import (
	"encoding/xml"
	"io"

	"github.com/pkg/errors"
)

const (
	COLLADA_NAMESPACE = "http://www.collada.org/2005/11/COLLADASchema"
	COLLADA_VERSION   = "1.4.1"

	// EXTRA_PROFILE marks node extras holding construct properties.
	EXTRA_PROFILE = "vmeshconv"
)

var ErrUnsupported = errors.New("unsupported COLLADA content")

type Document struct {
	XMLName             xml.Name             `xml:"COLLADA"`
	Xmlns               string               `xml:"xmlns,attr,omitempty"`
	Version             string               `xml:"version,attr"`
	Asset               Asset                `xml:"asset"`
	LibraryEffects      *LibraryEffects      `xml:"library_effects,omitempty"`
	LibraryMaterials    *LibraryMaterials    `xml:"library_materials,omitempty"`
	LibraryGeometries   *LibraryGeometries   `xml:"library_geometries,omitempty"`
	LibraryVisualScenes *LibraryVisualScenes `xml:"library_visual_scenes,omitempty"`
	Scene               *SceneInstance       `xml:"scene,omitempty"`
}

type Asset struct {
	Contributor *Contributor `xml:"contributor,omitempty"`
	Created     string       `xml:"created,omitempty"`
	Modified    string       `xml:"modified,omitempty"`
	Unit        *Unit        `xml:"unit,omitempty"`
	UpAxis      string       `xml:"up_axis,omitempty"`
}

type Contributor struct {
	Author        string `xml:"author,omitempty"`
	AuthoringTool string `xml:"authoring_tool,omitempty"`
}

type Unit struct {
	Name  string  `xml:"name,attr,omitempty"`
	Meter float32 `xml:"meter,attr"`
}

type LibraryEffects struct {
	Effects []Effect `xml:"effect"`
}

type Effect struct {
	ID            string        `xml:"id,attr"`
	Name          string        `xml:"name,attr,omitempty"`
	ProfileCommon ProfileCommon `xml:"profile_COMMON"`
}

type ProfileCommon struct {
	Technique EffectTechnique `xml:"technique"`
}

type EffectTechnique struct {
	Sid      string   `xml:"sid,attr,omitempty"`
	Phong    *Shading `xml:"phong,omitempty"`
	Lambert  *Shading `xml:"lambert,omitempty"`
	Blinn    *Shading `xml:"blinn,omitempty"`
	Constant *Shading `xml:"constant,omitempty"`
}

// Shading returns the first shading model present.
func (et *EffectTechnique) Shading() *Shading {
	for _, s := range []*Shading{et.Phong, et.Lambert, et.Blinn, et.Constant} {
		if s != nil {
			return s
		}
	}
	return nil
}

type Shading struct {
	Emission *ColorOrTexture `xml:"emission,omitempty"`
	Ambient  *ColorOrTexture `xml:"ambient,omitempty"`
	Diffuse  *ColorOrTexture `xml:"diffuse,omitempty"`
	Specular *ColorOrTexture `xml:"specular,omitempty"`
}

type ColorOrTexture struct {
	Color   *Value   `xml:"color,omitempty"`
	Texture *Texture `xml:"texture,omitempty"`
}

type Texture struct {
	Texture  string `xml:"texture,attr"`
	Texcoord string `xml:"texcoord,attr,omitempty"`
}

// Value is an element holding whitespace separated numbers.
type Value struct {
	Sid  string `xml:"sid,attr,omitempty"`
	Text string `xml:",chardata"`
}

type LibraryMaterials struct {
	Materials []Material `xml:"material"`
}

type Material struct {
	ID             string      `xml:"id,attr"`
	Name           string      `xml:"name,attr,omitempty"`
	InstanceEffect InstanceURL `xml:"instance_effect"`
}

type InstanceURL struct {
	URL string `xml:"url,attr"`
}

type LibraryGeometries struct {
	Geometries []Geometry `xml:"geometry"`
}

type Geometry struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr,omitempty"`
	Mesh *Mesh  `xml:"mesh,omitempty"`
}

type Source struct {
	ID              string                `xml:"id,attr"`
	Name            string                `xml:"name,attr,omitempty"`
	FloatArray      *FloatArray           `xml:"float_array,omitempty"`
	TechniqueCommon SourceTechniqueCommon `xml:"technique_common"`
}

type FloatArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Text  string `xml:",chardata"`
}

type SourceTechniqueCommon struct {
	Accessor *Accessor `xml:"accessor,omitempty"`
}

type Accessor struct {
	Source string  `xml:"source,attr"`
	Count  int     `xml:"count,attr"`
	Offset int     `xml:"offset,attr,omitempty"`
	Stride int     `xml:"stride,attr,omitempty"`
	Params []Param `xml:"param"`
}

type Param struct {
	Name string `xml:"name,attr,omitempty"`
	Type string `xml:"type,attr"`
}

type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   int    `xml:"offset,attr"`
	Set      string `xml:"set,attr,omitempty"`
}

// Primitive is any face group element of a mesh; Kind is its element name.
type Primitive struct {
	Kind     string   `xml:"-"`
	Name     string   `xml:"name,attr,omitempty"`
	Material string   `xml:"material,attr,omitempty"`
	Count    int      `xml:"count,attr"`
	Inputs   []Input  `xml:"input"`
	VCount   string   `xml:"vcount,omitempty"`
	P        []string `xml:"p"`
}

var primitiveElements = map[string]bool{
	"triangles":  true,
	"polylist":   true,
	"polygons":   true,
	"lines":      true,
	"linestrips": true,
	"trifans":    true,
	"tristrips":  true,
}

// Mesh keeps its face groups in document order, whatever their element.
type Mesh struct {
	Sources    []Source
	Vertices   []Vertices
	Primitives []Primitive
}

func (m *Mesh) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch name := t.Name.Local; {
			case name == "source":
				var s Source
				if err := d.DecodeElement(&s, &t); err != nil {
					return err
				}
				m.Sources = append(m.Sources, s)
			case name == "vertices":
				var v Vertices
				if err := d.DecodeElement(&v, &t); err != nil {
					return err
				}
				m.Vertices = append(m.Vertices, v)
			case primitiveElements[name]:
				var p Primitive
				if err := d.DecodeElement(&p, &t); err != nil {
					return err
				}
				p.Kind = name
				m.Primitives = append(m.Primitives, p)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (m *Mesh) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for i := range m.Sources {
		if err := e.EncodeElement(&m.Sources[i], xml.StartElement{Name: xml.Name{Local: "source"}}); err != nil {
			return err
		}
	}
	for i := range m.Vertices {
		if err := e.EncodeElement(&m.Vertices[i], xml.StartElement{Name: xml.Name{Local: "vertices"}}); err != nil {
			return err
		}
	}
	for i := range m.Primitives {
		p := &m.Primitives[i]
		if !primitiveElements[p.Kind] {
			return errors.Errorf("unknown primitive element %q", p.Kind)
		}
		if err := e.EncodeElement(p, xml.StartElement{Name: xml.Name{Local: p.Kind}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type LibraryVisualScenes struct {
	VisualScenes []VisualScene `xml:"visual_scene"`
}

type VisualScene struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr,omitempty"`
	Nodes []Node `xml:"node"`
}

type Node struct {
	ID               string             `xml:"id,attr,omitempty"`
	Name             string             `xml:"name,attr,omitempty"`
	Sid              string             `xml:"sid,attr,omitempty"`
	Type             string             `xml:"type,attr,omitempty"`
	Matrix           []Value            `xml:"matrix"`
	Translate        []Value            `xml:"translate"`
	Rotate           []Value            `xml:"rotate"`
	Scale            []Value            `xml:"scale"`
	Lookat           []Value            `xml:"lookat"`
	Skew             []Value            `xml:"skew"`
	InstanceGeometry []InstanceGeometry `xml:"instance_geometry"`
	InstanceNode     []InstanceURL      `xml:"instance_node"`
	Children         []Node             `xml:"node"`
	Extra            []Extra            `xml:"extra"`
}

type InstanceGeometry struct {
	URL          string        `xml:"url,attr"`
	Name         string        `xml:"name,attr,omitempty"`
	BindMaterial *BindMaterial `xml:"bind_material,omitempty"`
}

type BindMaterial struct {
	TechniqueCommon BindTechniqueCommon `xml:"technique_common"`
}

type BindTechniqueCommon struct {
	InstanceMaterials []InstanceMaterial `xml:"instance_material"`
}

type InstanceMaterial struct {
	Symbol string `xml:"symbol,attr"`
	Target string `xml:"target,attr"`
}

type Extra struct {
	Techniques []ExtraTechnique `xml:"technique"`
}

type ExtraTechnique struct {
	Profile    string          `xml:"profile,attr"`
	Properties []ExtraProperty `xml:",any"`
}

type ExtraProperty struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

type SceneInstance struct {
	InstanceVisualScene InstanceURL `xml:"instance_visual_scene"`
}

func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "Can't parse COLLADA document")
	}
	return &doc, nil
}

func (doc *Document) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	e := xml.NewEncoder(w)
	e.Indent("", "  ")
	if err := e.Encode(doc); err != nil {
		return errors.Wrap(err, "Can't write COLLADA document")
	}
	return e.Flush()
}
