package model

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/utils"
)

type decodedMesh struct {
	name string
	data *vms.MeshData
}

type decoder struct {
	rec    *Records
	lookup vms.MaterialLookup
	meshes map[uint32]decodedMesh
	refs   map[string]string // lower case level key to record key
	result *Model
}

// Decode rebuilds a model from its records. Material names and colours come
// from lookup; when lookup is nil the records' own material list is used.
func Decode(rec *Records, lookup vms.MaterialLookup) (*Model, error) {
	if lookup == nil {
		lookup = rec.MaterialLibrary()
	}
	d := &decoder{
		rec:    rec,
		lookup: lookup,
		meshes: make(map[uint32]decodedMesh, len(rec.MeshData)),
		refs:   make(map[string]string, len(rec.MeshRefs)),
		result: &Model{},
	}

	names := make([]string, 0, len(rec.MeshData))
	for name := range rec.MeshData {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		md, err := vms.DecodeMeshData(rec.MeshData[name])
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q", name)
		}
		hash := utils.ModelNameHash(name)
		if prev, ok := d.meshes[hash]; ok {
			return nil, errors.Errorf("meshes %q and %q share name hash 0x%.8x", prev.name, name, hash)
		}
		d.meshes[hash] = decodedMesh{name: name, data: md}
	}
	for key := range rec.MeshRefs {
		d.refs[strings.ToLower(key)] = key
	}

	tree, err := d.tree()
	if err != nil {
		return nil, err
	}
	root, err := d.part(tree.Root)
	if err != nil {
		return nil, err
	}
	d.result.Root = root
	d.nameParts()
	return d.result, nil
}

func (d *decoder) tree() (*cmp.Tree, error) {
	constructs := make([]*cmp.Construct, 0)
	for _, jt := range cmp.JointTypes {
		b, ok := d.rec.Constructs[jt]
		if !ok {
			continue
		}
		list, err := cmp.DecodeConstructs(jt, b)
		if err != nil {
			return nil, err
		}
		constructs = append(constructs, list...)
	}
	if len(constructs) == 0 {
		return cmp.BuildTree(ROOT_NAME, nil)
	}
	return cmp.BuildTree("", constructs)
}

func (d *decoder) part(n *cmp.Node) (*Part, error) {
	p := &Part{Name: n.Name, ObjectName: n.Name, Construct: n.Construct}

	for level := 0; level < MAX_LODS; level++ {
		key, ok := d.refs[strings.ToLower(LevelKey(n.Name, level))]
		if !ok {
			continue
		}
		l, err := d.level(key)
		if err != nil {
			return nil, errors.Wrapf(err, "part %q", n.Name)
		}
		p.Levels = append(p.Levels, l)
	}

	if b, ok := d.rec.Switch2[n.Name]; ok {
		distances, err := cmp.DecodeSwitch2(b)
		if err != nil {
			return nil, errors.Wrapf(err, "part %q", n.Name)
		}
		if len(distances) != len(p.Levels)+1 {
			utils.Log.Warn("switch distances do not match lod count", zap.String("part", n.Name),
				zap.Int("distances", len(distances)), zap.Int("levels", len(p.Levels)))
		}
		p.Switch2 = distances
	}

	for _, child := range n.Children {
		cp, err := d.part(child)
		if err != nil {
			return nil, err
		}
		p.AddChild(cp)
	}
	return p, nil
}

func (d *decoder) level(key string) (*Level, error) {
	ref, err := vms.UnmarshalMeshRef(d.rec.MeshRefs[key])
	if err != nil {
		return nil, errors.Wrapf(err, "reference %q", key)
	}
	mesh, ok := d.meshes[ref.MeshHash]
	if !ok {
		return nil, errors.Wrapf(vms.ErrFormatMismatch, "reference %q points to unknown mesh 0x%.8x", key, ref.MeshHash)
	}
	g, materials, err := mesh.data.Geometry(ref, d.lookup)
	if err != nil {
		return nil, errors.Wrapf(err, "reference %q", key)
	}
	g.Name = mesh.name
	d.result.addMaterials(materials)
	return &Level{MeshName: mesh.name, Geometry: g, Ref: ref}, nil
}

// nameParts recovers the model name and part names from mesh names.
func (d *decoder) nameParts() {
	m := d.result
	parts := m.Parts()
	for _, p := range parts {
		if p == m.Root || len(p.Levels) == 0 {
			continue
		}
		if base, _, _, ok := ParseMeshName(p.Levels[0].MeshName); ok && strings.HasSuffix(base, "-"+p.Name) {
			m.Name = strings.TrimSuffix(base, "-"+p.Name)
			break
		}
	}
	if len(m.Root.Levels) == 0 {
		return
	}
	base, _, _, ok := ParseMeshName(m.Root.Levels[0].MeshName)
	if !ok {
		return
	}
	if m.Name == "" {
		if dash := strings.IndexByte(base, '-'); dash > 0 {
			m.Name = base[:dash]
		}
	}
	if m.Name != "" && strings.HasPrefix(base, m.Name+"-") {
		m.Root.Name = strings.TrimPrefix(base, m.Name+"-")
	}
}
