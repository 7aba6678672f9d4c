package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/collada"
	"github.com/mogaika/vmeshconv/config"
	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/pack/vms"
	"github.com/mogaika/vmeshconv/scene"
	"github.com/mogaika/vmeshconv/utils"
)

type ImportOptions struct {
	// Name prefixes every mesh name of the model.
	Name string
	// StripMaterialSuffix enables "-material" removal for documents whose
	// authoring tool starts with one of StripMaterialSuffixTools.
	StripMaterialSuffix      bool
	StripMaterialSuffixTools []string
	LodCutoff                float32
	LodFar                   float32
}

func NewImportOptions(name string, cfg *config.Config) ImportOptions {
	return ImportOptions{
		Name:                     name,
		StripMaterialSuffix:      cfg.Import.StripMaterialSuffix,
		StripMaterialSuffixTools: cfg.Import.StripMaterialSuffixTools,
		LodCutoff:                cfg.Lod.FirstCutoff,
		LodFar:                   cfg.Lod.FarDistance,
	}
}

func (o *ImportOptions) stripSuffix(authoringTool string) bool {
	if !o.StripMaterialSuffix {
		return false
	}
	tool := strings.ToLower(authoringTool)
	for _, prefix := range o.StripMaterialSuffixTools {
		if prefix != "" && strings.HasPrefix(tool, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// Import reads an interchange document and assembles the model it describes.
func Import(r io.Reader, opts ImportOptions) (*Model, error) {
	s, err := collada.ReadScene(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't read document")
	}
	return ImportScene(s, opts)
}

type importer struct {
	opts   ImportOptions
	scene  *scene.Scene
	build  scene.BuildOptions
	lods   *LodAssembler
	cache  map[*scene.RawGeometry]*vms.Geometry
	result *Model
}

func ImportScene(s *scene.Scene, opts ImportOptions) (*Model, error) {
	if opts.Name == "" {
		return nil, errors.New("model name is empty")
	}
	lods, err := AssembleLods(s.Nodes)
	if err != nil {
		return nil, err
	}
	imp := &importer{
		opts:  opts,
		scene: s,
		build: scene.BuildOptions{
			UpAxis:              s.UpAxis,
			StripMaterialSuffix: opts.stripSuffix(s.AuthoringTool),
			Materials:           s.MaterialColors(),
		},
		lods:   lods,
		cache:  make(map[*scene.RawGeometry]*vms.Geometry),
		result: &Model{Name: opts.Name},
	}

	roots := make([]*Part, 0, 1)
	for _, n := range s.Nodes {
		p, err := imp.importNode(n, true)
		if err != nil {
			return nil, err
		}
		if p != nil {
			roots = append(roots, p)
		}
	}
	switch {
	case len(roots) > 1:
		names := make([]string, len(roots))
		for i, p := range roots {
			names[i] = p.Name
		}
		return nil, errors.Wrapf(cmp.ErrHierarchy, "more than one root model: %s", strings.Join(names, ", "))
	case len(roots) == 0:
		return nil, errors.Wrap(cmp.ErrHierarchy, "could not find root model")
	case len(roots[0].Levels) == 0:
		return nil, errors.Wrapf(cmp.ErrHierarchy, "model root %q must have a mesh", roots[0].Name)
	}

	m := imp.result
	m.Root = roots[0]
	m.Root.ObjectName = ROOT_NAME
	used := map[string]bool{strings.ToLower(ROOT_NAME): true}
	for _, child := range m.Root.Children {
		renameDuplicates(child, used)
	}

	if err := imp.finishLevels(); err != nil {
		return nil, err
	}
	if _, err := cmp.BuildTree(ROOT_NAME, m.Constructs()); err != nil {
		return nil, err
	}
	utils.Log.Info("imported model", zap.String("model", m.Name),
		zap.Int("parts", len(m.Parts())), zap.Int("materials", len(m.Materials)))
	return m, nil
}

// importNode converts n and its subtree. LOD alternates return nil.
func (imp *importer) importNode(n *scene.Node, top bool) (*Part, error) {
	level, name := LodNumber(n)
	if level > 0 {
		return nil, nil
	}

	p := &Part{Name: name, ObjectName: name}
	if !top {
		transform := imp.scene.UpAxis.TransformToYUp(n.Transform)
		// parent names are assigned once duplicates are renamed
		p.Construct = ConstructFromNode(n, "", name, transform, imp.scene.UpAxis)
	}

	if level == 0 {
		if group := imp.lods.Group(name); group != nil {
			for _, lodNode := range group.Nodes() {
				g, err := imp.geometry(lodNode)
				if err != nil {
					return nil, errors.Wrapf(err, "node %q", lodNode.Name)
				}
				p.Levels = append(p.Levels, &Level{Geometry: g})
			}
		}
	}

	for _, child := range n.Children {
		cp, err := imp.importNode(child, false)
		if err != nil {
			return nil, err
		}
		if cp != nil {
			p.AddChild(cp)
		}
	}
	return p, nil
}

func (imp *importer) geometry(n *scene.Node) (*vms.Geometry, error) {
	if g, ok := imp.cache[n.Geometry]; ok {
		return g, nil
	}
	g, materials, err := scene.BuildGeometry(n.Geometry, imp.build)
	if err != nil {
		return nil, err
	}
	imp.cache[n.Geometry] = g
	imp.result.addMaterials(materials)
	return g, nil
}

// renameDuplicates gives every part a unique object name ignoring case and
// links constructs to their parent names.
func renameDuplicates(p *Part, used map[string]bool) {
	original := p.Name
	for i := 0; used[strings.ToLower(p.Name)]; i++ {
		p.Name = fmt.Sprintf("%s.%04d", original, i)
	}
	if p.Name != original {
		utils.Log.Warn("renamed duplicate part", zap.String("from", original), zap.String("to", p.Name))
	}
	used[strings.ToLower(p.Name)] = true
	p.ObjectName = p.Name
	p.Construct.Child = p.Name
	p.Construct.Parent = p.Parent.ObjectName
	for _, child := range p.Children {
		renameDuplicates(child, used)
	}
}

func (imp *importer) finishLevels() error {
	return imp.result.Walk(func(p *Part, depth int) error {
		for i, level := range p.Levels {
			level.MeshName = MeshName(imp.opts.Name, p.Name, i, level.Geometry.Format)
			ref, err := vms.NewMeshRef(level.Geometry, level.MeshName)
			if err != nil {
				return errors.Wrapf(err, "part %q lod %d", p.Name, i)
			}
			level.Ref = ref
		}
		p.Switch2 = cmp.LodDistances(len(p.Levels), imp.opts.LodCutoff, imp.opts.LodFar)
		return nil
	})
}
