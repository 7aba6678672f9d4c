package model

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/vmeshconv/pack/cmp"
	"github.com/mogaika/vmeshconv/scene"
	"github.com/mogaika/vmeshconv/utils"
)

const (
	LOD_SUFFIX = "_lod"
	MAX_LODS   = 10

	// returned by LodNumber for nodes that carry no geometry
	LOD_NO_GEOMETRY = -1
)

// LodNumber reports the level encoded in a "_lodN" name suffix and the base
// name without it. Geometry nodes without the suffix are level 0 of their own name.
func LodNumber(n *scene.Node) (int, string) {
	name := n.Name
	if n.Geometry == nil {
		return LOD_NO_GEOMETRY, name
	}
	suffixLen := len(LOD_SUFFIX) + 1
	if len(name) <= suffixLen {
		return 0, name
	}
	digit := name[len(name)-1]
	if digit < '0' || digit > '9' {
		return 0, name
	}
	if !strings.EqualFold(name[len(name)-suffixLen:len(name)-1], LOD_SUFFIX) {
		return 0, name
	}
	return int(digit - '0'), name[:len(name)-suffixLen]
}

// LodGroup holds the geometry nodes sharing one base name, indexed by level.
type LodGroup struct {
	Name   string
	Levels [MAX_LODS]*scene.Node
}

// Nodes returns the present levels in ascending order; gaps are skipped.
func (g *LodGroup) Nodes() []*scene.Node {
	result := make([]*scene.Node, 0, MAX_LODS)
	for _, n := range g.Levels {
		if n != nil {
			result = append(result, n)
		}
	}
	return result
}

func (g *LodGroup) Len() int { return len(g.Nodes()) }

// LodAssembler collects LOD families over a whole scene. Names match ignoring case.
type LodAssembler struct {
	groups map[string]*LodGroup
	order  []*LodGroup
}

func AssembleLods(nodes []*scene.Node) (*LodAssembler, error) {
	la := &LodAssembler{groups: make(map[string]*LodGroup)}
	for _, n := range nodes {
		if err := la.add(n); err != nil {
			return nil, err
		}
	}
	for _, g := range la.order {
		if g.Levels[0] == nil {
			utils.Log.Warn("lod group without level 0 node is ignored",
				zap.String("group", g.Name), zap.Int("levels", g.Len()))
		}
	}
	return la, nil
}

func (la *LodAssembler) add(n *scene.Node) error {
	if level, base := LodNumber(n); level != LOD_NO_GEOMETRY {
		key := strings.ToLower(base)
		g, ok := la.groups[key]
		if !ok {
			g = &LodGroup{Name: base}
			la.groups[key] = g
			la.order = append(la.order, g)
		}
		if prev := g.Levels[level]; prev != nil {
			return errors.Wrapf(cmp.ErrHierarchy, "nodes %q and %q both define lod %d of %q",
				prev.Name, n.Name, level, g.Name)
		}
		g.Levels[level] = n
	}
	for _, child := range n.Children {
		if err := la.add(child); err != nil {
			return err
		}
	}
	return nil
}

// Group returns the family of base name name, or nil.
func (la *LodAssembler) Group(name string) *LodGroup {
	return la.groups[strings.ToLower(name)]
}

// Groups lists families in scene order of their first member.
func (la *LodAssembler) Groups() []*LodGroup {
	return la.order
}
