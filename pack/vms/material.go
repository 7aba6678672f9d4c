package vms

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/vmeshconv/utils"
)

type Material struct {
	Name    string
	Diffuse mgl32.Vec4
}

// MaterialLookup resolves material name hashes found in sub-mesh headers.
type MaterialLookup interface {
	FindMaterial(hash uint32) (Material, bool)
}

// MaterialLibrary is a MaterialLookup keyed by name hash.
type MaterialLibrary map[uint32]Material

func (ml MaterialLibrary) Add(m Material) {
	ml[utils.ModelNameHash(m.Name)] = m
}

func (ml MaterialLibrary) FindMaterial(hash uint32) (Material, bool) {
	m, ok := ml[hash]
	return m, ok
}

// ResolveMaterial never fails: unknown hashes get a placeholder name and white diffuse.
func ResolveMaterial(lookup MaterialLookup, hash uint32) Material {
	if lookup != nil {
		if m, ok := lookup.FindMaterial(hash); ok {
			return m
		}
	}
	return Material{
		Name:    fmt.Sprintf("material_0x%.8X", hash),
		Diffuse: mgl32.Vec4{1, 1, 1, 1},
	}
}
