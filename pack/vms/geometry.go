package vms

import (
	"github.com/pkg/errors"
)

// Drawcall is a contiguous run of triangles sharing one material.
// Indices inside it are global to the geometry's vertex buffer.
type Drawcall struct {
	StartIndex int
	TriCount   int
	MinVertex  uint16
	MaxVertex  uint16
	Material   string
}

func (dc *Drawcall) IndexCount() int { return dc.TriCount * 3 }

type Geometry struct {
	Name      string
	Format    VertexFormat
	Vertices  []Vertex
	Indices   []uint16
	Drawcalls []Drawcall
}

func (g *Geometry) TriangleCount() int { return len(g.Indices) / 3 }

// Validate checks the capacity limits and drawcall layout the binary format depends on.
func (g *Geometry) Validate() error {
	if err := g.Format.Validate(); err != nil {
		return errors.Wrapf(err, "geometry %q", g.Name)
	}
	if len(g.Vertices) > MaxVertices {
		return errors.Wrapf(ErrCapacityExceeded, "geometry %q has %d vertices, limit %d",
			g.Name, len(g.Vertices), MaxVertices)
	}
	if len(g.Indices)%3 != 0 {
		return errors.Wrapf(ErrFormatMismatch, "geometry %q index count %d is not a multiple of 3",
			g.Name, len(g.Indices))
	}
	if tris := g.TriangleCount(); tris > MaxTriangles {
		return errors.Wrapf(ErrCapacityExceeded, "geometry %q has %d triangles, limit %d",
			g.Name, tris, MaxTriangles)
	}
	if len(g.Drawcalls) > 0xffff {
		return errors.Wrapf(ErrCapacityExceeded, "geometry %q has %d drawcalls", g.Name, len(g.Drawcalls))
	}

	start := 0
	for i := range g.Drawcalls {
		dc := &g.Drawcalls[i]
		if dc.StartIndex != start {
			return errors.Wrapf(ErrNonContiguousDrawcalls,
				"geometry %q drawcall %d (%q) starts at index %d, expected %d",
				g.Name, i, dc.Material, dc.StartIndex, start)
		}
		end := start + dc.IndexCount()
		if end > len(g.Indices) {
			return errors.Wrapf(ErrFormatMismatch, "geometry %q drawcall %d ends at index %d past %d",
				g.Name, i, end, len(g.Indices))
		}
		for _, idx := range g.Indices[start:end] {
			if int(idx) >= len(g.Vertices) {
				return errors.Wrapf(ErrFormatMismatch, "geometry %q index %d out of %d vertices",
					g.Name, idx, len(g.Vertices))
			}
			if idx < dc.MinVertex || idx > dc.MaxVertex {
				return errors.Wrapf(ErrFormatMismatch, "geometry %q drawcall %d index %d outside span [%d,%d]",
					g.Name, i, idx, dc.MinVertex, dc.MaxVertex)
			}
		}
		start = end
	}
	if start != len(g.Indices) {
		return errors.Wrapf(ErrNonContiguousDrawcalls, "geometry %q drawcalls cover %d of %d indices",
			g.Name, start, len(g.Indices))
	}
	return nil
}

// UpdateSpans recomputes MinVertex/MaxVertex of every drawcall from the index buffer.
func (g *Geometry) UpdateSpans() {
	for i := range g.Drawcalls {
		dc := &g.Drawcalls[i]
		end := dc.StartIndex + dc.IndexCount()
		if dc.StartIndex < 0 || end > len(g.Indices) || dc.TriCount == 0 {
			continue
		}
		dc.MinVertex, dc.MaxVertex = 0xffff, 0
		for _, idx := range g.Indices[dc.StartIndex:end] {
			if idx < dc.MinVertex {
				dc.MinVertex = idx
			}
			if idx > dc.MaxVertex {
				dc.MaxVertex = idx
			}
		}
	}
}

// Materials lists distinct drawcall material names in first-use order.
func (g *Geometry) Materials() []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, dc := range g.Drawcalls {
		if _, ok := seen[dc.Material]; !ok {
			seen[dc.Material] = struct{}{}
			result = append(result, dc.Material)
		}
	}
	return result
}
