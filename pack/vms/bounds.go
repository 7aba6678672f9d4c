package vms

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Bounds struct {
	Min    mgl32.Vec3
	Max    mgl32.Vec3
	Center mgl32.Vec3
	Radius float32
}

// Bounds computes the axis aligned box of all positions, the mean position as
// center and the larger of the center-to-corner distances as radius.
//
// The radius is not a minimal enclosing sphere and may be smaller than the
// distance to some vertices. Runtime assets depend on this exact value.
func (g *Geometry) Bounds() Bounds {
	var b Bounds
	if len(g.Vertices) == 0 {
		return b
	}

	b.Min = g.Vertices[0].Position
	b.Max = g.Vertices[0].Position
	var sum [3]float64
	for i := range g.Vertices {
		p := g.Vertices[i].Position
		for axis := 0; axis < 3; axis++ {
			b.Min[axis] = math32.Min(b.Min[axis], p[axis])
			b.Max[axis] = math32.Max(b.Max[axis], p[axis])
			sum[axis] += float64(p[axis])
		}
	}
	n := float64(len(g.Vertices))
	b.Center = mgl32.Vec3{float32(sum[0] / n), float32(sum[1] / n), float32(sum[2] / n)}
	b.Radius = math32.Max(distance(b.Center, b.Min), distance(b.Center, b.Max))
	return b
}

func distance(a, b mgl32.Vec3) float32 {
	d := a.Sub(b)
	return math32.Sqrt(d.Dot(d))
}
