package vms

import "github.com/pkg/errors"

// Welder deduplicates the vertices of one geometry. Candidates are found by
// hash and confirmed by exact field equality; the first accepted vertex wins.
// A Welder is owned by a single geometry conversion.
type Welder struct {
	format   VertexFormat
	vertices []Vertex
	hashes   []uint32
	buckets  map[uint32][]uint16
}

func NewWelder(format VertexFormat) *Welder {
	return &Welder{
		format:  format,
		buckets: make(map[uint32][]uint16),
	}
}

func (w *Welder) Format() VertexFormat { return w.format }

// Find returns the index of an accepted vertex equal to v.
func (w *Welder) Find(v *Vertex) (uint16, bool) {
	return w.find(v, v.Hash(w.format))
}

func (w *Welder) find(v *Vertex, hash uint32) (uint16, bool) {
	for _, idx := range w.buckets[hash] {
		if w.hashes[idx] == hash && w.vertices[idx].Equal(v, w.format) {
			return idx, true
		}
	}
	return 0, false
}

// Weld returns the index of v, appending it when no equal vertex exists yet.
func (w *Welder) Weld(v Vertex) (uint16, error) {
	v = v.Mask(w.format)
	hash := v.Hash(w.format)
	if idx, ok := w.find(&v, hash); ok {
		return idx, nil
	}
	if len(w.vertices) >= MaxVertices {
		return 0, errors.Wrapf(ErrCapacityExceeded, "vertex count would exceed %d", MaxVertices)
	}
	idx := uint16(len(w.vertices))
	w.vertices = append(w.vertices, v)
	w.hashes = append(w.hashes, hash)
	w.buckets[hash] = append(w.buckets[hash], idx)
	return idx, nil
}

func (w *Welder) Len() int { return len(w.vertices) }

// Vertices returns the accepted vertices in insertion order.
func (w *Welder) Vertices() []Vertex { return w.vertices }
