// Package embedding provides the read-only table of precomputed item embeddings.
package embedding

import (
	"fmt"
	"math"

	"github.com/hyperjump/movierec/internal/models"
)

// Table holds one fixed-dimension vector per item, aligned with catalog ids.
type Table struct {
	dimensions int
	n          int
	data       []float32 // n*dimensions, row-major
}

// NewTable builds a table from vectors; vectors[i] belongs to item i.
func NewTable(vectors [][]float32) (*Table, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding table needs at least one vector")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	t := &Table{dimensions: dim, n: len(vectors), data: make([]float32, 0, dim*len(vectors))}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), dim)
		}
		for j, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, fmt.Errorf("vector %d component %d is not finite: %v", i, j, x)
			}
		}
		t.data = append(t.data, v...)
	}
	return t, nil
}

// VectorFor returns a copy of the vector for id.
func (t *Table) VectorFor(id models.ItemID) ([]float32, error) {
	if id < 0 || int(id) >= t.n {
		return nil, fmt.Errorf("embedding %d: %w", id, models.ErrNotFound)
	}
	out := make([]float32, t.dimensions)
	copy(out, t.data[int(id)*t.dimensions:])
	return out, nil
}

// Vectors returns copies of all vectors in id order.
func (t *Table) Vectors() [][]float32 {
	out := make([][]float32, t.n)
	for i := range out {
		out[i], _ = t.VectorFor(models.ItemID(i))
	}
	return out
}

// Dimensions returns the vector dimension.
func (t *Table) Dimensions() int { return t.dimensions }

// Len returns the number of vectors.
func (t *Table) Len() int { return t.n }
