// Package vector provides prebuilt similarity indexes over a fixed embedding collection.
package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/movierec/internal/models"
)

// SimilarityIndex is a read-only k-nearest-neighbor index. Implementations are
// immutable after Build or Decode and safe for concurrent Query calls.
type SimilarityIndex interface {
	// Query returns at most k neighbors ordered by ascending distance, ties by lower id.
	// The item the query vector came from is not excluded.
	Query(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Size() int
	Dimensions() int
	Metric() Metric
	Type() string
	MarshalBinary() ([]byte, error)
	Close() error
}

// Neighbor is a single query hit. ID is the ordinal of the indexed vector.
type Neighbor struct {
	ID       models.ItemID
	Distance float64
}

// validateQuery checks the shared query preconditions: 1 <= k <= size and matching dimension.
func validateQuery(query []float32, k, size, dimensions int) error {
	if k < 1 || k > size {
		return &models.InvalidArgumentError{
			Field:  "k",
			Value:  k,
			Reason: fmt.Sprintf("must be between 1 and %d", size),
		}
	}
	if len(query) != dimensions {
		return &models.InvalidArgumentError{
			Field:  "query dimension",
			Value:  len(query),
			Reason: fmt.Sprintf("index expects %d", dimensions),
		}
	}
	return nil
}

// sortNeighbors orders by distance, then id.
func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].ID < ns[j].ID
	})
}

// checkVectors verifies that vectors is non-empty and rectangular and returns the dimension.
func checkVectors(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, fmt.Errorf("cannot build index over zero vectors")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("dimensions must be positive")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), dim)
		}
	}
	return dim, nil
}
