package vector

import (
	"context"
	"fmt"
	"math"

	"github.com/hyperjump/movierec/internal/models"
)

// FlatIndex is an exact brute-force index. Suitable for catalogs up to a few
// hundred thousand vectors and when FAISS is not available.
type FlatIndex struct {
	dimensions int
	metric     Metric
	n          int
	data       []float32 // n*dimensions, row-major
	norms      []float64
}

// NewFlatIndex builds an exact index over vectors. Vector i gets id i.
func NewFlatIndex(metric Metric, vectors [][]float32) (*FlatIndex, error) {
	dim, err := checkVectors(vectors)
	if err != nil {
		return nil, err
	}
	data := make([]float32, 0, len(vectors)*dim)
	for _, v := range vectors {
		data = append(data, v...)
	}
	return newFlatFromData(metric, dim, len(vectors), data)
}

func newFlatFromData(metric Metric, dim, n int, data []float32) (*FlatIndex, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if len(data) != dim*n {
		return nil, fmt.Errorf("flat index data length %d does not match %d x %d", len(data), n, dim)
	}
	for i, v := range data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("vector %d component %d is not finite: %v", i/dim, i%dim, v)
		}
	}
	f := &FlatIndex{
		dimensions: dim,
		metric:     metric,
		n:          n,
		data:       data,
		norms:      make([]float64, n),
	}
	for i := 0; i < n; i++ {
		f.norms[i] = L2Norm(f.row(i))
	}
	return f, nil
}

func (f *FlatIndex) row(i int) []float32 {
	return f.data[i*f.dimensions : (i+1)*f.dimensions]
}

// Query returns the k nearest vectors by exhaustive scan.
func (f *FlatIndex) Query(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	if err := validateQuery(query, k, f.n, f.dimensions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qNorm := L2Norm(query)
	h := newNeighborHeap(k)
	for i := 0; i < f.n; i++ {
		h.offer(Neighbor{
			ID:       models.ItemID(i),
			Distance: f.metric.Distance(query, f.row(i), qNorm, f.norms[i]),
		})
	}
	return h.sorted(), nil
}

// Size returns the number of indexed vectors.
func (f *FlatIndex) Size() int { return f.n }

// Dimensions returns the vector dimension.
func (f *FlatIndex) Dimensions() int { return f.dimensions }

// Metric returns the distance metric.
func (f *FlatIndex) Metric() Metric { return f.metric }

// Type returns the index type identifier.
func (f *FlatIndex) Type() string { return string(IndexTypeFlat) }

// MarshalBinary serializes the index in the snapshot container format.
func (f *FlatIndex) MarshalBinary() ([]byte, error) {
	enc := newEncoder(kindFlat, f.metric, f.dimensions, f.n)
	enc.floats(f.data)
	return enc.bytes(), nil
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error { return nil }

func decodeFlat(metric Metric, data []byte) (*FlatIndex, error) {
	dec, err := newDecoder(data, kindFlat, metric)
	if err != nil {
		return nil, err
	}
	vecs, err := dec.floats(dec.n * dec.dim)
	if err != nil {
		return nil, err
	}
	if err := dec.done(); err != nil {
		return nil, err
	}
	return newFlatFromData(metric, dec.dim, dec.n, vecs)
}
