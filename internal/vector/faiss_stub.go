//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"fmt"
)

var errNoFAISS = fmt.Errorf("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSIndex is a stub that returns an error when FAISS is not available.
// Build with -tags=faiss to enable FAISS support.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not available.
func NewFAISSIndex(metric Metric, vectors [][]float32) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

func decodeFAISS(metric Metric, data []byte) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

// Query is not implemented without FAISS.
func (f *FAISSIndex) Query(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	return nil, errNoFAISS
}

// Size returns 0 without FAISS.
func (f *FAISSIndex) Size() int { return 0 }

// Dimensions returns 0 without FAISS.
func (f *FAISSIndex) Dimensions() int { return 0 }

// Metric returns the zero metric without FAISS.
func (f *FAISSIndex) Metric() Metric { return "" }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }

// MarshalBinary is not implemented without FAISS.
func (f *FAISSIndex) MarshalBinary() ([]byte, error) { return nil, errNoFAISS }

// Close is a no-op without FAISS.
func (f *FAISSIndex) Close() error { return nil }
