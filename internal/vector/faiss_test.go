//go:build faiss && cgo
// +build faiss,cgo

package vector

import (
	"context"
	"math/rand"
	"testing"
)

func TestFAISSIndex_MatchesFlat(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewSource(3))
	vecs := make([][]float32, 200)
	for i := range vecs {
		vecs[i] = make([]float32, 6)
		for j := range vecs[i] {
			vecs[i][j] = r.Float32()*2 - 1
		}
	}
	for _, metric := range []Metric{MetricL2, MetricInnerProduct} {
		t.Run(string(metric), func(t *testing.T) {
			f, err := NewFAISSIndex(metric, vecs)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			flat, _ := NewFlatIndex(metric, vecs)
			for _, q := range vecs[:20] {
				want, _ := flat.Query(ctx, q, 5)
				got, err := f.Query(ctx, q, 5)
				if err != nil {
					t.Fatal(err)
				}
				if !equalIDs(ids(got), ids(want)) {
					t.Errorf("query %v: faiss %v, flat %v", q, ids(got), ids(want))
				}
			}
		})
	}
}

func TestFAISSIndex_MarshalRoundTrip(t *testing.T) {
	vecs := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	f, err := NewFAISSIndex(MetricCosine, vecs)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, err := f.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	got, err := decodeFAISS(MetricCosine, data)
	if err != nil {
		t.Fatalf("decodeFAISS: %v", err)
	}
	defer got.Close()
	if got.Size() != 3 || got.Dimensions() != 3 {
		t.Errorf("decoded shape = %d x %d", got.Size(), got.Dimensions())
	}
	res, err := got.Query(context.Background(), []float32{0, 0, 5}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].ID != 2 {
		t.Errorf("Query after decode: got %v", res)
	}
}

func TestFAISSIndex_Type(t *testing.T) {
	f, err := NewFAISSIndex(MetricL2, [][]float32{{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.Type(); got != "faiss" {
		t.Errorf("Type() = %q, want %q", got, "faiss")
	}
}
