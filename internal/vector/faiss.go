//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"unsafe"

	"github.com/hyperjump/movierec/internal/models"
)

// tieSlack is how many extra candidates are fetched from FAISS so that
// float32 ties at the k boundary can be re-ranked exactly.
const tieSlack = 8

// FAISSIndex wraps a FAISS IndexFlatL2 (l2) or IndexFlatIP (ip, and cosine
// over normalized vectors). Candidates are re-scored with the same float64
// distances as FlatIndex so orderings agree across index types.
type FAISSIndex struct {
	index *C.FaissIndex
	exact *FlatIndex // vectors as stored in FAISS
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// NewFAISSIndex builds a FAISS flat index over vectors. Vector i gets id i.
func NewFAISSIndex(metric Metric, vectors [][]float32) (*FAISSIndex, error) {
	exact, err := NewFlatIndex(metric, vectors)
	if err != nil {
		return nil, err
	}
	if metric == MetricCosine {
		normalizeRows(exact)
	}
	index, err := newFAISSFlat(metric, exact.dimensions)
	if err != nil {
		return nil, err
	}
	ret := C.faiss_Index_add(index, C.idx_t(exact.n), (*C.float)(unsafe.Pointer(&exact.data[0])))
	if ret != 0 {
		C.faiss_Index_free(index)
		return nil, fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, exact: exact}, nil
}

func newFAISSFlat(metric Metric, dim int) (*C.FaissIndex, error) {
	var ret C.int
	var index *C.FaissIndex
	if metric == MetricL2 {
		var flat *C.FaissIndexFlatL2
		ret = C.faiss_IndexFlatL2_new_with(&flat, C.idx_t(dim))
		index = (*C.FaissIndex)(unsafe.Pointer(flat))
	} else {
		var flat *C.FaissIndexFlatIP
		ret = C.faiss_IndexFlatIP_new_with(&flat, C.idx_t(dim))
		index = (*C.FaissIndex)(unsafe.Pointer(flat))
	}
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return index, nil
}

// normalizeRows scales every non-zero row to unit length in place.
func normalizeRows(f *FlatIndex) {
	for i := 0; i < f.n; i++ {
		if f.norms[i] == 0 {
			continue
		}
		row := f.row(i)
		for j, v := range row {
			row[j] = float32(float64(v) / f.norms[i])
		}
		f.norms[i] = L2Norm(row)
	}
}

// Query returns the k nearest vectors.
func (f *FAISSIndex) Query(ctx context.Context, query []float32, k int) ([]Neighbor, error) {
	e := f.exact
	if err := validateQuery(query, k, e.n, e.dimensions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fetch := k + tieSlack
	if fetch > e.n {
		fetch = e.n
	}
	distances := make([]float32, fetch)
	labels := make([]int64, fetch)
	ret := C.faiss_Index_search(
		f.index,
		1, // nq (number of queries)
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(fetch),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	qNorm := L2Norm(query)
	h := newNeighborHeap(k)
	for _, label := range labels {
		if label < 0 || int(label) >= e.n {
			continue
		}
		i := int(label)
		h.offer(Neighbor{
			ID:       models.ItemID(i),
			Distance: e.metric.Distance(query, e.row(i), qNorm, e.norms[i]),
		})
	}
	return h.sorted(), nil
}

// Size returns the number of indexed vectors.
func (f *FAISSIndex) Size() int { return f.exact.n }

// Dimensions returns the vector dimension.
func (f *FAISSIndex) Dimensions() int { return f.exact.dimensions }

// Metric returns the distance metric.
func (f *FAISSIndex) Metric() Metric { return f.exact.metric }

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }

// MarshalBinary wraps the FAISS-native serialization in the snapshot container.
func (f *FAISSIndex) MarshalBinary() ([]byte, error) {
	tmp, err := os.CreateTemp("", "movierec-*.faiss")
	if err != nil {
		return nil, fmt.Errorf("create temp index file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(path)

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return nil, fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read temp index file: %w", err)
	}

	enc := newEncoder(kindFAISS, f.exact.metric, f.exact.dimensions, f.exact.n)
	enc.u32(uint32(len(blob)))
	enc.buf.Write(blob)
	return enc.bytes(), nil
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

func decodeFAISS(metric Metric, data []byte) (*FAISSIndex, error) {
	dec, err := newDecoder(data, kindFAISS, metric)
	if err != nil {
		return nil, err
	}
	size, err := dec.u32()
	if err != nil {
		return nil, err
	}
	if dec.off+int(size) != len(dec.data) {
		return nil, errTruncated
	}
	blob := dec.data[dec.off:]

	tmp, err := os.CreateTemp("", "movierec-*.faiss")
	if err != nil {
		return nil, fmt.Errorf("create temp index file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write temp index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write temp index file: %w", err)
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	var index *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &index); ret != 0 {
		return nil, fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	if int(C.faiss_Index_d(index)) != dec.dim || int(C.faiss_Index_ntotal(index)) != dec.n {
		C.faiss_Index_free(index)
		return nil, fmt.Errorf("FAISS index shape does not match header (%d x %d)", dec.n, dec.dim)
	}

	vecs := make([]float32, dec.n*dec.dim)
	ret := C.faiss_Index_reconstruct_n(index, 0, C.idx_t(dec.n), (*C.float)(unsafe.Pointer(&vecs[0])))
	if ret != 0 {
		C.faiss_Index_free(index)
		return nil, fmt.Errorf("failed to reconstruct FAISS vectors: %s", faissLastError())
	}
	exact, err := newFlatFromData(metric, dec.dim, dec.n, vecs)
	if err != nil {
		C.faiss_Index_free(index)
		return nil, err
	}
	return &FAISSIndex{index: index, exact: exact}, nil
}
