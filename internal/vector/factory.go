package vector

import "fmt"

// IndexType represents the type of similarity index stored in a snapshot.
type IndexType string

const (
	// IndexTypeFlat is exact brute-force search. Good for small catalogs (<100k vectors).
	IndexTypeFlat IndexType = "flat"
	// IndexTypeVPTree is an exact vantage-point tree; sublinear queries on low-dimensional data.
	IndexTypeVPTree IndexType = "vptree"
	// IndexTypeFAISS uses a FAISS flat index.
	// Requires FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
)

// ParseIndexType maps a name to an IndexType. Empty means flat.
func ParseIndexType(s string) (IndexType, error) {
	switch IndexType(s) {
	case IndexTypeFlat, "":
		return IndexTypeFlat, nil
	case IndexTypeVPTree:
		return IndexTypeVPTree, nil
	case IndexTypeFAISS:
		return IndexTypeFAISS, nil
	default:
		return "", fmt.Errorf("unknown index type: %s (supported: flat, vptree, faiss)", s)
	}
}

// Build creates an index of the given type over vectors; vector i gets id i.
// FAISS requires building with -tags=faiss and having FAISS library installed.
func Build(indexType string, metric Metric, vectors [][]float32) (SimilarityIndex, error) {
	t, err := ParseIndexType(indexType)
	if err != nil {
		return nil, err
	}
	switch t {
	case IndexTypeVPTree:
		idx, err := NewVPTreeIndex(metric, vectors)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case IndexTypeFAISS:
		idx, err := NewFAISSIndex(metric, vectors)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		idx, err := NewFlatIndex(metric, vectors)
		if err != nil {
			return nil, err
		}
		return idx, nil
	}
}

// Decode restores an index produced by MarshalBinary.
func Decode(indexType string, metric Metric, data []byte) (SimilarityIndex, error) {
	t, err := ParseIndexType(indexType)
	if err != nil {
		return nil, err
	}
	switch t {
	case IndexTypeVPTree:
		idx, err := decodeVPTree(metric, data)
		if err != nil {
			return nil, fmt.Errorf("decode vptree index: %w", err)
		}
		return idx, nil
	case IndexTypeFAISS:
		idx, err := decodeFAISS(metric, data)
		if err != nil {
			return nil, fmt.Errorf("decode faiss index: %w", err)
		}
		return idx, nil
	default:
		idx, err := decodeFlat(metric, data)
		if err != nil {
			return nil, fmt.Errorf("decode flat index: %w", err)
		}
		return idx, nil
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
// This is determined by the build tag -tags=faiss.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(MetricL2, [][]float32{{0}})
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
