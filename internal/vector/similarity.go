package vector

import (
	"fmt"
	"math"
)

// Metric is the distance function an index was built with.
type Metric string

const (
	// MetricL2 is squared Euclidean distance (as reported by FAISS IndexFlatL2).
	MetricL2 Metric = "l2"
	// MetricCosine is 1 - cosine similarity. A zero vector has similarity 0 to everything.
	MetricCosine Metric = "cosine"
	// MetricInnerProduct is the negated inner product, so larger products sort first.
	MetricInnerProduct Metric = "ip"
)

// ParseMetric maps a metric name to a Metric. Empty means l2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricL2, "":
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	case MetricInnerProduct:
		return MetricInnerProduct, nil
	default:
		return "", fmt.Errorf("unknown metric: %s (supported: l2, cosine, ip)", s)
	}
}

// Distance returns the distance between a and b under m. normA and normB are
// the L2 norms of a and b; they are only read for MetricCosine.
func (m Metric) Distance(a, b []float32, normA, normB float64) float64 {
	switch m {
	case MetricCosine:
		if normA == 0 || normB == 0 {
			return 1
		}
		return 1 - InnerProduct(a, b)/(normA*normB)
	case MetricInnerProduct:
		return -InnerProduct(a, b)
	default:
		return SquaredL2(a, b)
	}
}

// InnerProduct returns the inner product of two vectors (for normalized vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// SquaredL2 returns the squared Euclidean distance between a and b.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
