package utils

import "math"

// NormalizeL2 scales x in place to unit L2 norm and returns the original norm.
// A zero vector is left unchanged.
func NormalizeL2(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return 0
	}
	norm := math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) / norm)
	}
	return norm
}

// NormalizeRows applies NormalizeL2 to every row and returns how many rows were zero.
func NormalizeRows(rows [][]float32) int {
	zeros := 0
	for _, r := range rows {
		if NormalizeL2(r) == 0 {
			zeros++
		}
	}
	return zeros
}
