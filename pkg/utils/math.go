package utils

import "math"

// NormalizeL2 scales the vector in place to unit L2 norm. A zero vector is
// left unchanged. The sum of squares accumulates in float64 so long vectors
// do not lose precision.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= inv
	}
}
