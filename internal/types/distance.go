package types

import (
	"math"

	"smfdb/internal/rc"
)

// L2Distance, CosineDistance, and InnerProduct back the l2_distance,
// cosine_distance, and inner_product builtins. Each requires
// equal-dimension vectors; cosine distance against a zero vector
// returns 1.0 rather than dividing by zero.

func L2Distance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, rc.Errorf(rc.InvalidArgument, "l2_distance: dimension mismatch %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum)), nil
}

func CosineDistance(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, rc.Errorf(rc.InvalidArgument, "cosine_distance: dimension mismatch %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1.0, nil
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float32(1 - cos), nil
}

func InnerProduct(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, rc.Errorf(rc.InvalidArgument, "inner_product: dimension mismatch %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum), nil
}
