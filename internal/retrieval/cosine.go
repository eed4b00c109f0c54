package retrieval

import "math"

// Cosine returns dot(a,b) / (|a|*|b|). It is 0 when either vector has zero
// norm or the lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	aNorm := norm(a)
	if aNorm == 0 {
		return 0
	}
	return dotProduct(a, b, aNorm)
}

// norm returns the L2 norm of a vector. Both operands of a similarity go
// through it so Cosine(a,b) == Cosine(b,a) exactly.
func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

// dotProduct computes cosine similarity given the precomputed norm of a.
func dotProduct(a, b []float32, aNorm float64) float32 {
	if len(a) != len(b) || aNorm == 0 {
		return 0
	}
	bNorm := norm(b)
	if bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (aNorm * bNorm))
}
