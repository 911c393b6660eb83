// Package vector holds the similarity math used by the search engines.
package vector

import (
	"math"
)

// CosineSimilarity computes the cosine similarity between two vectors of the
// same length. Accumulation happens in float64 so that a vector compared with
// itself scores 1 within float32 rounding. Callers must check dimensions and
// zero magnitude before calling; a zero-magnitude input yields 0.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na2, nb2 float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2))
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
