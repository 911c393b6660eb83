package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	c := []float32{2, 0}
	d := []float32{-1, 0}

	if sim := CosineSimilarity(a, b); sim != 0 {
		t.Fatalf("CosineSimilarity(a,b) = %v; want 0", sim)
	}
	if sim := CosineSimilarity(a, c); sim != 1 {
		t.Fatalf("CosineSimilarity(a,c) = %v; want 1", sim)
	}
	if sim := CosineSimilarity(a, d); sim != -1 {
		t.Fatalf("CosineSimilarity(a,d) = %v; want -1", sim)
	}
}

func TestCosineSimilaritySelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{0.12, -0.5, 0.33, 0.9},
		{1e-3, 2e-3, -4e-3},
		{123.4, 567.8, -91.2, 0.0001, 42},
	}
	for _, v := range vectors {
		if sim := CosineSimilarity(v, v); math.Abs(sim-1) > 1e-6 {
			t.Errorf("CosineSimilarity(v,v) = %v; want 1 within 1e-6", sim)
		}
	}
}

func TestCosineSimilarityZeroMagnitude(t *testing.T) {
	if sim := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); sim != 0 {
		t.Fatalf("zero vector similarity = %v; want 0", sim)
	}
}

func TestNorm(t *testing.T) {
	if n := Norm([]float32{3, 4}); n != 5 {
		t.Fatalf("Norm(3,4) = %v; want 5", n)
	}
}
