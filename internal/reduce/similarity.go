package reduce

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CosineSimilarity returns the cosine of the angle between two vectors, or 0
// when either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	dot := floats.Dot(a, b)
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (normA * normB)
}

// SimilarityMatrix computes pairwise cosine similarity between the columns of
// m (each protein's affinity profile across drugs).
func SimilarityMatrix(m *mat.Dense) *mat.SymDense {
	_, p := m.Dims()
	sim := mat.NewSymDense(p, nil)
	cols := make([][]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = mat.Col(nil, j, m)
	}
	for i := 0; i < p; i++ {
		sim.SetSym(i, i, 1)
		for j := i + 1; j < p; j++ {
			sim.SetSym(i, j, CosineSimilarity(cols[i], cols[j]))
		}
	}
	return sim
}
