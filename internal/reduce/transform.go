package reduce

import (
	"math"

	"github.com/proteodep/depinfer/internal/matrix"
)

// missingAffinity is the sentinel for unobserved drug-protein pairs on the
// -log10 scale: a binder so weak it squashes to ~0.
const missingAffinity = -10.0

// TransformAffinity converts raw binding-affinity measurements (for example
// dissociation constants) into bounded scores in (0,1). Each value becomes a
// negative base-10 logarithm, missing values become the weak-affinity
// sentinel, and an arctan squash compresses the dynamic range so strong
// binders sit near 1 and weak or missing binders near 0.
func TransformAffinity(m *matrix.Labeled) *matrix.Labeled {
	out := m.Clone()
	r, c := out.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := out.Data.At(i, j)
			if math.IsNaN(v) {
				v = missingAffinity
			} else {
				v = -math.Log10(v)
			}
			out.Data.Set(i, j, squash(v))
		}
	}
	return out
}

// squash maps the -log10 affinity scale monotonically into (0,1).
func squash(x float64) float64 {
	return (math.Atan((x+2)*3) + math.Pi/2) / math.Pi
}
