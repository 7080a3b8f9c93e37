package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/proteodep/depinfer/internal/ensemble"
	"github.com/proteodep/depinfer/internal/matrix"
)

func labeled(t *testing.T, rows, cols []string, data []float64) *matrix.Labeled {
	t.Helper()
	m, err := matrix.New(mat.NewDense(len(rows), len(cols), data), rows, cols)
	require.NoError(t, err)
	return m
}

func repeatResults(lambda []float64, varExpl []float64, coefs ...*mat.Dense) []ensemble.RepeatResult {
	out := make([]ensemble.RepeatResult, len(coefs))
	for i, c := range coefs {
		out[i] = ensemble.RepeatResult{Coef: c, Lambda: lambda[i], VarianceExplained: varExpl[i]}
	}
	return out
}

func TestAggregateMedianAndFrequency(t *testing.T) {
	X := labeled(t, []string{"d1", "d2"}, []string{"p1", "p2"}, []float64{1, 2, 3, 4})
	Y := labeled(t, []string{"d1", "d2"}, []string{"s1"}, []float64{5, 6})

	// Three repeats over a 2x1 coefficient matrix.
	results := repeatResults(
		[]float64{0.3, 0.1, 0.2},
		[]float64{0.8, 0.9, 0.7},
		mat.NewDense(2, 1, []float64{1.0, 0.0}),
		mat.NewDense(2, 1, []float64{3.0, 0.0}),
		mat.NewDense(2, 1, []float64{2.0, 4.0}),
	)

	agg, err := Aggregate(results, X, Y)
	require.NoError(t, err)

	// Median of {1,3,2} is 2; median of {0,0,4} is 0.
	assert.Equal(t, 2.0, agg.Coefficients.Data.At(0, 0))
	assert.Equal(t, 0.0, agg.Coefficients.Data.At(1, 0))

	// p1 selected in 3/3 repeats, p2 in 1/3.
	assert.Equal(t, 1.0, agg.Frequencies.Data.At(0, 0))
	assert.InDelta(t, 1.0/3.0, agg.Frequencies.Data.At(1, 0), 1e-12)

	// Diagnostic lists preserve repeat order.
	assert.Equal(t, []float64{0.3, 0.1, 0.2}, agg.Lambdas)
	assert.Equal(t, []float64{0.8, 0.9, 0.7}, agg.VarianceExplained)

	// Axes carry protein and sample labels.
	assert.Equal(t, []string{"p1", "p2"}, agg.Coefficients.Rows)
	assert.Equal(t, []string{"s1"}, agg.Coefficients.Cols)
	assert.Equal(t, agg.Coefficients.Rows, agg.Frequencies.Rows)

	// Inputs are retained by copy.
	assert.Equal(t, X.Rows, agg.Affinity.Rows)
	agg.Affinity.Data.Set(0, 0, -99)
	assert.Equal(t, 1.0, X.Data.At(0, 0))
}

func TestAggregateFrequencyBounds(t *testing.T) {
	X := labeled(t, []string{"d1"}, []string{"p1"}, []float64{1})
	Y := labeled(t, []string{"d1"}, []string{"s1"}, []float64{2})

	results := repeatResults(
		[]float64{0.1, 0.1, 0.1, 0.1},
		[]float64{0.5, 0.5, 0.5, 0.5},
		mat.NewDense(1, 1, []float64{0}),
		mat.NewDense(1, 1, []float64{1}),
		mat.NewDense(1, 1, []float64{0}),
		mat.NewDense(1, 1, []float64{-1}),
	)

	agg, err := Aggregate(results, X, Y)
	require.NoError(t, err)

	f := agg.Frequencies.Data.At(0, 0)
	assert.GreaterOrEqual(t, f, 0.0)
	assert.LessOrEqual(t, f, 1.0)
	assert.Equal(t, 0.5, f)
}

func TestAggregateRejectsEmpty(t *testing.T) {
	X := labeled(t, []string{"d1"}, []string{"p1"}, []float64{1})
	Y := labeled(t, []string{"d1"}, []string{"s1"}, []float64{2})
	_, err := Aggregate(nil, X, Y)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestAggregateRejectsShapeMismatch(t *testing.T) {
	X := labeled(t, []string{"d1"}, []string{"p1", "p2"}, []float64{1, 2})
	Y := labeled(t, []string{"d1"}, []string{"s1"}, []float64{2})

	results := repeatResults(
		[]float64{0.1, 0.2},
		[]float64{0.5, 0.6},
		mat.NewDense(2, 1, nil),
		mat.NewDense(3, 1, nil),
	)
	_, err := Aggregate(results, X, Y)
	require.ErrorIs(t, err, ErrShapeMismatch)
}
