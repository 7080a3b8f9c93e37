package lasso

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// plantedProblem builds Y = X*beta + noise with a known sparse beta.
func plantedProblem(rng *rand.Rand, n, p, k int, noise float64) (*mat.Dense, *mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}

	beta := mat.NewDense(p, k, nil)
	for t := 0; t < k; t++ {
		beta.Set(0, t, 3)
		beta.Set(2, t, -2)
	}

	Y := mat.NewDense(n, k, nil)
	Y.Mul(X, beta)
	for i := 0; i < n; i++ {
		for t := 0; t < k; t++ {
			Y.Set(i, t, Y.At(i, t)+noise*rng.NormFloat64())
		}
	}
	return X, Y, beta
}

func TestFitRecoversSparseSignal(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	n, p, k := 80, 10, 2
	X, Y, _ := plantedProblem(rng, n, p, k, 0.05)

	solver := New(WithSeed(1))
	coef, lambda, varExpl, err := solver.Fit(context.Background(), X, Y, 3)
	require.NoError(t, err)

	rows, cols := coef.Dims()
	assert.Equal(t, p, rows)
	assert.Equal(t, k, cols)
	assert.Greater(t, lambda, 0.0)
	assert.Greater(t, varExpl, 0.95)

	for tcol := 0; tcol < k; tcol++ {
		// Planted features carry the signal with the right sign.
		assert.Greater(t, coef.At(0, tcol), 1.0)
		assert.Less(t, coef.At(2, tcol), -1.0)
		// Noise features stay near zero.
		for j := 0; j < p; j++ {
			if j == 0 || j == 2 {
				continue
			}
			assert.InDelta(t, 0.0, coef.At(j, tcol), 0.5, "feature %d", j)
		}
	}
}

func TestFitSingleResponse(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	X, Y, _ := plantedProblem(rng, 60, 6, 1, 0.1)

	solver := New(WithSeed(3))
	coef, _, varExpl, err := solver.Fit(context.Background(), X, Y, 3)
	require.NoError(t, err)

	r, c := coef.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 1, c)
	assert.Greater(t, varExpl, 0.9)
}

func TestFitRejectsRowMismatch(t *testing.T) {
	X := mat.NewDense(10, 3, nil)
	Y := mat.NewDense(9, 2, nil)
	_, _, _, err := New().Fit(context.Background(), X, Y, 3)
	require.Error(t, err)
}

func TestFitRejectsDegenerateFolds(t *testing.T) {
	X := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	Y := mat.NewDense(2, 1, []float64{1, 2})

	_, _, _, err := New().Fit(context.Background(), X, Y, 3)
	require.ErrorIs(t, err, ErrDegenerateFold)

	_, _, _, err = New().Fit(context.Background(), X, Y, 1)
	require.Error(t, err)
}

func TestFitHonorsContext(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	X, Y, _ := plantedProblem(rng, 40, 5, 2, 0.1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, _, err := New().Fit(ctx, X, Y, 3)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLambdaPathDescends(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 2))
	X, Y, _ := plantedProblem(rng, 30, 4, 2, 0.1)

	prob := newProblem(X, Y)
	path := prob.lambdaPath(50, 1e-3)
	require.Len(t, path, 50)
	for i := 1; i < len(path); i++ {
		assert.Less(t, path[i], path[i-1])
	}
	assert.InDelta(t, path[0]*1e-3, path[len(path)-1], path[0]*1e-6)
}

func TestFitAtLambdaMaxIsAllZero(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	X, Y, _ := plantedProblem(rng, 30, 4, 2, 0.1)

	prob := newProblem(X, Y)
	path := prob.lambdaPath(10, 1e-3)
	beta := newCoef(4, 2)
	require.NoError(t, prob.descend(beta, path[0], 1000, 1e-8))
	for j := 0; j < 4; j++ {
		for tcol := 0; tcol < 2; tcol++ {
			assert.Zero(t, beta[j][tcol])
		}
	}
}

func BenchmarkFit(b *testing.B) {
	rng := rand.New(rand.NewPCG(11, 13))
	X, Y, _ := plantedProblem(rng, 60, 20, 4, 0.1)
	solver := New(WithSeed(1))

	b.ResetTimer()
	for b.Loop() {
		_, _, _, _ = solver.Fit(context.Background(), X, Y, 3)
	}
}
