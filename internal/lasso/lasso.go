// Package lasso implements L1-penalized multivariate linear regression via
// cyclic coordinate descent, with a pathwise cross-validated choice of the
// penalty strength. It is the numerical capability the regression ensemble
// calls through a narrow interface.
package lasso

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDegenerateFold is returned when the row count cannot support the
	// requested cross-validation fold count.
	ErrDegenerateFold = errors.New("lasso: too few rows for requested folds")

	// ErrNoConvergence is returned when coordinate descent exhausts its
	// iteration budget at some point on the penalty path.
	ErrNoConvergence = errors.New("lasso: coordinate descent did not converge")
)

// Config holds solver tuning parameters.
type Config struct {
	NLambda        int     // penalty path length
	LambdaMinRatio float64 // smallest path value relative to lambda_max
	MaxIter        int     // coordinate descent sweep budget per path point
	Tol            float64 // convergence threshold on the largest coefficient change
}

// DefaultConfig returns the parameters used throughout the pipeline.
func DefaultConfig() Config {
	return Config{
		NLambda:        100,
		LambdaMinRatio: 1e-3,
		MaxIter:        10000,
		Tol:            1e-6,
	}
}

// CVSolver fits a multi-task LASSO (one coefficient column per response
// column, a single shared penalty) and selects the penalty by k-fold
// cross-validation with the minimum mean error rule. Predictors are centered
// but never re-standardized; callers supply features on a comparable scale.
// A CVSolver is safe for concurrent use.
type CVSolver struct {
	cfg   Config
	seed  uint64
	calls atomic.Uint64
}

// Option adjusts a CVSolver.
type Option func(*CVSolver)

// WithConfig replaces the full solver configuration.
func WithConfig(cfg Config) Option {
	return func(s *CVSolver) { s.cfg = cfg }
}

// WithSeed fixes the base seed for fold shuffling, making single-worker runs
// reproducible.
func WithSeed(seed uint64) Option {
	return func(s *CVSolver) { s.seed = seed }
}

// New returns a CVSolver with DefaultConfig unless overridden.
func New(opts ...Option) *CVSolver {
	s := &CVSolver{cfg: DefaultConfig(), seed: rand.Uint64()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fit runs the pathwise cross-validated fit. It returns the coefficient
// matrix (features x responses) refit on all rows at the selected penalty,
// the penalty itself, and the fraction of response variance explained.
func (s *CVSolver) Fit(ctx context.Context, X, Y *mat.Dense, folds int) (*mat.Dense, float64, float64, error) {
	n, p := X.Dims()
	ny, k := Y.Dims()
	if n != ny {
		return nil, 0, 0, fmt.Errorf("lasso: X has %d rows, Y has %d", n, ny)
	}
	if folds < 2 {
		return nil, 0, 0, fmt.Errorf("lasso: need at least 2 folds, got %d", folds)
	}
	if n < folds {
		return nil, 0, 0, fmt.Errorf("%w: %d rows, %d folds", ErrDegenerateFold, n, folds)
	}

	prob := newProblem(X, Y)
	path := prob.lambdaPath(s.cfg.NLambda, s.cfg.LambdaMinRatio)

	call := s.calls.Add(1)
	rng := rand.New(rand.NewPCG(s.seed, call))

	cvErr, err := s.crossValidate(ctx, prob, path, folds, rng)
	if err != nil {
		return nil, 0, 0, err
	}
	best := argmin(cvErr)

	// Refit on all rows, warm-starting down the path to the chosen penalty.
	beta := newCoef(p, k)
	for l := 0; l <= best; l++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, 0, err
		}
		if err := prob.descend(beta, path[l], s.cfg.MaxIter, s.cfg.Tol); err != nil {
			return nil, 0, 0, err
		}
	}

	coef := mat.NewDense(p, k, nil)
	for j := 0; j < p; j++ {
		coef.SetRow(j, beta[j])
	}
	return coef, path[best], prob.varianceExplained(), nil
}

func (s *CVSolver) crossValidate(ctx context.Context, full *problem, path []float64, folds int, rng *rand.Rand) ([]float64, error) {
	n := full.n
	perm := rng.Perm(n)
	foldOf := make([]int, n)
	for i, row := range perm {
		foldOf[row] = i % folds
	}

	sse := make([]float64, len(path))
	for f := 0; f < folds; f++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		train, test := splitRows(foldOf, f)
		if len(train) == 0 || len(test) == 0 {
			return nil, fmt.Errorf("%w: empty fold %d", ErrDegenerateFold, f)
		}

		sub := full.subset(train)
		beta := newCoef(full.p, full.k)
		for l, lambda := range path {
			if err := sub.descend(beta, lambda, s.cfg.MaxIter, s.cfg.Tol); err != nil {
				return nil, err
			}
			sse[l] += sub.testError(full, test, beta)
		}
	}

	cells := float64(n * full.k)
	for l := range sse {
		sse[l] /= cells
	}
	return sse, nil
}

func argmin(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] < v[best] {
			best = i
		}
	}
	return best
}

func splitRows(foldOf []int, fold int) (train, test []int) {
	for i, f := range foldOf {
		if f == fold {
			test = append(test, i)
		} else {
			train = append(train, i)
		}
	}
	return train, test
}

func newCoef(p, k int) [][]float64 {
	beta := make([][]float64, p)
	for j := range beta {
		beta[j] = make([]float64, k)
	}
	return beta
}

// problem holds centered column-major working data for one fit.
type problem struct {
	n, p, k int
	x       [][]float64 // p centered predictor columns, each length n
	y       [][]float64 // k centered response columns, each length n
	xmean   []float64
	ymean   []float64
	resid   [][]float64 // k residual columns, kept in sync with the coefficients
	colNorm []float64   // (1/n)||x_j||^2
}

func newProblem(X, Y *mat.Dense) *problem {
	n, p := X.Dims()
	_, k := Y.Dims()
	prob := &problem{n: n, p: p, k: k}

	prob.x = make([][]float64, p)
	prob.xmean = make([]float64, p)
	prob.colNorm = make([]float64, p)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, X)
		m := floats.Sum(col) / float64(n)
		floats.AddConst(-m, col)
		prob.x[j] = col
		prob.xmean[j] = m
		prob.colNorm[j] = floats.Dot(col, col) / float64(n)
	}

	prob.y = make([][]float64, k)
	prob.ymean = make([]float64, k)
	prob.resid = make([][]float64, k)
	for t := 0; t < k; t++ {
		col := mat.Col(nil, t, Y)
		m := floats.Sum(col) / float64(n)
		floats.AddConst(-m, col)
		prob.y[t] = col
		prob.ymean[t] = m
		r := make([]float64, n)
		copy(r, col)
		prob.resid[t] = r
	}
	return prob
}

// subset builds a problem over a row subset, re-centered on those rows.
func (p *problem) subset(rows []int) *problem {
	n := len(rows)
	X := mat.NewDense(n, p.p, nil)
	Y := mat.NewDense(n, p.k, nil)
	for i, src := range rows {
		for j := 0; j < p.p; j++ {
			X.Set(i, j, p.x[j][src]+p.xmean[j])
		}
		for t := 0; t < p.k; t++ {
			Y.Set(i, t, p.y[t][src]+p.ymean[t])
		}
	}
	return newProblem(X, Y)
}

// lambdaPath returns nLambda log-spaced penalties from the smallest value
// that zeroes every coefficient down to ratio times that value.
func (p *problem) lambdaPath(nLambda int, ratio float64) []float64 {
	lambdaMax := 0.0
	u := make([]float64, p.k)
	for j := 0; j < p.p; j++ {
		for t := 0; t < p.k; t++ {
			u[t] = floats.Dot(p.x[j], p.y[t]) / float64(p.n)
		}
		if norm := floats.Norm(u, 2); norm > lambdaMax {
			lambdaMax = norm
		}
	}
	if lambdaMax == 0 {
		lambdaMax = 1
	}
	if nLambda < 2 {
		return []float64{lambdaMax}
	}

	path := make([]float64, nLambda)
	step := math.Log(ratio) / float64(nLambda-1)
	for l := range path {
		path[l] = lambdaMax * math.Exp(step*float64(l))
	}
	return path
}

// descend runs cyclic coordinate descent with block soft-thresholding at one
// penalty, warm-starting from beta and keeping residuals current.
func (p *problem) descend(beta [][]float64, lambda float64, maxIter int, tol float64) error {
	u := make([]float64, p.k)
	for iter := 0; iter < maxIter; iter++ {
		maxDelta := 0.0
		for j := 0; j < p.p; j++ {
			sj := p.colNorm[j]
			if sj == 0 {
				continue
			}

			// u = (1/n) x_j^T R + s_j * beta_j across responses.
			for t := 0; t < p.k; t++ {
				u[t] = floats.Dot(p.x[j], p.resid[t])/float64(p.n) + sj*beta[j][t]
			}

			norm := floats.Norm(u, 2)
			for t := 0; t < p.k; t++ {
				old := beta[j][t]
				var next float64
				if norm > lambda {
					next = u[t] * (1 - lambda/norm) / sj
				}
				if next != old {
					floats.AddScaled(p.resid[t], old-next, p.x[j])
					beta[j][t] = next
					if d := math.Abs(next - old); d > maxDelta {
						maxDelta = d
					}
				}
			}
		}
		if maxDelta < tol {
			return nil
		}
	}
	return fmt.Errorf("%w: lambda=%g after %d sweeps", ErrNoConvergence, lambda, maxIter)
}

// testError sums squared prediction error over the given rows of the full
// problem, using this (training) problem's centering.
func (p *problem) testError(full *problem, rows []int, beta [][]float64) float64 {
	sse := 0.0
	for _, i := range rows {
		for t := 0; t < p.k; t++ {
			pred := p.ymean[t]
			for j := 0; j < p.p; j++ {
				b := beta[j][t]
				if b == 0 {
					continue
				}
				pred += (full.x[j][i] + full.xmean[j] - p.xmean[j]) * b
			}
			got := full.y[t][i] + full.ymean[t]
			d := got - pred
			sse += d * d
		}
	}
	return sse
}

// varianceExplained is 1 - RSS/TSS over the centered responses, pooled
// across response columns, for the current residual state.
func (p *problem) varianceExplained() float64 {
	rss, tss := 0.0, 0.0
	for t := 0; t < p.k; t++ {
		rss += floats.Dot(p.resid[t], p.resid[t])
		tss += floats.Dot(p.y[t], p.y[t])
	}
	if tss == 0 {
		return 0
	}
	return 1 - rss/tss
}
