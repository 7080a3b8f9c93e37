// Package aggregate turns the raw per-repeat regression fits into stabilized
// consensus estimates.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/proteodep/depinfer/internal/ensemble"
	"github.com/proteodep/depinfer/internal/matrix"
)

var (
	// ErrEmpty is returned when there are no repeat results to aggregate.
	ErrEmpty = errors.New("aggregate: no repeat results")

	// ErrShapeMismatch is returned when repeat coefficient matrices do not
	// share dimensions, which would make element-wise aggregation
	// meaningless.
	ErrShapeMismatch = errors.New("aggregate: repeat coefficient shapes differ")
)

// Result is the final bundle returned to the caller.
type Result struct {
	// Coefficients holds the per-entry median coefficient across repeats
	// (proteins x samples). The median is used over the mean so a repeat
	// landing on an unstable regularization path cannot drag the estimate.
	Coefficients *matrix.Labeled

	// Frequencies holds, per entry, the fraction of repeats in which the
	// coefficient was non-zero.
	Frequencies *matrix.Labeled

	// Lambdas and VarianceExplained are index-aligned with the requested
	// repeats.
	Lambdas           []float64
	VarianceExplained []float64

	// Affinity and Response retain the matrices the fits actually used.
	Affinity *matrix.Labeled
	Response *matrix.Labeled
}

// Aggregate computes the consensus coefficient matrix, selection frequencies
// and per-repeat diagnostic lists from a complete set of repeat results.
func Aggregate(results []ensemble.RepeatResult, X, Y *matrix.Labeled) (*Result, error) {
	if len(results) == 0 {
		return nil, ErrEmpty
	}

	p, k := results[0].Coef.Dims()
	for i, res := range results {
		if ri, ci := res.Coef.Dims(); ri != p || ci != k {
			return nil, fmt.Errorf("%w: repeat %d is %dx%d, want %dx%d", ErrShapeMismatch, i, ri, ci, p, k)
		}
	}

	nRep := float64(len(results))
	coef := mat.NewDense(p, k, nil)
	freq := mat.NewDense(p, k, nil)
	values := make([]float64, len(results))

	for i := 0; i < p; i++ {
		for j := 0; j < k; j++ {
			nonZero := 0
			for r, res := range results {
				v := res.Coef.At(i, j)
				values[r] = v
				if v != 0 {
					nonZero++
				}
			}
			med, err := stats.Median(values)
			if err != nil {
				return nil, fmt.Errorf("aggregate: median at (%d,%d): %w", i, j, err)
			}
			coef.Set(i, j, med)
			freq.Set(i, j, float64(nonZero)/nRep)
		}
	}

	lambdas := make([]float64, len(results))
	varExpl := make([]float64, len(results))
	for r, res := range results {
		lambdas[r] = res.Lambda
		varExpl[r] = res.VarianceExplained
	}

	proteins := append([]string(nil), X.Cols...)
	samples := append([]string(nil), Y.Cols...)
	coefMat, err := matrix.New(coef, proteins, samples)
	if err != nil {
		return nil, err
	}
	freqMat, err := matrix.New(freq, append([]string(nil), proteins...), append([]string(nil), samples...))
	if err != nil {
		return nil, err
	}

	return &Result{
		Coefficients:      coefMat,
		Frequencies:       freqMat,
		Lambdas:           lambdas,
		VarianceExplained: varExpl,
		Affinity:          X.Clone(),
		Response:          Y.Clone(),
	}, nil
}
