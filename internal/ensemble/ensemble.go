// Package ensemble runs the cross-validated sparse regression many times in
// parallel and collects the raw per-repeat fits.
package ensemble

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/proteodep/depinfer/internal/matrix"
	"github.com/proteodep/depinfer/pkg/parallel"
)

// ErrBadRepeats is returned when the repeat count is not positive.
var ErrBadRepeats = errors.New("ensemble: repeats must be at least 1")

// Solver is the external regression capability: given predictors, a
// multivariate response and a fold count, it returns a coefficient matrix
// (one column per response), the selected penalty strength and the fraction
// of response variance explained.
type Solver interface {
	Fit(ctx context.Context, X, Y *mat.Dense, folds int) (coef *mat.Dense, lambda, varExplained float64, err error)
}

// Config controls one ensemble run.
type Config struct {
	Repeats int // independent fits; each gets its own CV fold assignment
	Folds   int // cross-validation folds per fit
	Workers int // parallel fit limit; <=0 means GOMAXPROCS
}

// RepeatResult is the raw output of a single fit. Coef is proteins x samples.
type RepeatResult struct {
	Coef              *mat.Dense
	Lambda            float64
	VarianceExplained float64
}

// Run fits the solver cfg.Repeats times over the same X and Y. Repeats are
// independent and share no mutable state; results are written into
// repeat-index order regardless of completion order. Any repeat failure
// fails the whole run.
func Run(ctx context.Context, X, Y *matrix.Labeled, cfg Config, solver Solver) ([]RepeatResult, error) {
	if cfg.Repeats < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBadRepeats, cfg.Repeats)
	}
	if err := X.CheckAligned(Y); err != nil {
		return nil, err
	}
	if err := X.CheckFinite(); err != nil {
		return nil, fmt.Errorf("affinity matrix: %w", err)
	}
	if err := Y.CheckFinite(); err != nil {
		return nil, fmt.Errorf("response matrix: %w", err)
	}

	folds := cfg.Folds
	if folds == 0 {
		folds = 3
	}

	nDrugs, nProteins := X.Dims()
	_, nSamples := Y.Dims()
	log.Info().Int("repeats", cfg.Repeats).Int("folds", folds).
		Int("drugs", nDrugs).Int("proteins", nProteins).Int("samples", nSamples).
		Msg("starting regression ensemble")

	results := make([]RepeatResult, cfg.Repeats)
	pool := parallel.NewPool(cfg.Workers)
	err := pool.Map(ctx, cfg.Repeats, func(ctx context.Context, i int) error {
		coef, lambda, varExpl, err := solver.Fit(ctx, X.Data, Y.Data, folds)
		if err != nil {
			return fmt.Errorf("repeat %d: %w", i, err)
		}
		results[i] = RepeatResult{Coef: coef, Lambda: lambda, VarianceExplained: varExpl}
		log.Debug().Int("repeat", i).Float64("lambda", lambda).
			Float64("varianceExplained", varExpl).Msg("repeat finished")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
