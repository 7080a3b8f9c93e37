// Package pipeline wires preprocessing, the regression ensemble and result
// aggregation into the end-to-end dependency inference run.
package pipeline

import (
	"context"

	"github.com/proteodep/depinfer/internal/aggregate"
	"github.com/proteodep/depinfer/internal/ensemble"
	"github.com/proteodep/depinfer/internal/lasso"
	"github.com/proteodep/depinfer/internal/matrix"
	"github.com/proteodep/depinfer/internal/reduce"
	"github.com/proteodep/depinfer/internal/utils/logger"
)

// Pipeline holds the configuration for one inference run.
type Pipeline struct {
	reduceOpts reduce.Options
	ensemble   ensemble.Config
	solver     ensemble.Solver
}

// Option adjusts a Pipeline.
type Option func(*Pipeline)

// WithTransform toggles the raw-affinity log/arctan transform.
func WithTransform(on bool) Option {
	return func(p *Pipeline) { p.reduceOpts.Transform = on }
}

// WithDedupe toggles correlation-based protein column merging.
func WithDedupe(on bool) Option {
	return func(p *Pipeline) { p.reduceOpts.Dedupe = on }
}

// WithKeep protects proteins from being merged away.
func WithKeep(proteins ...string) Option {
	return func(p *Pipeline) { p.reduceOpts.Keep = proteins }
}

// WithCutoff sets the similarity threshold for merging.
func WithCutoff(cutoff float64) Option {
	return func(p *Pipeline) { p.reduceOpts.Cutoff = cutoff }
}

// WithRepeats sets the number of independent regression fits.
func WithRepeats(repeats int) Option {
	return func(p *Pipeline) { p.ensemble.Repeats = repeats }
}

// WithFolds sets the cross-validation fold count per fit.
func WithFolds(folds int) Option {
	return func(p *Pipeline) { p.ensemble.Folds = folds }
}

// WithWorkers caps parallel fits.
func WithWorkers(workers int) Option {
	return func(p *Pipeline) { p.ensemble.Workers = workers }
}

// WithSolver substitutes the regression capability.
func WithSolver(solver ensemble.Solver) Option {
	return func(p *Pipeline) { p.solver = solver }
}

// New returns a Pipeline with the defaults the original analysis used:
// transform and dedupe on, cutoff 0.8, 100 repeats of 3-fold CV.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		reduceOpts: reduce.Options{Transform: true, Dedupe: true, Cutoff: 0.8},
		ensemble:   ensemble.Config{Repeats: 100, Folds: 3},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.solver == nil {
		p.solver = lasso.New()
	}
	return p
}

// Result bundles the aggregated estimates with the preprocessing record.
type Result struct {
	*aggregate.Result
	Groups []reduce.SimilarityGroup
	Tree   *reduce.Dendrogram
}

// Run executes preprocessing, the regression ensemble and aggregation. The
// caller's matrices are never mutated; validation failures surface before
// any numerical work.
func (p *Pipeline) Run(ctx context.Context, affinity, response *matrix.Labeled) (*Result, error) {
	if err := affinity.CheckAligned(response); err != nil {
		return nil, err
	}

	logger.Sugar().Infow("running dependency inference",
		"transform", p.reduceOpts.Transform,
		"dedupe", p.reduceOpts.Dedupe,
		"cutoff", p.reduceOpts.Cutoff,
		"repeats", p.ensemble.Repeats,
	)

	red, err := reduce.Reduce(affinity, p.reduceOpts)
	if err != nil {
		return nil, err
	}

	fits, err := ensemble.Run(ctx, red.Matrix, response, p.ensemble, p.solver)
	if err != nil {
		return nil, err
	}

	agg, err := aggregate.Aggregate(fits, red.Matrix, response)
	if err != nil {
		return nil, err
	}

	return &Result{Result: agg, Groups: red.Groups, Tree: red.Tree}, nil
}
