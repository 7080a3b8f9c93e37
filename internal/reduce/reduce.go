// Package reduce collapses highly correlated protein-affinity columns into
// single representative columns ahead of regression.
package reduce

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/proteodep/depinfer/internal/matrix"
)

var (
	// ErrCutoffRange is returned when the similarity cutoff leaves [0,1].
	ErrCutoffRange = errors.New("reduce: cutoff must be in [0,1]")

	// ErrUnknownKeep is returned when a protected protein ID is not a
	// column of the affinity matrix.
	ErrUnknownKeep = errors.New("reduce: keep references unknown protein")

	// ErrDegenerate is returned when deduplication would collapse a
	// multi-protein matrix to at most one column.
	ErrDegenerate = errors.New("reduce: cutoff collapses matrix to a single column")
)

// Options controls the preprocessing applied to an affinity matrix.
type Options struct {
	// Transform converts raw affinities to bounded (0,1) scores first.
	Transform bool
	// Dedupe merges proteins with near-identical affinity profiles.
	Dedupe bool
	// Keep lists proteins that must survive as their own columns; they are
	// forced to the front of the representative priority order.
	Keep []string
	// Cutoff is the minimum cosine similarity to a group's representative
	// for a protein to be merged into that group.
	Cutoff float64
}

// SimilarityGroup records one merged protein group: the representative whose
// column survives and every member it absorbed (representative included).
type SimilarityGroup struct {
	Representative string   `json:"representative"`
	Members        []string `json:"members"`
}

// Reduction bundles the preprocessed matrix with the grouping that produced
// it. Tree is the Ward dendrogram over protein dissimilarity, kept for
// diagnostics; the grouping itself is decided by the priority-ordered pass in
// Reduce.
type Reduction struct {
	Matrix *matrix.Labeled
	Groups []SimilarityGroup
	Tree   *Dendrogram
}

// Reduce applies the optional affinity transform and the optional
// similarity-based column merge. The input is never mutated.
//
// Deduplication ranks proteins by total affinity (descending), forces Keep
// proteins to the front in caller order, then walks that order greedily: each
// still-unassigned protein becomes a representative and absorbs every
// unassigned non-Keep protein whose similarity to it is at least Cutoff.
func Reduce(affinity *matrix.Labeled, opts Options) (*Reduction, error) {
	if opts.Cutoff < 0 || opts.Cutoff > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrCutoffRange, opts.Cutoff)
	}
	keepIdx := make([]int, 0, len(opts.Keep))
	for _, name := range opts.Keep {
		j := affinity.ColIndex(name)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKeep, name)
		}
		keepIdx = append(keepIdx, j)
	}

	work := affinity.Clone()
	if opts.Transform {
		work = TransformAffinity(work)
	}
	if !opts.Dedupe {
		return &Reduction{Matrix: work}, nil
	}

	_, p := work.Dims()
	sim := SimilarityMatrix(work.Data)
	order := priorityOrder(work.Data, keepIdx)
	groups := assignGroups(sim, order, keepIdx, opts.Cutoff)

	if p > 1 && len(groups) <= 1 {
		return nil, fmt.Errorf("%w: %d proteins at cutoff %v", ErrDegenerate, p, opts.Cutoff)
	}

	reps := make([]int, 0, len(groups))
	for rep := range groups {
		reps = append(reps, rep)
	}
	sort.Ints(reps) // reduced columns keep the original column order

	out := make([]SimilarityGroup, 0, len(reps))
	for _, rep := range reps {
		members := make([]string, 0, len(groups[rep]))
		for _, m := range groups[rep] {
			members = append(members, work.Cols[m])
		}
		out = append(out, SimilarityGroup{Representative: work.Cols[rep], Members: members})
	}

	log.Debug().Int("proteins", p).Int("groups", len(out)).Float64("cutoff", opts.Cutoff).
		Msg("collapsed correlated protein columns")

	return &Reduction{
		Matrix: work.SelectCols(reps),
		Groups: out,
		Tree:   WardLinkage(distanceMatrix(sim)),
	}, nil
}

// priorityOrder ranks protein columns by total affinity strength descending,
// with keep proteins moved to the front in caller order. Ties fall back to
// column order so the ranking is deterministic.
func priorityOrder(data *mat.Dense, keepIdx []int) []int {
	_, p := data.Dims()
	strength := make([]float64, p)
	for j := 0; j < p; j++ {
		strength[j] = floats.Sum(mat.Col(nil, j, data))
	}

	kept := make(map[int]bool, len(keepIdx))
	for _, j := range keepIdx {
		kept[j] = true
	}

	rest := make([]int, 0, p)
	for j := 0; j < p; j++ {
		if !kept[j] {
			rest = append(rest, j)
		}
	}
	sort.SliceStable(rest, func(a, b int) bool {
		return strength[rest[a]] > strength[rest[b]]
	})

	return append(append([]int(nil), keepIdx...), rest...)
}

// assignGroups performs the greedy priority-ordered grouping. The returned
// map goes from representative column index to member column indices (the
// representative itself first).
func assignGroups(sim *mat.SymDense, order, keepIdx []int, cutoff float64) map[int][]int {
	kept := make(map[int]bool, len(keepIdx))
	for _, j := range keepIdx {
		kept[j] = true
	}

	assigned := make(map[int]bool, len(order))
	groups := make(map[int][]int, len(order))
	for _, rep := range order {
		if assigned[rep] {
			continue
		}
		assigned[rep] = true
		members := []int{rep}
		for _, q := range order {
			if assigned[q] || kept[q] {
				continue
			}
			if sim.At(rep, q) >= cutoff {
				assigned[q] = true
				members = append(members, q)
			}
		}
		groups[rep] = members
	}
	return groups
}

// distanceMatrix converts cosine similarity to the 1-sim dissimilarity the
// linkage runs on.
func distanceMatrix(sim *mat.SymDense) *mat.SymDense {
	n := sim.SymmetricDim()
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dist.SetSym(i, j, 1-sim.At(i, j))
		}
	}
	return dist
}
