package reduce

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Merge records one agglomeration step. A and B are cluster IDs: IDs below N
// are leaves, ID N+t is the cluster created by merge t.
type Merge struct {
	A      int
	B      int
	Height float64
	Size   int
}

// Dendrogram is the full Ward-linkage merge tree over N leaves.
type Dendrogram struct {
	N      int
	Merges []Merge
}

// WardLinkage builds an agglomerative hierarchy over the given pairwise
// distance matrix using Ward's criterion (Lance-Williams update on squared
// distances). Heights are reported on the distance scale and are
// non-decreasing across merges.
func WardLinkage(dist *mat.SymDense) *Dendrogram {
	n := dist.SymmetricDim()
	dgram := &Dendrogram{N: n}
	if n < 2 {
		return dgram
	}

	// Squared inter-cluster distances, indexed by active-cluster slot.
	d2 := make([][]float64, n)
	for i := range d2 {
		d2[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			v := dist.At(i, j)
			d2[i][j] = v * v
		}
	}

	id := make([]int, n)   // slot -> cluster ID
	size := make([]int, n) // slot -> cluster size
	active := make([]bool, n)
	for i := 0; i < n; i++ {
		id[i] = i
		size[i] = 1
		active[i] = true
	}

	for t := 0; t < n-1; t++ {
		// Find the closest active pair.
		bi, bj, best := -1, -1, 0.0
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if bi < 0 || d2[i][j] < best {
					bi, bj, best = i, j, d2[i][j]
				}
			}
		}

		ni, nj := float64(size[bi]), float64(size[bj])
		dgram.Merges = append(dgram.Merges, Merge{
			A:      id[bi],
			B:      id[bj],
			Height: sqrtNonNeg(best),
			Size:   size[bi] + size[bj],
		})

		// Lance-Williams update for Ward: the merged cluster lives in slot bi.
		for k := 0; k < n; k++ {
			if !active[k] || k == bi || k == bj {
				continue
			}
			nk := float64(size[k])
			d2[bi][k] = ((ni+nk)*d2[bi][k] + (nj+nk)*d2[bj][k] - nk*best) / (ni + nj + nk)
			d2[k][bi] = d2[bi][k]
		}

		id[bi] = n + t
		size[bi] += size[bj]
		active[bj] = false
	}

	return dgram
}

func sqrtNonNeg(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}
