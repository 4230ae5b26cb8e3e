package knn

import (
	"math"
	"sort"
)

// Neighbor is one k-NN query result. Distance is cosine distance
// (1 - cosine similarity); smaller is more similar.
type Neighbor struct {
	Row      int
	Distance float64
}

// Index is an immutable brute-force cosine nearest-neighbor index. Any
// change to the underlying matrix requires a fresh Build; there is no
// incremental update.
type Index struct {
	rows  [][]float64
	norms []float64
}

// Build precomputes row norms over the given matrix rows. The slice is not
// copied; callers must not mutate it after building.
func Build(rows [][]float64) *Index {
	idx := &Index{rows: rows, norms: make([]float64, len(rows))}
	for i, r := range rows {
		idx.norms[i] = l2(r)
	}
	return idx
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int { return len(ix.rows) }

// Query returns the k nearest rows to vec by cosine distance, ascending,
// ties broken by ascending row index. k greater than the row count is
// clamped to the row count.
func (ix *Index) Query(vec []float64, k int) []Neighbor {
	if k > len(ix.rows) {
		k = len(ix.rows)
	}
	if k <= 0 {
		return nil
	}
	qn := l2(vec)
	out := make([]Neighbor, len(ix.rows))
	for i, r := range ix.rows {
		out[i] = Neighbor{Row: i, Distance: cosineDistance(vec, qn, r, ix.norms[i])}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].Row < out[b].Row
	})
	return out[:k]
}

// cosineDistance treats zero-norm vectors as having zero similarity.
func cosineDistance(a []float64, an float64, b []float64, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 1
	}
	var dot float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	return 1 - dot/(an*bn)
}

func l2(v []float64) float64 {
	var sq float64
	for _, x := range v {
		sq += x * x
	}
	return math.Sqrt(sq)
}
