package vectorize

import (
	"math"
	"sort"

	"tonearm/internal/model"
)

// Matrix is a dense row-major matrix with named rows (albums) and named
// columns (tags). Row order and Albums are always in lock-step; both are
// sorted so rebuilds are deterministic regardless of ingestion order.
// Exported fields keep the type gob-encodable for artifact persistence.
type Matrix struct {
	Albums []string
	Tags   []string
	Rows   [][]float64
}

// RowIndex returns the row for an album name, or false if absent.
func (m Matrix) RowIndex(album string) (int, bool) {
	i := sort.SearchStrings(m.Albums, album)
	if i < len(m.Albums) && m.Albums[i] == album {
		return i, true
	}
	return 0, false
}

// Build pivots the feature log into an album x tag matrix. Duplicate
// (album, tag) pairs are aggregated by mean; absent cells are zero.
func Build(records []model.FeatureRecord) Matrix {
	if len(records) == 0 {
		return Matrix{}
	}
	albumSet := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	for _, r := range records {
		albumSet[r.Album] = struct{}{}
		tagSet[r.Tag] = struct{}{}
	}
	albums := sortedKeys(albumSet)
	tags := sortedKeys(tagSet)
	tagIdx := make(map[string]int, len(tags))
	for i, t := range tags {
		tagIdx[t] = i
	}
	albumIdx := make(map[string]int, len(albums))
	for i, a := range albums {
		albumIdx[a] = i
	}

	sums := make([][]float64, len(albums))
	counts := make([][]int, len(albums))
	for i := range sums {
		sums[i] = make([]float64, len(tags))
		counts[i] = make([]int, len(tags))
	}
	for _, r := range records {
		i, j := albumIdx[r.Album], tagIdx[r.Tag]
		sums[i][j] += r.Weight
		counts[i][j]++
	}
	for i := range sums {
		for j := range sums[i] {
			if counts[i][j] > 1 {
				sums[i][j] /= float64(counts[i][j])
			}
		}
	}
	return Matrix{Albums: albums, Tags: tags, Rows: sums}
}

// Tfidf reweights the matrix column-wise by smoothed inverse document
// frequency and L2-normalizes each row:
//
//	idf(t) = ln((1+n)/(1+df(t))) + 1
//
// where df counts rows with a nonzero weight for tag t. Rows that are all
// zero stay zero. Shape and row/column names are preserved.
func Tfidf(m Matrix) Matrix {
	n := len(m.Rows)
	if n == 0 {
		return Matrix{}
	}
	df := make([]int, len(m.Tags))
	for _, row := range m.Rows {
		for j, v := range row {
			if v != 0 {
				df[j]++
			}
		}
	}
	idf := make([]float64, len(m.Tags))
	for j := range idf {
		idf[j] = math.Log(float64(1+n)/float64(1+df[j])) + 1
	}

	out := Matrix{Albums: m.Albums, Tags: m.Tags, Rows: make([][]float64, n)}
	for i, row := range m.Rows {
		v := make([]float64, len(row))
		var sq float64
		for j, tf := range row {
			v[j] = tf * idf[j]
			sq += v[j] * v[j]
		}
		if sq > 0 {
			norm := math.Sqrt(sq)
			for j := range v {
				v[j] /= norm
			}
		}
		out.Rows[i] = v
	}
	return out
}

// Centroid returns the element-wise mean of the given rows, the user
// profile vector for recommendation queries.
func Centroid(m Matrix, rows []int) []float64 {
	if len(rows) == 0 || len(m.Rows) == 0 {
		return nil
	}
	out := make([]float64, len(m.Tags))
	for _, r := range rows {
		for j, v := range m.Rows[r] {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rows))
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
