package knn

import (
	"math"
	"testing"
)

func TestQueryOrdersByDistance(t *testing.T) {
	// Row 0 is orthogonal to the query, row 1 identical, row 2 at 45 degrees.
	ix := Build([][]float64{
		{0, 1},
		{1, 0},
		{0.5, 0.5},
	})
	got := ix.Query([]float64{1, 0}, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 neighbors, got %d", len(got))
	}
	if got[0].Row != 1 || got[1].Row != 2 || got[2].Row != 0 {
		t.Fatalf("bad order: %+v", got)
	}
	if math.Abs(got[0].Distance) > 1e-12 {
		t.Fatalf("identical direction must have distance 0, got %v", got[0].Distance)
	}
	if math.Abs(got[2].Distance-1) > 1e-12 {
		t.Fatalf("orthogonal must have distance 1, got %v", got[2].Distance)
	}
}

func TestQueryTiesBreakByRowIndex(t *testing.T) {
	// All rows share a direction at different magnitudes, so every
	// distance ties at zero.
	ix := Build([][]float64{
		{2, 0},
		{1, 0},
		{3, 0},
	})
	got := ix.Query([]float64{1, 0}, 3)
	for i, n := range got {
		if n.Row != i {
			t.Fatalf("ties must order by ascending row: %+v", got)
		}
	}
}

func TestQueryClampsK(t *testing.T) {
	ix := Build([][]float64{{1}, {0.5}})
	if got := ix.Query([]float64{1}, 10); len(got) != 2 {
		t.Fatalf("k must clamp to row count, got %d", len(got))
	}
	if got := ix.Query([]float64{1}, 0); got != nil {
		t.Fatalf("k=0 must return nil, got %+v", got)
	}
}

func TestQueryZeroVectors(t *testing.T) {
	ix := Build([][]float64{{0, 0}, {1, 0}})
	got := ix.Query([]float64{0, 0}, 2)
	for _, n := range got {
		if n.Distance != 1 {
			t.Fatalf("zero-norm query must give distance 1 everywhere: %+v", got)
		}
	}
	got = ix.Query([]float64{1, 0}, 2)
	if got[0].Row != 1 || got[1].Distance != 1 {
		t.Fatalf("zero-norm row must rank last: %+v", got)
	}
}
