package engine

import (
	"context"

	"tonearm/internal/logging"
	"tonearm/internal/metrics"
	"tonearm/internal/model"
	"tonearm/internal/vectorize"
)

// Recommend ranks albums near the centroid of the selected albums' TF-IDF
// rows. Selected names that are not in the catalog are silently dropped;
// selected albums never appear in the output. A cold-start engine or an
// empty effective selection yields an empty result, not an error.
func (e *Engine) Recommend(selected []string, count int) []model.Recommendation {
	metrics.RecommendRequests.Inc()
	if e.IsColdStart() {
		return nil
	}
	if count > e.maxCount {
		count = e.maxCount
	}
	if count <= 0 {
		return nil
	}
	snap := e.snap

	chosen := make(map[string]struct{}, len(selected))
	rows := make([]int, 0, len(selected))
	for _, name := range selected {
		chosen[name] = struct{}{}
		if i, ok := snap.Tfidf.RowIndex(name); ok {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	profile := vectorize.Centroid(snap.Tfidf, rows)
	// Over-fetch so filtering out the inputs still leaves count results.
	neighbors := snap.Index.Query(profile, count+len(rows)+5)

	out := make([]model.Recommendation, 0, count)
	for _, n := range neighbors {
		name := snap.Tfidf.Albums[n.Row]
		if _, ok := chosen[name]; ok {
			continue
		}
		out = append(out, model.Recommendation{Album: name, Score: (1 - n.Distance) * 100})
		if len(out) >= count {
			break
		}
	}
	return out
}

// RecommendDetailed enriches plain recommendations with artist name and
// cover art via a fresh album search per result. Enrichment is best-effort:
// a failed lookup keeps the bare recommendation rather than dropping it.
func (e *Engine) RecommendDetailed(ctx context.Context, selected []string, count int) []model.Recommendation {
	recs := e.Recommend(selected, count)
	if e.client == nil {
		return recs
	}
	for i := range recs {
		found, err := e.client.SearchAlbums(ctx, recs[i].Album, 1)
		if err != nil || len(found) == 0 {
			logging.Warn("detail_lookup_miss", map[string]any{"album": recs[i].Album})
			continue
		}
		recs[i].Artist = found[0].Artist
		recs[i].CoverURL = found[0].CoverURL
	}
	return recs
}
