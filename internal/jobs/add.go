package jobs

import (
	"context"
	"fmt"

	"tonearm/internal/engine"
	"tonearm/internal/model"
)

// Add resolves a free-text album name and, when the catalog has no match,
// ingests one of the Last.fm candidates. pick selects the candidate by
// position (0-based). The returned name is the catalog entry that now covers
// the query.
func Add(ctx context.Context, eng *engine.Engine, query string, pick int) (string, error) {
	res := eng.Resolve(ctx, query)
	switch res.Kind {
	case engine.CacheHit:
		return res.Match, nil
	case engine.NotFound:
		return "", fmt.Errorf("%w: no albums match %q", engine.ErrNoResults, query)
	case engine.Unavailable:
		return "", fmt.Errorf("%w: %s", engine.ErrUnavailable, res.Reason)
	}
	if pick < 0 || pick >= len(res.Candidates) {
		return "", fmt.Errorf("pick %d out of range (have %d candidates)", pick, len(res.Candidates))
	}
	cand := res.Candidates[pick]
	if err := eng.Ingest(ctx, cand); err != nil {
		return "", err
	}
	return cand.Title, nil
}

// FormatCandidates renders a candidate list for the CLI.
func FormatCandidates(cands []model.Candidate) []string {
	out := make([]string, 0, len(cands))
	for i, c := range cands {
		out = append(out, fmt.Sprintf("[%d] %s - %s", i, c.Title, c.Artist))
	}
	return out
}
