package engine

import (
	"context"

	"tonearm/internal/model"
	"tonearm/internal/util"
)

// ResolutionKind discriminates the resolver outcome.
type ResolutionKind int

const (
	// CacheHit means the query matched an existing catalog entry.
	CacheHit ResolutionKind = iota
	// Candidates means the catalog had no match and Last.fm returned
	// search results to disambiguate.
	Candidates
	// NotFound means Last.fm returned zero results.
	NotFound
	// Unavailable means Last.fm is unconfigured or the lookup failed.
	Unavailable
)

// Resolution is the resolver's sum-type result. Exactly one of Match,
// Candidates, or Reason is meaningful depending on Kind.
type Resolution struct {
	Kind       ResolutionKind
	Match      string
	Candidates []model.Candidate
	Reason     string
}

const maxCandidates = 5

// Resolve maps a free-text album name to a known catalog entry, falling back
// to a Last.fm search for candidates. It is a pure lookup with no side
// effects and tolerates an empty catalog.
//
// Match order: case-insensitive exact match over the catalog first, then
// case-insensitive substring match in catalog order. An empty query is
// NotFound without spending a network call.
func (e *Engine) Resolve(ctx context.Context, query string) Resolution {
	query = util.NormalizeWhitespace(query)
	if query == "" {
		return Resolution{Kind: NotFound}
	}
	var catalog []string
	if e.snap != nil {
		catalog = e.snap.Catalog()
	}
	for _, name := range catalog {
		if util.EqualFold(name, query) {
			return Resolution{Kind: CacheHit, Match: name}
		}
	}
	for _, name := range catalog {
		if util.ContainsFold(name, query) {
			return Resolution{Kind: CacheHit, Match: name}
		}
	}
	if e.client == nil {
		return Resolution{Kind: Unavailable, Reason: "lastfm client not configured"}
	}
	found, err := e.client.SearchAlbums(ctx, query, maxCandidates)
	if err != nil {
		return Resolution{Kind: Unavailable, Reason: err.Error()}
	}
	if len(found) == 0 {
		return Resolution{Kind: NotFound}
	}
	if len(found) > maxCandidates {
		found = found[:maxCandidates]
	}
	return Resolution{Kind: Candidates, Candidates: found}
}
