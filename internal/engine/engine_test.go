package engine

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"testing"

	"tonearm/internal/model"
	"tonearm/internal/store/featstore"
)

// fakeClient is a scriptable lastfm.Client for tests.
type fakeClient struct {
	searchResults []model.Candidate
	searchErr     error
	searchCalls   int
	albumTags     map[string][]model.Tag
	artistTags    map[string][]model.Tag
	tagErr        error
}

func (f *fakeClient) SearchAlbums(ctx context.Context, query string, limit int) ([]model.Candidate, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.searchResults) {
		return f.searchResults[:limit], nil
	}
	return f.searchResults, nil
}

func (f *fakeClient) AlbumTopTags(ctx context.Context, artist, album string, limit int) ([]model.Tag, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	return f.albumTags[album], nil
}

func (f *fakeClient) ArtistTopTags(ctx context.Context, artist string, limit int) ([]model.Tag, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}
	return f.artistTags[artist], nil
}

func newTestEngine(t *testing.T, client *fakeClient) (*featstore.DB, *Engine) {
	t.Helper()
	db, err := featstore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	var eng *Engine
	if client == nil {
		eng, err = Open(context.Background(), db, nil, Options{})
	} else {
		eng, err = Open(context.Background(), db, client, Options{})
	}
	if err != nil {
		t.Fatal(err)
	}
	return db, eng
}

func TestResolveEmptyCatalogNoClient(t *testing.T) {
	_, eng := newTestEngine(t, nil)
	res := eng.Resolve(context.Background(), "Kind Of Blue")
	if res.Kind != Unavailable {
		t.Fatalf("expected Unavailable on cold catalog without client, got %v", res.Kind)
	}
}

func TestResolveCacheMatching(t *testing.T) {
	client := &fakeClient{albumTags: map[string][]model.Tag{
		"Kind Of Blue": {{Name: "jazz", Count: 100}},
		"Blue Train":   {{Name: "jazz", Count: 100}},
	}}
	_, eng := newTestEngine(t, client)
	ctx := context.Background()
	for _, album := range []string{"Kind Of Blue", "Blue Train"} {
		if err := eng.Ingest(ctx, model.Candidate{Title: album, Artist: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	// Same-case exact hit.
	if res := eng.Resolve(ctx, "Kind Of Blue"); res.Kind != CacheHit || res.Match != "Kind Of Blue" {
		t.Fatalf("exact resolve failed: %+v", res)
	}
	// Case-insensitive exact beats substring: "blue train" is an exact fold
	// match for Blue Train even though "blue" appears in both names.
	if res := eng.Resolve(ctx, "blue train"); res.Kind != CacheHit || res.Match != "Blue Train" {
		t.Fatalf("folded exact resolve failed: %+v", res)
	}
	// Substring hit takes the first catalog entry in catalog order.
	if res := eng.Resolve(ctx, "blue"); res.Kind != CacheHit || res.Match != "Blue Train" {
		t.Fatalf("substring resolve failed: %+v", res)
	}
}

func TestResolveExternalPaths(t *testing.T) {
	ctx := context.Background()

	client := &fakeClient{searchResults: []model.Candidate{
		{Title: "OK Computer", Artist: "Radiohead"},
		{Title: "OK Computer OKNOTOK", Artist: "Radiohead"},
	}}
	_, eng := newTestEngine(t, client)
	if res := eng.Resolve(ctx, "ok computer"); res.Kind != Candidates || len(res.Candidates) != 2 {
		t.Fatalf("expected candidates: %+v", res)
	}

	_, eng = newTestEngine(t, &fakeClient{})
	if res := eng.Resolve(ctx, "nothing"); res.Kind != NotFound {
		t.Fatalf("expected NotFound: %+v", res)
	}

	_, eng = newTestEngine(t, &fakeClient{searchErr: errors.New("offline")})
	res := eng.Resolve(ctx, "anything")
	if res.Kind != Unavailable || res.Reason == "" {
		t.Fatalf("expected Unavailable with reason: %+v", res)
	}
}

func TestResolveEmptyQuerySkipsSearch(t *testing.T) {
	client := &fakeClient{searchResults: []model.Candidate{{Title: "X", Artist: "Y"}}}
	_, eng := newTestEngine(t, client)
	for _, q := range []string{"", "   "} {
		if res := eng.Resolve(context.Background(), q); res.Kind != NotFound {
			t.Fatalf("blank query %q must resolve NotFound, got %+v", q, res)
		}
	}
	if client.searchCalls != 0 {
		t.Fatalf("blank query must not reach the search API, got %d calls", client.searchCalls)
	}
}

func TestIngestGrowsCatalogByOne(t *testing.T) {
	client := &fakeClient{albumTags: map[string][]model.Tag{
		"Kind Of Blue": {{Name: "jazz", Count: 100}, {Name: "cool jazz", Count: 40}},
	}}
	db, eng := newTestEngine(t, client)
	ctx := context.Background()

	if err := eng.Ingest(ctx, model.Candidate{Title: "Kind Of Blue", Artist: "Miles Davis"}); err != nil {
		t.Fatal(err)
	}
	if got := len(eng.Snapshot().Catalog()); got != 1 {
		t.Fatalf("catalog size after first ingest: %d", got)
	}

	// Re-ingesting the same album appends records but adds no catalog entry.
	if err := eng.Ingest(ctx, model.Candidate{Title: "Kind Of Blue", Artist: "Miles Davis"}); err != nil {
		t.Fatal(err)
	}
	if got := len(eng.Snapshot().Catalog()); got != 1 {
		t.Fatalf("catalog must stay at 1 after re-ingest, got %d", got)
	}
	n, err := db.CountRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("append-only log must grow on re-ingest, got %d records", n)
	}
	snap := eng.Snapshot()
	if len(snap.Tfidf.Rows) != len(snap.Matrix.Rows) || len(snap.Matrix.Rows) != len(snap.Catalog()) {
		t.Fatal("matrix row counts out of lock-step with catalog")
	}
}

func TestIngestArtistFallbackAndNormalization(t *testing.T) {
	client := &fakeClient{
		albumTags:  map[string][]model.Tag{},
		artistTags: map[string][]model.Tag{"Aphex Twin": {{Name: "IDM", Count: 80}, {Name: "ambient", Count: 40}}},
	}
	db, eng := newTestEngine(t, client)
	ctx := context.Background()
	if err := eng.Ingest(ctx, model.Candidate{Title: "Drukqs", Artist: "Aphex Twin"}); err != nil {
		t.Fatal(err)
	}
	recs, err := db.LoadRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Tag != "Idm" || recs[0].Weight != 1.0 {
		t.Fatalf("top tag must normalize to weight 1 with title casing: %+v", recs[0])
	}
	if recs[1].Tag != "Ambient" || recs[1].Weight != 0.5 {
		t.Fatalf("second tag must scale by max count: %+v", recs[1])
	}
	evs, err := db.RecentIngestEvents(ctx, 1)
	if err != nil || len(evs) != 1 || evs[0].Source != "artist" {
		t.Fatalf("expected artist-tier ingest event: %+v %v", evs, err)
	}
}

func TestIngestNoTagsFails(t *testing.T) {
	client := &fakeClient{albumTags: map[string][]model.Tag{}, artistTags: map[string][]model.Tag{}}
	db, eng := newTestEngine(t, client)
	ctx := context.Background()
	err := eng.Ingest(ctx, model.Candidate{Title: "Obscure", Artist: "Nobody"})
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if n, _ := db.CountRecords(ctx); n != 0 {
		t.Fatalf("failed ingest must not mutate the log, got %d records", n)
	}
	if !eng.IsColdStart() {
		t.Fatal("engine must stay cold after failed ingest")
	}
}

func TestFailedIngestKeepsPriorSnapshot(t *testing.T) {
	client := &fakeClient{albumTags: map[string][]model.Tag{
		"Kind Of Blue": {{Name: "jazz", Count: 100}},
		"Blue Train":   {{Name: "jazz", Count: 100}},
	}}
	db, eng := newTestEngine(t, client)
	ctx := context.Background()
	if err := eng.Ingest(ctx, model.Candidate{Title: "Kind Of Blue", Artist: "x"}); err != nil {
		t.Fatal(err)
	}
	prior := eng.Snapshot()

	_ = db.Close() // force persistence failure on the next ingest
	err := eng.Ingest(ctx, model.Candidate{Title: "Blue Train", Artist: "x"})
	if err == nil {
		t.Fatal("expected ingest to fail against closed store")
	}
	if eng.Snapshot() != prior {
		t.Fatal("failed ingest must leave the prior snapshot live")
	}
	if got := len(eng.Snapshot().Catalog()); got != 1 {
		t.Fatalf("prior snapshot mutated: %d albums", got)
	}
}

func seedThreeAlbums(t *testing.T, db *featstore.DB, eng *Engine) {
	t.Helper()
	ctx := context.Background()
	err := db.AppendRecords(ctx, []model.FeatureRecord{
		{Album: "A", Tag: "Jazz", Weight: 1.0},
		{Album: "A", Tag: "Piano", Weight: 0.5},
		{Album: "B", Tag: "Jazz", Weight: 0.9},
		{Album: "B", Tag: "Piano", Weight: 0.9},
		{Album: "C", Tag: "Rock", Weight: 1.0},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestRecommendEndToEnd(t *testing.T) {
	db, eng := newTestEngine(t, nil)
	seedThreeAlbums(t, db, eng)

	recs := eng.Recommend([]string{"A"}, 2)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", recs)
	}
	if recs[0].Album != "B" {
		t.Fatalf("B shares weighted features with A and must rank first: %+v", recs)
	}
	if recs[0].Score <= recs[1].Score {
		t.Fatalf("B's score must strictly exceed C's: %+v", recs)
	}
	for _, r := range recs {
		if r.Album == "A" {
			t.Fatal("selection must never appear in output")
		}
	}
}

func TestRecommendEdgeCases(t *testing.T) {
	db, eng := newTestEngine(t, nil)

	// Cold start: no data yet.
	if got := eng.Recommend([]string{"A"}, 3); got != nil {
		t.Fatalf("cold start must return empty, got %+v", got)
	}

	seedThreeAlbums(t, db, eng)

	if got := eng.Recommend([]string{"A"}, 0); got != nil {
		t.Fatalf("count=0 must return empty, got %+v", got)
	}
	if got := eng.Recommend([]string{"unknown"}, 3); got != nil {
		t.Fatalf("all-unknown selection must return empty, got %+v", got)
	}
	// Asking for more than available returns all non-selected, no duplicates.
	got := eng.Recommend([]string{"A"}, 10)
	if len(got) != 2 {
		t.Fatalf("expected every non-selected album once, got %+v", got)
	}
	seenAlbums := map[string]bool{}
	for _, r := range got {
		if seenAlbums[r.Album] {
			t.Fatalf("duplicate recommendation: %+v", got)
		}
		seenAlbums[r.Album] = true
	}
}

func TestRecommendSingleAlbumCatalog(t *testing.T) {
	db, eng := newTestEngine(t, nil)
	ctx := context.Background()
	if err := db.AppendRecords(ctx, []model.FeatureRecord{{Album: "Solo", Tag: "Ambient", Weight: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := eng.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	if got := eng.Recommend([]string{"Solo"}, 3); len(got) != 0 {
		t.Fatalf("only selected album in catalog must yield empty, got %+v", got)
	}
}

func TestWarmStartFromArtifacts(t *testing.T) {
	db, eng := newTestEngine(t, nil)
	seedThreeAlbums(t, db, eng)

	// A second engine over the same store must come up warm without a client.
	eng2, err := Open(context.Background(), db, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if eng2.IsColdStart() {
		t.Fatal("expected warm start from persisted artifacts")
	}
	if got := len(eng2.Snapshot().Catalog()); got != 3 {
		t.Fatalf("warm snapshot catalog size: %d", got)
	}
	recs := eng2.Recommend([]string{"A"}, 2)
	if len(recs) != 2 || recs[0].Album != "B" {
		t.Fatalf("warm engine must recommend identically: %+v", recs)
	}
}

func TestMixedGenerationArtifactsTriggerRebuild(t *testing.T) {
	db, eng := newTestEngine(t, nil)
	seedThreeAlbums(t, db, eng)
	ctx := context.Background()

	// Grow the log, then overwrite only the meta blob so it claims the
	// current log while the matrices are a generation behind.
	if err := db.AppendRecords(ctx, []model.FeatureRecord{{Album: "D", Tag: "Jazz", Weight: 1}}); err != nil {
		t.Fatal(err)
	}
	n, err := db.CountRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshotMeta{Records: n, Albums: 4}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveArtifact(ctx, featstore.ArtifactMeta, buf.Bytes()); err != nil {
		t.Fatal(err)
	}

	eng2, err := Open(ctx, db, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	catalog := eng2.Snapshot().Catalog()
	if len(catalog) != 4 || catalog[3] != "D" {
		t.Fatalf("open must rebuild over the full log, got catalog %v", catalog)
	}
}

func TestStaleCatalogArtifactTriggersRebuild(t *testing.T) {
	db, eng := newTestEngine(t, nil)
	seedThreeAlbums(t, db, eng)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode([]string{"A", "B"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveArtifact(ctx, featstore.ArtifactCatalog, buf.Bytes()); err != nil {
		t.Fatal(err)
	}

	eng2, err := Open(ctx, db, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := len(eng2.Snapshot().Catalog()); got != 3 {
		t.Fatalf("catalog blob out of step with matrices must force rebuild, got %d albums", got)
	}
}

func TestRebuildEmptyLogFails(t *testing.T) {
	_, eng := newTestEngine(t, nil)
	if err := eng.Rebuild(context.Background()); !errors.Is(err, ErrRebuildFailed) {
		t.Fatalf("expected ErrRebuildFailed on empty log, got %v", err)
	}
}
