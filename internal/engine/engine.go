package engine

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"slices"
	"time"

	"tonearm/internal/knn"
	"tonearm/internal/lastfm"
	"tonearm/internal/logging"
	"tonearm/internal/metrics"
	"tonearm/internal/store/featstore"
	"tonearm/internal/vectorize"
)

// Snapshot is one immutable generation of the derived structures. A rebuild
// produces a fresh Snapshot and swaps a single pointer; nothing is mutated
// in place, so a failed rebuild can never expose partial state.
type Snapshot struct {
	Matrix  vectorize.Matrix
	Tfidf   vectorize.Matrix
	Index   *knn.Index
	Records int // feature-log length this snapshot was derived from
}

// Catalog returns the ordered album names. Row i of both matrices is the
// album at Catalog()[i].
func (s *Snapshot) Catalog() []string { return s.Tfidf.Albums }

// Engine owns the feature log, the derived snapshot, and the Last.fm
// client. It is not safe for concurrent use; callers serialize ingest and
// rebuild against reads.
type Engine struct {
	db     *featstore.DB
	client lastfm.Client // nil when offline/unconfigured

	tagsPerAlbum int
	maxCount     int

	snap *Snapshot // nil on cold start
}

// Options tune engine behavior; zero values fall back to defaults matching
// the recommend config defaults.
type Options struct {
	TagsPerAlbum int
	MaxCount     int
}

// snapshotMeta is the small persisted artifact used for staleness checks.
// Albums ties the meta blob to a specific matrix generation so artifacts
// from mixed generations are detectable on load.
type snapshotMeta struct {
	Records int
	Albums  int
}

// Open loads persisted records and artifacts from db. Missing artifacts are
// rebuilt from the feature log; an empty log is a clean cold start with a
// nil snapshot.
func Open(ctx context.Context, db *featstore.DB, client lastfm.Client, opts Options) (*Engine, error) {
	e := &Engine{db: db, client: client, tagsPerAlbum: opts.TagsPerAlbum, maxCount: opts.MaxCount}
	if e.tagsPerAlbum <= 0 {
		e.tagsPerAlbum = 3
	}
	if e.maxCount <= 0 {
		e.maxCount = 20
	}
	n, err := db.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	if n == 0 {
		logging.Info("engine_cold_start", nil)
		return e, nil
	}
	if snap, err := loadSnapshot(ctx, db); err == nil && snap.Records == n {
		e.snap = snap
		logging.Info("engine_warm_start", map[string]any{"albums": len(snap.Catalog()), "records": n})
		return e, nil
	}
	// Artifacts missing or stale relative to the log: re-derive from records.
	if err := e.Rebuild(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Snapshot returns the live snapshot, nil on cold start.
func (e *Engine) Snapshot() *Snapshot { return e.snap }

// Rebuild re-derives the catalog, matrices, and neighbor index from the full
// feature log, persists them, and atomically swaps the live snapshot. On any
// failure the prior snapshot stays live and queryable.
func (e *Engine) Rebuild(ctx context.Context) error {
	start := time.Now()
	records, err := e.db.LoadRecords(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRebuildFailed, err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: empty feature log", ErrRebuildFailed)
	}
	m := vectorize.Build(records)
	tf := vectorize.Tfidf(m)
	snap := &Snapshot{Matrix: m, Tfidf: tf, Index: knn.Build(tf.Rows), Records: len(records)}
	if err := saveSnapshot(ctx, e.db, snap); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	e.snap = snap
	metrics.ObserveRebuildDuration(start)
	logging.Info("rebuild_ok", map[string]any{"albums": len(snap.Catalog()), "tags": len(tf.Tags), "records": len(records)})
	return nil
}

func saveSnapshot(ctx context.Context, db *featstore.DB, snap *Snapshot) error {
	blobs := map[string]any{
		featstore.ArtifactCatalog: snap.Tfidf.Albums,
		featstore.ArtifactMatrix:  snap.Matrix,
		featstore.ArtifactTfidf:   snap.Tfidf,
		featstore.ArtifactMeta:    snapshotMeta{Records: snap.Records, Albums: len(snap.Tfidf.Albums)},
	}
	encoded := make(map[string][]byte, len(blobs))
	for name, v := range blobs {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(v); err != nil {
			return err
		}
		encoded[name] = buf.Bytes()
	}
	// All four blobs land in one transaction.
	return db.SaveArtifacts(ctx, encoded)
}

func loadSnapshot(ctx context.Context, db *featstore.DB) (*Snapshot, error) {
	var m, tf vectorize.Matrix
	var catalog []string
	var meta snapshotMeta
	if err := loadArtifact(ctx, db, featstore.ArtifactMatrix, &m); err != nil {
		return nil, err
	}
	if err := loadArtifact(ctx, db, featstore.ArtifactTfidf, &tf); err != nil {
		return nil, err
	}
	if err := loadArtifact(ctx, db, featstore.ArtifactCatalog, &catalog); err != nil {
		return nil, err
	}
	if err := loadArtifact(ctx, db, featstore.ArtifactMeta, &meta); err != nil {
		return nil, err
	}
	if meta.Albums != len(tf.Albums) || len(tf.Rows) != len(m.Rows) || !slices.Equal(catalog, tf.Albums) {
		return nil, fmt.Errorf("artifacts disagree: meta covers %d albums, tfidf holds %d", meta.Albums, len(tf.Albums))
	}
	return &Snapshot{Matrix: m, Tfidf: tf, Index: knn.Build(tf.Rows), Records: meta.Records}, nil
}

func loadArtifact(ctx context.Context, db *featstore.DB, name string, out any) error {
	data, err := db.LoadArtifact(ctx, name)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}

// IsColdStart reports whether there is no derived data yet.
func (e *Engine) IsColdStart() bool {
	return e.snap == nil || e.snap.Index == nil || e.snap.Index.Len() == 0
}
