package featstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"tonearm/internal/model"
)

// Artifact blob names for the derived snapshot.
const (
	ArtifactCatalog = "catalog"
	ArtifactMatrix  = "matrix"
	ArtifactTfidf   = "tfidf"
	ArtifactMeta    = "meta"
)

// ErrNoArtifact is returned when a named artifact has never been saved.
var ErrNoArtifact = errors.New("artifact not found")

// DB wraps the SQLite database holding the append-only feature log and the
// persisted derived artifacts.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single connection keeps :memory: databases coherent and suits the
	// engine's serialized access pattern.
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS feature_records (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  album TEXT NOT NULL,
	  tag TEXT NOT NULL,
	  weight REAL NOT NULL,
	  added_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fr_album ON feature_records(album);
	CREATE TABLE IF NOT EXISTS artifacts (
	  name TEXT PRIMARY KEY,
	  data BLOB NOT NULL,
	  updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ingest_events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  album TEXT NOT NULL,
	  tags INTEGER NOT NULL,
	  source TEXT NOT NULL
	);
	`)
	return err
}

// AppendRecords appends feature records in one transaction. The log is
// append-only; nothing is ever updated or deleted here.
func (d *DB) AppendRecords(ctx context.Context, recs []model.FeatureRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Unix()
	for _, r := range recs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_records(album, tag, weight, added_at) VALUES(?,?,?,?)`,
			r.Album, r.Tag, r.Weight, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadRecords returns the full feature log in insertion order.
func (d *DB) LoadRecords(ctx context.Context) ([]model.FeatureRecord, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT album, tag, weight FROM feature_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FeatureRecord
	for rows.Next() {
		var r model.FeatureRecord
		if err := rows.Scan(&r.Album, &r.Tag, &r.Weight); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountRecords returns the feature log length.
func (d *DB) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM feature_records`).Scan(&n)
	return n, err
}

// SaveArtifact upserts a named derived blob.
func (d *DB) SaveArtifact(ctx context.Context, name string, data []byte) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO artifacts(name, data, updated_at) VALUES(?,?,?)
		 ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		name, data, time.Now().UTC().Unix())
	return err
}

// SaveArtifacts upserts a set of named blobs in one transaction. The
// artifact table either holds the whole new generation or none of it; a
// crash mid-save never mixes generations.
func (d *DB) SaveArtifacts(ctx context.Context, blobs map[string][]byte) error {
	if len(blobs) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Unix()
	for name, data := range blobs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts(name, data, updated_at) VALUES(?,?,?)
			 ON CONFLICT(name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
			name, data, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadArtifact returns a named blob or ErrNoArtifact.
func (d *DB) LoadArtifact(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := d.sql.QueryRowContext(ctx, `SELECT data FROM artifacts WHERE name=?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoArtifact
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// PutIngestEvent records a completed ingestion for the stats command.
func (d *DB) PutIngestEvent(ctx context.Context, ev model.IngestEvent) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO ingest_events(ts, album, tags, source) VALUES(?,?,?,?)`,
		ev.Timestamp.Unix(), ev.Album, ev.Tags, ev.Source)
	return err
}

// RecentIngestEvents returns up to limit events, newest first.
func (d *DB) RecentIngestEvents(ctx context.Context, limit int) ([]model.IngestEvent, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT ts, album, tags, source FROM ingest_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.IngestEvent
	for rows.Next() {
		var ts int64
		var ev model.IngestEvent
		if err := rows.Scan(&ts, &ev.Album, &ev.Tags, &ev.Source); err != nil {
			return nil, err
		}
		ev.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, ev)
	}
	return out, rows.Err()
}
