package jobs

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tonearm/internal/engine"
	"tonearm/internal/lastfm"
	"tonearm/internal/logging"
	"tonearm/internal/model"
	"tonearm/internal/store/featstore"
	"tonearm/internal/util"
)

// SeedResult summarizes one bulk seed run.
type SeedResult struct {
	Processed int // unique releases attempted
	Added     int // releases that produced feature records
	Fallback  int // releases seeded from the CSV genre column
	Skipped   int // releases skipped after an API failure
}

// Seed bulk-ingests releases from a CSV with release_name, artist_name, and
// primary_genres columns. Each release gets Last.fm album tags; when the
// album has none, the first CSV genre is used at weight 1.0 so the release
// still lands in the catalog. API failures skip the row. One rebuild runs at
// the end instead of per release.
func Seed(ctx context.Context, db *featstore.DB, client lastfm.Client, eng *engine.Engine, csvPath string, limit, tagsPerAlbum int) (SeedResult, error) {
	var res SeedResult
	f, err := os.Open(csvPath)
	if err != nil {
		return res, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return res, fmt.Errorf("read csv header: %w", err)
	}
	col := columnIndex(header)
	if col.release < 0 || col.artist < 0 {
		return res, fmt.Errorf("csv missing release_name/artist_name columns")
	}

	seen := make(map[string]struct{})
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, err
		}
		if col.release >= len(row) || col.artist >= len(row) {
			continue
		}
		release := util.NormalizeWhitespace(row[col.release])
		artist := util.NormalizeWhitespace(row[col.artist])
		if release == "" {
			continue
		}
		if _, dup := seen[release]; dup {
			continue
		}
		seen[release] = struct{}{}
		res.Processed++

		records, source, err := seedRelease(ctx, client, release, artist, genreOf(row, col.genres), tagsPerAlbum)
		if err != nil {
			res.Skipped++
			logging.Warn("seed_skip", map[string]any{"album": release, "error": err.Error()})
			continue
		}
		if err := db.AppendRecords(ctx, records); err != nil {
			return res, fmt.Errorf("%w: %v", engine.ErrPersistFailed, err)
		}
		_ = db.PutIngestEvent(ctx, model.IngestEvent{
			Timestamp: time.Now().UTC(), Album: release, Tags: len(records), Source: source,
		})
		res.Added++
		if source == "csv" {
			res.Fallback++
		}
		if limit > 0 && res.Processed >= limit {
			break
		}
	}

	if res.Added == 0 {
		return res, fmt.Errorf("%w: no releases produced records", engine.ErrNoResults)
	}
	if err := eng.Rebuild(ctx); err != nil {
		return res, err
	}
	return res, nil
}

func seedRelease(ctx context.Context, client lastfm.Client, release, artist, genre string, tagsPerAlbum int) ([]model.FeatureRecord, string, error) {
	tags, err := client.AlbumTopTags(ctx, artist, release, tagsPerAlbum)
	if err != nil {
		return nil, "", err
	}
	if len(tags) > 0 {
		return engine.NormalizeTags(release, tags), "album", nil
	}
	if genre == "" {
		return nil, "", fmt.Errorf("no tags and no genre fallback")
	}
	rec := model.FeatureRecord{Album: release, Tag: util.TitleCase(genre), Weight: 1.0}
	return []model.FeatureRecord{rec}, "csv", nil
}

type columns struct{ release, artist, genres int }

func columnIndex(header []string) columns {
	c := columns{release: -1, artist: -1, genres: -1}
	for i, h := range header {
		switch strings.TrimSpace(strings.ToLower(h)) {
		case "release_name":
			c.release = i
		case "artist_name":
			c.artist = i
		case "primary_genres":
			c.genres = i
		}
	}
	return c
}

func genreOf(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	first := strings.SplitN(row[idx], ",", 2)[0]
	return util.NormalizeWhitespace(first)
}
