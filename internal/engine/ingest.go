package engine

import (
	"context"
	"fmt"
	"time"

	"tonearm/internal/logging"
	"tonearm/internal/metrics"
	"tonearm/internal/model"
	"tonearm/internal/util"
)

// Ingest fetches top tags for the chosen album (falling back to the artist's
// tags when album-level tagging is sparse), appends normalized feature
// records to the log, persists them, and rebuilds the derived structures.
//
// On any error nothing new becomes visible to the recommender; records that
// were appended before a failed rebuild survive in the log and a later
// Rebuild picks them up.
func (e *Engine) Ingest(ctx context.Context, cand model.Candidate) error {
	metrics.IngestRuns.Inc()
	if err := e.ingest(ctx, cand); err != nil {
		metrics.IngestErrors.Inc()
		logging.Error("ingest_error", map[string]any{"album": cand.Title, "error": err.Error()})
		return err
	}
	return nil
}

func (e *Engine) ingest(ctx context.Context, cand model.Candidate) error {
	if e.client == nil {
		return fmt.Errorf("%w: lastfm client not configured", ErrUnavailable)
	}
	source := "album"
	tags, err := e.client.AlbumTopTags(ctx, cand.Artist, cand.Title, e.tagsPerAlbum)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(tags) == 0 {
		source = "artist"
		tags, err = e.client.ArtistTopTags(ctx, cand.Artist, e.tagsPerAlbum)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if len(tags) == 0 {
		return fmt.Errorf("%w: no tags for album or artist", ErrNoResults)
	}

	records := NormalizeTags(cand.Title, tags)
	if err := e.db.AppendRecords(ctx, records); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	_ = e.db.PutIngestEvent(ctx, model.IngestEvent{
		Timestamp: time.Now().UTC(),
		Album:     cand.Title,
		Tags:      len(records),
		Source:    source,
	})
	if err := e.Rebuild(ctx); err != nil {
		return err
	}
	logging.Info("ingest_ok", map[string]any{"album": cand.Title, "tags": len(records), "source": source})
	return nil
}

// NormalizeTags converts raw tag counts into feature records: weights are
// scaled by the maximum count (floored at 1 so a zero maximum cannot divide
// by zero) and tag names are canonicalized to title case.
func NormalizeTags(album string, tags []model.Tag) []model.FeatureRecord {
	maxCount := 1
	for _, t := range tags {
		if t.Count > maxCount {
			maxCount = t.Count
		}
	}
	out := make([]model.FeatureRecord, 0, len(tags))
	for _, t := range tags {
		out = append(out, model.FeatureRecord{
			Album:  album,
			Tag:    util.TitleCase(t.Name),
			Weight: float64(t.Count) / float64(maxCount),
		})
	}
	return out
}
