package model

import "time"

// FeatureRecord is one (album, tag, weight) observation learned from Last.fm.
// Weight is normalized to [0,1] relative to the strongest tag of the album.
// Records are append-only; duplicates of the same (album, tag) pair are
// aggregated by mean when the matrix is rebuilt.
type FeatureRecord struct {
	Album  string
	Tag    string
	Weight float64
}

// Candidate is one album returned by an external catalog search, carrying
// the fields needed to disambiguate and later fetch its tags.
type Candidate struct {
	Title    string
	Artist   string
	MBID     string
	CoverURL string
}

// Tag is a weighted descriptive label as returned by the metadata API.
// Raw counts are integers on the wire and are normalized during ingestion.
type Tag struct {
	Name  string
	Count int
}

// Recommendation is one ranked output of the recommender. Score is a
// percentage derived from cosine distance: (1-distance)*100. Artist and
// CoverURL are filled only by detailed recommendation requests.
type Recommendation struct {
	Album    string
	Score    float64
	Artist   string
	CoverURL string
}

// IngestEvent records a completed ingestion for stats/auditing.
type IngestEvent struct {
	Timestamp time.Time
	Album     string
	Tags      int
	Source    string // "album" or "artist" fallback tier
}
