package analytics

import (
	"sort"

	"tonearm/internal/model"
)

// TagCount pairs a tag with how many feature records carry it.
type TagCount struct {
	Tag   string
	Count int
}

// TagFrequencies aggregates records into per-tag counts.
func TagFrequencies(records []model.FeatureRecord) map[string]int {
	freq := make(map[string]int)
	for _, r := range records {
		freq[r.Tag]++
	}
	return freq
}

// TopTags returns the n most frequent tags, ties broken alphabetically.
func TopTags(freq map[string]int, n int) []TagCount {
	out := make([]TagCount, 0, len(freq))
	for t, c := range freq {
		out = append(out, TagCount{Tag: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DistinctAlbums counts unique album names in the feature log.
func DistinctAlbums(records []model.FeatureRecord) int {
	set := make(map[string]struct{})
	for _, r := range records {
		set[r.Album] = struct{}{}
	}
	return len(set)
}
