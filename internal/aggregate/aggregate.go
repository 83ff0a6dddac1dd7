// Package aggregate merges listing tables and removes duplicate ids.
package aggregate

import "github.com/lukman83/listing-miner/internal/models"

// Merge concatenates tables in order and keeps the first occurrence of every
// id. Root-level results are passed first so they win over per-category
// refinements.
func Merge(tables ...[]models.Listing) []models.Listing {
	seen := make(map[string]struct{})
	var out []models.Listing
	for _, t := range tables {
		for _, l := range t {
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// MergeLatest concatenates tables in order and keeps the last occurrence of
// every id, at the position of that last occurrence. Archive appends pass
// the stored table first so freshly fetched rows replace stale ones.
func MergeLatest(tables ...[]models.Listing) []models.Listing {
	var all []models.Listing
	for _, t := range tables {
		all = append(all, t...)
	}

	last := make(map[string]int, len(all))
	for i, l := range all {
		last[l.ID] = i
	}

	out := make([]models.Listing, 0, len(last))
	for i, l := range all {
		if last[l.ID] == i {
			out = append(out, l)
		}
	}
	return out
}
