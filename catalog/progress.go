package catalog

import (
	"math"
	"sort"

	"lectern/database"
)

// Aggregate progress is derived on demand from the progress records,
// never pushed into the catalog model, so any front end can recompute
// it.

// AggregateSection returns the watched percentage of a section, 0..100.
// A section without items reports 0.
func AggregateSection(s *Section, records []database.ProgressRecord) int {
	return aggregate(s.Items, records)
}

// AggregateCollection returns the watched percentage of a collection
// across all its sections, 0..100.
func AggregateCollection(c *Collection, records []database.ProgressRecord) int {
	var items []*Item
	for _, s := range c.Sections {
		items = append(items, s.Items...)
	}
	return aggregate(items, records)
}

func aggregate(items []*Item, records []database.ProgressRecord) int {
	if len(items) == 0 {
		return 0
	}

	complete := make(map[string]bool, len(records))
	for _, record := range records {
		if record.Complete() {
			complete[record.ItemID] = true
		}
	}

	completed := 0
	for _, i := range items {
		if complete[i.ID] {
			completed++
		}
	}
	return int(math.Round(100 * float64(completed) / float64(len(items))))
}

// MostRecentlyWatched selects up to limit items with a recency
// timestamp, most recent first, for resume views. Items hidden with
// ClearRecency (timestamp 0) are excluded.
func MostRecentlyWatched(items []*Item, records []database.ProgressRecord, limit int) []*Item {
	watchedAt := make(map[string]int64, len(records))
	for _, record := range records {
		if record.LastWatchedAt > 0 {
			watchedAt[record.ItemID] = record.LastWatchedAt
		}
	}

	var recent []*Item
	for _, i := range items {
		if _, ok := watchedAt[i.ID]; ok {
			recent = append(recent, i)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return watchedAt[recent[i].ID] > watchedAt[recent[j].ID]
	})

	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}
