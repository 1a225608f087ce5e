// Package catalog turns a granted directory tree into the normalized
// collection/section/item model and keeps ingested collections loaded
// for lookup. Layout convention: direct subdirectories of the granted
// root are sections, media files inside a section are items.
package catalog

import "slices"

// Collection is the root of one ingested directory tree, e.g. a course.
type Collection struct {
	// ID is the unique identifier of the collection, derived from its
	// source name.
	ID string `json:"id"`
	// DisplayName is the name shown to the user.
	DisplayName string `json:"displayName"`
	// SourceName is the directory name the collection was ingested from.
	SourceName string `json:"sourceName"`
	// Sections in sort order.
	Sections []*Section `json:"sections"`
	// SectionCount and ItemCount are computed bottom-up at build time.
	SectionCount int `json:"sectionCount"`
	ItemCount    int `json:"itemCount"`
	// TotalDurationSeconds is the summed duration of all items.
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	// CapabilityID references the directory capability the collection
	// was ingested from.
	CapabilityID string `json:"capabilityId"`
	// LastAccessed is a unix timestamp, updated when the collection is
	// opened.
	LastAccessed int64 `json:"lastAccessed"`
}

// Section is a direct subdirectory of a collection holding items, e.g.
// a lesson. Sections without items are discarded during ingestion.
type Section struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	SourceName  string  `json:"sourceName"`
	Items       []*Item `json:"items"`
	ItemCount   int     `json:"itemCount"`
	// TotalDurationSeconds is the summed duration of the section items.
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	SortKey              SortKey `json:"sortKey"`
	SortLabel            string  `json:"sortLabel"`
	// PreviewRef is the item id whose preview image represents the
	// section, empty when no item produced one.
	PreviewRef string `json:"previewRef,omitempty"`
}

// Item is a single playable media file within a section.
type Item struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	// SourceName is the media filename, e.g. "01-Intro.mp4".
	SourceName string `json:"sourceName"`
	SizeBytes  int64  `json:"sizeBytes"`
	// DurationSeconds is 0 until probing completed, and stays 0 when
	// the file could not be decoded.
	DurationSeconds float64 `json:"durationSeconds"`
	SortKey         SortKey `json:"sortKey"`
	SortLabel       string  `json:"sortLabel"`
	// PreviewRef is the image store key of the preview frame, empty
	// when probing yielded none.
	PreviewRef string `json:"previewRef,omitempty"`
	// CaptionPath is the matched sidecar caption file, empty when none.
	CaptionPath string `json:"captionPath,omitempty"`
	// Path is the full path of the media file.
	Path string `json:"path"`
	// AddedAt is the file birth time (change time where the filesystem
	// has no birth time), unix seconds.
	AddedAt int64 `json:"addedAt"`
}

// sortSections orders sections by (sort key, enumeration order).
func sortSections(sections []*Section) {
	slices.SortStableFunc(sections, func(a, b *Section) int {
		return a.SortKey.Compare(b.SortKey)
	})
}

// sortItems orders items by (sort key, enumeration order).
func sortItems(items []*Item) {
	slices.SortStableFunc(items, func(a, b *Item) int {
		return a.SortKey.Compare(b.SortKey)
	})
}

// recompute fills the derived counts and durations bottom-up.
func (c *Collection) recompute() {
	c.SectionCount = len(c.Sections)
	c.ItemCount = 0
	c.TotalDurationSeconds = 0
	for _, s := range c.Sections {
		s.ItemCount = len(s.Items)
		s.TotalDurationSeconds = 0
		for _, i := range s.Items {
			s.TotalDurationSeconds += i.DurationSeconds
		}
		c.ItemCount += s.ItemCount
		c.TotalDurationSeconds += s.TotalDurationSeconds
	}
}
