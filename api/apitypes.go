package api

// Response types of the local API. Progress percentages are computed on
// demand from the progress records, they are not part of the stored
// catalog.

type Collection struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	SourceName           string    `json:"sourceName"`
	SectionCount         int       `json:"sectionCount"`
	ItemCount            int       `json:"itemCount"`
	TotalDurationSeconds float64   `json:"totalDurationSeconds"`
	Progress             int       `json:"progress"`
	LastAccessed         int64     `json:"lastAccessed"`
	Sections             []Section `json:"sections,omitempty"`
}

type Section struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	SourceName           string  `json:"sourceName"`
	SortLabel            string  `json:"sortLabel,omitempty"`
	ItemCount            int     `json:"itemCount"`
	TotalDurationSeconds float64 `json:"totalDurationSeconds"`
	Progress             int     `json:"progress"`
	PreviewRef           string  `json:"previewRef,omitempty"`
	Items                []Item  `json:"items,omitempty"`
}

type Item struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	SourceName      string  `json:"sourceName"`
	SortLabel       string  `json:"sortLabel,omitempty"`
	SizeBytes       int64   `json:"sizeBytes"`
	DurationSeconds float64 `json:"durationSeconds"`
	PreviewRef      string  `json:"previewRef,omitempty"`
	CaptionPath     string  `json:"captionPath,omitempty"`
	AddedAt         int64   `json:"addedAt"`

	// playback progress, zero values when never watched
	PositionSeconds float64 `json:"positionSeconds"`
	FractionWatched float64 `json:"fractionWatched"`
	Complete        bool    `json:"complete"`
	LastWatchedAt   int64   `json:"lastWatchedAt"`
}

type ingestRequest struct {
	// Path of the directory picked by the user.
	Path string `json:"path"`
	// Name optionally overrides the displayed collection name.
	Name string `json:"name"`
}

type progressRequest struct {
	PositionSeconds float64 `json:"positionSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type preferenceRequest struct {
	Value string `json:"value"`
}
