// Package search provides a bleve-backed full-text index over catalog
// items.
package search

import (
	"context"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Search is the bleve-based item index.
type Search struct {
	index bleve.Index
}

// Document is what we index per item.
type Document struct {
	// Item id
	ID string `json:"id"`
	// Parent collection id
	ParentID string `json:"parent_id"`
	// Name is the item display name.
	Name string `json:"name"`
	// SectionName is the display name of the containing section.
	SectionName string `json:"section_name"`
	// SourceName is the raw filename, useful for exact lookups.
	SourceName string `json:"source_name"`
}

// New creates a new in-memory index.
func New() (*Search, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Search{index: idx}, nil
}

// buildIndexMapping builds the bleve field mapping configuration.
func buildIndexMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "en"
	// only indexing, we just retrieve ids on match
	text.Store = false
	text.Index = true

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.Index = true

	doc.AddFieldMappingsAt("id", keyword)
	doc.AddFieldMappingsAt("parent_id", keyword)
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("section_name", text)
	doc.AddFieldMappingsAt("source_name", keyword)

	m.DefaultMapping = doc
	return m
}

// IndexBatch indexes a slice of documents in a single batch.
func (b *Search) IndexBatch(ctx context.Context, docs []Document) error {
	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, d); err != nil {
			return err
		}
		if batch.Size() > 1000 {
			if err := b.index.Batch(batch); err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		return b.index.Batch(batch)
	}
	return nil
}

// Search runs a fuzzy search over item and section names and returns
// matching item ids, best match first.
func (b *Search) Search(ctx context.Context, searchTerm string, size int) ([]string, error) {
	searchTerm = strings.ToLower(strings.TrimSpace(searchTerm))
	if searchTerm == "" {
		return nil, nil
	}

	const (
		boostNamePhrase = 12.0
		boostNamePrefix = 6.0
		boostNameField  = 3.0
		boostOther      = 1.0
	)

	boolQuery := bleve.NewBooleanQuery()

	matchPhrase := bleve.NewMatchPhraseQuery(searchTerm)
	matchPhrase.SetField("name")
	matchPhrase.SetBoost(boostNamePhrase)
	boolQuery.AddShould(matchPhrase)

	prefixFull := bleve.NewPrefixQuery(searchTerm)
	prefixFull.SetField("name")
	prefixFull.SetBoost(boostNamePrefix)
	boolQuery.AddShould(prefixFull)

	for _, tok := range strings.Fields(searchTerm) {
		fuzz := 1
		if len(tok) >= 6 {
			fuzz = 2
		}
		for _, f := range []string{"name", "section_name"} {
			fq := bleve.NewFuzzyQuery(tok)
			fq.SetField(f)
			fq.SetFuzziness(fuzz)
			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			if f == "name" {
				fq.SetBoost(boostNameField)
				pq.SetBoost(boostNameField)
			} else {
				fq.SetBoost(boostOther)
				pq.SetBoost(boostOther)
			}
			boolQuery.AddShould(fq)
			boolQuery.AddShould(pq)
		}
	}
	boolQuery.SetMinShould(1)

	req := bleve.NewSearchRequestOptions(boolQuery, size, 0, false)
	req.Fields = []string{"id"}
	req.SortBy([]string{"-_score"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}

	var foundIDs []string
	for _, h := range res.Hits {
		foundIDs = append(foundIDs, h.ID)
	}
	return foundIDs, nil
}

// Close closes the underlying index.
func (b *Search) Close() error {
	return b.index.Close()
}
