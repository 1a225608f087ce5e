package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"lectern/capability"
	"lectern/database"
	"lectern/idhash"
	"lectern/probe"
)

// ErrEmptyCatalog is returned when ingestion produced zero usable
// sections. Nothing is persisted in that case; the user should select a
// folder containing section subfolders with media files.
var ErrEmptyCatalog = errors.New("no sections containing media files found")

// Prober derives duration and a preview frame for a media file. Probing
// failure is reported inside the result, never as an error.
type Prober interface {
	Probe(ctx context.Context, path string) probe.Result
}

type BuilderOptions struct {
	Walker       *Walker
	Prober       Prober
	Capabilities *capability.Store
	Repo         *database.Repository
	// ProbeConcurrency bounds the number of probes in flight per
	// section.
	ProbeConcurrency int
}

// Builder composes walker, prober and caption matching into persisted
// collections.
type Builder struct {
	walker           *Walker
	prober           Prober
	capabilities     *capability.Store
	repo             *database.Repository
	probeConcurrency int
	now              func() time.Time
}

func NewBuilder(o *BuilderOptions) *Builder {
	concurrency := o.ProbeConcurrency
	if concurrency < 1 {
		concurrency = 2
	}
	return &Builder{
		walker:           o.Walker,
		prober:           o.Prober,
		capabilities:     o.Capabilities,
		repo:             o.Repo,
		probeConcurrency: concurrency,
		now:              time.Now,
	}
}

// Ingest scans the granted directory tree into a collection and
// persists capability, collection and preview images. Either a full
// collection is produced or nothing is persisted: a tree without usable
// sections fails with ErrEmptyCatalog, a declined re-grant with
// capability.ErrDenied.
func (b *Builder) Ingest(ctx context.Context, root capability.Capability, displayName string) (*Collection, error) {
	root, err := b.capabilities.Revalidate(root, displayName)
	if err != nil {
		return nil, err
	}

	rawSections, err := b.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", root.Path, err)
	}

	collSource := root.Name()
	if displayName == "" {
		displayName = collSource
	}

	previews := make(map[string][]byte)
	var sections []*Section
	for raw := range rawSections {
		if s := b.buildSection(ctx, collSource, raw, root, previews); s != nil {
			sections = append(sections, s)
		}
	}
	if len(sections) == 0 {
		return nil, ErrEmptyCatalog
	}
	sortSections(sections)

	c := &Collection{
		ID:           idhash.HashPath(collSource),
		DisplayName:  displayName,
		SourceName:   collSource,
		Sections:     sections,
		CapabilityID: root.ID,
		LastAccessed: b.now().Unix(),
	}
	c.recompute()

	log.Printf("Ingested collection %s (%s): %d sections, %d items, %.0fs total",
		c.DisplayName, c.ID, c.SectionCount, c.ItemCount, c.TotalDurationSeconds)

	for itemID, blob := range previews {
		if err := b.repo.StoreImage(itemID, "image/jpeg", blob); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode collection %s: %w", c.ID, err)
	}
	if err := b.repo.StoreCollection(database.CollectionRecord{
		ID:           c.ID,
		Name:         c.DisplayName,
		Data:         data,
		LastAccessed: c.LastAccessed,
	}); err != nil {
		return nil, err
	}
	if err := b.capabilities.Persist(c.ID, root, c.DisplayName); err != nil {
		return nil, err
	}
	return c, nil
}

// buildSection materializes a section candidate: probes and caption-
// matches its items with bounded concurrency, then sorts them. Returns
// nil for sections without items, those are not part of the catalog.
func (b *Builder) buildSection(ctx context.Context, collSource string, raw RawSection,
	root capability.Capability, previews map[string][]byte) *Section {

	rawItems := slices.Collect(raw.Items)
	if len(rawItems) == 0 {
		return nil
	}

	items := make([]*Item, len(rawItems))
	sem := make(chan struct{}, b.probeConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for n, ri := range rawItems {
		wg.Add(1)
		go func(n int, ri RawItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			key, label, display := parseSourceName(stripExtension(ri.SourceName))
			item := &Item{
				ID:          idhash.HashPath(collSource, raw.SourceName, ri.SourceName),
				DisplayName: display,
				SourceName:  ri.SourceName,
				SizeBytes:   ri.SizeBytes,
				SortKey:     key,
				SortLabel:   label,
				Path:        ri.Capability.Path,
				AddedAt:     ri.AddedAt,
			}

			result := b.prober.Probe(ctx, ri.Capability.Path)
			if result.Available {
				item.DurationSeconds = result.DurationSeconds
				if len(result.Preview) > 0 {
					item.PreviewRef = item.ID
					mu.Lock()
					previews[item.ID] = result.Preview
					mu.Unlock()
				}
			}

			if ref, ok := MatchCaption(root, raw.SourceName, ri.SourceName); ok {
				item.CaptionPath = ref
			}
			items[n] = item
		}(n, ri)
	}
	wg.Wait()

	sortItems(items)

	key, label, display := parseSourceName(raw.SourceName)
	section := &Section{
		ID:          idhash.HashPath(collSource, raw.SourceName),
		DisplayName: display,
		SourceName:  raw.SourceName,
		Items:       items,
		SortKey:     key,
		SortLabel:   label,
	}
	// the first item carrying a preview frame represents the section
	for _, i := range items {
		if i.PreviewRef != "" {
			section.PreviewRef = i.PreviewRef
			break
		}
	}
	return section
}
