package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lectern/catalog/search"
	"lectern/database"
)

// Repo is the in-memory repository of ingested collections. Collections
// are loaded from the database at session start, the directory trees
// are not re-scanned.
type Repo struct {
	mu          sync.RWMutex
	collections []*Collection
	repo        database.CatalogRepo
	bleveIndex  *search.Search
}

type RepoOptions struct {
	Repo database.CatalogRepo
}

func NewRepo(options *RepoOptions) *Repo {
	return &Repo{
		repo: options.Repo,
	}
}

// Load reads all persisted collections into memory.
func (r *Repo) Load() error {
	records, err := r.repo.GetCollections()
	if err != nil {
		return err
	}

	collections := make([]*Collection, 0, len(records))
	for _, record := range records {
		var c Collection
		if err := json.Unmarshal(record.Data, &c); err != nil {
			return fmt.Errorf("decode collection %s: %w", record.ID, err)
		}
		collections = append(collections, &c)
	}

	r.mu.Lock()
	r.collections = collections
	r.mu.Unlock()

	log.Printf("Loaded %d collections from store", len(collections))
	return nil
}

// Add registers a freshly ingested collection, replacing any prior
// version under the same id.
func (r *Repo) Add(c *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for n := range r.collections {
		if r.collections[n].ID == c.ID {
			r.collections[n] = c
			return
		}
	}
	r.collections = append(r.collections, c)
}

// Remove drops a collection from the repository and the store.
func (r *Repo) Remove(collectionID string) error {
	r.mu.Lock()
	for n := range r.collections {
		if r.collections[n].ID == collectionID {
			r.collections = append(r.collections[:n], r.collections[n+1:]...)
			break
		}
	}
	r.mu.Unlock()

	return r.repo.DeleteCollection(collectionID)
}

// GetCollections returns all collections in the repository.
func (r *Repo) GetCollections() []*Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Collection(nil), r.collections...)
}

// GetCollection returns a collection by its id.
func (r *Repo) GetCollection(collectionID string) *Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.collections {
		if c.ID == collectionID {
			return c
		}
	}
	return nil
}

// Touch updates the last-accessed timestamp of a collection, in memory
// and in the store.
func (r *Repo) Touch(collectionID string) error {
	now := time.Now().Unix()

	r.mu.Lock()
	for _, c := range r.collections {
		if c.ID == collectionID {
			c.LastAccessed = now
		}
	}
	r.mu.Unlock()

	return r.repo.TouchCollection(collectionID, now)
}

// GetSectionByID returns a section and its collection by section id.
func (r *Repo) GetSectionByID(sectionID string) (*Collection, *Section) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.collections {
		for _, s := range c.Sections {
			if s.ID == sectionID {
				return c, s
			}
		}
	}
	return nil, nil
}

// GetItemByID returns an item with its section and collection by item
// id.
func (r *Repo) GetItemByID(itemID string) (*Collection, *Section, *Item) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.collections {
		for _, s := range c.Sections {
			for _, i := range s.Items {
				if i.ID == itemID {
					return c, s, i
				}
			}
		}
	}
	return nil, nil, nil
}

// AllItems returns every item across all collections.
func (r *Repo) AllItems() []*Item {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Item
	for _, c := range r.collections {
		for _, s := range c.Sections {
			items = append(items, s.Items...)
		}
	}
	return items
}

var ErrSearchIndexNotInitialized = errors.New("search index not initialized")

// default number of search results to return.
const searchResultCount = 15

// BuildSearchIndex (re)builds the item search index.
func (r *Repo) BuildSearchIndex(ctx context.Context) error {
	index, err := search.New()
	if err != nil {
		return err
	}

	var docs []search.Document
	r.mu.RLock()
	for _, c := range r.collections {
		for _, s := range c.Sections {
			for _, i := range s.Items {
				docs = append(docs, search.Document{
					ID:          i.ID,
					ParentID:    c.ID,
					Name:        i.DisplayName,
					SectionName: s.DisplayName,
					SourceName:  i.SourceName,
				})
			}
		}
	}
	r.mu.RUnlock()

	if err := index.IndexBatch(ctx, docs); err != nil {
		return err
	}
	log.Printf("Search indexed %d items", len(docs))

	r.mu.Lock()
	old := r.bleveIndex
	r.bleveIndex = index
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// SearchItem returns the ids of items matching a search term.
func (r *Repo) SearchItem(ctx context.Context, term string) ([]string, error) {
	r.mu.RLock()
	index := r.bleveIndex
	r.mu.RUnlock()

	if index == nil {
		return nil, ErrSearchIndexNotInitialized
	}
	return index.Search(ctx, term, searchResultCount)
}
