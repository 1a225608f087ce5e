// Package database is the durable store of lectern: granted directory
// capabilities, ingested catalog collections, per-item preview images,
// playback progress and preferences. Everything lives in a single sqlite
// file which is opened once at process start and passed by reference to
// every consumer.
package database

import (
	"errors"
	"fmt"
	"log"
	"runtime"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable is returned when the store cannot be written.
	ErrStoreUnavailable = errors.New("store unavailable")
)

type (
	Options struct {
		Filename string
	}

	Repository struct {
		CapabilityRepo
		CatalogRepo
		ImageRepo
		ProgressRepo
		PreferenceRepo
	}

	// CapabilityRepo persists directory-access capabilities, keyed by
	// collection id.
	CapabilityRepo interface {
		StoreCapability(c CapabilityRecord) error
		GetCapability(collectionID string) (*CapabilityRecord, error)
		GetCapabilities() ([]CapabilityRecord, error)
		DeleteCapability(collectionID string) error
	}

	// CatalogRepo persists ingested collections as flat documents, keyed
	// by collection id. Stored collections survive restarts without a
	// re-scan of the directory tree.
	CatalogRepo interface {
		StoreCollection(c CollectionRecord) error
		GetCollection(collectionID string) (*CollectionRecord, error)
		GetCollections() ([]CollectionRecord, error)
		DeleteCollection(collectionID string) error
		TouchCollection(collectionID string, lastAccessed int64) error
	}

	// ImageRepo persists preview images, keyed by item id.
	ImageRepo interface {
		StoreImage(itemID, mimeType string, data []byte) error
		GetImage(itemID string) (mimeType string, data []byte, err error)
	}

	// ProgressRepo persists playback progress, keyed by item id.
	ProgressRepo interface {
		Record(itemID string, positionSeconds, durationSeconds float64) error
		MarkComplete(itemID string, durationSeconds float64) error
		Clear(itemID string) error
		ClearRecency(itemID string) error
		Get(itemID string) (*ProgressRecord, error)
		GetAll() []ProgressRecord
	}

	// PreferenceRepo is a flat key/value record for the front end.
	PreferenceRepo interface {
		SetPreference(key, value string) error
		GetPreference(key string) (string, error)
	}
)

// New opens the sqlite database, creates schema if necessary and loads
// the progress cache.
func New(o *Options) (*Repository, error) {
	if o == nil || o.Filename == "" {
		return nil, fmt.Errorf("database filename not set")
	}

	readDB, err := sqlx.Connect("sqlite", o.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	readDB.SetMaxOpenConns(max(4, runtime.NumCPU()))

	writeDB, err := sqlx.Connect("sqlite", o.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	// sqlite needs to have a single writer
	writeDB.SetMaxOpenConns(1)

	if err := dbInitSchema(writeDB); err != nil {
		return nil, err
	}

	progress, err := NewProgressStorage(readDB, writeDB)
	if err != nil {
		return nil, err
	}

	d := &Repository{
		CapabilityRepo: NewCapabilityStorage(readDB, writeDB),
		CatalogRepo:    NewCatalogStorage(readDB, writeDB),
		ImageRepo:      NewImageStorage(readDB, writeDB),
		ProgressRepo:   progress,
		PreferenceRepo: NewPreferenceStorage(readDB, writeDB),
	}
	return d, nil
}

func dbInitSchema(d *sqlx.DB) error {
	schema := []string{
		// This is needed to improve concurrent reads and writes.
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,

		`CREATE TABLE IF NOT EXISTS capabilities (
collectionid TEXT NOT NULL PRIMARY KEY,
id TEXT NOT NULL,
path TEXT NOT NULL,
kind TEXT NOT NULL,
state TEXT NOT NULL,
name TEXT NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS collections (
id TEXT NOT NULL PRIMARY KEY,
name TEXT NOT NULL,
data BLOB NOT NULL,
lastaccessed INTEGER NOT NULL);`,

		`CREATE INDEX IF NOT EXISTS collections_name_idx ON collections (name);`,

		`CREATE TABLE IF NOT EXISTS images (
itemid TEXT NOT NULL PRIMARY KEY,
mimetype TEXT NOT NULL,
data BLOB NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS progress (
itemid TEXT NOT NULL PRIMARY KEY,
position REAL NOT NULL,
duration REAL NOT NULL,
timestamp INTEGER NOT NULL);`,

		`CREATE TABLE IF NOT EXISTS preferences (
key TEXT NOT NULL PRIMARY KEY,
value TEXT NOT NULL);`,
	}

	for _, query := range schema {
		if _, err := d.Exec(query); err != nil {
			log.Printf("dbInitSchema error: %s\n", err)
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}
