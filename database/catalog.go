package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CollectionRecord is the stored form of one ingested collection: the
// full section/item tree serialized as a flat document. No joins are
// done in the store, the catalog package deserializes and joins in
// application code.
type CollectionRecord struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Data         []byte `db:"data"`
	LastAccessed int64  `db:"lastaccessed"`
}

type CatalogStorage struct {
	dbReadHandle  *sqlx.DB
	dbWriteHandle *sqlx.DB
}

func NewCatalogStorage(readDB, writeDB *sqlx.DB) *CatalogStorage {
	return &CatalogStorage{
		dbReadHandle:  readDB,
		dbWriteHandle: writeDB,
	}
}

// StoreCollection stores a collection document, overwriting any prior
// version under the same id.
func (s *CatalogStorage) StoreCollection(c CollectionRecord) error {
	_, err := s.dbWriteHandle.NamedExec(`INSERT OR REPLACE INTO collections (id, name, data, lastaccessed)
		VALUES (:id, :name, :data, :lastaccessed)`, c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetCollection returns one stored collection document.
func (s *CatalogStorage) GetCollection(collectionID string) (*CollectionRecord, error) {
	var c CollectionRecord
	err := s.dbReadHandle.Get(&c, "SELECT id, name, data, lastaccessed FROM collections WHERE id = ?", collectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &c, nil
}

// GetCollections returns all stored collection documents.
func (s *CatalogStorage) GetCollections() ([]CollectionRecord, error) {
	var collections []CollectionRecord
	err := s.dbReadHandle.Select(&collections, "SELECT id, name, data, lastaccessed FROM collections ORDER BY lastaccessed DESC")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return collections, nil
}

// DeleteCollection removes a stored collection document.
func (s *CatalogStorage) DeleteCollection(collectionID string) error {
	_, err := s.dbWriteHandle.Exec("DELETE FROM collections WHERE id = ?", collectionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TouchCollection updates the last-accessed timestamp of a collection.
func (s *CatalogStorage) TouchCollection(collectionID string, lastAccessed int64) error {
	_, err := s.dbWriteHandle.Exec("UPDATE collections SET lastaccessed = ? WHERE id = ?", lastAccessed, collectionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
