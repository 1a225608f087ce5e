package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CapabilityRecord is the stored form of a granted directory capability.
// One capability per collection; overwritten on re-grant.
type CapabilityRecord struct {
	CollectionID string `db:"collectionid"`
	ID           string `db:"id"`
	Path         string `db:"path"`
	Kind         string `db:"kind"`
	State        string `db:"state"`
	// Name is a short human-readable summary shown when asking the user
	// to re-grant access.
	Name string `db:"name"`
}

type CapabilityStorage struct {
	dbReadHandle  *sqlx.DB
	dbWriteHandle *sqlx.DB
}

func NewCapabilityStorage(readDB, writeDB *sqlx.DB) *CapabilityStorage {
	return &CapabilityStorage{
		dbReadHandle:  readDB,
		dbWriteHandle: writeDB,
	}
}

// StoreCapability stores a capability keyed by collection id,
// overwriting any prior entry.
func (s *CapabilityStorage) StoreCapability(c CapabilityRecord) error {
	_, err := s.dbWriteHandle.NamedExec(`INSERT OR REPLACE INTO capabilities (collectionid, id, path, kind, state, name)
		VALUES (:collectionid, :id, :path, :kind, :state, :name)`, c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetCapability returns the capability stored for a collection.
func (s *CapabilityStorage) GetCapability(collectionID string) (*CapabilityRecord, error) {
	var c CapabilityRecord
	err := s.dbReadHandle.Get(&c, "SELECT collectionid, id, path, kind, state, name FROM capabilities WHERE collectionid = ?", collectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &c, nil
}

// GetCapabilities returns all stored capabilities.
func (s *CapabilityStorage) GetCapabilities() ([]CapabilityRecord, error) {
	var capabilities []CapabilityRecord
	err := s.dbReadHandle.Select(&capabilities, "SELECT collectionid, id, path, kind, state, name FROM capabilities")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return capabilities, nil
}

// DeleteCapability removes the stored capability for a collection.
func (s *CapabilityStorage) DeleteCapability(collectionID string) error {
	_, err := s.dbWriteHandle.Exec("DELETE FROM capabilities WHERE collectionid = ?", collectionID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
