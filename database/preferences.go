package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PreferenceStorage is a flat key/value record consumed by the front
// end (volume, playback rate, theme). No algorithmic content, last
// write wins.
type PreferenceStorage struct {
	dbReadHandle  *sqlx.DB
	dbWriteHandle *sqlx.DB
}

func NewPreferenceStorage(readDB, writeDB *sqlx.DB) *PreferenceStorage {
	return &PreferenceStorage{
		dbReadHandle:  readDB,
		dbWriteHandle: writeDB,
	}
}

// SetPreference stores a value under a key, overwriting any prior one.
func (s *PreferenceStorage) SetPreference(key, value string) error {
	_, err := s.dbWriteHandle.Exec(`INSERT OR REPLACE INTO preferences (key, value)
		VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetPreference returns the value stored under a key.
func (s *PreferenceStorage) GetPreference(key string) (string, error) {
	var value string
	err := s.dbReadHandle.Get(&value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return value, nil
}
