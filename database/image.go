package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ImageStorage holds preview images keyed by item id. Previews are
// small (320px jpegs), storing them as blobs keeps the catalog usable
// when the media directory itself is currently inaccessible.
type ImageStorage struct {
	dbReadHandle  *sqlx.DB
	dbWriteHandle *sqlx.DB
}

func NewImageStorage(readDB, writeDB *sqlx.DB) *ImageStorage {
	return &ImageStorage{
		dbReadHandle:  readDB,
		dbWriteHandle: writeDB,
	}
}

// StoreImage stores the preview image for an item.
func (s *ImageStorage) StoreImage(itemID, mimeType string, data []byte) error {
	_, err := s.dbWriteHandle.Exec(`INSERT OR REPLACE INTO images (itemid, mimetype, data)
		VALUES (?, ?, ?)`, itemID, mimeType, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetImage returns the preview image for an item.
func (s *ImageStorage) GetImage(itemID string) (string, []byte, error) {
	var image struct {
		MimeType string `db:"mimetype"`
		Data     []byte `db:"data"`
	}
	err := s.dbReadHandle.Get(&image, "SELECT mimetype, data FROM images WHERE itemid = ?", itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return image.MimeType, image.Data, nil
}
