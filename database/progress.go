package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// ProgressRecord is the durable playback position for one item. One
// record per item id, overwritten on every update.
type ProgressRecord struct {
	ItemID string `db:"itemid"`
	// PositionSeconds is the last watched offset in seconds.
	PositionSeconds float64 `db:"position"`
	// DurationSeconds is the item duration as known at record time.
	DurationSeconds float64 `db:"duration"`
	// LastWatchedAt is a unix timestamp. 0 means "present but not
	// recent": the record keeps its resume position but is excluded
	// from recency views.
	LastWatchedAt int64 `db:"timestamp"`
}

// FractionWatched returns position/duration clamped to [0,1].
func (p ProgressRecord) FractionWatched() float64 {
	if p.DurationSeconds <= 0 {
		return 0
	}
	f := p.PositionSeconds / p.DurationSeconds
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Complete reports whether the item counts as fully watched: more than
// 95% seen, or less than 5 seconds remaining.
func (p ProgressRecord) Complete() bool {
	return p.FractionWatched() > 0.95 ||
		p.DurationSeconds-p.PositionSeconds < 5
}

// ProgressStorage keeps progress records in memory for cheap aggregate
// queries and writes every change through to sqlite, so a crash between
// progress samples loses at most the last sample.
type ProgressStorage struct {
	dbReadHandle  *sqlx.DB
	dbWriteHandle *sqlx.DB
	mu            sync.Mutex
	state         map[string]ProgressRecord
	// now is stubbed in tests
	now func() time.Time
}

func NewProgressStorage(readDB, writeDB *sqlx.DB) (*ProgressStorage, error) {
	p := &ProgressStorage{
		dbReadHandle:  readDB,
		dbWriteHandle: writeDB,
		state:         make(map[string]ProgressRecord),
		now:           time.Now,
	}
	if err := p.loadStateFromDB(); err != nil {
		return nil, err
	}
	return p, nil
}

// loadStateFromDB loads the progress table into memory.
func (p *ProgressStorage) loadStateFromDB() error {
	var records []ProgressRecord
	if err := p.dbReadHandle.Select(&records, "SELECT itemid, position, duration, timestamp FROM progress"); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range records {
		p.state[r.ItemID] = r
	}
	return nil
}

// Record upserts the progress record for an item and stamps it as
// recently watched.
func (p *ProgressStorage) Record(itemID string, positionSeconds, durationSeconds float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record := ProgressRecord{
		ItemID:          itemID,
		PositionSeconds: positionSeconds,
		DurationSeconds: durationSeconds,
		LastWatchedAt:   p.now().Unix(),
	}
	if err := p.writeRecord(record); err != nil {
		return err
	}
	p.state[itemID] = record
	return nil
}

// MarkComplete records the item as watched to the end.
func (p *ProgressStorage) MarkComplete(itemID string, durationSeconds float64) error {
	return p.Record(itemID, durationSeconds, durationSeconds)
}

// Clear removes the progress record entirely.
func (p *ProgressStorage) Clear(itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.dbWriteHandle.Exec("DELETE FROM progress WHERE itemid = ?", itemID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	delete(p.state, itemID)
	return nil
}

// ClearRecency removes the item from recency views while preserving its
// resume position.
func (p *ProgressStorage) ClearRecency(itemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, ok := p.state[itemID]
	if !ok {
		return ErrNotFound
	}
	record.LastWatchedAt = 0
	if err := p.writeRecord(record); err != nil {
		return err
	}
	p.state[itemID] = record
	return nil
}

// Get returns the progress record for an item.
func (p *ProgressStorage) Get(itemID string) (*ProgressRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if record, ok := p.state[itemID]; ok {
		return &record, nil
	}
	return nil, ErrNotFound
}

// GetAll returns all progress records.
func (p *ProgressStorage) GetAll() []ProgressRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := make([]ProgressRecord, 0, len(p.state))
	for _, record := range p.state {
		records = append(records, record)
	}
	return records
}

// writeRecord writes one record through to the database. Caller holds
// the lock.
func (p *ProgressStorage) writeRecord(record ProgressRecord) error {
	_, err := p.dbWriteHandle.NamedExec(`INSERT OR REPLACE INTO progress (itemid, position, duration, timestamp)
		VALUES (:itemid, :position, :duration, :timestamp)`, record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
