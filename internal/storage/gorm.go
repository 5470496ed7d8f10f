package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoredRecord is the table backing GormStore.
type StoredRecord struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"not null"`
	Timestamp time.Time
}

// TableName pins the table name used by the migrations.
func (StoredRecord) TableName() string {
	return "records"
}

// GormStore persists records through gorm.
type GormStore struct {
	db       *gorm.DB
	maxBytes int
	now      func() time.Time

	// SQLite only supports one writer at a time.
	writeMu sync.Mutex
}

// NewGormStore wraps an open, migrated database.
func NewGormStore(db *gorm.DB, maxBytes int) *GormStore {
	return &GormStore{db: db, maxBytes: maxBytes, now: time.Now}
}

// Get returns the record stored under key.
func (s *GormStore) Get(ctx context.Context, key string) (Record, error) {
	var row StoredRecord
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	return Record{Key: row.Key, Value: row.Value, Timestamp: row.Timestamp}, nil
}

// Put upserts value under key.
func (s *GormStore) Put(ctx context.Context, key string, value []byte) error {
	if err := checkQuota(key, value, s.maxBytes); err != nil {
		return err
	}

	row := StoredRecord{Key: key, Value: value, Timestamp: s.now().UTC()}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "timestamp"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *GormStore) Delete(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.db.WithContext(ctx).Delete(&StoredRecord{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
