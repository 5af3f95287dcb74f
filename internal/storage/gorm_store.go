package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agromart/internal/apperr"
)

// KVEntry is the table row backing one store key.
type KVEntry struct {
	Key       string `gorm:"primaryKey;type:varchar(100)"`
	Value     []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}

// TableName keeps the table name stable across backends.
func (KVEntry) TableName() string { return "kv_entries" }

// GormStore is a GORM implementation of Store, usable with sqlite or postgres.
// Every operation runs under a bounded timeout; timeouts surface as retryable
// StorageErrors.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormStore creates a GormStore and migrates its table.
func NewGormStore(db *gorm.DB, timeout time.Duration) (*GormStore, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if err := db.AutoMigrate(&KVEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate kv_entries: %w", err)
	}
	return &GormStore{db: db, timeout: timeout}, nil
}

// Get decodes the value stored at key into out.
func (s *GormStore) Get(key string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var entry KVEntry
	if err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NewNotFound("key", key)
		}
		return s.wrap(ctx, "get", key, err)
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return &apperr.StorageError{Op: "get", Key: key, Err: err}
	}
	return nil
}

// Set encodes value and upserts it at key.
func (s *GormStore) Set(key string, value any) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	blob, err := json.Marshal(value)
	if err != nil {
		return &apperr.StorageError{Op: "set", Key: key, Err: err}
	}
	entry := KVEntry{Key: key, Value: blob, UpdatedAt: time.Now()}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return s.wrap(ctx, "set", key, err)
	}
	return nil
}

// Remove deletes the entry at key.
func (s *GormStore) Remove(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Delete(&KVEntry{}, "key = ?", key).Error; err != nil {
		return s.wrap(ctx, "remove", key, err)
	}
	return nil
}

func (s *GormStore) wrap(ctx context.Context, op, key string, err error) error {
	retryable := errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
	return &apperr.StorageError{Op: op, Key: key, Retryable: retryable, Err: err}
}
