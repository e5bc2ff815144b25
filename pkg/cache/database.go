package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is a row of the shared cache table.
type Entry struct {
	Key       string    `gorm:"column:cache_key;primaryKey;size:1024"`
	Value     []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// TableName sets the table name.
func (Entry) TableName() string {
	return "wiki_cache_entries"
}

var _ Store = (*DatabaseStore)(nil)

// DatabaseStore is a Store shared by every server connected to the same
// database.
type DatabaseStore struct {
	db     *gorm.DB
	now    func() time.Time
	logger hclog.Logger
}

// NewDatabaseStore returns a store on the wiki_cache_entries table. The
// table is created by the schema migrations.
func NewDatabaseStore(db *gorm.DB, logger hclog.Logger) *DatabaseStore {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &DatabaseStore{
		db:     db,
		now:    time.Now,
		logger: logger.Named("cache-db"),
	}
}

// Get returns a live entry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).
		Where("cache_key = ? AND expires_at > ?", key, s.now().UTC()).
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e.Value, true, nil
}

// Set upserts the entry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if value == nil {
		value = []byte{}
	}
	e := Entry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().UTC().Add(ttl),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&e).Error
}

// Delete removes the entry.
func (s *DatabaseStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("cache_key = ?", key).Delete(&Entry{}).Error
}

// Prune deletes expired entries and returns how many were removed.
func (s *DatabaseStore) Prune(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Debug("pruned expired entries", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
