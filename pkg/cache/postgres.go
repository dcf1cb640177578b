package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wealthdesk/market-proxy/pkg/marketdata"
)

// cacheRecord is the persistent table of record for cached payloads,
// queried by exact (data_type, symbol) match filtered on expiry.
type cacheRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique key: one live entry per (data_type, symbol)
	DataType string `gorm:"type:text;not null;index:idx_cache_type_symbol,unique"`
	Symbol   string `gorm:"type:text;not null;default:'';index:idx_cache_type_symbol,unique"`

	Data []byte `gorm:"type:jsonb;not null"`

	Timestamp time.Time `gorm:"not null"`
	Expiry    time.Time `gorm:"not null;index:idx_cache_expiry"`
}

// TableName overrides the default table name for GORM.
func (cacheRecord) TableName() string {
	return "market_data_cache"
}

// PostgresStore persists entries in a Postgres table via GORM. Stale rows
// are never deleted; Get filters them out and Put overwrites them.
type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and migrates the cache table.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing GORM connection (for tests).
func NewPostgresStoreWithDB(db *gorm.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate() error {
	if err := s.db.AutoMigrate(&cacheRecord{}); err != nil {
		return fmt.Errorf("auto-migrate cache table: %w", err)
	}
	return nil
}

// Get returns the live entry for key, or ErrCacheMiss.
func (s *PostgresStore) Get(ctx context.Context, key Key) (*Entry, error) {
	var record cacheRecord
	err := s.db.WithContext(ctx).
		Where("data_type = ? AND symbol = ? AND expiry > ?", string(key.DataType), key.Symbol, time.Now()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			CacheMisses.WithLabelValues("postgres").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("postgres", "get").Inc()
		return nil, fmt.Errorf("postgres get: %w", err)
	}

	CacheHits.WithLabelValues("postgres").Inc()
	return &Entry{
		DataType:  marketdata.DataType(record.DataType),
		Symbol:    record.Symbol,
		Payload:   record.Data,
		WrittenAt: record.Timestamp,
		ExpiresAt: record.Expiry,
	}, nil
}

// Put upserts the row for key, superseding any prior entry.
func (s *PostgresStore) Put(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return ErrInvalidEntry
	}

	record := cacheRecord{
		DataType:  string(key.DataType),
		Symbol:    key.Symbol,
		Data:      entry.Payload,
		Timestamp: entry.WrittenAt,
		Expiry:    entry.ExpiresAt,
	}

	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "data_type"},
			{Name: "symbol"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"data", "timestamp", "expiry"}),
	}).Create(&record)

	if tx.Error != nil {
		CacheErrors.WithLabelValues("postgres", "put").Inc()
		return fmt.Errorf("postgres put: %w", tx.Error)
	}

	CacheWrites.WithLabelValues("postgres").Inc()
	return nil
}

// Close releases the underlying database connection.
func (s *PostgresStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("retrieve raw DB: %w", err)
	}
	return db.Close()
}
