// Package store persists per-cycle market records to sqlite so that
// risk windows and post-run analysis survive a restart.
package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CycleRecord is one market's outcome for one cycle.
type CycleRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Seq       uint64 `gorm:"index"`
	Market    string `gorm:"index"`
	Return    float64
	Volume    float64
	Spread    float64
	Inventory float64
	Throttled bool
	CreatedAt time.Time
}

// Store wraps the sqlite database.
type Store struct {
	db *gorm.DB
}

// Open creates or opens the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.AutoMigrate(&CycleRecord{}); err != nil {
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return &Store{db: db}, nil
}

// Append writes one cycle's records in a single transaction.
func (s *Store) Append(records []CycleRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.db.Create(&records).Error; err != nil {
		return fmt.Errorf("append cycle records: %w", err)
	}
	return nil
}

// RecentByMarket returns up to limit most recent records for a market,
// newest first.
func (s *Store) RecentByMarket(market string, limit int) ([]CycleRecord, error) {
	var out []CycleRecord
	err := s.db.
		Where("market = ?", market).
		Order("seq desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("query cycle records: %w", err)
	}
	return out, nil
}

// Prune deletes records older than the cutoff.
func (s *Store) Prune(before time.Time) error {
	if err := s.db.Where("created_at < ?", before).Delete(&CycleRecord{}).Error; err != nil {
		return fmt.Errorf("prune cycle records: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
