package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nadlan/server/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one row of the key-value table
type Entry struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Entry) TableName() string {
	return "kv_entries"
}

// Database is the sqlite backed key-value store
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
	now    func() time.Time
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL journaling
	if err := db.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		logger.WithError(err).Warn("Failed to enable WAL mode")
	}

	return &Database{db: db, logger: logger, now: utcNow}, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// GetDB exposes the gorm handle
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := d.db.WithContext(ctx).
		Where("key = ? AND (expires_at IS NULL OR expires_at > ?)", key, d.now()).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return entry.Value, nil
}

func (d *Database) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := Entry{Key: key, Value: value}
	if ttl > 0 {
		expiresAt := d.now().Add(ttl)
		entry.ExpiresAt = &expiresAt
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set entry: %w", err)
	}
	return nil
}

func (d *Database) Delete(ctx context.Context, key string) error {
	if err := d.db.WithContext(ctx).Delete(&Entry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// PurgeExpired removes expired rows and reports how many were deleted
func (d *Database) PurgeExpired(ctx context.Context) (int64, error) {
	result := d.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", d.now()).
		Delete(&Entry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		d.logger.WithField("purged", result.RowsAffected).Info("Purged expired cache entries")
	}
	return result.RowsAffected, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
