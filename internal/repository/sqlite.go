package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/utils"
)

// SQLiteStore is the embedded-database alternative to FileStore. One row per
// user; slice fields ride along as JSON columns so the record contract stays
// identical to the flat file.
type SQLiteStore struct {
	db     *gorm.DB
	logger *utils.Logger
}

func NewSQLiteStore(path string, logger *utils.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", path, err)
	}

	if err := db.AutoMigrate(&models.UserRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID int64) (*models.UserRecord, error) {
	var record models.UserRecord
	err := s.db.WithContext(ctx).First(&record, "user_id = ?", userID).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	fresh := models.NewUserRecord(userID, time.Now())
	if err := s.db.WithContext(ctx).Create(fresh).Error; err != nil {
		return fresh, fmt.Errorf("failed to create user %d: %w", userID, err)
	}
	return fresh, nil
}

func (s *SQLiteStore) Put(ctx context.Context, record *models.UserRecord) error {
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to save user %d: %w", record.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) All(ctx context.Context) (map[int64]*models.UserRecord, error) {
	var records []*models.UserRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make(map[int64]*models.UserRecord, len(records))
	for _, record := range records {
		out[record.UserID] = record
	}
	return out, nil
}
