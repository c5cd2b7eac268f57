package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type SqliteStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ Storage = (*SqliteStorage)(nil)

// NewSqliteStorage opens (and migrates) the ledger database at path
func NewSqliteStorage(path string, logger *slog.Logger) (*SqliteStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("initializing database...", "path", path)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}

	if err := db.AutoMigrate(&MintAttempt{}); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}

	return &SqliteStorage{db: db, logger: logger}, nil
}

func (s *SqliteStorage) RecordAttempt(ctx context.Context, attempt *MintAttempt) error {
	if attempt == nil || attempt.ID == "" {
		return fmt.Errorf("attempt with an ID is required")
	}
	if attempt.Status == "" {
		attempt.Status = AttemptPending
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to record attempt %s: %w", attempt.ID, err)
	}
	s.logger.Debug("recorded mint attempt", "id", attempt.ID, "stage", attempt.Stage)
	return nil
}

func (s *SqliteStorage) UpdateAttempt(ctx context.Context, attempt *MintAttempt) error {
	if attempt == nil || attempt.ID == "" {
		return fmt.Errorf("attempt with an ID is required")
	}

	result := s.db.WithContext(ctx).
		Model(&MintAttempt{ID: attempt.ID}).
		Select("TransactionHash", "Stage", "Status", "ErrorKind", "Error", "TokenIDs", "Unresolved", "UpdatedAt").
		Updates(attempt)
	if result.Error != nil {
		return fmt.Errorf("failed to update attempt %s: %w", attempt.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrAttemptNotFound, attempt.ID)
	}

	s.logger.Debug("updated mint attempt", "id", attempt.ID, "stage", attempt.Stage, "status", attempt.Status)
	return nil
}

func (s *SqliteStorage) GetAttempt(ctx context.Context, id string) (*MintAttempt, error) {
	var attempt MintAttempt
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (s *SqliteStorage) ListUnresolved(ctx context.Context) ([]*MintAttempt, error) {
	var attempts []*MintAttempt
	err := s.db.WithContext(ctx).
		Where("unresolved = ? AND status <> ?", true, AttemptSettled).
		Order("created_at asc").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved attempts: %w", err)
	}
	return attempts, nil
}

func (s *SqliteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
