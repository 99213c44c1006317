package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"facematch/internal/core/models"

	"github.com/glebarez/sqlite"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteStore is the persistent backend, a document-style store over SQLite
// with JSON columns for embeddings.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the database file, configures the connection
// pool and runs migrations.
func OpenSQLite(file string) (*SQLiteStore, error) {
	if file != "" && file != ":memory:" {
		dbDir := filepath.Dir(file)
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	gormLogger := logger.New(
		log.StandardLogger(),
		logger.Config{
			SlowThreshold:             time.Second * 2,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Infof("Connecting to database: %s", file)
	db, err := gorm.Open(sqlite.Open(file), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&models.FaceRecord{},
		&models.RecognitionLogEntry{},
		&models.User{},
	); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Name identifies the backend in logs and health output.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AddFace persists a new face record.
func (s *SQLiteStore) AddFace(ctx context.Context, rec *models.FaceRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

// GetFace looks up a record by id.
func (s *SQLiteStore) GetFace(ctx context.Context, id string) (*models.FaceRecord, error) {
	var rec models.FaceRecord
	result := s.db.WithContext(ctx).First(&rec, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, result.Error
	}
	return &rec, nil
}

// DeleteFace removes a record by id and reports whether it existed.
func (s *SQLiteStore) DeleteFace(ctx context.Context, id string) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&models.FaceRecord{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListFaces returns the gallery in insertion order.
func (s *SQLiteStore) ListFaces(ctx context.Context) ([]models.FaceRecord, error) {
	var faces []models.FaceRecord
	result := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&faces)
	if result.Error != nil {
		return nil, result.Error
	}
	return faces, nil
}

// AppendLog persists one recognition log entry.
func (s *SQLiteStore) AppendLog(ctx context.Context, entry *models.RecognitionLogEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// ListLogs returns matching entries newest-first.
func (s *SQLiteStore) ListLogs(ctx context.Context, filter LogFilter) ([]models.RecognitionLogEntry, error) {
	query := s.db.WithContext(ctx).Model(&models.RecognitionLogEntry{}).Order("timestamp DESC, id DESC")
	if filter.Since != nil {
		query = query.Where("timestamp >= ?", *filter.Since)
	}
	if filter.Method != "" {
		query = query.Where("method = ?", filter.Method)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.RecognitionLogEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
