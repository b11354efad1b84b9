package audit

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Repository defines the interface for audit data access
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	// List returns the newest entries first. limit <= 0 means no limit.
	List(ctx context.Context, sessionKey string, limit int) ([]*Entry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormRepository implements Repository using gorm
type GormRepository struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the audit table
func OpenPostgres(dsn string) (*GormRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}
	return NewGormRepository(db)
}

// NewGormRepository migrates the audit table on db
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit table: %w", err)
	}
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) Create(ctx context.Context, entry *Entry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

func (r *GormRepository) List(ctx context.Context, sessionKey string, limit int) ([]*Entry, error) {
	var entries []*Entry
	query := r.db.WithContext(ctx).
		Where("session_key = ?", sessionKey).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

func (r *GormRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Entry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete audit entries: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close releases the underlying connection pool
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
