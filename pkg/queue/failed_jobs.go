package queue

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FailedJobRecord is the gorm model for jobs that exhausted their retries.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"autoCreateTime"`
}

func (FailedJobRecord) TableName() string { return "beanleaf_failed_jobs" }

// GormFailedStore writes failed jobs to a SQL table.
type GormFailedStore struct {
	db *gorm.DB
}

// NewGormFailedStore migrates the failed-jobs table and returns the store.
func NewGormFailedStore(db *gorm.DB) (*GormFailedStore, error) {
	if err := db.AutoMigrate(&FailedJobRecord{}); err != nil {
		return nil, fmt.Errorf("queue: migrate failed jobs: %w", err)
	}
	return &GormFailedStore{db: db}, nil
}

func (s *GormFailedStore) SaveFailed(ctx context.Context, f FailedJob, payload []byte) error {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	record := FailedJobRecord{
		JobType:  f.Type,
		Payload:  string(payload),
		Error:    msg,
		Attempts: f.Attempts,
		FailedAt: f.FailedAt,
	}
	return s.db.WithContext(ctx).Create(&record).Error
}

// Recent returns the newest failed jobs first.
func (s *GormFailedStore) Recent(ctx context.Context, limit int) ([]FailedJobRecord, error) {
	var out []FailedJobRecord
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
