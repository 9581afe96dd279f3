package queue

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// FailedJob describes a job that exhausted its retries.
type FailedJob struct {
	JobType  string
	Payload  string
	Error    string
	Attempts int
}

// FailedStore persists failed jobs.
type FailedStore interface {
	Record(ctx context.Context, f FailedJob) error
}

// FailedJobRecord is the row written to shop_failed_jobs.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"autoCreateTime"`
}

func (FailedJobRecord) TableName() string { return "shop_failed_jobs" }

// DBFailedStore writes failed jobs through gorm. The table is created by
// the migrations.
type DBFailedStore struct {
	db *gorm.DB
}

func NewDBFailedStore(db *gorm.DB) *DBFailedStore {
	return &DBFailedStore{db: db}
}

func (s *DBFailedStore) Record(ctx context.Context, f FailedJob) error {
	return s.db.WithContext(ctx).Create(&FailedJobRecord{
		JobType:  f.JobType,
		Payload:  f.Payload,
		Error:    f.Error,
		Attempts: f.Attempts,
	}).Error
}

// All returns failed jobs, newest first.
func (s *DBFailedStore) All(ctx context.Context) ([]FailedJobRecord, error) {
	var out []FailedJobRecord
	err := s.db.WithContext(ctx).Order("id DESC").Find(&out).Error
	return out, err
}

// Find returns the given failed jobs, or all of them when ids is empty,
// oldest first.
func (s *DBFailedStore) Find(ctx context.Context, ids ...uint) ([]FailedJobRecord, error) {
	q := s.db.WithContext(ctx).Order("id ASC")
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	var out []FailedJobRecord
	err := q.Find(&out).Error
	return out, err
}

func (s *DBFailedStore) Forget(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&FailedJobRecord{}, id).Error
}
