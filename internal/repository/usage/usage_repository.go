// File: internal/repository/usage/usage_repository.go
package usage

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/iyusef/go-chatstream/internal/domain"
)

type gormUsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &gormUsageRepository{db: db}
}

func (r *gormUsageRepository) Create(ctx context.Context, record *domain.UsageRecord) (*domain.UsageRecord, error) {
	if record == nil || record.UserID == "" {
		return nil, errors.New("usage record must reference a user")
	}

	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		log.Printf("[UsageRepository] Database error creating usage record for user %s: %v", record.UserID, err)
		return nil, errors.New("database error creating usage record")
	}
	return record, nil
}

func (r *gormUsageRepository) FindByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.UsageRecord, int64, error) {
	if userID == "" {
		return nil, 0, errors.New("invalid user ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var records []domain.UsageRecord
	var total int64

	if err := r.db.WithContext(ctx).Model(&domain.UsageRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		log.Printf("[UsageRepository] Database error counting usage for user %s: %v", userID, err)
		return nil, 0, errors.New("database error counting usage records")
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&records).Error

	if err != nil {
		log.Printf("[UsageRepository] Database error fetching usage for user %s: %v", userID, err)
		return nil, 0, errors.New("database error fetching usage records")
	}

	return records, total, nil
}
