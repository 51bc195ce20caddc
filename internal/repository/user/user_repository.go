// File: internal/repository/user/user_repository.go
package user

import (
	"context"
	"errors"
	"log"

	"gorm.io/gorm"

	"github.com/iyusef/go-chatstream/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

type gormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, errors.New("invalid user ID")
	}

	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("[UserRepository] Database error finding user %s: %v", userID, err)
		return nil, errors.New("database error finding user")
	}
	return &user, nil
}

func (r *gormUserRepository) IncrementMonthlyUsage(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("invalid user ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("monthly_message_count", gorm.Expr("monthly_message_count + 1"))

	if result.Error != nil {
		log.Printf("[UserRepository] Database error incrementing usage for user %s: %v", userID, result.Error)
		return errors.New("database error incrementing monthly usage")
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
