// File: internal/repository/user/interface.go
package user

import (
	"context"

	"github.com/iyusef/go-chatstream/internal/domain"
)

// UserRepository covers the narrow slice of user state the pipeline touches.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.User, error)
	IncrementMonthlyUsage(ctx context.Context, userID string) error
}
