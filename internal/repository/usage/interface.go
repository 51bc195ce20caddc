// File: internal/repository/usage/interface.go
package usage

import (
	"context"

	"github.com/iyusef/go-chatstream/internal/domain"
)

// UsageRepository records best-effort accounting rows from the fan-out.
type UsageRepository interface {
	Create(ctx context.Context, record *domain.UsageRecord) (*domain.UsageRecord, error)
	FindByUserID(ctx context.Context, userID string, limit, offset int) ([]domain.UsageRecord, int64, error)
}
