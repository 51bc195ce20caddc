// File: internal/repository/chat/interface.go
package chat

import (
	"context"
	"time"

	"github.com/iyusef/go-chatstream/internal/domain"
)

// ChatRepository defines persistence operations for chats.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error)
	FindByID(ctx context.Context, chatID string) (*domain.Chat, error)
	FindByOwner(ctx context.Context, chatID, userID string) (*domain.Chat, error)
	FindByUserID(ctx context.Context, userID string) ([]domain.Chat, error)
	FindByUserIDWithPagination(ctx context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error)
	Delete(ctx context.Context, chatID, userID string) error

	// RecordMessageActivity bumps message_count and last_message_at after a
	// message is appended to the chat.
	RecordMessageActivity(ctx context.Context, chatID string) error

	// UpdateAggregates persists the counters recomputed when an attempt
	// finalizes as completed.
	UpdateAggregates(ctx context.Context, chatID string, messageCount, addTokens int, lastMessageAt time.Time) error

	// SetGeneratedTitle stores an auto-derived title and marks it generated.
	SetGeneratedTitle(ctx context.Context, chatID, title string) error
}
