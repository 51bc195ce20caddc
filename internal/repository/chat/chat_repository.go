// File: internal/repository/chat/chat_repository.go

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/events"
)

var ErrChatNotFound = errors.New("chat not found")
var ErrUnauthorizedAccess = errors.New("unauthorized access to chat")

type gormChatRepository struct {
	db      *gorm.DB
	changes events.Publisher
}

func NewChatRepository(db *gorm.DB, changes events.Publisher) ChatRepository {
	if changes == nil {
		changes = events.NopPublisher{}
	}
	return &gormChatRepository{db: db, changes: changes}
}

// Create - assigns the chat id when the caller did not provide one.
func (r *gormChatRepository) Create(ctx context.Context, chat *domain.Chat) (*domain.Chat, error) {
	if err := r.validateChatInput(chat); err != nil {
		log.Printf("[ChatRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}

	err := r.db.WithContext(ctx).Create(chat).Error
	if err != nil {
		log.Printf("[ChatRepository] Database error during chat creation for user %s: %v", chat.UserID, err)
		return nil, errors.New("database error creating chat")
	}

	r.changes.Publish(events.Change{Entity: "chat", ID: chat.ID, UserID: chat.UserID})
	return chat, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID string) (*domain.Chat, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error
	return r.handleFindError(err, &chat, "FindByID")
}

// FindByOwner loads a chat only when it belongs to the given user. A missing
// chat is ErrChatNotFound; an existing chat owned by someone else is
// ErrUnauthorizedAccess.
func (r *gormChatRepository) FindByOwner(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	if chatID == "" || userID == "" {
		return nil, errors.New("invalid chat ID or user ID")
	}

	var chat domain.Chat
	err := r.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error
	if _, err := r.handleFindError(err, &chat, "FindByOwner"); err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, ErrUnauthorizedAccess
	}
	return &chat, nil
}

func (r *gormChatRepository) FindByUserID(ctx context.Context, userID string) ([]domain.Chat, error) {
	if userID == "" {
		return nil, errors.New("invalid user ID")
	}

	var chats []domain.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&chats).Error

	if err != nil {
		log.Printf("[ChatRepository] Database error finding chats for user %s: %v", userID, err)
		return nil, errors.New("database error fetching chats")
	}

	return chats, nil
}

// FindByUserIDWithPagination - bounded variant for large chat histories.
func (r *gormChatRepository) FindByUserIDWithPagination(ctx context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error) {
	if userID == "" {
		return nil, 0, errors.New("invalid user ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, 0, errors.New("invalid limit: must be between 1 and 1000")
	}
	if offset < 0 {
		return nil, 0, errors.New("invalid offset: must be >= 0")
	}

	var chats []domain.Chat
	var total int64

	if err := r.db.WithContext(ctx).Model(&domain.Chat{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		log.Printf("[ChatRepository] Database error counting chats for user %s: %v", userID, err)
		return nil, 0, errors.New("database error counting chats")
	}

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error

	if err != nil {
		log.Printf("[ChatRepository] Database error in paginated query for user %s: %v", userID, err)
		return nil, 0, errors.New("database error retrieving paginated chats")
	}

	return chats, total, nil
}

func (r *gormChatRepository) Delete(ctx context.Context, chatID, userID string) error {
	if chatID == "" || userID == "" {
		return errors.New("invalid chat ID or user ID")
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		Delete(&domain.Chat{})

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error deleting chat %s for user %s: %v", chatID, userID, result.Error)
		return errors.New("database error deleting chat")
	}

	if result.RowsAffected == 0 {
		return ErrUnauthorizedAccess
	}

	r.changes.Publish(events.Change{Entity: "chat", ID: chatID, UserID: userID})
	return nil
}

func (r *gormChatRepository) RecordMessageActivity(ctx context.Context, chatID string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"message_count":   gorm.Expr("message_count + 1"),
			"last_message_at": now,
			"updated_at":      now,
		})

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error recording activity for chat %s: %v", chatID, result.Error)
		return errors.New("database error updating chat activity")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}

	r.publishChatChange(ctx, chatID)
	return nil
}

func (r *gormChatRepository) UpdateAggregates(ctx context.Context, chatID string, messageCount, addTokens int, lastMessageAt time.Time) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"message_count":     messageCount,
			"last_message_at":   lastMessageAt,
			"total_tokens_used": gorm.Expr("total_tokens_used + ?", addTokens),
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error updating aggregates for chat %s: %v", chatID, result.Error)
		return errors.New("database error updating chat aggregates")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}

	r.publishChatChange(ctx, chatID)
	return nil
}

func (r *gormChatRepository) SetGeneratedTitle(ctx context.Context, chatID, title string) error {
	if chatID == "" {
		return errors.New("invalid chat ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"title":              title,
			"is_title_generated": true,
			"updated_at":         time.Now(),
		})

	if result.Error != nil {
		log.Printf("[ChatRepository] Database error setting title for chat %s: %v", chatID, result.Error)
		return errors.New("database error setting chat title")
	}
	if result.RowsAffected == 0 {
		return ErrChatNotFound
	}

	r.publishChatChange(ctx, chatID)
	return nil
}

// publishChatChange looks up the owner so subscribers get a user-scoped event.
func (r *gormChatRepository) publishChatChange(ctx context.Context, chatID string) {
	var chat domain.Chat
	if err := r.db.WithContext(ctx).Select("id", "user_id").First(&chat, "id = ?", chatID).Error; err != nil {
		return
	}
	r.changes.Publish(events.Change{Entity: "chat", ID: chat.ID, UserID: chat.UserID})
}

func (r *gormChatRepository) handleFindError(err error, chat *domain.Chat, operation string) (*domain.Chat, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		log.Printf("[ChatRepository] Database error in %s: %v", operation, err)
		return nil, errors.New("database error finding chat")
	}
	return chat, nil
}

func (r *gormChatRepository) validateChatInput(chat *domain.Chat) error {
	if chat == nil {
		return errors.New("chat cannot be nil")
	}
	if strings.TrimSpace(chat.UserID) == "" {
		return errors.New("chat must have an owner")
	}
	if len(chat.Title) > 255 {
		return errors.New("chat title exceeds 255 characters")
	}
	return nil
}
