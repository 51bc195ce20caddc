// File: internal/repository/message/message_repository.go

package message

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

var ErrMessageNotFound = errors.New("message not found")
var ErrInvalidTransition = errors.New("invalid message status transition")

type gormMessageRepository struct {
	db      *gorm.DB
	changes events.Publisher
}

func NewMessageRepository(db *gorm.DB, changes events.Publisher) MessageRepository {
	if changes == nil {
		changes = events.NopPublisher{}
	}
	return &gormMessageRepository{db: db, changes: changes}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := r.validateMessageInput(message); err != nil {
		log.Printf("[MessageRepository] Validation failed: %v", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	err := r.db.WithContext(ctx).Create(message).Error
	if err != nil {
		log.Printf("[MessageRepository] Database error during message creation for chat %s: %v", message.ChatID, err)
		return nil, errors.New("database error creating message")
	}

	r.changes.Publish(events.Change{Entity: "message", ID: message.ID, ChatID: message.ChatID})
	return message, nil
}

func (r *gormMessageRepository) FindByID(ctx context.Context, messageID string) (*domain.Message, error) {
	if messageID == "" {
		return nil, errors.New("invalid message ID")
	}

	var message domain.Message
	err := r.db.WithContext(ctx).First(&message, "id = ?", messageID).Error
	return r.handleFindError(err, &message, "FindByID")
}

func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at asc, id asc").
		Find(&messages).Error

	if err != nil {
		log.Printf("[MessageRepository] Database error finding messages for chat %s: %v", chatID, err)
		return nil, errors.New("database error fetching messages")
	}

	return messages, nil
}

func (r *gormMessageRepository) FindRecent(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	if chatID == "" {
		return nil, errors.New("invalid chat ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, errors.New("invalid limit: must be between 1 and 1000")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&messages).Error

	if err != nil {
		log.Printf("[MessageRepository] Database error loading recent messages for chat %s: %v", chatID, err)
		return nil, errors.New("database error fetching recent messages")
	}

	// Newest-first from the query; the prompt wants oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *gormMessageRepository) CountByChatID(ctx context.Context, chatID string) (int64, error) {
	if chatID == "" {
		return 0, errors.New("invalid chat ID")
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		log.Printf("[MessageRepository] Database error counting messages for chat %s: %v", chatID, err)
		return 0, errors.New("database error counting messages")
	}
	return total, nil
}

func (r *gormMessageRepository) UpdateStreamContent(ctx context.Context, messageID, content string) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status = ?", messageID, domain.StatusProcessing).
		Updates(map[string]interface{}{
			"content":    content,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		log.Printf("[MessageRepository] Database error streaming content into message %s: %v", messageID, result.Error)
		return errors.New("database error updating message content")
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	r.publishMessageChange(ctx, messageID)
	return nil
}

func (r *gormMessageRepository) ResetForAttempt(ctx context.Context, messageID string) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status <> ?", messageID, domain.StatusCancelled).
		Updates(map[string]interface{}{
			"content":       "",
			"status":        domain.StatusProcessing,
			"error_message": "",
			"attempt_count": gorm.Expr("attempt_count + 1"),
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		log.Printf("[MessageRepository] Database error resetting message %s for attempt: %v", messageID, result.Error)
		return errors.New("database error resetting message")
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	r.publishMessageChange(ctx, messageID)
	return nil
}

func (r *gormMessageRepository) MarkRegenerating(ctx context.Context, messageID string) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND role = ? AND status IN ?", messageID, domain.RoleAssistant,
			[]string{domain.StatusCompleted, domain.StatusFailed}).
		Updates(map[string]interface{}{
			"status":             domain.StatusProcessing,
			"error_message":      "",
			"is_regenerated":     true,
			"regeneration_count": gorm.Expr("regeneration_count + 1"),
			"updated_at":         time.Now(),
		})

	if result.Error != nil {
		log.Printf("[MessageRepository] Database error marking message %s for regeneration: %v", messageID, result.Error)
		return errors.New("database error marking message for regeneration")
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	r.publishMessageChange(ctx, messageID)
	return nil
}

func (r *gormMessageRepository) FinalizeSuccess(ctx context.Context, messageID, content string, totalTokens int) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status = ?", messageID, domain.StatusProcessing).
		Updates(map[string]interface{}{
			"content":      content,
			"status":       domain.StatusCompleted,
			"total_tokens": totalTokens,
			"completed_at": now,
			"updated_at":   now,
		})

	if result.Error != nil {
		log.Printf("[MessageRepository] Database error finalizing message %s: %v", messageID, result.Error)
		return errors.New("database error finalizing message")
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	r.publishMessageChange(ctx, messageID)
	return nil
}

func (r *gormMessageRepository) FinalizeFailure(ctx context.Context, messageID, errorMessage string) error {
	if messageID == "" {
		return errors.New("invalid message ID")
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status IN ?", messageID,
			[]string{domain.StatusPending, domain.StatusProcessing}).
		Updates(map[string]interface{}{
			"status":        domain.StatusFailed,
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		log.Printf("[MessageRepository] Database error failing message %s: %v", messageID, result.Error)
		return errors.New("database error failing message")
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}

	r.publishMessageChange(ctx, messageID)
	return nil
}

// EditAndSupersede runs the edit and the descendant cancellation in one
// transaction so a concurrent stream reader never observes a half-applied
// supersession.
func (r *gormMessageRepository) EditAndSupersede(ctx context.Context, messageID, newContent, reason string) (int64, error) {
	if messageID == "" {
		return 0, errors.New("invalid message ID")
	}

	var cancelled int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&domain.Message{}).
			Where("id = ? AND role = ?", messageID, domain.RoleUser).
			Updates(map[string]interface{}{
				"content":       newContent,
				"status":        domain.StatusCompleted,
				"error_message": "",
				"updated_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMessageNotFound
		}

		result = tx.Model(&domain.Message{}).
			Where("parent_message_id = ? AND role = ?", messageID, domain.RoleAssistant).
			Updates(map[string]interface{}{
				"status":        domain.StatusCancelled,
				"error_message": reason,
				"updated_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		cancelled = result.RowsAffected
		return nil
	})

	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return 0, err
		}
		log.Printf("[MessageRepository] Database error superseding edits of message %s: %v", messageID, err)
		return 0, errors.New("database error editing message")
	}

	r.publishMessageChange(ctx, messageID)
	return cancelled, nil
}

func (r *gormMessageRepository) publishMessageChange(ctx context.Context, messageID string) {
	var message domain.Message
	if err := r.db.WithContext(ctx).Select("id", "chat_id").First(&message, "id = ?", messageID).Error; err != nil {
		return
	}
	r.changes.Publish(events.Change{Entity: "message", ID: message.ID, ChatID: message.ChatID})
}

func (r *gormMessageRepository) handleFindError(err error, message *domain.Message, operation string) (*domain.Message, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		log.Printf("[MessageRepository] Database error in %s: %v", operation, err)
		return nil, errors.New("database error finding message")
	}
	return message, nil
}

func (r *gormMessageRepository) validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if strings.TrimSpace(message.ChatID) == "" {
		return errors.New("message must belong to a chat")
	}
	switch message.Role {
	case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
	default:
		return fmt.Errorf("invalid role %q", message.Role)
	}
	return nil
}
