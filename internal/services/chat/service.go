// File: internal/services/chat/service.go
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iyusef/go-chatstream/internal/domain"
	chatrepo "github.com/iyusef/go-chatstream/internal/repository/chat"
)

// Service covers chat CRUD around the pipeline.
type Service struct {
	chats    chatrepo.ChatRepository
	messages messageReader
	catalog  catalogResolver
	memory   MemoryCleaner
	vector   VectorCleaner
	logger   Logger
}

type messageReader interface {
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)
}

type catalogResolver interface {
	Resolve(requested string) string
}

// MemoryCleaner removes a deleted chat's entries from long-term memory.
type MemoryCleaner interface {
	DeleteChatMemories(ctx context.Context, userID, chatID string) error
}

// VectorCleaner removes a deleted chat's vectors from the index.
type VectorCleaner interface {
	DeleteExchanges(ctx context.Context, messageIDs []string) error
}

func NewService(chats chatrepo.ChatRepository, messages messageReader, catalog catalogResolver, memory MemoryCleaner, vector VectorCleaner, logger Logger) *Service {
	return &Service{chats: chats, messages: messages, catalog: catalog, memory: memory, vector: vector, logger: logger}
}

// CreateChat starts a new conversation. Model is resolved now so every later
// attempt uses a canonical id.
func (s *Service) CreateChat(ctx context.Context, userID, title, model, systemPrompt string) (*domain.Chat, error) {
	if userID == "" {
		return nil, NewValidationError("create_chat", "user id is required")
	}

	chatRec := &domain.Chat{
		UserID:       userID,
		Title:        strings.TrimSpace(title),
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
		MaxTokens:    1000,
	}
	if model != "" {
		chatRec.ModelUsed = s.catalog.Resolve(model)
	}

	created, err := s.chats.Create(ctx, chatRec)
	if err != nil {
		return nil, NewDatabaseError("create_chat", err)
	}
	s.logger.Info("Chat created", "chat_id", created.ID, "user_id", userID)
	return created, nil
}

func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	chatRec, err := s.chats.FindByOwner(ctx, chatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, chatrepo.ErrChatNotFound):
			return nil, NewNotFoundError("get_chat", chatID)
		case errors.Is(err, chatrepo.ErrUnauthorizedAccess):
			return nil, NewUnauthorizedError("get_chat", chatID)
		default:
			return nil, NewDatabaseError("get_chat", err)
		}
	}
	return chatRec, nil
}

func (s *Service) ListChats(ctx context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	chats, total, err := s.chats.FindByUserIDWithPagination(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, NewDatabaseError("list_chats", err)
	}
	return chats, total, nil
}

func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	var messageIDs []string
	if s.vector != nil {
		if messages, err := s.messages.FindByChatID(ctx, chatID); err == nil {
			for i := range messages {
				if messages[i].Role == domain.RoleAssistant {
					messageIDs = append(messageIDs, messages[i].ID)
				}
			}
		}
	}

	err := s.chats.Delete(ctx, chatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, chatrepo.ErrChatNotFound):
			return NewNotFoundError("delete_chat", chatID)
		case errors.Is(err, chatrepo.ErrUnauthorizedAccess):
			return NewUnauthorizedError("delete_chat", chatID)
		default:
			return NewDatabaseError("delete_chat", err)
		}
	}
	s.logger.Info("Chat deleted", "chat_id", chatID, "user_id", userID)
	s.cleanupExternal(userID, chatID, messageIDs)
	return nil
}

// cleanupExternal clears the deleted chat's traces in the memory and vector
// stores. Best-effort on a detached context, like the fan-out tasks.
func (s *Service) cleanupExternal(userID, chatID string, messageIDs []string) {
	if s.memory == nil && s.vector == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Chat cleanup panicked", "chat_id", chatID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if s.memory != nil {
			if err := s.memory.DeleteChatMemories(ctx, userID, chatID); err != nil {
				s.logger.Warn("Memory cleanup failed", "chat_id", chatID, "error", err)
			}
		}
		if s.vector != nil && len(messageIDs) > 0 {
			if err := s.vector.DeleteExchanges(ctx, messageIDs); err != nil {
				s.logger.Warn("Vector cleanup failed", "chat_id", chatID, "error", err)
			}
		}
	}()
}

// GetMessage returns one message after checking the chat belongs to the user.
func (s *Service) GetMessage(ctx context.Context, userID, chatID, messageID string) (*domain.Message, error) {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, NewNotFoundError("get_message", chatID)
	}
	if msg.ChatID != chatID {
		return nil, NewNotFoundError("get_message", chatID)
	}
	return msg, nil
}

// ListMessages returns the full history of an owned chat, oldest first.
func (s *Service) ListMessages(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	messages, err := s.messages.FindByChatID(ctx, chatID)
	if err != nil {
		return nil, NewDatabaseError("list_messages", err)
	}
	return messages, nil
}
