// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyusef/go-chatstream/internal/domain"
)

// MessageRepository defines persistence operations for messages, including the
// guarded status transitions of the generation state machine.
type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByID(ctx context.Context, messageID string) (*domain.Message, error)
	FindByChatID(ctx context.Context, chatID string) ([]domain.Message, error)

	// FindRecent returns the most recent limit messages of the chat in
	// oldest-first order, for prompt-window construction.
	FindRecent(ctx context.Context, chatID string, limit int) ([]domain.Message, error)

	CountByChatID(ctx context.Context, chatID string) (int64, error)

	// UpdateStreamContent persists a partial assistant reply mid-attempt. It
	// touches content only and refuses terminal messages.
	UpdateStreamContent(ctx context.Context, messageID, content string) error

	// ResetForAttempt is the idempotent re-entry point of a generation
	// attempt: empties content, clears the error, sets processing and bumps
	// the attempt counter. Cancelled messages cannot be re-entered.
	ResetForAttempt(ctx context.Context, messageID string) error

	// MarkRegenerating performs the sanctioned completed|failed -> processing
	// transition that starts a regeneration, bumping regeneration_count.
	MarkRegenerating(ctx context.Context, messageID string) error

	FinalizeSuccess(ctx context.Context, messageID, content string, totalTokens int) error
	FinalizeFailure(ctx context.Context, messageID, errorMessage string) error

	// EditAndSupersede atomically rewrites a user message and cancels every
	// assistant message generated from its pre-edit content. Returns the
	// number of superseded descendants.
	EditAndSupersede(ctx context.Context, messageID, newContent, reason string) (int64, error)
}
