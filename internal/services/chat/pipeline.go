// File: internal/services/chat/pipeline.go
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iyusef/go-chatstream/internal/domain"
	chatrepo "github.com/iyusef/go-chatstream/internal/repository/chat"
	messagerepo "github.com/iyusef/go-chatstream/internal/repository/message"
	"github.com/iyusef/go-chatstream/internal/services/ai"
)

const supersededReason = "Superseded after user edit"

// Pipeline owns the message lifecycle: append, edit with supersession and
// regeneration, each handing an assistant placeholder to the dispatcher.
type Pipeline struct {
	chats      chatrepo.ChatRepository
	messages   messagerepo.MessageRepository
	provider   ai.CompletionProvider
	catalog    *ai.ModelCatalog
	dispatcher *Dispatcher
	worker     *Worker
	logger     Logger
}

func NewPipeline(
	chats chatrepo.ChatRepository,
	messages messagerepo.MessageRepository,
	provider ai.CompletionProvider,
	catalog *ai.ModelCatalog,
	dispatcher *Dispatcher,
	worker *Worker,
	logger Logger,
) *Pipeline {
	return &Pipeline{
		chats:      chats,
		messages:   messages,
		provider:   provider,
		catalog:    catalog,
		dispatcher: dispatcher,
		worker:     worker,
		logger:     logger,
	}
}

// SendUserMessage appends a user message, creates the assistant placeholder
// answering it and tries to queue a generation attempt. The caller always gets
// both message ids back; Queued tells it whether anything will stream.
func (p *Pipeline) SendUserMessage(ctx context.Context, userID, chatID, content string) (*DispatchOutcome, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewValidationError("send_message", "message content is required")
	}

	chatRec, err := p.ownedChat(ctx, "send_message", chatID, userID)
	if err != nil {
		return nil, err
	}

	userMsg, err := p.messages.Create(ctx, &domain.Message{
		ID:      uuid.NewString(),
		ChatID:  chatRec.ID,
		Role:    domain.RoleUser,
		Content: content,
		Status:  domain.StatusCompleted,
	})
	if err != nil {
		return nil, NewDatabaseError("send_message", err)
	}
	if err := p.chats.RecordMessageActivity(ctx, chatRec.ID); err != nil {
		p.logger.Warn("Cannot record message activity", "chat_id", chatRec.ID, "error", err)
	}

	assistant, err := p.createPlaceholder(ctx, chatRec, userMsg.ID)
	if err != nil {
		return nil, err
	}

	queued := p.tryDispatch(assistant.ID)
	return &DispatchOutcome{
		UserMessage:      userMsg.ID,
		AssistantMessage: assistant.ID,
		Queued:           queued,
	}, nil
}

// EditUserMessage rewrites a user message in place, cancels every assistant
// reply generated from the old content and queues a fresh placeholder.
func (p *Pipeline) EditUserMessage(ctx context.Context, userID, chatID, messageID, newContent string) (*DispatchOutcome, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, NewValidationError("edit_message", "message content is required")
	}

	chatRec, err := p.ownedChat(ctx, "edit_message", chatID, userID)
	if err != nil {
		return nil, err
	}

	msg, err := p.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, messagerepo.ErrMessageNotFound) {
			return nil, NewNotFoundError("edit_message", chatID)
		}
		return nil, NewDatabaseError("edit_message", err)
	}
	if msg.ChatID != chatRec.ID {
		return nil, NewNotFoundError("edit_message", chatID)
	}
	if msg.Role != domain.RoleUser {
		return nil, NewValidationError("edit_message", "only user messages can be edited")
	}

	superseded, err := p.messages.EditAndSupersede(ctx, messageID, newContent, supersededReason)
	if err != nil {
		return nil, NewDatabaseError("edit_message", err)
	}
	p.logger.Info("User message edited",
		"message_id", messageID,
		"superseded", superseded)

	assistant, err := p.createPlaceholder(ctx, chatRec, messageID)
	if err != nil {
		return nil, err
	}

	queued := p.tryDispatch(assistant.ID)
	return &DispatchOutcome{
		UserMessage:      messageID,
		AssistantMessage: assistant.ID,
		Queued:           queued,
	}, nil
}

// RegenerateAssistantMessage re-runs generation on an existing assistant
// message, reusing its id so history keeps a single reply per user turn.
func (p *Pipeline) RegenerateAssistantMessage(ctx context.Context, userID, chatID, messageID string) (*DispatchOutcome, error) {
	chatRec, err := p.ownedChat(ctx, "regenerate_message", chatID, userID)
	if err != nil {
		return nil, err
	}

	msg, err := p.messages.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, messagerepo.ErrMessageNotFound) {
			return nil, NewNotFoundError("regenerate_message", chatID)
		}
		return nil, NewDatabaseError("regenerate_message", err)
	}
	if msg.ChatID != chatRec.ID {
		return nil, NewNotFoundError("regenerate_message", chatID)
	}
	if msg.Role != domain.RoleAssistant {
		return nil, NewValidationError("regenerate_message", "only assistant messages can be regenerated")
	}

	if err := p.messages.MarkRegenerating(ctx, messageID); err != nil {
		if errors.Is(err, messagerepo.ErrInvalidTransition) {
			return nil, NewConflictError("regenerate_message", "message is not in a regenerable state")
		}
		return nil, NewDatabaseError("regenerate_message", err)
	}

	parentID := ""
	if msg.ParentMessageID != nil {
		parentID = *msg.ParentMessageID
	}

	queued := p.tryDispatch(messageID)
	return &DispatchOutcome{
		UserMessage:      parentID,
		AssistantMessage: messageID,
		Queued:           queued,
	}, nil
}

func (p *Pipeline) createPlaceholder(ctx context.Context, chatRec *domain.Chat, parentID string) (*domain.Message, error) {
	parent := parentID
	assistant, err := p.messages.Create(ctx, &domain.Message{
		ID:              uuid.NewString(),
		ChatID:          chatRec.ID,
		Role:            domain.RoleAssistant,
		Status:          domain.StatusPending,
		ModelUsed:       p.catalog.Resolve(chatRec.ModelUsed),
		ParentMessageID: &parent,
	})
	if err != nil {
		return nil, NewDatabaseError("create_placeholder", err)
	}
	if err := p.chats.RecordMessageActivity(ctx, chatRec.ID); err != nil {
		p.logger.Warn("Cannot record message activity", "chat_id", chatRec.ID, "error", err)
	}
	return assistant, nil
}

// tryDispatch queues a generation attempt. An unconfigured provider or a
// saturated pool both degrade to Queued=false; the placeholder stays behind
// for the stream publisher to settle.
func (p *Pipeline) tryDispatch(messageID string) bool {
	if !p.provider.IsConfigured() {
		p.logger.Warn("AI provider not configured, skipping dispatch", "message_id", messageID)
		return false
	}
	return p.dispatcher.Dispatch(messageID, func(ctx context.Context) {
		p.worker.Generate(ctx, messageID)
	})
}

func (p *Pipeline) ownedChat(ctx context.Context, operation, chatID, userID string) (*domain.Chat, error) {
	chatRec, err := p.chats.FindByOwner(ctx, chatID, userID)
	if err != nil {
		switch {
		case errors.Is(err, chatrepo.ErrChatNotFound):
			return nil, NewNotFoundError(operation, chatID)
		case errors.Is(err, chatrepo.ErrUnauthorizedAccess):
			return nil, NewUnauthorizedError(operation, chatID)
		default:
			return nil, NewDatabaseError(operation, err)
		}
	}
	return chatRec, nil
}
