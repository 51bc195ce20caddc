// File: internal/services/chat/publisher.go
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/iyusef/go-chatstream/internal/domain"
	messagerepo "github.com/iyusef/go-chatstream/internal/repository/message"
)

// Publisher turns the persisted state of a streaming message into client
// events by polling the row. It shares nothing with the worker except the
// database, so it works no matter which process runs the attempt.
type Publisher struct {
	messages messagerepo.MessageRepository
	config   *Config
	logger   Logger
}

func NewPublisher(messages messagerepo.MessageRepository, config *Config, logger Logger) *Publisher {
	return &Publisher{messages: messages, config: config, logger: logger}
}

// Stream emits frames for messageID until the message reaches a terminal
// status, the wait ceiling passes, or ctx is cancelled. queued=false means no
// worker was started for this message: the publisher settles it as failed and
// emits exactly a connected and a completion frame.
func (p *Publisher) Stream(ctx context.Context, messageID string, queued bool, emit EmitFunc) error {
	msg, err := p.messages.FindByID(ctx, messageID)
	if err != nil {
		return err
	}

	connected := StreamFrame{
		Type:             EventConnected,
		MessageID:        messageID,
		Status:           msg.Status,
		Queued:           &queued,
		AssistantMessage: messagePayload(msg),
	}
	if msg.ParentMessageID != nil {
		if parent, err := p.messages.FindByID(ctx, *msg.ParentMessageID); err == nil {
			connected.UserMessage = messagePayload(parent)
		}
	}
	if err := emit(connected); err != nil {
		return err
	}

	if !queued && !msg.IsTerminal() {
		if err := p.messages.FinalizeFailure(ctx, messageID, "AI response dispatch skipped"); err != nil &&
			!errors.Is(err, messagerepo.ErrInvalidTransition) {
			return err
		}
		settled, err := p.messages.FindByID(ctx, messageID)
		if err != nil {
			return err
		}
		return emit(p.completionFrame(settled))
	}

	sent := 0
	attempt := msg.AttemptCount
	// Latched on an attempt change until the next delta goes out, since the new
	// attempt may not have written content yet when the change is noticed.
	pendingRestart := false

	if msg.Content != "" {
		if err := emit(StreamFrame{
			Type:         EventContentDelta,
			MessageID:    messageID,
			Delta:        msg.Content,
			TotalContent: msg.Content,
		}); err != nil {
			return err
		}
		sent = len(msg.Content)
	}
	if msg.IsTerminal() {
		return emit(p.completionFrame(msg))
	}

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()
	deadline := time.Now().Add(p.config.MaxStreamWait)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		current, err := p.messages.FindByID(ctx, messageID)
		if err != nil {
			return err
		}

		if current.AttemptCount != attempt {
			// A regeneration replaced the content; restart delivery from zero.
			attempt = current.AttemptCount
			sent = 0
			pendingRestart = true
		}

		if len(current.Content) > sent {
			if err := emit(StreamFrame{
				Type:         EventContentDelta,
				MessageID:    messageID,
				Delta:        current.Content[sent:],
				TotalContent: current.Content,
				Restarted:    pendingRestart,
			}); err != nil {
				return err
			}
			sent = len(current.Content)
			pendingRestart = false
		}

		if current.IsTerminal() {
			return emit(p.completionFrame(current))
		}

		if time.Now().After(deadline) {
			p.logger.Warn("Stream wait ceiling reached", "message_id", messageID)
			return emit(StreamFrame{
				Type:      EventTimeout,
				MessageID: messageID,
				Status:    current.Status,
			})
		}
	}
}

func (p *Publisher) completionFrame(msg *domain.Message) StreamFrame {
	return StreamFrame{
		Type:         EventCompletion,
		MessageID:    msg.ID,
		Status:       msg.Status,
		Content:      msg.Content,
		ErrorMessage: msg.ErrorMessage,
		TotalTokens:  msg.TotalTokens,
	}
}

func messagePayload(msg *domain.Message) *MessagePayload {
	return &MessagePayload{
		ID:      msg.ID,
		Role:    msg.Role,
		Content: msg.Content,
		Status:  msg.Status,
	}
}
