// File: internal/services/chat/worker.go
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/ratelimit"
	chatrepo "github.com/iyusef/go-chatstream/internal/repository/chat"
	messagerepo "github.com/iyusef/go-chatstream/internal/repository/message"
	userrepo "github.com/iyusef/go-chatstream/internal/repository/user"
	"github.com/iyusef/go-chatstream/internal/services/ai"
)

// RateLimiter is the per-user generation budget check.
type RateLimiter interface {
	Allow(identifier string) (bool, *ratelimit.RateLimitInfo)
}

// MemoryFetcher returns the condensed long-term memory for a user.
type MemoryFetcher interface {
	FetchUserMemory(ctx context.Context, userID string) (string, error)
}

var errAttemptCancelled = errors.New("attempt cancelled")

// Worker executes one generation attempt for an assistant placeholder: resolve
// the model, stream the completion while throttling partial writes, finalize
// the message, then update chat aggregates and kick off the fan-out.
type Worker struct {
	chats    chatrepo.ChatRepository
	messages messagerepo.MessageRepository
	users    userrepo.UserRepository
	provider ai.CompletionProvider
	catalog  *ai.ModelCatalog
	limiter  RateLimiter
	memory   MemoryFetcher
	fanout   *Fanout
	config   *Config
	logger   Logger
}

func NewWorker(
	chats chatrepo.ChatRepository,
	messages messagerepo.MessageRepository,
	users userrepo.UserRepository,
	provider ai.CompletionProvider,
	catalog *ai.ModelCatalog,
	limiter RateLimiter,
	memory MemoryFetcher,
	fanout *Fanout,
	config *Config,
	logger Logger,
) *Worker {
	return &Worker{
		chats:    chats,
		messages: messages,
		users:    users,
		provider: provider,
		catalog:  catalog,
		limiter:  limiter,
		memory:   memory,
		fanout:   fanout,
		config:   config,
		logger:   logger,
	}
}

// Generate runs one attempt for messageID. Errors are terminal states on the
// message row, not return values; the dispatcher has nothing to do with them.
func (w *Worker) Generate(ctx context.Context, messageID string) {
	msg, err := w.messages.FindByID(ctx, messageID)
	if err != nil {
		w.logger.Error("Cannot load message for generation", "message_id", messageID, "error", err)
		return
	}
	if msg.Status == domain.StatusCancelled {
		w.logger.Debug("Message cancelled before attempt started", "message_id", messageID)
		return
	}

	chatRec, err := w.chats.FindByID(ctx, msg.ChatID)
	if err != nil {
		w.logger.Error("Cannot load chat for generation", "chat_id", msg.ChatID, "error", err)
		w.failQuietly(ctx, messageID, "chat no longer exists")
		return
	}

	if allowed, info := w.limiter.Allow("generation:" + chatRec.UserID); !allowed {
		w.logger.Warn("Generation rate limit exceeded",
			"user_id", chatRec.UserID,
			"message_id", messageID,
			"retry_after", info.RetryAfter.String())
		w.failQuietly(ctx, messageID, "Rate limit exceeded. Please try again later.")
		return
	}

	if err := w.messages.ResetForAttempt(ctx, messageID); err != nil {
		if errors.Is(err, messagerepo.ErrInvalidTransition) {
			w.logger.Info("Attempt skipped, message was cancelled", "message_id", messageID)
			return
		}
		w.logger.Error("Cannot reset message for attempt", "message_id", messageID, "error", err)
		return
	}

	history, err := w.messages.FindRecent(ctx, msg.ChatID, w.config.PromptWindowSize+1)
	if err != nil {
		w.logger.Error("Cannot load prompt history", "chat_id", msg.ChatID, "error", err)
		w.failQuietly(ctx, messageID, "failed to load conversation history")
		return
	}
	prompt := buildPromptWindow(history, messageID, w.composeSystemPrompt(ctx, chatRec), w.config.PromptWindowSize)

	model := w.resolveModel(ctx, chatRec)

	content, totalTokens, streamErr := w.streamAttempt(ctx, messageID, model, chatRec, prompt)
	if errors.Is(streamErr, errAttemptCancelled) {
		w.logger.Info("Attempt cancelled mid-stream", "message_id", messageID)
		return
	}
	if streamErr != nil {
		w.logger.Error("Upstream streaming failed",
			"message_id", messageID,
			"model", model,
			"error", streamErr)
		w.failQuietly(ctx, messageID, streamErr.Error())
		return
	}

	content = strings.TrimSpace(content)
	if content == "" {
		w.failQuietly(ctx, messageID, "AI returned empty response")
		return
	}
	if totalTokens == 0 {
		totalTokens = estimateTokens(prompt, content)
	}

	if err := w.messages.FinalizeSuccess(ctx, messageID, content, totalTokens); err != nil {
		if errors.Is(err, messagerepo.ErrInvalidTransition) {
			w.logger.Info("Attempt cancelled at finalization", "message_id", messageID)
			return
		}
		w.logger.Error("Cannot finalize message", "message_id", messageID, "error", err)
		return
	}

	w.afterSuccess(ctx, chatRec, msg, model, content, totalTokens)
}

// streamAttempt consumes the upstream stream, persisting partial content when
// either throttle gate opens: enough elapsed time or enough buffered
// characters since the last write.
func (w *Worker) streamAttempt(ctx context.Context, messageID, model string, chatRec *domain.Chat, prompt []ai.ChatMessage) (string, int, error) {
	var builder strings.Builder
	lastFlush := time.Now()
	flushedLen := 0
	totalTokens := 0

	req := ai.CompletionRequest{
		Model:       model,
		Messages:    prompt,
		Temperature: chatRec.Temperature,
		MaxTokens:   chatRec.MaxTokens,
	}

	err := w.provider.StreamCompletion(ctx, req, func(ev ai.StreamEvent) error {
		if ev.TotalTokens > 0 {
			totalTokens = ev.TotalTokens
		}
		if ev.Delta == "" {
			return nil
		}
		builder.WriteString(ev.Delta)

		timeGate := time.Since(lastFlush) >= w.config.FlushInterval
		sizeGate := builder.Len()-flushedLen >= w.config.FlushChars
		if !timeGate && !sizeGate {
			return nil
		}

		if err := w.messages.UpdateStreamContent(ctx, messageID, builder.String()); err != nil {
			if errors.Is(err, messagerepo.ErrInvalidTransition) {
				return errAttemptCancelled
			}
			// Transient write failure; keep streaming, the final write settles it.
			w.logger.Warn("Partial write failed", "message_id", messageID, "error", err)
			return nil
		}
		flushedLen = builder.Len()
		lastFlush = time.Now()
		return nil
	})

	return builder.String(), totalTokens, err
}

// composeSystemPrompt appends the user's long-term memory summary to the
// chat's system prompt when a memory service is wired.
func (w *Worker) composeSystemPrompt(ctx context.Context, chatRec *domain.Chat) string {
	prompt := chatRec.SystemPrompt
	if w.memory == nil {
		return prompt
	}

	summary, err := w.memory.FetchUserMemory(ctx, chatRec.UserID)
	if err != nil {
		w.logger.Warn("Cannot fetch user memory", "user_id", chatRec.UserID, "error", err)
		return prompt
	}
	if summary == "" {
		return prompt
	}
	if prompt != "" {
		prompt += "\n\n"
	}
	return prompt + "What you remember about this user:\n" + summary
}

func (w *Worker) resolveModel(ctx context.Context, chatRec *domain.Chat) string {
	requested := chatRec.ModelUsed
	if requested == "" {
		if user, err := w.users.FindByID(ctx, chatRec.UserID); err == nil {
			requested = user.PreferredModel
		}
	}
	return w.catalog.Resolve(requested)
}

// afterSuccess updates chat-level state and starts the best-effort fan-out.
// None of these block the already-finalized message.
func (w *Worker) afterSuccess(ctx context.Context, chatRec *domain.Chat, msg *domain.Message, model, content string, totalTokens int) {
	count, err := w.messages.CountByChatID(ctx, chatRec.ID)
	if err != nil {
		w.logger.Warn("Cannot count messages for aggregates", "chat_id", chatRec.ID, "error", err)
		count = int64(chatRec.MessageCount)
	}

	userText := w.parentContent(ctx, msg)

	// Auto-title from the reply's first line, only while the chat is fresh and
	// the user never chose a title.
	if chatRec.Title == "" && count <= 2 {
		title := deriveTitle(content, w.config.TitleMaxLength)
		if err := w.chats.SetGeneratedTitle(ctx, chatRec.ID, title); err != nil {
			w.logger.Warn("Cannot set generated title", "chat_id", chatRec.ID, "error", err)
		}
	}

	if err := w.chats.UpdateAggregates(ctx, chatRec.ID, int(count), totalTokens, time.Now()); err != nil {
		w.logger.Warn("Cannot update chat aggregates", "chat_id", chatRec.ID, "error", err)
	}

	if w.fanout != nil {
		w.fanout.Run(chatRec.UserID, chatRec.ID, msg.ID, model, userText, content, totalTokens)
	}
}

func (w *Worker) parentContent(ctx context.Context, msg *domain.Message) string {
	if msg.ParentMessageID == nil {
		return ""
	}
	parent, err := w.messages.FindByID(ctx, *msg.ParentMessageID)
	if err != nil {
		return ""
	}
	return parent.Content
}

// failQuietly marks the attempt failed, tolerating a concurrent cancellation.
func (w *Worker) failQuietly(ctx context.Context, messageID, reason string) {
	if err := w.messages.FinalizeFailure(ctx, messageID, reason); err != nil {
		if !errors.Is(err, messagerepo.ErrInvalidTransition) {
			w.logger.Error("Cannot mark message failed", "message_id", messageID, "error", err)
		}
	}
}

// estimateTokens approximates usage when the provider reports none.
func estimateTokens(prompt []ai.ChatMessage, content string) int {
	chars := len(content)
	for _, m := range prompt {
		chars += len(m.Content)
	}
	estimate := chars / 4
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}
