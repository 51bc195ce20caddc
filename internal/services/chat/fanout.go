// File: internal/services/chat/fanout.go
package chat

import (
	"context"
	"time"

	"github.com/iyusef/go-chatstream/internal/domain"
	usagerepo "github.com/iyusef/go-chatstream/internal/repository/usage"
	userrepo "github.com/iyusef/go-chatstream/internal/repository/user"
	"github.com/iyusef/go-chatstream/internal/services/ai"
)

// MemoryUpdater pushes a finished exchange into long-term user memory.
type MemoryUpdater interface {
	RecordExchange(ctx context.Context, userID, chatID, userText, assistantText string) error
}

// VectorIndexer embeds a finished exchange for semantic retrieval.
type VectorIndexer interface {
	IndexExchange(ctx context.Context, userID, chatID, messageID, userText, assistantText string) error
}

// Fanout runs the post-completion side effects: usage accounting, memory
// update and vector indexing. Every task is best-effort and isolated; a
// failure in one never touches the others or the completed message.
type Fanout struct {
	usage   usagerepo.UsageRepository
	users   userrepo.UserRepository
	memory  MemoryUpdater
	vector  VectorIndexer
	catalog *ai.ModelCatalog
	logger  Logger
	timeout time.Duration
}

func NewFanout(
	usage usagerepo.UsageRepository,
	users userrepo.UserRepository,
	memory MemoryUpdater,
	vector VectorIndexer,
	catalog *ai.ModelCatalog,
	logger Logger,
) *Fanout {
	return &Fanout{
		usage:   usage,
		users:   users,
		memory:  memory,
		vector:  vector,
		catalog: catalog,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// Run starts the fan-out tasks. It returns immediately; the tasks run on their
// own detached contexts so a caller shutdown does not clip them mid-write.
func (f *Fanout) Run(userID, chatID, messageID, model, userText, assistantText string, totalTokens int) {
	f.spawn("usage accounting", messageID, func(ctx context.Context) error {
		return f.recordUsage(ctx, userID, chatID, messageID, model, assistantText, totalTokens)
	})

	if f.memory != nil && userText != "" {
		f.spawn("memory update", messageID, func(ctx context.Context) error {
			return f.memory.RecordExchange(ctx, userID, chatID, userText, assistantText)
		})
	}

	if f.vector != nil {
		f.spawn("vector indexing", messageID, func(ctx context.Context) error {
			return f.vector.IndexExchange(ctx, userID, chatID, messageID, userText, assistantText)
		})
	}
}

func (f *Fanout) spawn(task, messageID string, fn func(ctx context.Context) error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.logger.Error("Fan-out task panicked", "task", task, "message_id", messageID, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			f.logger.Warn("Fan-out task failed", "task", task, "message_id", messageID, "error", err)
		}
	}()
}

func (f *Fanout) recordUsage(ctx context.Context, userID, chatID, messageID, model, assistantText string, totalTokens int) error {
	completionTokens := len(assistantText) / 4
	if completionTokens > totalTokens {
		completionTokens = totalTokens
	}
	promptTokens := totalTokens - completionTokens

	record := &domain.UsageRecord{
		UserID:        userID,
		ChatID:        chatID,
		MessageID:     messageID,
		ModelUsed:     model,
		OperationType: domain.OperationChat,
		TotalTokens:   totalTokens,
		EstimatedCost: f.catalog.EstimateCost(model, promptTokens, completionTokens),
	}
	if _, err := f.usage.Create(ctx, record); err != nil {
		return err
	}
	return f.users.IncrementMonthlyUsage(ctx, userID)
}
