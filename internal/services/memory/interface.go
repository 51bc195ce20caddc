// File: internal/services/memory/interface.go
package memory

import "context"

// Logger defines the logging interface used by the memory service.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// MemoryService talks to the external long-term memory API.
type MemoryService interface {
	RecordExchange(ctx context.Context, userID, chatID, userText, assistantText string) error
	FetchUserMemory(ctx context.Context, userID string) (string, error)
	DeleteChatMemories(ctx context.Context, userID, chatID string) error
}
