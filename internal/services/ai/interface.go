// File: internal/services/ai/interface.go
package ai

import "context"

// Logger defines the logging interface used by AI services.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ChatMessage is one prompt turn sent upstream.
type ChatMessage struct {
	Role    string
	Content string
}

// CompletionRequest describes one streaming generation call.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// StreamEvent is one chunk of an upstream completion stream. Delta may be
// empty on usage-only chunks; TotalTokens carries the latest usage figure the
// provider has reported (0 until the provider sends one).
type StreamEvent struct {
	Delta       string
	TotalTokens int
}

// CompletionProvider handles streaming chat completions.
type CompletionProvider interface {
	StreamCompletion(ctx context.Context, req CompletionRequest, onEvent func(StreamEvent) error) error
	IsConfigured() bool
}

// EmbeddingProvider handles text embeddings.
type EmbeddingProvider interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Provider combines completion and embedding capabilities.
type Provider interface {
	CompletionProvider
	EmbeddingProvider
}
