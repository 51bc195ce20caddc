// File: internal/services/ai/openrouter_provider.go
package ai

import (
	"context"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterProvider talks to an OpenRouter-compatible API for streaming
// completions and embeddings.
type OpenRouterProvider struct {
	config          *Config
	llmClient       *openai.Client
	embeddingClient *openai.Client
}

func NewOpenRouterProvider(config *Config) *OpenRouterProvider {
	llmConfig := openai.DefaultConfig(config.APIKey)
	llmConfig.BaseURL = config.BaseURL
	llmClient := openai.NewClientWithConfig(llmConfig)

	// Embedding client may point at a different upstream.
	embeddingKey := config.EmbeddingKey
	if embeddingKey == "" {
		embeddingKey = config.APIKey
	}
	embeddingConfig := openai.DefaultConfig(embeddingKey)
	if config.EmbeddingBaseURL != "" {
		embeddingConfig.BaseURL = config.EmbeddingBaseURL
	}
	embeddingClient := openai.NewClientWithConfig(embeddingConfig)

	return &OpenRouterProvider{
		config:          config,
		llmClient:       llmClient,
		embeddingClient: embeddingClient,
	}
}

// IsConfigured reports whether completion credentials are present. Callers use
// this to short-circuit dispatch instead of queueing requests that cannot run.
func (p *OpenRouterProvider) IsConfigured() bool {
	return p.config.APIKey != ""
}

func (p *OpenRouterProvider) StreamCompletion(ctx context.Context, req CompletionRequest, onEvent func(StreamEvent) error) error {
	if !p.IsConfigured() {
		return NewConfigError("completion API key is not configured")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	streamCtx, cancel := context.WithTimeout(ctx, p.config.StreamTimeout)
	defer cancel()

	stream, err := p.llmClient.CreateChatCompletionStream(streamCtx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	})
	if err != nil {
		return NewProviderError("streaming", "failed to create stream", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return NewProviderError("streaming", "stream receive error", err)
		}

		event := StreamEvent{}
		if len(response.Choices) > 0 {
			event.Delta = response.Choices[0].Delta.Content
		}
		if response.Usage != nil {
			event.TotalTokens = response.Usage.TotalTokens
		}
		if event.Delta == "" && event.TotalTokens == 0 {
			continue
		}
		if onEvent != nil {
			if err := onEvent(event); err != nil {
				return err
			}
		}
	}
}

func (p *OpenRouterProvider) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.config.EmbeddingModel),
	}

	resp, err := p.embeddingClient.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, NewProviderError("embedding", "failed to create embedding", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &AIError{
			Type:      ErrTypeProvider,
			Operation: "embedding",
			Message:   "empty embedding response",
		}
	}

	return resp.Data[0].Embedding, nil
}
