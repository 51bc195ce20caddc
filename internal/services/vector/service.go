// File: internal/services/vector/service.go
package vector

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/iyusef/go-chatstream/internal/services/ai"
)

// Service embeds finished exchanges and upserts them into a Pinecone index so
// past conversations are searchable by meaning.
type Service struct {
	config   *Config
	index    *pinecone.IndexConnection
	embedder ai.EmbeddingProvider
	retry    *retrier
	logger   Logger
}

func NewService(config *Config, embedder ai.EmbeddingProvider, logger Logger) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: config.APIKey})
	if err != nil {
		return nil, NewConnectionError("failed to create pinecone client", err)
	}

	index, err := client.Index(pinecone.NewIndexConnParams{
		Host:      config.IndexHost,
		Namespace: config.Namespace,
	})
	if err != nil {
		return nil, NewConnectionError("failed to connect to index", err)
	}

	logger.Info("Pinecone index connection established",
		"host", config.IndexHost,
		"namespace", config.Namespace)

	return &Service{
		config:   config,
		index:    index,
		embedder: embedder,
		retry:    &retrier{config: config, logger: logger},
		logger:   logger,
	}, nil
}

// IndexExchange embeds the exchange text and upserts it keyed by the assistant
// message id, so a regeneration overwrites the stale vector.
func (s *Service) IndexExchange(ctx context.Context, userID, chatID, messageID, userText, assistantText string) error {
	text := userText
	if assistantText != "" {
		text = userText + "\n" + assistantText
	}

	values, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return NewOperationError("failed to embed exchange", err)
	}

	metadata, err := structpb.NewStruct(map[string]interface{}{
		"user_id":    userID,
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       truncateForMetadata(text),
	})
	if err != nil {
		return NewOperationError("failed to build metadata", err)
	}

	return s.retry.do(ctx, func(ctx context.Context) error {
		_, err := s.index.UpsertVectors(ctx, []*pinecone.Vector{{
			Id:       messageID,
			Values:   &values,
			Metadata: metadata,
		}})
		if err != nil {
			return NewOperationError("upsert failed", err)
		}
		return nil
	})
}

// DeleteExchanges removes the vectors for a deleted chat's messages.
func (s *Service) DeleteExchanges(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	err := s.retry.do(ctx, func(ctx context.Context) error {
		if err := s.index.DeleteVectorsById(ctx, messageIDs); err != nil {
			return NewOperationError(fmt.Sprintf("delete failed for %d vectors", len(messageIDs)), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Vectors deleted", "count", len(messageIDs))
	return nil
}

// Pinecone caps metadata size per vector; keep the stored text snippet small.
func truncateForMetadata(text string) string {
	const maxChars = 2000
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}
