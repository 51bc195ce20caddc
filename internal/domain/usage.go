// File: internal/domain/usage.go
package domain

import "time"

// Usage operation types.
const (
	OperationChat      = "chat"
	OperationEmbedding = "embedding"
	OperationMemory    = "memory"
)

// UsageRecord is one best-effort accounting row written by the post-completion
// fan-out. There is no transactional link to the message it describes.
type UsageRecord struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	UserID    string `gorm:"size:36;not null;index" json:"user_id"`
	ChatID    string `gorm:"size:36" json:"chat_id"`
	MessageID string `gorm:"size:36" json:"message_id"`

	ModelUsed     string  `gorm:"size:100" json:"model_used"`
	OperationType string  `gorm:"size:20" json:"operation_type"`
	TotalTokens   int     `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`

	CreatedAt time.Time `json:"created_at"`
}
