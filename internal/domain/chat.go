// File: internal/domain/chat.go
package domain

import "time"

// Chat is a single conversation thread and the aggregate root for its messages.
type Chat struct {
	ID     string `gorm:"primarykey;size:36" json:"id"`
	UserID string `gorm:"size:36;not null;index" json:"user_id"`

	Title            string `json:"title"`
	IsTitleGenerated bool   `json:"is_title_generated"`

	// Generation parameters applied to every attempt in this chat.
	ModelUsed    string  `gorm:"size:100" json:"model_used"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float32 `gorm:"default:0.7" json:"temperature"`
	MaxTokens    int     `gorm:"default:1000" json:"max_tokens"`

	// Aggregate counters, updated only when an attempt finalizes as completed.
	MessageCount    int     `json:"message_count"`
	TotalTokensUsed int     `json:"total_tokens_used"`
	EstimatedCost   float64 `json:"estimated_cost"`

	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessageAt *time.Time `json:"last_message_at"`
}
