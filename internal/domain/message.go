// File: internal/domain/message.go
package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message statuses. A message only moves forward:
// pending -> processing -> completed | failed, with cancelled reachable from
// pending/processing (supersession). The single sanctioned re-entry is
// completed|failed -> processing at the start of a regeneration attempt on the
// same id, which bumps AttemptCount and resets content first.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Message is a single turn within a chat. Content is mutable while an attempt
// streams into it; everything else settles at finalization.
type Message struct {
	ID     string `gorm:"primarykey;size:36" json:"id"`
	ChatID string `gorm:"size:36;not null;index" json:"chat_id"`

	Role    string `gorm:"size:10;not null" json:"role"`
	Content string `json:"content"`

	ModelUsed        string `gorm:"size:100" json:"model_used"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`

	Status       string `gorm:"size:15;default:pending;index" json:"status"`
	ErrorMessage string `json:"error_message"`

	// ParentMessageID is a weak lineage reference: the user message an
	// assistant reply answers. Deleting the parent clears it, never cascades.
	ParentMessageID *string `gorm:"size:36;index" json:"parent_message_id"`

	IsRegenerated     bool `json:"is_regenerated"`
	RegenerationCount int  `json:"regeneration_count"`

	// AttemptCount version-tags regeneration resets so a stream reader that is
	// mid-poll can detect a content reset instead of observing length shrink.
	AttemptCount int `json:"attempt_count"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// IsTerminal reports whether no further attempt writes are allowed without an
// explicit regeneration re-entry.
func (m *Message) IsTerminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusFailed || m.Status == StatusCancelled
}
