// File: internal/dtos/chat.go
package dtos

import (
	"bytes"
	"html"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/iyusef/go-chatstream/internal/domain"
)

// CreateChatRequest starts a new conversation.
type CreateChatRequest struct {
	Title        string `json:"title"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
}

// SendMessageRequest appends a user message to a chat.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// EditMessageRequest rewrites an existing user message.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// ChatResponse is the public shape of a chat.
type ChatResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	IsTitleGenerated bool       `json:"is_title_generated"`
	Model            string     `json:"model"`
	MessageCount     int        `json:"message_count"`
	TotalTokensUsed  int        `json:"total_tokens_used"`
	EstimatedCost    float64    `json:"estimated_cost"`
	CreatedAt        time.Time  `json:"created_at"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
}

// MessageResponse is the public shape of a message. ContentHTML is the
// markdown-rendered content for direct display.
type MessageResponse struct {
	ID                string     `json:"id"`
	ChatID            string     `json:"chat_id"`
	Role              string     `json:"role"`
	Content           string     `json:"content"`
	ContentHTML       string     `json:"content_html,omitempty"`
	Status            string     `json:"status"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	ModelUsed         string     `json:"model_used,omitempty"`
	TotalTokens       int        `json:"total_tokens"`
	ParentMessageID   *string    `json:"parent_message_id,omitempty"`
	IsRegenerated     bool       `json:"is_regenerated"`
	RegenerationCount int        `json:"regeneration_count"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// DispatchResponse reports what a message-producing operation did.
type DispatchResponse struct {
	UserMessageID      string `json:"user_message_id"`
	AssistantMessageID string `json:"assistant_message_id"`
	Queued             bool   `json:"queued"`
}

// ChatListResponse is one page of a user's chats.
type ChatListResponse struct {
	Chats  []ChatResponse `json:"chats"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts message markdown to HTML, falling back to escaped
// plain text when conversion fails.
func RenderMarkdown(content string) string {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "<p>" + html.EscapeString(content) + "</p>"
	}
	return buf.String()
}

func NewChatResponse(chat *domain.Chat) ChatResponse {
	return ChatResponse{
		ID:               chat.ID,
		Title:            chat.Title,
		IsTitleGenerated: chat.IsTitleGenerated,
		Model:            chat.ModelUsed,
		MessageCount:     chat.MessageCount,
		TotalTokensUsed:  chat.TotalTokensUsed,
		EstimatedCost:    chat.EstimatedCost,
		CreatedAt:        chat.CreatedAt,
		LastMessageAt:    chat.LastMessageAt,
	}
}

func NewChatListResponse(chats []domain.Chat, total int64, limit, offset int) ChatListResponse {
	out := make([]ChatResponse, 0, len(chats))
	for i := range chats {
		out = append(out, NewChatResponse(&chats[i]))
	}
	return ChatListResponse{Chats: out, Total: total, Limit: limit, Offset: offset}
}

// NewMessageResponse renders HTML only for completed assistant messages;
// streaming partials stay raw so clients append deltas to plain text.
func NewMessageResponse(msg *domain.Message) MessageResponse {
	resp := MessageResponse{
		ID:                msg.ID,
		ChatID:            msg.ChatID,
		Role:              msg.Role,
		Content:           msg.Content,
		Status:            msg.Status,
		ErrorMessage:      msg.ErrorMessage,
		ModelUsed:         msg.ModelUsed,
		TotalTokens:       msg.TotalTokens,
		ParentMessageID:   msg.ParentMessageID,
		IsRegenerated:     msg.IsRegenerated,
		RegenerationCount: msg.RegenerationCount,
		CreatedAt:         msg.CreatedAt,
		CompletedAt:       msg.CompletedAt,
	}
	if msg.Role == domain.RoleAssistant && msg.Status == domain.StatusCompleted {
		resp.ContentHTML = RenderMarkdown(msg.Content)
	}
	return resp
}

func NewMessageListResponse(messages []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, NewMessageResponse(&messages[i]))
	}
	return out
}
