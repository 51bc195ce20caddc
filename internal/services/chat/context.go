// File: internal/services/chat/context.go
package chat

import (
	"strings"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/services/ai"
)

// buildPromptWindow turns recent chat history into the upstream message list.
// Input is oldest-first. The placeholder being generated is excluded, as are
// assistant turns that never completed and blank turns. The window bound
// applies after filtering; when a system prompt is set it rides on top and
// does not consume window slots.
func buildPromptWindow(history []domain.Message, excludeID, systemPrompt string, window int) []ai.ChatMessage {
	turns := make([]ai.ChatMessage, 0, len(history))
	for _, m := range history {
		if m.ID == excludeID {
			continue
		}
		if m.Role == domain.RoleAssistant && m.Status != domain.StatusCompleted {
			continue
		}
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		turns = append(turns, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	if len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	if systemPrompt != "" {
		withSystem := make([]ai.ChatMessage, 0, len(turns)+1)
		withSystem = append(withSystem, ai.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
		withSystem = append(withSystem, turns...)
		return withSystem
	}
	return turns
}
