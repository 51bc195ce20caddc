// File: internal/services/chat/context_test.go
package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyusef/go-chatstream/internal/domain"
)

func TestBuildPromptWindowExcludesPlaceholderAndIncomplete(t *testing.T) {
	history := []domain.Message{
		{ID: "1", Role: domain.RoleUser, Status: domain.StatusCompleted, Content: "Hi"},
		{ID: "2", Role: domain.RoleAssistant, Status: domain.StatusCompleted, Content: "Hello"},
		{ID: "3", Role: domain.RoleAssistant, Status: domain.StatusFailed, Content: "broken"},
		{ID: "4", Role: domain.RoleAssistant, Status: domain.StatusCancelled, Content: "stale"},
		{ID: "5", Role: domain.RoleUser, Status: domain.StatusCompleted, Content: "Next question"},
		{ID: "6", Role: domain.RoleAssistant, Status: domain.StatusProcessing, Content: ""},
	}

	prompt := buildPromptWindow(history, "6", "", 20)
	require.Len(t, prompt, 3)
	assert.Equal(t, "Hi", prompt[0].Content)
	assert.Equal(t, "Hello", prompt[1].Content)
	assert.Equal(t, "Next question", prompt[2].Content)
}

func TestBuildPromptWindowBoundsHistory(t *testing.T) {
	var history []domain.Message
	for i := 0; i < 30; i++ {
		history = append(history, domain.Message{
			ID:      fmt.Sprintf("m%d", i),
			Role:    domain.RoleUser,
			Status:  domain.StatusCompleted,
			Content: fmt.Sprintf("turn %d", i),
		})
	}

	prompt := buildPromptWindow(history, "", "", 20)
	require.Len(t, prompt, 20)
	assert.Equal(t, "turn 10", prompt[0].Content)
	assert.Equal(t, "turn 29", prompt[19].Content)
}

func TestBuildPromptWindowSystemPromptOnTop(t *testing.T) {
	history := []domain.Message{
		{ID: "1", Role: domain.RoleUser, Status: domain.StatusCompleted, Content: "Hi"},
	}

	prompt := buildPromptWindow(history, "", "Answer briefly.", 20)
	require.Len(t, prompt, 2)
	assert.Equal(t, domain.RoleSystem, prompt[0].Role)
	assert.Equal(t, "Answer briefly.", prompt[0].Content)
	assert.Equal(t, "Hi", prompt[1].Content)
}

func TestBuildPromptWindowSkipsBlankTurns(t *testing.T) {
	history := []domain.Message{
		{ID: "1", Role: domain.RoleUser, Status: domain.StatusCompleted, Content: "   "},
		{ID: "2", Role: domain.RoleUser, Status: domain.StatusCompleted, Content: "real"},
	}

	prompt := buildPromptWindow(history, "", "", 20)
	require.Len(t, prompt, 1)
	assert.Equal(t, "real", prompt[0].Content)
}
