// File: internal/services/chat/pipeline_test.go
package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/services/ai"
)

func newPipeline(t *testing.T, env *testEnv) (*Pipeline, *Dispatcher) {
	t.Helper()
	dispatcher := NewDispatcher(4, noopLogger{})
	t.Cleanup(dispatcher.Close)
	pipeline := NewPipeline(env.chats, env.messages, env.provider, env.catalog,
		dispatcher, env.worker, noopLogger{})
	return pipeline, dispatcher
}

func TestSendUserMessageUnconfiguredProvider(t *testing.T) {
	env := newTestEnv(t)
	env.provider.configured = false
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")

	outcome, err := pipeline.SendUserMessage(ctx, "user-1", chat.ID, "Hello there")
	require.NoError(t, err)
	assert.False(t, outcome.Queued)
	assert.NotEmpty(t, outcome.UserMessage)
	assert.NotEmpty(t, outcome.AssistantMessage)

	userMsg, err := env.messages.FindByID(ctx, outcome.UserMessage)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, userMsg.Role)
	assert.Equal(t, domain.StatusCompleted, userMsg.Status)
	assert.Equal(t, "Hello there", userMsg.Content)

	assistant, err := env.messages.FindByID(ctx, outcome.AssistantMessage)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, assistant.Role)
	assert.Equal(t, domain.StatusPending, assistant.Status)
	require.NotNil(t, assistant.ParentMessageID)
	assert.Equal(t, outcome.UserMessage, *assistant.ParentMessageID)

	updatedChat, err := env.chats.FindByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updatedChat.MessageCount)
}

func TestSendUserMessageRunsGeneration(t *testing.T) {
	env := newTestEnv(t)
	env.provider.events = []ai.StreamEvent{{Delta: "Generated reply"}, {TotalTokens: 6}}
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")

	outcome, err := pipeline.SendUserMessage(ctx, "user-1", chat.ID, "Hello")
	require.NoError(t, err)
	assert.True(t, outcome.Queued)

	assert.Eventually(t, func() bool {
		loaded, err := env.messages.FindByID(ctx, outcome.AssistantMessage)
		return err == nil && loaded.Status == domain.StatusCompleted && loaded.Content == "Generated reply"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSendUserMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	pipeline, _ := newPipeline(t, env)

	chat := env.seedChat(t, "user-1")

	_, err := pipeline.SendUserMessage(context.Background(), "user-1", chat.ID, "   ")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeValidation, chatErr.Type)
}

func TestSendUserMessageForeignChat(t *testing.T) {
	env := newTestEnv(t)
	pipeline, _ := newPipeline(t, env)

	chat := env.seedChat(t, "user-1")

	_, err := pipeline.SendUserMessage(context.Background(), "intruder", chat.ID, "Hi")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeUnauthorized, chatErr.Type)
}

func TestEditUserMessageSupersedesReplies(t *testing.T) {
	env := newTestEnv(t)
	env.provider.configured = false
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")
	userMsg, assistant := env.seedExchange(t, chat.ID, "Original question")
	require.NoError(t, env.messages.ResetForAttempt(ctx, assistant.ID))
	require.NoError(t, env.messages.FinalizeSuccess(ctx, assistant.ID, "Old reply", 3))

	outcome, err := pipeline.EditUserMessage(ctx, "user-1", chat.ID, userMsg.ID, "Better question")
	require.NoError(t, err)
	assert.Equal(t, userMsg.ID, outcome.UserMessage)
	assert.NotEqual(t, assistant.ID, outcome.AssistantMessage)

	edited, err := env.messages.FindByID(ctx, userMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Better question", edited.Content)

	superseded, err := env.messages.FindByID(ctx, assistant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, superseded.Status)
	assert.Equal(t, "Superseded after user edit", superseded.ErrorMessage)

	replacement, err := env.messages.FindByID(ctx, outcome.AssistantMessage)
	require.NoError(t, err)
	require.NotNil(t, replacement.ParentMessageID)
	assert.Equal(t, userMsg.ID, *replacement.ParentMessageID)
}

func TestEditRejectsAssistantMessage(t *testing.T) {
	env := newTestEnv(t)
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")
	_, assistant := env.seedExchange(t, chat.ID, "Question")

	_, err := pipeline.EditUserMessage(ctx, "user-1", chat.ID, assistant.ID, "nope")
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeValidation, chatErr.Type)
}

func TestRegenerateReusesMessageID(t *testing.T) {
	env := newTestEnv(t)
	env.provider.configured = false
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")
	userMsg, assistant := env.seedExchange(t, chat.ID, "Question")
	require.NoError(t, env.messages.ResetForAttempt(ctx, assistant.ID))
	require.NoError(t, env.messages.FinalizeSuccess(ctx, assistant.ID, "First reply", 3))

	outcome, err := pipeline.RegenerateAssistantMessage(ctx, "user-1", chat.ID, assistant.ID)
	require.NoError(t, err)
	assert.Equal(t, assistant.ID, outcome.AssistantMessage)
	assert.Equal(t, userMsg.ID, outcome.UserMessage)

	loaded, err := env.messages.FindByID(ctx, assistant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, loaded.Status)
	assert.True(t, loaded.IsRegenerated)
	assert.Equal(t, 1, loaded.RegenerationCount)
}

func TestRegenerateConflictWhileProcessing(t *testing.T) {
	env := newTestEnv(t)
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")
	_, assistant := env.seedExchange(t, chat.ID, "Question")
	require.NoError(t, env.messages.ResetForAttempt(ctx, assistant.ID))

	_, err := pipeline.RegenerateAssistantMessage(ctx, "user-1", chat.ID, assistant.ID)
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeConflict, chatErr.Type)
}

func TestRegenerateRejectsUserMessage(t *testing.T) {
	env := newTestEnv(t)
	pipeline, _ := newPipeline(t, env)
	ctx := context.Background()

	chat := env.seedChat(t, "user-1")
	userMsg, _ := env.seedExchange(t, chat.ID, "Question")

	_, err := pipeline.RegenerateAssistantMessage(ctx, "user-1", chat.ID, userMsg.ID)
	var chatErr *ChatError
	require.ErrorAs(t, err, &chatErr)
	assert.Equal(t, ErrTypeValidation, chatErr.Type)
}
