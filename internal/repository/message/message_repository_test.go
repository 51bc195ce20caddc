// File: internal/repository/message/message_repository_test.go
package message

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/events"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Message{}))
	return db
}

func createMessage(t *testing.T, repo MessageRepository, msg *domain.Message) *domain.Message {
	t.Helper()
	created, err := repo.Create(context.Background(), msg)
	require.NoError(t, err)
	return created
}

func TestCreateAssignsID(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)

	created := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleUser,
		Status: domain.StatusCompleted,
	})
	assert.NotEmpty(t, created.ID)
}

func TestCreateRejectsInvalidRole(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)

	_, err := repo.Create(context.Background(), &domain.Message{ChatID: "chat-1", Role: "robot"})
	assert.Error(t, err)
}

func TestUpdateStreamContentRequiresProcessing(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusProcessing,
	})

	require.NoError(t, repo.UpdateStreamContent(ctx, msg.ID, "partial"))

	loaded, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "partial", loaded.Content)

	require.NoError(t, repo.FinalizeSuccess(ctx, msg.ID, "final", 10))
	err = repo.UpdateStreamContent(ctx, msg.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResetForAttempt(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	msg := createMessage(t, repo, &domain.Message{
		ChatID:       "chat-1",
		Role:         domain.RoleAssistant,
		Status:       domain.StatusPending,
		Content:      "stale",
		ErrorMessage: "old error",
	})

	require.NoError(t, repo.ResetForAttempt(ctx, msg.ID))

	loaded, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, loaded.Status)
	assert.Empty(t, loaded.Content)
	assert.Empty(t, loaded.ErrorMessage)
	assert.Equal(t, 1, loaded.AttemptCount)
}

func TestResetForAttemptRefusesCancelled(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusCancelled,
	})

	err := repo.ResetForAttempt(context.Background(), msg.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkRegenerating(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	msg := createMessage(t, repo, &domain.Message{
		ChatID:  "chat-1",
		Role:    domain.RoleAssistant,
		Status:  domain.StatusCompleted,
		Content: "old reply",
	})

	require.NoError(t, repo.MarkRegenerating(ctx, msg.ID))

	loaded, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, loaded.Status)
	assert.True(t, loaded.IsRegenerated)
	assert.Equal(t, 1, loaded.RegenerationCount)

	// A second regeneration must wait for a terminal status.
	err = repo.MarkRegenerating(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMarkRegeneratingRefusesUserMessages(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleUser,
		Status: domain.StatusCompleted,
	})

	err := repo.MarkRegenerating(context.Background(), msg.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFinalizeSuccess(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusProcessing,
	})

	require.NoError(t, repo.FinalizeSuccess(ctx, msg.ID, "done", 42))

	loaded, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, loaded.Status)
	assert.Equal(t, "done", loaded.Content)
	assert.Equal(t, 42, loaded.TotalTokens)
	assert.NotNil(t, loaded.CompletedAt)

	err = repo.FinalizeSuccess(ctx, msg.ID, "again", 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFinalizeFailureFromPending(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusPending,
	})

	require.NoError(t, repo.FinalizeFailure(ctx, msg.ID, "AI returned empty response"))

	loaded, err := repo.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, loaded.Status)
	assert.Equal(t, "AI returned empty response", loaded.ErrorMessage)
}

func TestEditAndSupersede(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	userMsg := createMessage(t, repo, &domain.Message{
		ChatID:  "chat-1",
		Role:    domain.RoleUser,
		Status:  domain.StatusCompleted,
		Content: "original question",
	})
	parentID := userMsg.ID
	child := createMessage(t, repo, &domain.Message{
		ChatID:          "chat-1",
		Role:            domain.RoleAssistant,
		Status:          domain.StatusProcessing,
		ParentMessageID: &parentID,
	})
	unrelated := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusCompleted,
	})

	cancelled, err := repo.EditAndSupersede(ctx, userMsg.ID, "edited question", "Superseded after user edit")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cancelled)

	edited, err := repo.FindByID(ctx, userMsg.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited question", edited.Content)

	cancelledChild, err := repo.FindByID(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelledChild.Status)
	assert.Equal(t, "Superseded after user edit", cancelledChild.ErrorMessage)

	untouched, err := repo.FindByID(ctx, unrelated.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, untouched.Status)
}

func TestEditAndSupersedeRefusesAssistant(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusCompleted,
	})

	_, err := repo.EditAndSupersede(context.Background(), msg.ID, "nope", "reason")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestFindRecentReturnsOldestFirst(t *testing.T) {
	repo := NewMessageRepository(newTestDB(t), nil)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		createMessage(t, repo, &domain.Message{
			ID:        string(rune('a' + i)),
			ChatID:    "chat-1",
			Role:      domain.RoleUser,
			Status:    domain.StatusCompleted,
			Content:   string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := repo.FindRecent(ctx, "chat-1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "c", recent[0].Content)
	assert.Equal(t, "d", recent[1].Content)
	assert.Equal(t, "e", recent[2].Content)
}

func TestMutationsPublishChanges(t *testing.T) {
	bus := events.NewBus()
	var changes []events.Change
	bus.Subscribe(func(c events.Change) { changes = append(changes, c) })

	repo := NewMessageRepository(newTestDB(t), bus)
	ctx := context.Background()

	msg := createMessage(t, repo, &domain.Message{
		ChatID: "chat-1",
		Role:   domain.RoleAssistant,
		Status: domain.StatusPending,
	})
	require.NoError(t, repo.ResetForAttempt(ctx, msg.ID))

	require.NotEmpty(t, changes)
	for _, change := range changes {
		assert.Equal(t, "message", change.Entity)
		assert.Equal(t, "chat-1", change.ChatID)
	}
}
