// File: internal/repository/chat/chat_repository_test.go
package chat

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

	require.NoError(t, db.AutoMigrate(&domain.Chat{}))
	return db
}

func TestCreateAssignsID(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)

	created, err := repo.Create(context.Background(), &domain.Chat{UserID: "user-1", Title: "First"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestCreateRequiresOwner(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)

	_, err := repo.Create(context.Background(), &domain.Chat{Title: "orphan"})
	assert.Error(t, err)
}

func TestFindByOwner(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Chat{UserID: "user-1"})
	require.NoError(t, err)

	found, err := repo.FindByOwner(ctx, created.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.FindByOwner(ctx, created.ID, "user-2")
	assert.ErrorIs(t, err, ErrUnauthorizedAccess)

	_, err = repo.FindByOwner(ctx, "missing", "user-1")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Chat{UserID: "user-1"})
	require.NoError(t, err)

	err = repo.Delete(ctx, created.ID, "user-2")
	assert.ErrorIs(t, err, ErrUnauthorizedAccess)

	require.NoError(t, repo.Delete(ctx, created.ID, "user-1"))
	_, err = repo.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestRecordMessageActivity(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Chat{UserID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, repo.RecordMessageActivity(ctx, created.ID))
	require.NoError(t, repo.RecordMessageActivity(ctx, created.ID))

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.MessageCount)
	assert.NotNil(t, loaded.LastMessageAt)
}

func TestUpdateAggregates(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Chat{UserID: "user-1", TotalTokensUsed: 100})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, repo.UpdateAggregates(ctx, created.ID, 4, 50, now))

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.MessageCount)
	assert.Equal(t, 150, loaded.TotalTokensUsed)

	err = repo.UpdateAggregates(ctx, "missing", 1, 1, now)
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestSetGeneratedTitle(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Chat{UserID: "user-1"})
	require.NoError(t, err)

	require.NoError(t, repo.SetGeneratedTitle(ctx, created.ID, "Weather talk"))

	loaded, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weather talk", loaded.Title)
	assert.True(t, loaded.IsTitleGenerated)
}

func TestPagination(t *testing.T) {
	repo := NewChatRepository(newTestDB(t), nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := repo.Create(ctx, &domain.Chat{UserID: "user-1"})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, &domain.Chat{UserID: "user-2"})
	require.NoError(t, err)

	chats, total, err := repo.FindByUserIDWithPagination(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, chats, 2)

	chats, _, err = repo.FindByUserIDWithPagination(ctx, "user-1", 2, 4)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMutationsPublishUserScopedChanges(t *testing.T) {
	bus := events.NewBus()
	var changes []events.Change
	bus.Subscribe(func(c events.Change) { changes = append(changes, c) })

	repo := NewChatRepository(newTestDB(t), bus)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Chat{UserID: "user-1"})
	require.NoError(t, err)
	require.NoError(t, repo.SetGeneratedTitle(ctx, created.ID, "Title"))

	require.NotEmpty(t, changes)
	for _, change := range changes {
		assert.Equal(t, "chat", change.Entity)
		assert.Equal(t, "user-1", change.UserID)
	}
}
