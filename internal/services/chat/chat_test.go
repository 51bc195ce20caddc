// File: internal/services/chat/chat_test.go
package chat

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/ratelimit"
	chatrepo "github.com/iyusef/go-chatstream/internal/repository/chat"
	messagerepo "github.com/iyusef/go-chatstream/internal/repository/message"
	usagerepo "github.com/iyusef/go-chatstream/internal/repository/usage"
	userrepo "github.com/iyusef/go-chatstream/internal/repository/user"
	"github.com/iyusef/go-chatstream/internal/services/ai"
)

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (noopLogger) Warn(msg string, keysAndValues ...interface{})  {}

// fakeProvider replays a scripted stream.
type fakeProvider struct {
	configured bool
	events     []ai.StreamEvent
	err        error
	requests   []ai.CompletionRequest
}

func (f *fakeProvider) StreamCompletion(ctx context.Context, req ai.CompletionRequest, onEvent func(ai.StreamEvent) error) error {
	f.requests = append(f.requests, req)
	for _, ev := range f.events {
		if err := onEvent(ev); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeProvider) IsConfigured() bool { return f.configured }

type testEnv struct {
	db       *gorm.DB
	chats    chatrepo.ChatRepository
	messages messagerepo.MessageRepository
	users    userrepo.UserRepository
	usage    usagerepo.UsageRepository
	provider *fakeProvider
	catalog  *ai.ModelCatalog
	limiter  *ratelimit.MemoryRateLimiter
	config   *Config
	worker   *Worker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Chat{}, &domain.Message{}, &domain.UsageRecord{}))

	config := DefaultConfig()
	// Flush every delta so assertions never depend on wall-clock gates.
	config.FlushChars = 1
	config.PollInterval = 10 * time.Millisecond
	config.MaxStreamWait = 2 * time.Second

	limiter := ratelimit.NewMemoryRateLimiter(ratelimit.GenerationConfig(100, time.Hour))
	t.Cleanup(limiter.Close)

	env := &testEnv{
		db:       db,
		chats:    chatrepo.NewChatRepository(db, nil),
		messages: messagerepo.NewMessageRepository(db, nil),
		users:    userrepo.NewUserRepository(db),
		usage:    usagerepo.NewUsageRepository(db),
		provider: &fakeProvider{configured: true},
		catalog:  ai.NewModelCatalog("google/gemini-2.5-flash", noopLogger{}),
		limiter:  limiter,
		config:   config,
	}
	env.worker = NewWorker(env.chats, env.messages, env.users, env.provider, env.catalog,
		env.limiter, nil, nil, env.config, noopLogger{})
	return env
}

func (e *testEnv) seedChat(t *testing.T, userID string) *domain.Chat {
	t.Helper()
	chat, err := e.chats.Create(context.Background(), &domain.Chat{UserID: userID})
	require.NoError(t, err)
	return chat
}

// seedExchange creates a completed user message and a pending assistant
// placeholder answering it.
func (e *testEnv) seedExchange(t *testing.T, chatID, userContent string) (*domain.Message, *domain.Message) {
	t.Helper()
	ctx := context.Background()

	userMsg, err := e.messages.Create(ctx, &domain.Message{
		ChatID:  chatID,
		Role:    domain.RoleUser,
		Content: userContent,
		Status:  domain.StatusCompleted,
	})
	require.NoError(t, err)
	require.NoError(t, e.chats.RecordMessageActivity(ctx, chatID))

	parentID := userMsg.ID
	assistant, err := e.messages.Create(ctx, &domain.Message{
		ChatID:          chatID,
		Role:            domain.RoleAssistant,
		Status:          domain.StatusPending,
		ParentMessageID: &parentID,
	})
	require.NoError(t, err)
	require.NoError(t, e.chats.RecordMessageActivity(ctx, chatID))

	return userMsg, assistant
}
