// File: internal/cache/chatlist.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iyusef/go-chatstream/internal/domain"
	"github.com/iyusef/go-chatstream/internal/events"
)

// Logger defines the logging interface used by the cache layer.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ErrCacheMiss is returned when a user's chat list is not cached.
var ErrCacheMiss = errors.New("cache miss")

const chatListTTL = 5 * time.Minute

// ChatListCache keeps per-user chat listings in Redis and invalidates them on
// store change events, so repositories never reference the cache directly.
type ChatListCache struct {
	client *redis.Client
	logger Logger
}

func NewChatListCache(client *redis.Client, bus *events.Bus, logger Logger) *ChatListCache {
	c := &ChatListCache{client: client, logger: logger}
	bus.Subscribe(c.onChange)
	return c
}

type cachedList struct {
	Chats []domain.Chat `json:"chats"`
	Total int64         `json:"total"`
}

// Get returns the cached listing for one page of a user's chats.
func (c *ChatListCache) Get(ctx context.Context, userID string, limit, offset int) ([]domain.Chat, int64, error) {
	raw, err := c.client.Get(ctx, listKey(userID, limit, offset)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, ErrCacheMiss
		}
		return nil, 0, err
	}

	var entry cachedList
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, 0, ErrCacheMiss
	}
	return entry.Chats, entry.Total, nil
}

// Put stores one page of a user's chat listing.
func (c *ChatListCache) Put(ctx context.Context, userID string, limit, offset int, chats []domain.Chat, total int64) {
	raw, err := json.Marshal(cachedList{Chats: chats, Total: total})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, listKey(userID, limit, offset), raw, chatListTTL).Err(); err != nil {
		c.logger.Warn("Cannot cache chat list", "user_id", userID, "error", err)
	}
}

// onChange drops every cached page for the affected user. Message events carry
// no user id, so they invalidate nothing here; the chat row is always touched
// alongside them and its event does the work.
func (c *ChatListCache) onChange(change events.Change) {
	if change.Entity != "chat" || change.UserID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pattern := fmt.Sprintf("chatlist:%s:*", change.UserID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Cache invalidation scan failed", "user_id", change.UserID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Cache invalidation delete failed", "user_id", change.UserID, "error", err)
		return
	}
	c.logger.Debug("Chat list cache invalidated", "user_id", change.UserID, "keys", len(keys))
}

func listKey(userID string, limit, offset int) string {
	return fmt.Sprintf("chatlist:%s:%d:%d", userID, limit, offset)
}
