// File: internal/events/events.go
package events

import "sync"

// Change describes one store mutation. Repositories publish these so cache
// layers can invalidate without every call site knowing about caching.
type Change struct {
	Entity string // "chat" or "message"
	ID     string
	UserID string // set for chat mutations
	ChatID string // set for message mutations
}

// Publisher is the write side of the change bus.
type Publisher interface {
	Publish(change Change)
}

// Bus is an in-process fan-out of store change notifications. Publishing never
// blocks on a subscriber; handlers run inline and must be fast.
type Bus struct {
	mu          sync.RWMutex
	subscribers []func(Change)
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler for every subsequent change.
func (b *Bus) Subscribe(handler func(Change)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, handler)
}

func (b *Bus) Publish(change Change) {
	b.mu.RLock()
	handlers := b.subscribers
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(change)
	}
}

// NopPublisher discards all changes; used where no cache layer is wired.
type NopPublisher struct{}

func (NopPublisher) Publish(Change) {}
