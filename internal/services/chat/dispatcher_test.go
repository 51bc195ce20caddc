// File: internal/services/chat/dispatcher_test.go
package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatchRejectsWhenSaturated(t *testing.T) {
	dispatcher := NewDispatcher(1, noopLogger{})

	release := make(chan struct{})
	started := make(chan struct{})

	ok := dispatcher.Dispatch("msg-1", func(ctx context.Context) {
		close(started)
		<-release
	})
	assert.True(t, ok)
	<-started

	assert.False(t, dispatcher.Dispatch("msg-2", func(ctx context.Context) {}))

	close(release)
	dispatcher.Close()
}

func TestDispatchRejectsDuplicateMessage(t *testing.T) {
	dispatcher := NewDispatcher(4, noopLogger{})

	release := make(chan struct{})
	started := make(chan struct{})

	ok := dispatcher.Dispatch("msg-1", func(ctx context.Context) {
		close(started)
		<-release
	})
	assert.True(t, ok)
	<-started

	assert.False(t, dispatcher.Dispatch("msg-1", func(ctx context.Context) {}))

	close(release)
	dispatcher.Close()
}

func TestDispatchAllowsSameMessageAfterCompletion(t *testing.T) {
	dispatcher := NewDispatcher(1, noopLogger{})
	defer dispatcher.Close()

	done := make(chan struct{})
	assert.True(t, dispatcher.Dispatch("msg-1", func(ctx context.Context) { close(done) }))
	<-done

	// The lease is released asynchronously with the job goroutine's defers.
	assert.Eventually(t, func() bool {
		inner := make(chan struct{})
		if !dispatcher.Dispatch("msg-1", func(ctx context.Context) { close(inner) }) {
			return false
		}
		<-inner
		return true
	}, time.Second, 10*time.Millisecond)
}

func TestDispatchRecoversPanics(t *testing.T) {
	dispatcher := NewDispatcher(1, noopLogger{})

	assert.True(t, dispatcher.Dispatch("msg-1", func(ctx context.Context) {
		panic("boom")
	}))

	// Close waits for the job; a leaked panic would fail the test process.
	dispatcher.Close()
}
