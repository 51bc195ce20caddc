// File: internal/services/chat/dispatcher.go
package chat

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Dispatcher runs generation jobs on a bounded pool. Admission is
// non-blocking: when the pool is full the job is rejected and the caller
// reports the message as not queued. A per-message-id lease prevents two
// concurrent attempts from streaming into the same row.
type Dispatcher struct {
	sem      *semaphore.Weighted
	logger   Logger
	inflight map[string]struct{}
	mu       sync.Mutex
	wg       sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewDispatcher(maxConcurrent int64, logger Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sem:      semaphore.NewWeighted(maxConcurrent),
		logger:   logger,
		inflight: make(map[string]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Dispatch tries to start job for messageID on the pool. It returns false when
// the pool is saturated or an attempt for the same message is already running.
func (d *Dispatcher) Dispatch(messageID string, job func(ctx context.Context)) bool {
	if !d.acquireLease(messageID) {
		d.logger.Warn("Generation already in flight, rejecting dispatch", "message_id", messageID)
		return false
	}

	if !d.sem.TryAcquire(1) {
		d.releaseLease(messageID)
		d.logger.Warn("Generation pool saturated, rejecting dispatch", "message_id", messageID)
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)
		defer d.releaseLease(messageID)
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Generation job panicked", "message_id", messageID, "panic", r)
			}
		}()

		job(d.baseCtx)
	}()
	return true
}

// Close stops admitting work and waits for running jobs to drain.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) acquireLease(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.inflight[messageID]; exists {
		return false
	}
	d.inflight[messageID] = struct{}{}
	return true
}

func (d *Dispatcher) releaseLease(messageID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, messageID)
}
