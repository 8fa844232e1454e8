package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// InlineQueue runs tasks in goroutines of the current process. It keeps the
// retry and DLQ semantics of the broker-backed queues but loses pending work
// on shutdown.
type InlineQueue struct {
	retryManager *RetryManager
	dlqHandler   DLQHandler

	mu      sync.RWMutex
	handler func(*Task) error
	ctx     context.Context
	closed  bool
	wg      sync.WaitGroup
}

func NewInlineQueue(retryManager *RetryManager, dlqHandler DLQHandler) *InlineQueue {
	if retryManager == nil {
		retryManager = NewRetryManager(defaultMaxRetries, defaultBaseDelay)
	}
	return &InlineQueue{retryManager: retryManager, dlqHandler: dlqHandler}
}

func (q *InlineQueue) Subscribe(ctx context.Context, handler func(*Task) error) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
	q.ctx = ctx
	return nil
}

func (q *InlineQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if task.ID == "" {
		task.ID = generateTaskID()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = q.retryManager.MaxRetries()
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("queue closed")
	}
	if q.handler == nil {
		return fmt.Errorf("no subscriber")
	}

	q.wg.Add(1)
	go q.run(q.ctx, task, q.handler)
	return nil
}

func (q *InlineQueue) run(ctx context.Context, task *Task, handler func(*Task) error) {
	defer q.wg.Done()

	if wait := time.Until(task.ExecuteAt); wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}

	for {
		task.Attempts++
		err := handler(task)
		if err == nil {
			return
		}

		shouldRetry, delay := q.retryManager.ShouldRetry(task, err)
		if !shouldRetry {
			if q.dlqHandler != nil {
				q.dlqHandler.HandleFailedTask(ctx, task, err)
			} else {
				logrus.WithError(err).WithField("task_id", task.ID).Error("task failed")
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Wait blocks until every published task has finished.
func (q *InlineQueue) Wait() {
	q.wg.Wait()
}

func (q *InlineQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}
