package queue

import (
	"context"
	"errors"
	"math/rand"
	"net/textproto"
	"strings"
	"time"
)

// PermanentError marks a handler failure that no retry can fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the task goes straight to the dead-letter queue.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// RetryManager decides whether a failed task runs again and when.
// Delays double per attempt from baseDelay, capped at 16x, with ±25% jitter.
type RetryManager struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewRetryManager(maxRetries int, baseDelay time.Duration) *RetryManager {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &RetryManager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   baseDelay * 16,
	}
}

func (r *RetryManager) MaxRetries() int {
	return r.maxRetries
}

// ShouldRetry reports whether task deserves another attempt after err, and
// the delay before it.
func (r *RetryManager) ShouldRetry(task *Task, err error) (bool, time.Duration) {
	limit := task.MaxRetries
	if limit <= 0 {
		limit = r.maxRetries
	}
	if task.Attempts >= limit || !retryable(err) {
		return false, 0
	}
	return true, r.backoff(task.Attempts)
}

func retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var permanent *PermanentError
	if errors.As(err, &permanent) {
		return false
	}

	// 5xx SMTP replies (unknown mailbox, rejected sender) repeat on retry.
	var smtpErr *textproto.Error
	if errors.As(err, &smtpErr) {
		return smtpErr.Code < 500
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"invalid", "not found", "permission denied"} {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}

func (r *RetryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return r.baseDelay
	}

	delay := r.baseDelay << (attempt - 1)
	if delay <= 0 || delay > r.maxDelay {
		delay = r.maxDelay
	}

	if quarter := int64(delay / 4); quarter > 0 {
		jitter := time.Duration(rand.Int63n(2*quarter+1) - quarter)
		delay += jitter
	}
	if delay > r.maxDelay {
		delay = r.maxDelay
	}
	return delay
}
