package queue

import (
	"context"
)

// Queue moves notification tasks from the request path to the workers.
type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler func(*Task) error) error
	Close() error
}

type TaskType string

const (
	// TaskTypeSendEmail delivers one message through the mailer.
	TaskTypeSendEmail TaskType = "send_email"
	// TaskTypeSendTelegram mirrors an administrative notice to the admin chat.
	TaskTypeSendTelegram TaskType = "send_telegram"
	// TaskTypePublishEvent writes a lifecycle record to the event stream.
	TaskTypePublishEvent TaskType = "publish_event"
)

func (t TaskType) Known() bool {
	switch t {
	case TaskTypeSendEmail, TaskTypeSendTelegram, TaskTypePublishEvent:
		return true
	}
	return false
}
