package service

import (
	"context"
	"errors"
	"time"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/pkg/queue"
	"github.com/google/uuid"
)

// TaskPublisher hands background work to the task queue.
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

const (
	TaskTypeSendEmail    = string(queue.TaskTypeSendEmail)
	TaskTypeSendTelegram = string(queue.TaskTypeSendTelegram)
	TaskTypePublishEvent = string(queue.TaskTypePublishEvent)
)

var errNoQueue = errors.New("task queue not configured")

func newTask(taskType string, data map[string]interface{}) *Task {
	return &Task{
		ID:        taskType + "_" + uuid.NewString(),
		Type:      taskType,
		Data:      data,
		ExecuteAt: time.Now(),
	}
}

// QueueAdapter adapts queue.Queue to TaskPublisher.
type QueueAdapter struct {
	queue queue.Queue
}

func NewQueueAdapter(q queue.Queue) *QueueAdapter {
	return &QueueAdapter{queue: q}
}

func (a *QueueAdapter) Publish(ctx context.Context, task *Task) error {
	if a.queue == nil {
		return errNoQueue
	}

	queueTask := &queue.Task{
		ID:         task.ID,
		Type:       queue.TaskType(task.Type),
		Data:       task.Data,
		ExecuteAt:  task.ExecuteAt,
		CreatedAt:  time.Now(),
		MaxRetries: task.MaxRetries,
		Attempts:   task.Attempts,
	}

	return a.queue.Publish(ctx, queueTask)
}

// QueueNotifier delivers messages by enqueueing send_email tasks.
type QueueNotifier struct {
	publisher TaskPublisher
}

func NewQueueNotifier(publisher TaskPublisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (n *QueueNotifier) Send(ctx context.Context, msg entity.Message) error {
	return n.publisher.Publish(ctx, newTask(TaskTypeSendEmail, map[string]interface{}{
		"to":      msg.To,
		"subject": msg.Subject,
		"html":    msg.HTML,
		"text":    msg.Text,
	}))
}
