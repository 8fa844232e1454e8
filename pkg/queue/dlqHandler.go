package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var ErrFailedTaskNotFound = errors.New("failed task not found in DLQ")

// DLQHandler handles failed tasks by moving them to Dead Letter Queue
type DLQHandler interface {
	HandleFailedTask(ctx context.Context, task *Task, err error)
	GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error)
	RequeueFailedTask(ctx context.Context, taskID string) error
	DeleteFailedTask(ctx context.Context, taskID string) error
	GetDLQStats(ctx context.Context) (*DLQStats, error)
}

// RequeueFunc hands a task back to whichever broker runs the workers.
type RequeueFunc func(ctx context.Context, task *Task) error

// RedisDLQHandler keeps failed tasks in a sorted set scored by failure time.
type RedisDLQHandler struct {
	client  *redis.Client
	dlq     string
	requeue RequeueFunc
}

// FailedTask represents a task that failed execution
type FailedTask struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

// DLQStats contains statistics about the Dead Letter Queue
type DLQStats struct {
	OldestFailure time.Time `json:"oldest_failure"`
	NewestFailure time.Time `json:"newest_failure"`
	QueueSize     int64     `json:"queue_size"`
}

func NewRedisDLQHandler(client *redis.Client, dlq string) *RedisDLQHandler {
	return &RedisDLQHandler{
		client: client,
		dlq:    dlq,
	}
}

// RequeueWith sets where requeued tasks go. Without it RequeueFailedTask fails.
func (d *RedisDLQHandler) RequeueWith(fn RequeueFunc) {
	d.requeue = fn
}

// HandleFailedTask stores a failed task in the DLQ
func (d *RedisDLQHandler) HandleFailedTask(ctx context.Context, task *Task, err error) {
	failedTask := &FailedTask{
		Task:     task,
		Error:    err.Error(),
		FailedAt: time.Now(),
		Attempts: task.Attempts,
	}

	taskData, marshalErr := json.Marshal(failedTask)
	if marshalErr != nil {
		logrus.WithError(marshalErr).WithField("task_id", task.ID).Error("failed to marshal failed task")
		return
	}

	// a cancelled caller context must not lose the record
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	score := float64(failedTask.FailedAt.UnixNano()) / 1e9
	if redisErr := d.client.ZAdd(ctx, d.dlq, &redis.Z{
		Score:  score,
		Member: taskData,
	}).Err(); redisErr != nil {
		logrus.WithError(redisErr).WithField("task_id", task.ID).Error("failed to send task to DLQ")
		return
	}

	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempts":  task.Attempts,
	}).WithError(err).Warn("task moved to DLQ")
}

// GetFailedTasks retrieves failed tasks from DLQ, newest first
func (d *RedisDLQHandler) GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}

	tasks, err := d.client.ZRevRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed tasks: %w", err)
	}

	failedTasks := make([]*FailedTask, 0, len(tasks))
	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			logrus.WithError(err).Warn("skipping unreadable DLQ entry")
			continue
		}
		failedTasks = append(failedTasks, &failedTask)
	}

	return failedTasks, nil
}

// RequeueFailedTask hands a failed task back to the queue with a fresh
// attempt budget and removes it from the DLQ.
func (d *RedisDLQHandler) RequeueFailedTask(ctx context.Context, taskID string) error {
	if d.requeue == nil {
		return fmt.Errorf("requeue target not configured")
	}

	raw, failedTask, err := d.find(ctx, taskID)
	if err != nil {
		return err
	}

	failedTask.Task.Attempts = 0
	failedTask.Task.ExecuteAt = time.Now()

	if err := d.requeue(ctx, failedTask.Task); err != nil {
		return fmt.Errorf("failed to requeue task: %w", err)
	}
	if err := d.client.ZRem(ctx, d.dlq, raw).Err(); err != nil {
		return fmt.Errorf("failed to remove requeued task from DLQ: %w", err)
	}

	logrus.WithField("task_id", taskID).Info("task requeued from DLQ")
	return nil
}

// DeleteFailedTask permanently removes a failed task from DLQ
func (d *RedisDLQHandler) DeleteFailedTask(ctx context.Context, taskID string) error {
	raw, _, err := d.find(ctx, taskID)
	if err != nil {
		return err
	}

	if err := d.client.ZRem(ctx, d.dlq, raw).Err(); err != nil {
		return fmt.Errorf("failed to delete task from DLQ: %w", err)
	}

	logrus.WithField("task_id", taskID).Info("task deleted from DLQ")
	return nil
}

func (d *RedisDLQHandler) find(ctx context.Context, taskID string) (string, *FailedTask, error) {
	tasks, err := d.client.ZRange(ctx, d.dlq, 0, -1).Result()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get DLQ tasks: %w", err)
	}

	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			continue
		}
		if failedTask.Task != nil && failedTask.Task.ID == taskID {
			return taskData, &failedTask, nil
		}
	}

	return "", nil, fmt.Errorf("%w: %s", ErrFailedTaskNotFound, taskID)
}

// GetDLQStats returns statistics about the DLQ
func (d *RedisDLQHandler) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ count: %w", err)
	}

	stats := &DLQStats{QueueSize: count}
	if count == 0 {
		return stats, nil
	}

	oldest, err := d.client.ZRange(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest task: %w", err)
	}
	newest, err := d.client.ZRevRange(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get newest task: %w", err)
	}

	if len(oldest) > 0 {
		var ft FailedTask
		if err := json.Unmarshal([]byte(oldest[0]), &ft); err == nil {
			stats.OldestFailure = ft.FailedAt
		}
	}
	if len(newest) > 0 {
		var ft FailedTask
		if err := json.Unmarshal([]byte(newest[0]), &ft); err == nil {
			stats.NewestFailure = ft.FailedAt
		}
	}

	return stats, nil
}

// PurgeDLQ clears all tasks from the DLQ
func (d *RedisDLQHandler) PurgeDLQ(ctx context.Context) (int64, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get DLQ count: %w", err)
	}

	if err := d.client.Del(ctx, d.dlq).Err(); err != nil {
		return 0, fmt.Errorf("failed to purge DLQ: %w", err)
	}

	logrus.WithField("removed", count).Info("DLQ purged")
	return count, nil
}
