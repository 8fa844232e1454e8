package service

import (
	"context"
	"errors"

	"github.com/ds124wfegd/uabc-events/internal/entity"
	"github.com/ds124wfegd/uabc-events/pkg/queue"
	"github.com/sirupsen/logrus"
)

const defaultFailedLimit = 50

type failedNotificationService struct {
	dlq queue.DLQHandler
}

func NewFailedNotificationService(dlq queue.DLQHandler) FailedNotificationService {
	return &failedNotificationService{dlq: dlq}
}

func (s *failedNotificationService) List(ctx context.Context, actor entity.Identity, limit int) ([]*queue.FailedTask, error) {
	if err := requireAdmin(actor, "list_failed_notifications"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFailedLimit
	}
	tasks, err := s.dlq.GetFailedTasks(ctx, limit)
	if err != nil {
		return nil, queueError(err)
	}
	return tasks, nil
}

func (s *failedNotificationService) Stats(ctx context.Context, actor entity.Identity) (*queue.DLQStats, error) {
	if err := requireAdmin(actor, "failed_notification_stats"); err != nil {
		return nil, err
	}
	stats, err := s.dlq.GetDLQStats(ctx)
	if err != nil {
		return nil, queueError(err)
	}
	return stats, nil
}

func (s *failedNotificationService) Requeue(ctx context.Context, actor entity.Identity, taskID string) error {
	if err := requireAdmin(actor, "requeue_notification"); err != nil {
		return err
	}
	if err := s.dlq.RequeueFailedTask(ctx, taskID); err != nil {
		return queueError(err)
	}
	logrus.WithFields(logrus.Fields{
		"task_id":  taskID,
		"admin_id": actor.UserID,
	}).Info("failed notification requeued")
	return nil
}

func (s *failedNotificationService) Delete(ctx context.Context, actor entity.Identity, taskID string) error {
	if err := requireAdmin(actor, "delete_notification"); err != nil {
		return err
	}
	if err := s.dlq.DeleteFailedTask(ctx, taskID); err != nil {
		return queueError(err)
	}
	return nil
}

func queueError(err error) error {
	if errors.Is(err, queue.ErrFailedTaskNotFound) {
		return err
	}
	return &entity.CollaboratorError{Collaborator: "task queue", Err: err}
}
