package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/ds124wfegd/uabc-events/pkg/mailer"
	"github.com/sirupsen/logrus"
)

// Mailer delivers one email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// TelegramBot интерфейс для Telegram бота
type TelegramBot interface {
	SendMessage(chatID, text string) error
}

// EventPublisher writes one record to a stream topic.
type EventPublisher interface {
	SendMessage(topic string, message interface{}) error
}

// TaskHandler обрабатывает задачи из очереди
type TaskHandler struct {
	mailer      Mailer
	telegramBot TelegramBot
	adminChatID string
	publisher   EventPublisher
	timeout     time.Duration
}

// NewTaskHandler builds the handler. A nil telegramBot or publisher makes the
// matching task types no-ops.
func NewTaskHandler(m Mailer, telegramBot TelegramBot, adminChatID string, publisher EventPublisher) *TaskHandler {
	return &TaskHandler{
		mailer:      m,
		telegramBot: telegramBot,
		adminChatID: adminChatID,
		publisher:   publisher,
		timeout:     30 * time.Second,
	}
}

// HandleTask обрабатывает задачу
func (h *TaskHandler) HandleTask(task *Task) error {
	log := logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempt":   task.Attempts,
	})
	log.Debug("handling task")

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	var err error
	switch task.Type {
	case TaskTypeSendEmail:
		err = h.handleSendEmail(ctx, task)
	case TaskTypeSendTelegram:
		err = h.handleSendTelegram(task)
	case TaskTypePublishEvent:
		err = h.handlePublishEvent(task)
	default:
		err = Permanent(fmt.Errorf("unknown task type: %s", task.Type))
	}

	if err != nil {
		log.WithError(err).Error("task failed")
		return err
	}
	log.Info("task completed")
	return nil
}

func (h *TaskHandler) handleSendEmail(ctx context.Context, task *Task) error {
	msg := mailer.Message{
		To:      task.GetString("to"),
		Subject: task.GetString("subject"),
		HTML:    task.GetString("html"),
		Text:    task.GetString("text"),
	}
	if msg.To == "" || msg.Subject == "" {
		return Permanent(fmt.Errorf("email task %s has no recipient or subject", task.ID))
	}
	if h.mailer == nil {
		return Permanent(fmt.Errorf("mailer not configured"))
	}
	return h.mailer.Send(ctx, msg)
}

func (h *TaskHandler) handleSendTelegram(task *Task) error {
	if h.telegramBot == nil || h.adminChatID == "" {
		return nil
	}
	text := task.GetString("text")
	if text == "" {
		return Permanent(fmt.Errorf("telegram task %s has no text", task.ID))
	}
	return h.telegramBot.SendMessage(h.adminChatID, text)
}

func (h *TaskHandler) handlePublishEvent(task *Task) error {
	if h.publisher == nil {
		return nil
	}
	topic := task.GetString("topic")
	if topic == "" {
		return Permanent(fmt.Errorf("publish task %s has no topic", task.ID))
	}
	return h.publisher.SendMessage(topic, task.GetMap("payload"))
}
