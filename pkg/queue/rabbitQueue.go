package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type RabbitQueueConfig struct {
	URL       string
	QueueName string
}

// RabbitQueue implements Queue over a durable RabbitMQ queue. Delayed tasks
// and retries go through a per-message TTL queue that dead-letters back into
// the main queue.
type RabbitQueue struct {
	conn         *amqp.Connection
	channel      *amqp.Channel
	queue        amqp.Queue
	config       RabbitQueueConfig
	retryManager *RetryManager
	dlqHandler   DLQHandler
}

func NewRabbitQueue(cfg RabbitQueueConfig, retryManager *RetryManager, dlqHandler DLQHandler) (*RabbitQueue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := channel.QueueDeclare(
		cfg.QueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if retryManager == nil {
		retryManager = NewRetryManager(defaultMaxRetries, defaultBaseDelay)
	}

	logrus.WithField("queue", cfg.QueueName).Info("rabbitmq queue initialized")

	return &RabbitQueue{
		conn:         conn,
		channel:      channel,
		queue:        q,
		config:       cfg,
		retryManager: retryManager,
		dlqHandler:   dlqHandler,
	}, nil
}

func (r *RabbitQueue) Publish(ctx context.Context, task *Task) error {
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
		task.MaxRetries = r.retryManager.MaxRetries()
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if delay := time.Until(task.ExecuteAt); delay > 0 {
		return r.publishWithTTLAndDLX(ctx, body, delay)
	}
	return r.publish(ctx, r.queue.Name, body)
}

func (r *RabbitQueue) publish(ctx context.Context, routingKey string, body []byte) error {
	err := r.channel.PublishWithContext(
		ctx,
		"",         // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	return nil
}

func (r *RabbitQueue) publishWithTTLAndDLX(ctx context.Context, body []byte, delay time.Duration) error {
	delayedQueueName := fmt.Sprintf("%s_delayed_%d", r.config.QueueName, time.Now().UnixNano())

	_, err := r.channel.QueueDeclare(
		delayedQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl":             delay.Milliseconds(),
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": r.config.QueueName,
			"x-expires":                 delay.Milliseconds() + 60000,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare delayed queue: %w", err)
	}

	return r.publish(ctx, delayedQueueName, body)
}

func (r *RabbitQueue) Subscribe(ctx context.Context, handler func(*Task) error) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	if err := r.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume tasks: %w", err)
	}

	go r.handleDeliveries(ctx, msgs, handler)
	logrus.Info("rabbitmq queue subscriber started")
	return nil
}

func (r *RabbitQueue) handleDeliveries(ctx context.Context, msgs <-chan amqp.Delivery, handler func(*Task) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			r.handleDelivery(ctx, msg, handler)
		}
	}
}

// handleDelivery acks every message; a retry is a new delayed publication.
func (r *RabbitQueue) handleDelivery(ctx context.Context, msg amqp.Delivery, handler func(*Task) error) {
	defer msg.Ack(false)

	var task Task
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logrus.WithError(err).Error("dropping unreadable task")
		return
	}

	task.Attempts++
	err := handler(&task)
	if err == nil {
		return
	}

	shouldRetry, delay := r.retryManager.ShouldRetry(&task, err)
	if shouldRetry {
		task.ExecuteAt = time.Now().Add(delay)
		pubErr := r.Publish(ctx, &task)
		if pubErr == nil {
			logrus.WithFields(logrus.Fields{
				"task_id":  task.ID,
				"attempt":  task.Attempts,
				"retry_in": delay,
			}).WithError(err).Warn("task failed, retrying")
			return
		}
		logrus.WithError(pubErr).WithField("task_id", task.ID).Error("failed to schedule retry")
	}

	if r.dlqHandler != nil {
		r.dlqHandler.HandleFailedTask(ctx, &task, err)
	}
}

func (r *RabbitQueue) Close() error {
	var errs []error

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing RabbitMQ: %v", errs)
	}
	return nil
}

// HealthCheck проверяет соединение с RabbitMQ
func (r *RabbitQueue) HealthCheck() error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}
	return nil
}
