package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries    = 3
	defaultBaseDelay     = 5 * time.Second
	defaultQueueTimeout  = 5 * time.Second
	defaultDelayedPoll   = 10 * time.Second
	defaultMetricsPeriod = 30 * time.Second
	defaultWarnThreshold = 1000
)

// RedisQueue implements Queue interface using Redis
type RedisQueue struct {
	client          *redis.Client
	mainQueue       string
	delayedQueue    string
	processingQueue string
	prefix          string
	retryManager    *RetryManager
	dlqHandler      DLQHandler
	config          *RedisQueueConfig
	mu              sync.Mutex
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// RedisQueueConfig contains configuration for RedisQueue
type RedisQueueConfig struct {
	// Prefix for every key the queue owns, e.g. "uabc_events".
	Prefix string

	MaxRetries    int
	BaseDelay     time.Duration
	QueueTimeout  time.Duration
	DelayedPoll   time.Duration
	WarnThreshold int64
	EnableMetrics bool
}

// DefaultRedisQueueConfig returns default configuration
func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		Prefix:        "uabc_events",
		MaxRetries:    defaultMaxRetries,
		BaseDelay:     defaultBaseDelay,
		QueueTimeout:  defaultQueueTimeout,
		DelayedPoll:   defaultDelayedPoll,
		WarnThreshold: defaultWarnThreshold,
		EnableMetrics: true,
	}
}

// DLQKey is the sorted set holding failed tasks for prefix.
func DLQKey(prefix string) string {
	return prefix + ":dlq"
}

// NewRedisQueue creates a queue over an existing client. The client is owned
// by the caller.
func NewRedisQueue(client *redis.Client, cfg *RedisQueueConfig, retryManager *RetryManager, dlqHandler DLQHandler) *RedisQueue {
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = defaultQueueTimeout
	}
	if cfg.DelayedPoll <= 0 {
		cfg.DelayedPoll = defaultDelayedPoll
	}
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = defaultWarnThreshold
	}
	if retryManager == nil {
		retryManager = NewRetryManager(cfg.MaxRetries, cfg.BaseDelay)
	}

	q := &RedisQueue{
		client:          client,
		mainQueue:       cfg.Prefix + ":tasks",
		delayedQueue:    cfg.Prefix + ":tasks:delayed",
		processingQueue: cfg.Prefix + ":tasks:processing",
		prefix:          cfg.Prefix,
		retryManager:    retryManager,
		dlqHandler:      dlqHandler,
		config:          cfg,
		stopChan:        make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"main":    q.mainQueue,
		"delayed": q.delayedQueue,
	}).Info("redis queue initialized")

	return q
}

// Publish sends a task to the queue
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if err := r.validateTask(task); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ExecuteAt.After(time.Now()) {
		score := float64(task.ExecuteAt.UnixNano()) / 1e9
		if err := r.client.ZAdd(ctx, r.delayedQueue, &redis.Z{
			Score:  score,
			Member: taskData,
		}).Err(); err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}
		r.incrementMetric(ctx, "tasks_delayed")
		logrus.WithFields(logrus.Fields{"task_id": task.ID, "execute_at": task.ExecuteAt}).Debug("task scheduled")
		return nil
	}

	if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to publish immediate task: %w", err)
	}
	r.incrementMetric(ctx, "tasks_queued")
	logrus.WithFields(logrus.Fields{"task_id": task.ID, "task_type": task.Type}).Debug("task published")

	return nil
}

// Subscribe starts consuming tasks from the queue
func (r *RedisQueue) Subscribe(ctx context.Context, handler func(*Task) error) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.wg.Add(3)
	go r.processDelayedTasks(ctx)
	go r.processMainQueue(ctx, handler)
	go r.monitorQueueMetrics(ctx)

	logrus.Info("redis queue subscriber started")
	return nil
}

func (r *RedisQueue) processMainQueue(ctx context.Context, handler func(*Task) error) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		default:
			if err := r.processOne(ctx, handler); err != nil {
				if ctx.Err() != nil {
					return
				}
				logrus.WithError(err).Error("queue processing error")
				time.Sleep(time.Second)
			}
		}
	}
}

// processOne moves one task to the processing list, runs it and removes it.
func (r *RedisQueue) processOne(ctx context.Context, handler func(*Task) error) error {
	taskData, err := r.client.BRPopLPush(ctx, r.mainQueue, r.processingQueue, r.config.QueueTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to move task to processing queue: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		r.moveCorruptedToDLQ(ctx, taskData, err)
	} else if err := r.executeTaskWithRetry(ctx, &task, handler); err != nil {
		if r.dlqHandler != nil {
			r.dlqHandler.HandleFailedTask(ctx, &task, err)
		}
		r.incrementMetric(ctx, "tasks_dlq")
	}

	if err := r.client.LRem(ctx, r.processingQueue, 1, taskData).Err(); err != nil {
		logrus.WithError(err).Warn("failed to remove task from processing queue")
	}

	return nil
}

func (r *RedisQueue) processDelayedTasks(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.DelayedPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.moveReadyDelayedTasks(ctx); err != nil {
				logrus.WithError(err).Error("failed to process delayed tasks")
			}
		}
	}
}

// moveReadyDelayedTasks moves ready delayed tasks to main queue
func (r *RedisQueue) moveReadyDelayedTasks(ctx context.Context) error {
	now := fmt.Sprintf("%f", float64(time.Now().UnixNano())/1e9)

	tasks, err := r.client.ZRangeByScore(ctx, r.delayedQueue, &redis.ZRangeBy{
		Min: "0",
		Max: now,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get delayed tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, taskData := range tasks {
		pipe.LPush(ctx, r.mainQueue, taskData)
		pipe.ZRem(ctx, r.delayedQueue, taskData)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move delayed tasks: %w", err)
	}

	r.incrementMetricBy(ctx, "tasks_delayed_processed", int64(len(tasks)))
	return nil
}

// executeTaskWithRetry runs handler until it succeeds or the retry manager
// gives up. The returned error is the last handler error.
func (r *RedisQueue) executeTaskWithRetry(ctx context.Context, task *Task, handler func(*Task) error) error {
	for {
		task.Attempts++
		started := time.Now()

		err := handler(task)
		if err == nil {
			r.recordTaskResult(ctx, task, "success", time.Since(started))
			return nil
		}
		r.recordTaskResult(ctx, task, "failure", time.Since(started))

		shouldRetry, delay := r.retryManager.ShouldRetry(task, err)
		if !shouldRetry {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempt":  task.Attempts,
			"retry_in": delay,
		}).WithError(err).Warn("task failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopChan:
			return err
		case <-time.After(delay):
		}
	}
}

func (r *RedisQueue) moveCorruptedToDLQ(ctx context.Context, taskData string, err error) {
	if r.dlqHandler == nil {
		return
	}
	failedTask := &Task{
		ID:        "corrupted_" + generateTaskID(),
		Type:      "corrupted",
		Data:      map[string]interface{}{"raw_data": taskData},
		CreatedAt: time.Now(),
	}
	r.dlqHandler.HandleFailedTask(ctx, failedTask, fmt.Errorf("corrupted task: %w", err))
}

func (r *RedisQueue) validateTask(task *Task) error {
	if task.ID == "" {
		task.ID = generateTaskID()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = r.retryManager.MaxRetries()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.ExecuteAt.IsZero() {
		task.ExecuteAt = task.CreatedAt
	}
	return task.Validate()
}

func (r *RedisQueue) monitorQueueMetrics(ctx context.Context) {
	defer r.wg.Done()

	if !r.config.EnableMetrics {
		return
	}

	ticker := time.NewTicker(defaultMetricsPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			stats, err := r.GetQueueStats(ctx)
			if err != nil {
				logrus.WithError(err).Warn("failed to collect queue metrics")
				continue
			}
			if stats.MainQueue > r.config.WarnThreshold {
				logrus.WithFields(logrus.Fields{
					"size":      stats.MainQueue,
					"threshold": r.config.WarnThreshold,
				}).Warn("main queue size exceeds threshold")
			}
		}
	}
}

func (r *RedisQueue) incrementMetric(ctx context.Context, metric string) {
	r.incrementMetricBy(ctx, metric, 1)
}

func (r *RedisQueue) incrementMetricBy(ctx context.Context, metric string, value int64) {
	if !r.config.EnableMetrics {
		return
	}

	key := fmt.Sprintf("%s:metrics:%s", r.prefix, metric)
	pipe := r.client.Pipeline()
	pipe.IncrBy(ctx, key, value)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Debug("failed to record queue metric")
	}
}

func (r *RedisQueue) recordTaskResult(ctx context.Context, task *Task, outcome string, duration time.Duration) {
	if !r.config.EnableMetrics {
		return
	}
	r.incrementMetric(ctx, "tasks_"+outcome)
	r.incrementMetric(ctx, fmt.Sprintf("tasks_%s_%s", outcome, task.Type))
	r.client.HIncrBy(ctx, r.prefix+":metrics:task_timing_ms", string(task.Type), duration.Milliseconds())
}

// GetQueueStats returns current queue statistics
func (r *RedisQueue) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	pipe := r.client.Pipeline()

	mainLen := pipe.LLen(ctx, r.mainQueue)
	delayedLen := pipe.ZCard(ctx, r.delayedQueue)
	processingLen := pipe.LLen(ctx, r.processingQueue)
	dlqLen := pipe.ZCard(ctx, DLQKey(r.prefix))

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	return &QueueStats{
		MainQueue:       mainLen.Val(),
		DelayedQueue:    delayedLen.Val(),
		ProcessingQueue: processingLen.Val(),
		DLQ:             dlqLen.Val(),
		Timestamp:       time.Now(),
	}, nil
}

// Close stops the workers. The redis client is left open.
func (r *RedisQueue) Close() error {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	logrus.Info("redis queue closed")
	return nil
}

// QueueStats contains statistics about queue state
type QueueStats struct {
	MainQueue       int64     `json:"main_queue"`
	DelayedQueue    int64     `json:"delayed_queue"`
	ProcessingQueue int64     `json:"processing_queue"`
	DLQ             int64     `json:"dlq"`
	Timestamp       time.Time `json:"timestamp"`
}
