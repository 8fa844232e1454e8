package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ds124wfegd/uabc-events/pkg/queue"
	"github.com/sirupsen/logrus"
)

// DLQStatter reports the size of the dead-letter queue.
type DLQStatter interface {
	GetDLQStats(ctx context.Context) (*queue.DLQStats, error)
}

// DLQMonitor watches failed notifications. It warns while the dead-letter
// queue holds at least threshold tasks and logs every change in size.
type DLQMonitor struct {
	dlq       DLQStatter
	threshold int64

	mu       sync.Mutex
	lastSize int64
	checks   int
	lastRun  time.Time
}

func NewDLQMonitor(dlq DLQStatter, threshold int64) *DLQMonitor {
	if threshold <= 0 {
		threshold = 1
	}
	return &DLQMonitor{dlq: dlq, threshold: threshold, lastSize: -1}
}

// Check is a scheduler job.
func (m *DLQMonitor) Check(ctx context.Context) error {
	stats, err := m.dlq.GetDLQStats(ctx)
	if err != nil {
		return fmt.Errorf("read dlq stats: %w", err)
	}

	m.mu.Lock()
	previous := m.lastSize
	m.lastSize = stats.QueueSize
	m.checks++
	m.lastRun = time.Now()
	m.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"dlq_size":       stats.QueueSize,
		"previous_size":  previous,
		"oldest_failure": stats.OldestFailure,
	})

	switch {
	case stats.QueueSize >= m.threshold:
		log.Warn("failed notifications waiting in dead-letter queue")
	case stats.QueueSize != previous:
		log.Info("dead-letter queue size changed")
	default:
		log.Debug("dead-letter queue unchanged")
	}
	return nil
}

func (m *DLQMonitor) GetStats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"worker_type": "dlq_monitor",
		"threshold":   m.threshold,
		"last_size":   m.lastSize,
		"checks":      m.checks,
		"last_run":    m.lastRun,
	}
}
