package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is one periodic unit of work.
type Job func(ctx context.Context) error

type Scheduler struct {
	name     string
	job      Job
	interval time.Duration
}

func NewScheduler(name string, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		name:     name,
		job:      job,
		interval: interval,
	}
}

// Start runs the job once immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)
	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-ctx.Done():
			logrus.WithField("job", s.name).Info("scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.job(ctx); err != nil {
		logrus.WithError(err).WithField("job", s.name).Error("scheduled job failed")
	}
}
