package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is one run of a scheduled job.
type Task func(ctx context.Context) error

// Scheduler runs tasks on standard five-field cron specs.  A panicking
// task is recovered and logged; it does not stop the scheduler.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		log:  log,
	}
}

// Add registers task under name.  Each run gets its own context bounded
// by timeout.
func (s *Scheduler) Add(name, spec string, timeout time.Duration, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		if err := task(ctx); err != nil {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for running tasks to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

// Len reports how many tasks are registered.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }
