package engine

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/proarena/arena/internal/logger"
)

// Scheduler drives the engine on a fixed interval. Reconciliation runs
// server-side so tournament status advances even when no client is open.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   *logger.Logger
	sched    gocron.Scheduler
}

func NewScheduler(engine *Engine, interval time.Duration, log *logger.Logger) *Scheduler {
	if interval == 0 {
		interval = time.Minute
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		logger:   log.With("component", "engine-scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	s.sched = sched

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.engine.Reconcile(ctx); err != nil {
				s.logger.Error("reconciliation pass failed", "error", err)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	sched.Start()
	s.logger.Info("status engine scheduler started", "interval", s.interval.String())
	return nil
}

func (s *Scheduler) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
