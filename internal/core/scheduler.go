package core

import (
	"context"
	"time"

	"telemetry-collector/internal/logger"
)

// Scheduler runs a cycle immediately and then once per interval until ctx
// ends. A failed cycle is logged and the next tick proceeds normally.
type Scheduler struct {
	interval time.Duration
	log      logger.Logger
	run      func(context.Context) (Result, error)
}

func NewScheduler(interval time.Duration, log logger.Logger, run func(context.Context) (Result, error)) *Scheduler {
	return &Scheduler{interval: interval, log: log, run: run}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.run == nil {
		return
	}

	if _, err := s.run(ctx); err != nil {
		s.log.Error("scheduler: cycle failed", "error", err)
	}
}
