package cranker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers Service.RunAll on a standard five-field cron schedule.
type Scheduler struct {
	Cron    *cron.Cron
	Service *Service
	Ctx     context.Context
	logger  *slog.Logger
}

func NewScheduler(ctx context.Context, svc *Service, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		Cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Service: svc,
		Ctx:     ctx,
		logger:  logger,
	}
}

// Register adds the crank entry.
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.Cron.AddFunc(schedule, s.RunNow); err != nil {
		return fmt.Errorf("register crank task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started")
}

// Stop stops scheduling and waits for a running crank to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.Cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs every pool once.
func (s *Scheduler) RunNow() {
	results, err := s.Service.RunAll(s.Ctx)
	for _, res := range results {
		if res.Skipped {
			continue
		}
		s.logger.Info("pool cranked",
			slog.String("pool", res.Pool.String()),
			slog.Uint64("day", res.Day),
			slog.Int("pages", res.Pages),
			slog.Bool("resumed", res.Resumed))
	}
	if err != nil {
		s.logger.Error("crank run finished with errors", slog.Any("error", err))
	}
}
