package cranker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Service runs every configured pool. Pools are independent: one pool's
// failure never stops the others.
type Service struct {
	runner      *Runner
	pools       []Pool
	parallelism int
	logger      *slog.Logger
}

func NewService(runner *Runner, pools []Pool, parallelism int, logger *slog.Logger) *Service {
	if parallelism <= 0 {
		parallelism = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{runner: runner, pools: pools, parallelism: parallelism, logger: logger}
}

// RunAll runs one day for every pool and returns the results in pool order.
// The returned error joins every pool's failure.
func (s *Service) RunAll(ctx context.Context) ([]DayResult, error) {
	results := make([]DayResult, len(s.pools))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, pool := range s.pools {
		g.Go(func() error {
			res, err := s.runner.RunDay(ctx, pool)
			results[i] = res
			if err != nil {
				s.logger.Error("pool run failed", slog.String("pool", pool.Address.String()), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}
