package cranker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Engine is the part of distribution.Engine the runner drives.
type Engine interface {
	Record(ctx context.Context, pool solana.PublicKey) (distribution.Record, error)
	Crank(ctx context.Context, pool solana.PublicKey, params distribution.CrankParams) (*distribution.CrankResult, error)
}

var _ Engine = (*distribution.Engine)(nil)

// Pool is one configured pool and its investor list.
type Pool struct {
	Address   solana.PublicKey
	Investors []distribution.InvestorRef
}

// DayResult summarises one RunDay call.
type DayResult struct {
	Pool    solana.PublicKey
	Day     uint64
	Pages   int
	Paid    uint64
	Dust    uint64
	Creator uint64
	// Skipped is set when the next day was not yet due.
	Skipped bool
	// Resumed is set when the run picked up a day left open earlier.
	Resumed bool
}

// RunLockKey is the Locker key a Runner holds for a whole day. It differs
// from distribution.LockKey, which the engine takes for every page.
func RunLockKey(pool solana.PublicKey) string {
	return "hqf:run:" + pool.String()
}

type Runner struct {
	engine  Engine
	planner Planner
	locker  distribution.Locker
	lockTTL time.Duration
	logger  *slog.Logger
}

type RunnerOption func(*Runner)

func WithRunLocker(l distribution.Locker, ttl time.Duration) RunnerOption {
	return func(r *Runner) {
		r.locker = l
		r.lockTTL = ttl
	}
}

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(engine Engine, planner Planner, opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:  engine,
		planner: planner,
		lockTTL: 5 * time.Minute,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunDay cranks every remaining page of pool's current day. A day left open
// by an earlier run continues from its stored cursor. A day that is not yet
// due returns a Skipped result and no error, as does a pool whose last
// commit is still in flight.
func (r *Runner) RunDay(ctx context.Context, pool Pool) (DayResult, error) {
	res := DayResult{Pool: pool.Address}
	if r.locker != nil {
		unlock, err := r.locker.Acquire(ctx, RunLockKey(pool.Address), r.lockTTL)
		if err != nil {
			return res, fmt.Errorf("lock pool %s: %w", pool.Address, err)
		}
		defer unlock()
	}

	rec, err := r.engine.Record(ctx, pool.Address)
	if errors.Is(err, distribution.ErrCommitPending) {
		r.logger.Info("commit still in flight, retrying later", slog.String("pool", pool.Address.String()), slog.Any("reason", err))
		res.Skipped = true
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("load record %s: %w", pool.Address, err)
	}

	pages := r.planner.Pages(pool.Investors)
	var start uint32
	if rec.Progress.DayOpen {
		start = rec.Progress.PageCursor
		res.Resumed = true
		res.Day = rec.Progress.Day
	}
	last := uint32(len(pages) - 1)
	maxCursor := max(last, start)

	log := r.logger.With(slog.String("pool", pool.Address.String()))
	if res.Resumed {
		log.Info("resuming open day", slog.Uint64("day", res.Day), slog.Uint64("cursor", uint64(start)))
	}

	for cursor := start; cursor <= maxCursor; cursor++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var page []distribution.InvestorRef
		if cursor <= last {
			page = pages[cursor]
		}
		out, err := r.engine.Crank(ctx, pool.Address, distribution.CrankParams{
			ExpectedPageCursor: cursor,
			MaxPageCursor:      maxCursor,
			IsLastPage:         cursor == maxCursor,
			Page:               page,
		})
		if err != nil {
			if cursor == start && !res.Resumed && errors.Is(err, distribution.ErrTooEarly) {
				log.Debug("day not yet due", slog.Any("reason", err))
				res.Skipped = true
				return res, nil
			}
			return res, fmt.Errorf("crank %s page %d: %w", pool.Address, cursor, err)
		}
		res.Day = out.Record.Progress.Day
		res.Pages++
		res.Paid += out.Plan.Paid
		res.Dust += out.Plan.Dust
		res.Creator += out.CreatorAmount
	}

	log.Info("day finished",
		slog.Uint64("day", res.Day),
		slog.Int("pages", res.Pages),
		slog.Uint64("paid", res.Paid),
		slog.Uint64("creator", res.Creator))
	return res, nil
}
