package distribution

import (
	"context"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
)

type Engine struct {
	ledger    Ledger
	oracle    LockedAmountOracle
	gateway   FeeClaimGateway
	inspector PoolInspector

	clock     func() time.Time
	dayPeriod time.Duration
	routing   DustRouting
	logger    *slog.Logger
	events    EventSink
	locker    Locker
	lockTTL   time.Duration
}

type Option func(*Engine)

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithDayPeriod overrides the minimum spacing between day openings.
func WithDayPeriod(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.dayPeriod = d
		}
	}
}

func WithDustRouting(r DustRouting) Option {
	return func(e *Engine) {
		e.routing = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.events = sink
		}
	}
}

// WithLocker makes every mutating call hold a per-pool lock for at most ttl.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = l
		e.lockTTL = ttl
	}
}

func NewEngine(ledger Ledger, oracle LockedAmountOracle, gateway FeeClaimGateway, inspector PoolInspector, opts ...Option) *Engine {
	e := &Engine{
		ledger:    ledger,
		oracle:    oracle,
		gateway:   gateway,
		inspector: inspector,
		clock:     time.Now,
		dayPeriod: DefaultDayPeriod,
		routing:   DustIntoClaimed,
		logger:    slog.New(slog.DiscardHandler),
		events:    discardSink{},
		lockTTL:   time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) DayPeriod() time.Duration {
	return e.dayPeriod
}

func (e *Engine) DustRouting() DustRouting {
	return e.routing
}

// Record returns the current stored record for pool.
func (e *Engine) Record(ctx context.Context, pool solana.PublicKey) (Record, error) {
	return e.ledger.Load(ctx, pool)
}

// LockKey is the Locker key used for pool.
func LockKey(pool solana.PublicKey) string {
	return "hqf:crank:" + pool.String()
}

func (e *Engine) lock(ctx context.Context, pool solana.PublicKey) (func(), error) {
	if e.locker == nil {
		return func() {}, nil
	}
	return e.locker.Acquire(ctx, LockKey(pool), e.lockTTL)
}

func (e *Engine) emit(ctx context.Context, events ...Event) {
	for _, ev := range events {
		e.events.Emit(ctx, ev)
	}
}
