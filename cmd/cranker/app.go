package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/krazyTry/honorary-quote-fee/config"
	"github.com/krazyTry/honorary-quote-fee/cranker"
	dammv2 "github.com/krazyTry/honorary-quote-fee/damm_v2"
	"github.com/krazyTry/honorary-quote-fee/decimal_math"
	"github.com/krazyTry/honorary-quote-fee/distribution"
	redislock "github.com/krazyTry/honorary-quote-fee/lock/redis"
	"github.com/krazyTry/honorary-quote-fee/memory"
	"github.com/krazyTry/honorary-quote-fee/onchain"
	"github.com/krazyTry/honorary-quote-fee/report"
	s3archive "github.com/krazyTry/honorary-quote-fee/report/s3"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
	"github.com/krazyTry/honorary-quote-fee/store/postgres"
	"github.com/krazyTry/honorary-quote-fee/store/sqlite"
	"github.com/krazyTry/honorary-quote-fee/streamflow"
)

type app struct {
	logger     *slog.Logger
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	owner      solanago.PublicKey
	engine     *distribution.Engine
	service    *cranker.Service
	setups     []poolSetup
	closers    []func()
}

type poolSetup struct {
	params   distribution.InitializePolicyParams
	honorary config.HonoraryKeys
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	owner, err := solanago.PrivateKeyFromSolanaKeygenFile(cfg.Solana.KeypairPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair: %w", err)
	}
	payer := owner
	if cfg.Solana.PayerKeypairPath != "" {
		if payer, err = solanago.PrivateKeyFromSolanaKeygenFile(cfg.Solana.PayerKeypairPath); err != nil {
			return nil, fmt.Errorf("load payer keypair: %w", err)
		}
	}
	a.owner = owner.PublicKey()

	commitment := rpc.CommitmentType(cfg.Solana.Commitment)
	rpcClient := rpc.New(cfg.Solana.RPCURL)
	a.closers = append(a.closers, func() { _ = rpcClient.Close() })
	a.rpc, a.commitment = rpcClient, commitment
	var wsClient *ws.Client
	if cfg.Solana.WSURL != "" {
		if wsClient, err = ws.Connect(ctx, cfg.Solana.WSURL); err != nil {
			return nil, fmt.Errorf("connect websocket: %w", err)
		}
		a.closers = append(a.closers, wsClient.Close)
	}
	sender := hqfsolana.NewSender(rpcClient, wsClient, commitment, cfg.Solana.Simulate)

	store, err := a.openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	amm := dammv2.NewCpAmm(rpcClient, commitment)
	gateway := dammv2.NewClaimGateway(amm, sender, payer, owner)
	ledger := onchain.NewLedger(store, sender, gateway, onchain.NewRPCMints(rpcClient, commitment), payer, owner,
		onchain.WithMaxTransfers(cfg.Cranker.MaxTransfers),
		onchain.WithLogger(logger),
	)
	oracle := streamflow.NewOracle(rpcClient, commitment, cfg.Cranker.OracleConcurrency)

	sinks := report.MultiSink{report.NewLogSink(logger)}
	if cfg.S3.Enabled {
		client, err := s3archive.NewClient(ctx, s3archive.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			Prefix:         cfg.S3.Prefix,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3archive.NewArchiver(client, cfg.S3.Bucket, cfg.S3.Prefix, logger))
	}

	routing, err := distribution.ParseDustRouting(cfg.Cranker.DustRouting)
	if err != nil {
		return nil, err
	}
	engineOpts := []distribution.Option{
		distribution.WithDayPeriod(cfg.DayPeriod()),
		distribution.WithDustRouting(routing),
		distribution.WithLogger(logger),
		distribution.WithEventSink(sinks),
	}
	var runnerOpts []cranker.RunnerOption
	runnerOpts = append(runnerOpts, cranker.WithRunnerLogger(logger))
	if cfg.Redis.Enabled {
		locker, err := redislock.New(ctx, redislock.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = locker.Close() })
		engineOpts = append(engineOpts, distribution.WithLocker(locker, cfg.LockTTL()))
		runnerOpts = append(runnerOpts, cranker.WithRunLocker(locker, cfg.LockTTL()))
	}
	a.engine = distribution.NewEngine(ledger, oracle, gateway, dammv2.NewInspector(amm), engineOpts...)

	pools := make([]cranker.Pool, 0, len(cfg.Pools))
	for i := range cfg.Pools {
		pc := &cfg.Pools[i]
		params, err := pc.PolicyParams()
		if err != nil {
			return nil, fmt.Errorf("pools[%d]: %w", i, err)
		}
		keys, err := pc.Honorary.Keys()
		if err != nil {
			return nil, fmt.Errorf("pools[%d].honorary: %w", i, err)
		}
		refs, err := pc.InvestorRefs()
		if err != nil {
			return nil, fmt.Errorf("pools[%d].investors%w", i, err)
		}
		a.setups = append(a.setups, poolSetup{params: params, honorary: keys})
		pools = append(pools, cranker.Pool{Address: params.Pool, Investors: refs})
	}

	runner := cranker.NewRunner(a.engine, cranker.Planner{PageSize: cfg.Cranker.PageSize}, runnerOpts...)
	a.service = cranker.NewService(runner, pools, cfg.Cranker.Parallelism, logger)
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg config.StoreConfig) (onchain.Store, error) {
	switch cfg.Driver {
	case "memory":
		a.logger.Warn("records are kept in memory and lost on exit")
		return memory.NewStore(), nil
	case "postgres":
		client, err := postgres.New(ctx, postgres.ClientConfig{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if cfg.RunMigrations {
			if err := client.RunMigrations(ctx); err != nil {
				return nil, err
			}
		}
		return postgres.NewRecordStore(client.Pool()), nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Setup initialises every pool's policy and honorary position that does not
// exist yet. Existing records are left alone.
func (a *app) Setup(ctx context.Context) error {
	for _, s := range a.setups {
		pool := s.params.Pool
		log := a.logger.With(slog.String("pool", pool.String()))

		rec, err := a.engine.Record(ctx, pool)
		switch {
		case errors.Is(err, distribution.ErrPolicyNotFound):
			if rec, err = a.engine.InitializePolicy(ctx, s.params); err != nil {
				return fmt.Errorf("initialize policy %s: %w", pool, err)
			}
			log.Info("policy initialized",
				slog.String("investor_fee_share", decimal_math.BpsToFraction(s.params.InvestorFeeShareBps).String()),
				slog.Uint64("y0", s.params.Y0))
		case err != nil:
			return fmt.Errorf("load record %s: %w", pool, err)
		case rec.Policy.InvestorFeeShareBps != s.params.InvestorFeeShareBps || rec.Policy.Y0 != s.params.Y0:
			log.Warn("stored policy differs from configuration; stored policy wins",
				slog.Uint64("stored_share_bps", uint64(rec.Policy.InvestorFeeShareBps)),
				slog.Uint64("stored_y0", rec.Policy.Y0))
		}

		if rec.Honorary.Configured() {
			a.logTreasury(ctx, log, rec.Honorary.QuoteTreasury)
			continue
		}
		nft := s.honorary.PositionNftMint
		if _, err := a.engine.ConfigureHonoraryPosition(ctx, pool, s.params.Authority, distribution.HonoraryPosition{
			Owner:              a.owner,
			Position:           dammv2.DerivePositionAddress(nft),
			PositionNftMint:    nft,
			PositionNftAccount: dammv2.DerivePositionNftAccount(nft),
			QuoteTreasury:      s.honorary.QuoteTreasury,
			BaseFeeCheck:       s.honorary.BaseFeeCheck,
		}); err != nil {
			return fmt.Errorf("configure honorary position %s: %w", pool, err)
		}
		log.Info("honorary position configured")
		a.logTreasury(ctx, log, s.honorary.QuoteTreasury)
	}
	return nil
}

// logTreasury reports the quote treasury balance. A failed read is only
// logged; the crank itself re-reads every account it needs.
func (a *app) logTreasury(ctx context.Context, log *slog.Logger, treasury solanago.PublicKey) {
	mint, amount, err := hqfsolana.GetParsedTokenBalance(ctx, a.rpc, treasury, a.commitment)
	if err != nil {
		log.Warn("read quote treasury", slog.String("treasury", treasury.String()), slog.String("error", err.Error()))
		return
	}
	tok, _, err := hqfsolana.GetMint(ctx, a.rpc, mint, a.commitment)
	if err != nil {
		log.Warn("read quote mint", slog.String("mint", mint.String()), slog.String("error", err.Error()))
		return
	}
	log.Info("quote treasury",
		slog.String("treasury", treasury.String()),
		slog.String("balance", decimal_math.ToUIAmount(amount, tok.Decimals).String()))
}

func (a *app) Scheduler(ctx context.Context) *cranker.Scheduler {
	return cranker.NewScheduler(ctx, a.service, a.logger)
}

// Close releases clients in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
