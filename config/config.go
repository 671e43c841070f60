// Package config defines the cranker's configuration: RPC endpoints, record
// store, lock, archive, schedule and the pools it distributes for.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"

	"github.com/krazyTry/honorary-quote-fee/decimal_math"
	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Config is populated from a TOML file and then overridden by HQF_*
// environment variables.
type Config struct {
	Solana   SolanaConfig  `toml:"solana"`
	Store    StoreConfig   `toml:"store"`
	Redis    RedisConfig   `toml:"redis"`
	S3       S3Config      `toml:"s3"`
	Cranker  CrankerConfig `toml:"cranker"`
	Pools    []PoolConfig  `toml:"pools"`
	LogLevel string        `toml:"log_level"`
}

type SolanaConfig struct {
	RPCURL     string `toml:"rpc_url"`
	WSURL      string `toml:"ws_url"`
	Commitment string `toml:"commitment"`
	// Simulate only simulates commit transactions and never sends them.
	Simulate bool `toml:"simulate"`
	// KeypairPath holds the key that owns the honorary positions and their
	// treasuries.
	KeypairPath string `toml:"keypair_path"`
	// PayerKeypairPath pays transaction fees; defaults to KeypairPath.
	PayerKeypairPath string `toml:"payer_keypair_path"`
}

type StoreConfig struct {
	Driver        string `toml:"driver"`
	DSN           string `toml:"dsn"`
	Path          string `toml:"path"`
	MaxConns      int    `toml:"max_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

type CrankerConfig struct {
	// Schedule is a cron spec; empty runs once and exits.
	Schedule          string   `toml:"schedule"`
	PageSize          int      `toml:"page_size"`
	LockTTL           duration `toml:"lock_ttl"`
	DayPeriod         duration `toml:"day_period"`
	DustRouting       string   `toml:"dust_routing"`
	MaxTransfers      int      `toml:"max_transfers"`
	OracleConcurrency int      `toml:"oracle_concurrency"`
	Parallelism       int      `toml:"parallelism"`
}

// PoolConfig describes one pool's policy, honorary position and investors.
// Keys are base58.
type PoolConfig struct {
	Pool                    string `toml:"pool"`
	Authority               string `toml:"authority"`
	QuoteMint               string `toml:"quote_mint"`
	BaseMint                string `toml:"base_mint"`
	CreatorQuoteDestination string `toml:"creator_quote_destination"`
	// InvestorFeeShare is basis points ("5000"), a fraction ("0.5") or a
	// percentage ("50%").
	InvestorFeeShare string `toml:"investor_fee_share"`
	Y0               uint64 `toml:"y0"`
	DailyCapQuote    uint64 `toml:"daily_cap_quote"`
	MinPayout        uint64 `toml:"min_payout"`

	Honorary  HonoraryConfig   `toml:"honorary"`
	Investors []InvestorConfig `toml:"investors"`
}

type HonoraryConfig struct {
	PositionNftMint string `toml:"position_nft_mint"`
	QuoteTreasury   string `toml:"quote_treasury"`
	BaseFeeCheck    string `toml:"base_fee_check"`
}

type InvestorConfig struct {
	Stream      string `toml:"stream"`
	Destination string `toml:"destination"`
}

// duration wraps time.Duration so TOML can hold strings like "24h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with every optional value filled in.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			RPCURL:     "http://127.0.0.1:8899",
			WSURL:      "ws://127.0.0.1:8900",
			Commitment: "confirmed",
		},
		Store: StoreConfig{
			Driver:        "sqlite",
			Path:          "hqf.db",
			MaxConns:      4,
			RunMigrations: true,
		},
		Redis: RedisConfig{KeyPrefix: "hqf:"},
		S3:    S3Config{Region: "us-east-1", Prefix: "day-close/"},
		Cranker: CrankerConfig{
			PageSize:          8,
			LockTTL:           duration{time.Minute},
			DayPeriod:         duration{distribution.DefaultDayPeriod},
			DustRouting:       distribution.DustIntoClaimed.String(),
			MaxTransfers:      12,
			OracleConcurrency: 4,
			Parallelism:       4,
		},
		LogLevel: "info",
	}
}

var (
	validDrivers     = map[string]bool{"memory": true, "postgres": true, "sqlite": true}
	validLogLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validCommitments = map[string]bool{"processed": true, "confirmed": true, "finalized": true}
)

// Validate returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		add("unknown log_level %q", c.LogLevel)
	}

	if c.Solana.RPCURL == "" {
		add("solana: rpc_url must not be empty")
	}
	if !validCommitments[c.Solana.Commitment] {
		add("solana: unknown commitment %q", c.Solana.Commitment)
	}
	if c.Solana.KeypairPath == "" {
		add("solana: keypair_path must not be empty")
	}

	switch {
	case !validDrivers[c.Store.Driver]:
		add("store: unknown driver %q (valid: memory, postgres, sqlite)", c.Store.Driver)
	case c.Store.Driver == "postgres" && strings.TrimSpace(c.Store.DSN) == "":
		add("store: dsn is required for postgres")
	case c.Store.Driver == "sqlite" && c.Store.Path == "":
		add("store: path is required for sqlite")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		add("redis: addr is required when enabled")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		add("s3: bucket is required when enabled")
	}

	if c.Cranker.Schedule != "" {
		if _, err := cron.ParseStandard(c.Cranker.Schedule); err != nil {
			add("cranker: schedule %q: %v", c.Cranker.Schedule, err)
		}
	}
	if c.Cranker.PageSize < 1 {
		add("cranker: page_size must be >= 1")
	}
	if c.Cranker.MaxTransfers < 1 || c.Cranker.PageSize+1 > c.Cranker.MaxTransfers {
		add("cranker: max_transfers must leave room for a page and the creator transfer")
	}
	if c.Cranker.DayPeriod.Duration < time.Second {
		add("cranker: day_period must be at least 1s")
	}
	if c.Cranker.LockTTL.Duration <= 0 {
		add("cranker: lock_ttl must be positive")
	}
	if _, err := distribution.ParseDustRouting(c.Cranker.DustRouting); err != nil {
		add("cranker: %v", err)
	}

	if len(c.Pools) == 0 {
		add("pools: at least one pool is required")
	}
	seen := make(map[string]bool)
	for i := range c.Pools {
		p := &c.Pools[i]
		if seen[p.Pool] {
			add("pools[%d]: duplicate pool %s", i, p.Pool)
		}
		seen[p.Pool] = true
		if _, err := p.PolicyParams(); err != nil {
			add("pools[%d]: %v", i, err)
		}
		if _, err := p.Honorary.Keys(); err != nil {
			add("pools[%d].honorary: %v", i, err)
		}
		if _, err := p.InvestorRefs(); err != nil {
			add("pools[%d].investors: %v", i, err)
		}
	}

	return errors.Join(errs...)
}

func (c *Config) LockTTL() time.Duration   { return c.Cranker.LockTTL.Duration }
func (c *Config) DayPeriod() time.Duration { return c.Cranker.DayPeriod.Duration }

// PolicyParams converts the pool entry into setup parameters.
func (p *PoolConfig) PolicyParams() (distribution.InitializePolicyParams, error) {
	keys, err := parseKeys(
		field{"pool", p.Pool},
		field{"authority", p.Authority},
		field{"quote_mint", p.QuoteMint},
		field{"base_mint", p.BaseMint},
		field{"creator_quote_destination", p.CreatorQuoteDestination},
	)
	if err != nil {
		return distribution.InitializePolicyParams{}, err
	}
	bps, err := decimal_math.ParseBps(p.InvestorFeeShare)
	if err != nil {
		return distribution.InitializePolicyParams{}, fmt.Errorf("investor_fee_share: %w", err)
	}
	params := distribution.InitializePolicyParams{
		Pool:                    keys[0],
		Authority:               keys[1],
		QuoteMint:               keys[2],
		BaseMint:                keys[3],
		CreatorQuoteDestination: keys[4],
		InvestorFeeShareBps:     bps,
		Y0:                      p.Y0,
		DailyCapQuote:           p.DailyCapQuote,
		MinPayout:               p.MinPayout,
	}
	if params.Y0 == 0 {
		return params, distribution.ErrInvalidBaseline
	}
	return params, nil
}

// HonoraryKeys are the configured honorary accounts.
type HonoraryKeys struct {
	PositionNftMint solanago.PublicKey
	QuoteTreasury   solanago.PublicKey
	BaseFeeCheck    solanago.PublicKey
}

func (h *HonoraryConfig) Keys() (HonoraryKeys, error) {
	keys, err := parseKeys(
		field{"position_nft_mint", h.PositionNftMint},
		field{"quote_treasury", h.QuoteTreasury},
		field{"base_fee_check", h.BaseFeeCheck},
	)
	if err != nil {
		return HonoraryKeys{}, err
	}
	return HonoraryKeys{PositionNftMint: keys[0], QuoteTreasury: keys[1], BaseFeeCheck: keys[2]}, nil
}

// InvestorRefs returns the investors in configured order. A stream may
// appear only once.
func (p *PoolConfig) InvestorRefs() ([]distribution.InvestorRef, error) {
	refs := make([]distribution.InvestorRef, 0, len(p.Investors))
	seen := make(map[solanago.PublicKey]bool, len(p.Investors))
	for i, inv := range p.Investors {
		keys, err := parseKeys(field{"stream", inv.Stream}, field{"destination", inv.Destination})
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if seen[keys[0]] {
			return nil, fmt.Errorf("[%d]: duplicate stream %s", i, keys[0])
		}
		seen[keys[0]] = true
		refs = append(refs, distribution.InvestorRef{VestingContract: keys[0], Destination: keys[1]})
	}
	return refs, nil
}

type field struct {
	name  string
	value string
}

func parseKeys(fields ...field) ([]solanago.PublicKey, error) {
	out := make([]solanago.PublicKey, len(fields))
	for i, f := range fields {
		key, err := solanago.PublicKeyFromBase58(strings.TrimSpace(f.value))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		out[i] = key
	}
	return out, nil
}
