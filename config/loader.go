package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path over Defaults and applies HQF_*
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// A missing .env file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Solana.RPCURL, "HQF_SOLANA_RPC_URL")
	setStr(&cfg.Solana.WSURL, "HQF_SOLANA_WS_URL")
	setStr(&cfg.Solana.Commitment, "HQF_SOLANA_COMMITMENT")
	setBool(&cfg.Solana.Simulate, "HQF_SOLANA_SIMULATE")
	setStr(&cfg.Solana.KeypairPath, "HQF_SOLANA_KEYPAIR_PATH")
	setStr(&cfg.Solana.PayerKeypairPath, "HQF_SOLANA_PAYER_KEYPAIR_PATH")

	setStr(&cfg.Store.Driver, "HQF_STORE_DRIVER")
	setStr(&cfg.Store.DSN, "HQF_STORE_DSN")
	setStr(&cfg.Store.Path, "HQF_STORE_PATH")
	setInt(&cfg.Store.MaxConns, "HQF_STORE_MAX_CONNS")
	setBool(&cfg.Store.RunMigrations, "HQF_STORE_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "HQF_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "HQF_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "HQF_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "HQF_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "HQF_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "HQF_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "HQF_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "HQF_S3_REGION")
	setStr(&cfg.S3.Bucket, "HQF_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "HQF_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "HQF_S3_SECRET_KEY")

	setStr(&cfg.Cranker.Schedule, "HQF_CRANKER_SCHEDULE")
	setInt(&cfg.Cranker.PageSize, "HQF_CRANKER_PAGE_SIZE")
	setDuration(&cfg.Cranker.LockTTL, "HQF_CRANKER_LOCK_TTL")
	setDuration(&cfg.Cranker.DayPeriod, "HQF_CRANKER_DAY_PERIOD")
	setStr(&cfg.Cranker.DustRouting, "HQF_CRANKER_DUST_ROUTING")

	setStr(&cfg.LogLevel, "HQF_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
