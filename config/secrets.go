package config

// Redacted returns a copy of cfg safe to log.
func Redacted(cfg *Config) Config {
	out := *cfg
	redact(&out.Store.DSN)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	out.Pools = append([]PoolConfig(nil), cfg.Pools...)
	return out
}

func redact(s *string) {
	if *s != "" {
		*s = "***"
	}
}
