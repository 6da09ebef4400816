package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends accepted by KV_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Server captures process-level configuration. Secrets are only ever read
// from the environment.
type Server struct {
	Addr            string        `env:"VC_ADDR"          envDefault:":8080"`
	Environment     string        `env:"ENVIRONMENT"      envDefault:"development"`
	PublicOrigin    string        `env:"PUBLIC_ORIGIN"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES"   envDefault:"65536"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	TrustedProxies  []string      `env:"TRUSTED_PROXIES"  envSeparator:","`

	Credential CredentialConfig
	Store      StoreConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Audit      AuditConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Tracing    TracingConfig
}

// CredentialConfig holds the issuing secret and the organization name used
// when a request omits the issuer. ISSUE_SECRET_HASH, a bcrypt hash, takes
// precedence over the plaintext ISSUE_SECRET.
type CredentialConfig struct {
	IssueSecret     string `env:"ISSUE_SECRET"`
	IssueSecretHash string `env:"ISSUE_SECRET_HASH"`
	IssuerName      string `env:"ISSUER_NAME"`
}

type StoreConfig struct {
	Backend    string `env:"KV_BACKEND"  envDefault:"memory"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"vcregistry.db"`
}

type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	KeyPrefix    string        `env:"REDIS_KEY_PREFIX"`
}

type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"     envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME"  envDefault:"5m"`
}

// AuditConfig controls the optional Kafka mirror of audit entries. The KV
// store always receives them.
type AuditConfig struct {
	KafkaBrokers  string        `env:"KAFKA_BROKERS"`
	Topic         string        `env:"AUDIT_TOPIC" envDefault:"vcregistry.audit"`
	BufferSize    int           `env:"AUDIT_BUFFER_SIZE" envDefault:"256"`
	MirrorTimeout time.Duration `env:"AUDIT_MIRROR_TIMEOUT" envDefault:"10s"`
}

// RateLimitConfig caps issue and revoke calls per client IP. A zero limit
// disables the limiter.
type RateLimitConfig struct {
	WriteLimit  int           `env:"WRITE_RATE_LIMIT"  envDefault:"30"`
	WriteWindow time.Duration `env:"WRITE_RATE_WINDOW" envDefault:"1m"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL"        envDefault:"info"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"  envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS"  envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`
}

type TracingConfig struct {
	Endpoint    string  `env:"OTEL_ENDPOINT"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"vcregistry"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// FromEnv builds a Server config from the process environment.
func FromEnv() (Server, error) {
	return parse(env.Options{})
}

// FromMap builds a Server config from the given variables only.
func FromMap(vars map[string]string) (Server, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	cfg.PublicOrigin = strings.TrimRight(strings.TrimSpace(cfg.PublicOrigin), "/")
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements. A missing ISSUE_SECRET is not a
// startup error: writes answer missing_env while verification keeps working.
func (c Server) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("KV_BACKEND=redis requires REDIS_URL")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("KV_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown KV_BACKEND %q", c.Store.Backend)
	}
	if c.RateLimit.WriteLimit < 0 {
		return fmt.Errorf("WRITE_RATE_LIMIT must not be negative")
	}
	if c.RateLimit.WriteLimit > 0 && c.RateLimit.WriteWindow <= 0 {
		return fmt.Errorf("WRITE_RATE_WINDOW must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TRUSTED_PROXIES. Bare addresses are accepted as
// single-host prefixes.
func (c Server) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", raw, err)
			}
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", raw, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

// LogValue keeps the issuing secret and connection strings out of logs.
func (c Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", c.Addr),
		slog.String("environment", c.Environment),
		slog.String("kv_backend", c.Store.Backend),
		slog.Bool("issue_secret_set", strings.TrimSpace(c.Credential.IssueSecret) != ""),
		slog.Bool("issue_secret_hash_set", strings.TrimSpace(c.Credential.IssueSecretHash) != ""),
		slog.Bool("issuer_name_set", strings.TrimSpace(c.Credential.IssuerName) != ""),
		slog.Bool("audit_kafka", c.Audit.KafkaBrokers != ""),
		slog.Bool("tracing", c.Tracing.Endpoint != ""),
		slog.Int("write_rate_limit", c.RateLimit.WriteLimit),
	)
}
