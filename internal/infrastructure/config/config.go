package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT       JWTConfig
	Session   SessionConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	S3        S3Config
	Login     LoginConfig
	Roles     RolesConfig
	Audit     AuditConfig
	AI        AIConfig
	Bootstrap BootstrapConfig
}

type JWTConfig struct {
	Secret             string `env:"JWT_SECRET"`
	Algorithm          string `env:"JWT_ALGORITHM,               default=HS256"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES, default=30"`
}

type SessionConfig struct {
	TTL           time.Duration `env:"SESSION_TTL,            default=24h"`
	SweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE, default=@every 15m"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=admin_platform"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=20"`
}

type S3Config struct {
	Bucket       string `env:"S3_BUCKET,         default=admin-templates"`
	Region       string `env:"S3_REGION,         default=us-east-1"`
	Endpoint     string `env:"S3_ENDPOINT"`
	AccessKey    string `env:"S3_ACCESS_KEY"`
	SecretKey    string `env:"S3_SECRET_KEY"`
	UsePathStyle bool   `env:"S3_USE_PATH_STYLE, default=false"`
}

// LoginConfig throttles POST /auth/login per client IP.
type LoginConfig struct {
	RatePerMinute int `env:"LOGIN_RATE_PER_MINUTE, default=10"`
	Burst         int `env:"LOGIN_BURST,           default=5"`
}

type RolesConfig struct {
	CacheTTL time.Duration `env:"ROLE_CACHE_TTL, default=30s"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// AIConfig covers provider API key sealing and connectivity checks.
type AIConfig struct {
	EncryptionKey string        `env:"AI_ENCRYPTION_KEY"`
	CheckTimeout  time.Duration `env:"AI_CHECK_TIMEOUT, default=10s"`
}

// BootstrapConfig creates the first super admin at startup when both the
// email and password are set and no superuser exists yet.
type BootstrapConfig struct {
	Email    string `env:"BOOTSTRAP_ADMIN_EMAIL"`
	Password string `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	Username string `env:"BOOTSTRAP_ADMIN_USERNAME, default=superadmin"`
	FullName string `env:"BOOTSTRAP_ADMIN_FULL_NAME, default=Super Admin"`
}

// Enabled reports whether a bootstrap account is configured.
func (b BootstrapConfig) Enabled() bool {
	return b.Email != "" && b.Password != ""
}

// AccessTokenTTL converts ACCESS_TOKEN_EXPIRE_MINUTES to a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenMinutes) * time.Minute
}

// SealingSecret is the secret provider API keys are sealed with. Without
// AI_ENCRYPTION_KEY it falls back to JWT_SECRET.
func (c *Config) SealingSecret() string {
	if c.AI.EncryptionKey != "" {
		return c.AI.EncryptionKey
	}
	return c.JWT.Secret
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.AccessTokenMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Audit.Workers <= 0 {
		errs = append(errs, errors.New("AUDIT_WORKERS must be positive"))
	}
	if c.Login.RatePerMinute <= 0 || c.Login.Burst <= 0 {
		errs = append(errs, errors.New("login throttle must be positive"))
	}
	if c.AI.CheckTimeout <= 0 {
		errs = append(errs, errors.New("AI_CHECK_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
