package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	authcore "github.com/raymandgroup/authcore"
)

// Duration is a yaml-parsable wrapper so config files can say "15m"
// instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML describes the unmarshalyaml operation and its observable behavior.
//
// UnmarshalYAML may return an error when input validation, dependency calls, or security checks fail.
// UnmarshalYAML does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std describes the std operation and its observable behavior.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServiceConfig holds all configuration for the daemon.
type ServiceConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	JWT     JWTConfig     `yaml:"jwt"`
	Engine  EngineConfig  `yaml:"engine"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// StoreConfig selects the account repository backend.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "redis" or "postgres"

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	PostgresDSN string `yaml:"postgres_dsn"`
}

type SMTPConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	From         string `yaml:"from"`
	OwnerAddress string `yaml:"owner_address"`
}

type JWTConfig struct {
	SigningMethod  string        `yaml:"signing_method"` // "ed25519" or "hs256"
	PrivateKeyPath string        `yaml:"private_key_path"`
	PublicKeyPath  string        `yaml:"public_key_path"`
	HMACSecret     string   `yaml:"hmac_secret"`
	Issuer         string   `yaml:"issuer"`
	AccessTTL      Duration `yaml:"access_ttl"`
}

type EngineConfig struct {
	VerificationTTL         Duration `yaml:"verification_ttl"`
	VerificationCooldown    Duration `yaml:"verification_cooldown"`
	ChallengeDigits         int      `yaml:"challenge_digits"`
	ChallengeTTL            Duration `yaml:"challenge_ttl"`
	ChallengeResendCooldown Duration `yaml:"challenge_resend_cooldown"`
	ResetTTL                Duration `yaml:"reset_ttl"`
	ResetDailyQuota         int      `yaml:"reset_daily_quota"`
	ResetQuotaUTC           bool     `yaml:"reset_quota_utc"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := defaultServiceConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment
// variable overrides.
func LoadWithEnv(path string) (*ServiceConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if addr := os.Getenv("AUTHD_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}
	if backend := os.Getenv("AUTHD_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if addr := os.Getenv("AUTHD_REDIS_ADDR"); addr != "" {
		cfg.Store.RedisAddr = addr
	}
	if pass := os.Getenv("AUTHD_REDIS_PASSWORD"); pass != "" {
		cfg.Store.RedisPassword = pass
	}
	if db := os.Getenv("AUTHD_REDIS_DB"); db != "" {
		n, convErr := strconv.Atoi(db)
		if convErr != nil {
			return nil, fmt.Errorf("invalid AUTHD_REDIS_DB: %w", convErr)
		}
		cfg.Store.RedisDB = n
	}
	if dsn := os.Getenv("AUTHD_POSTGRES_DSN"); dsn != "" {
		cfg.Store.PostgresDSN = dsn
	}
	if user := os.Getenv("AUTHD_SMTP_USERNAME"); user != "" {
		cfg.SMTP.Username = user
	}
	if pass := os.Getenv("AUTHD_SMTP_PASSWORD"); pass != "" {
		cfg.SMTP.Password = pass
	}
	if secret := os.Getenv("AUTHD_JWT_HMAC_SECRET"); secret != "" {
		cfg.JWT.HMACSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}
	return cfg, nil
}

func defaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Server: ServerConfig{ListenAddr: ":8080"},
		Store:  StoreConfig{Backend: "redis", RedisAddr: "localhost:6379"},
		SMTP:   SMTPConfig{Port: 587},
		JWT: JWTConfig{
			SigningMethod: "ed25519",
			AccessTTL:     Duration(time.Hour),
		},
		Engine: EngineConfig{
			VerificationTTL:         Duration(15 * time.Minute),
			VerificationCooldown:    Duration(time.Minute),
			ChallengeDigits:         6,
			ChallengeTTL:            Duration(5 * time.Minute),
			ChallengeResendCooldown: Duration(time.Minute),
			ResetTTL:                Duration(15 * time.Minute),
			ResetDailyQuota:         2,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks if the configuration is valid.
func (c *ServiceConfig) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}

	switch c.Store.Backend {
	case "redis":
		if c.Store.RedisAddr == "" {
			return errors.New("store.redis_addr is required for the redis backend")
		}
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be \"redis\" or \"postgres\", got %q", c.Store.Backend)
	}

	if c.SMTP.Host == "" {
		return errors.New("smtp.host is required")
	}
	if c.SMTP.OwnerAddress == "" {
		return errors.New("smtp.owner_address is required")
	}

	switch c.JWT.SigningMethod {
	case "ed25519":
		if c.JWT.PrivateKeyPath == "" {
			return errors.New("jwt.private_key_path is required for ed25519")
		}
		if c.JWT.PublicKeyPath == "" {
			return errors.New("jwt.public_key_path is required for ed25519")
		}
	case "hs256":
		if len(c.JWT.HMACSecret) < 32 {
			return errors.New("jwt.hmac_secret must be at least 32 bytes for hs256")
		}
	default:
		return fmt.Errorf("jwt.signing_method must be \"ed25519\" or \"hs256\", got %q", c.JWT.SigningMethod)
	}

	if c.JWT.AccessTTL <= 0 {
		return errors.New("jwt.access_ttl must be positive")
	}
	if c.Engine.ResetDailyQuota < 1 {
		return errors.New("engine.reset_daily_quota must be at least 1")
	}
	return nil
}

// engineConfig maps the service file onto the lifecycle engine's
// config, starting from the engine defaults so unset knobs keep their
// documented values.
func (c *ServiceConfig) engineConfig() (authcore.Config, error) {
	cfg := authcore.Config{}

	cfg.JWT.SigningMethod = c.JWT.SigningMethod
	cfg.JWT.AccessTTL = c.JWT.AccessTTL.Std()
	cfg.JWT.Issuer = c.JWT.Issuer

	switch c.JWT.SigningMethod {
	case "ed25519":
		priv, err := os.ReadFile(c.JWT.PrivateKeyPath)
		if err != nil {
			return cfg, fmt.Errorf("read jwt private key: %w", err)
		}
		cfg.JWT.PrivateKey = priv
		if c.JWT.PublicKeyPath != "" {
			pub, err := os.ReadFile(c.JWT.PublicKeyPath)
			if err != nil {
				return cfg, fmt.Errorf("read jwt public key: %w", err)
			}
			cfg.JWT.PublicKey = pub
		}
	case "hs256":
		cfg.JWT.PrivateKey = []byte(c.JWT.HMACSecret)
	}

	cfg.Password.Memory = 64 * 1024
	cfg.Password.Time = 3
	cfg.Password.Parallelism = 2
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32

	cfg.EmailVerification.TokenBytes = 32
	cfg.EmailVerification.VerificationTTL = c.Engine.VerificationTTL.Std()
	cfg.EmailVerification.ResendCooldown = c.Engine.VerificationCooldown.Std()

	cfg.LoginChallenge.Digits = c.Engine.ChallengeDigits
	cfg.LoginChallenge.ChallengeTTL = c.Engine.ChallengeTTL.Std()
	cfg.LoginChallenge.ResendCooldown = c.Engine.ChallengeResendCooldown.Std()

	cfg.PasswordReset.TokenBytes = 32
	cfg.PasswordReset.ResetTTL = c.Engine.ResetTTL.Std()
	cfg.PasswordReset.DailyQuota = c.Engine.ResetDailyQuota
	cfg.PasswordReset.QuotaUTC = c.Engine.ResetQuotaUTC

	cfg.Metrics.Enabled = c.Metrics.Enabled

	return cfg, nil
}
