package authcore

import (
	"errors"
	"time"
)

// Config defines a public type used by authcore APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT               JWTConfig
	Password          PasswordConfig
	EmailVerification EmailVerificationConfig
	LoginChallenge    LoginChallengeConfig
	PasswordReset     PasswordResetConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by authcore APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by authcore APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
FLOW CONFIG
====================================
*/

// EmailVerificationConfig defines a public type used by authcore APIs.
//
// EmailVerificationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EmailVerificationConfig struct {
	TokenBytes      int
	VerificationTTL time.Duration
	ResendCooldown  time.Duration
}

// LoginChallengeConfig defines a public type used by authcore APIs.
//
// LoginChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LoginChallengeConfig struct {
	Digits         int
	ChallengeTTL   time.Duration
	ResendCooldown time.Duration
}

// PasswordResetConfig defines a public type used by authcore APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	TokenBytes int
	ResetTTL   time.Duration
	DailyQuota int
	// QuotaUTC switches the daily-quota window to UTC midnight
	// boundaries. The default is the server's local midnight.
	QuotaUTC bool
}

// MetricsConfig defines a public type used by authcore APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     1 * time.Hour,
			SigningMethod: "ed25519",
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		EmailVerification: EmailVerificationConfig{
			TokenBytes:      32,
			VerificationTTL: 15 * time.Minute,
			ResendCooldown:  60 * time.Second,
		},
		LoginChallenge: LoginChallengeConfig{
			Digits:         6,
			ChallengeTTL:   5 * time.Minute,
			ResendCooldown: 60 * time.Second,
		},
		PasswordReset: PasswordResetConfig{
			TokenBytes: 32,
			ResetTTL:   15 * time.Minute,
			DailyQuota: 2,
			QuotaUTC:   false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Email verification
	if c.EmailVerification.TokenBytes < 20 {
		return errors.New("EmailVerification TokenBytes must be >= 20")
	}
	if c.EmailVerification.VerificationTTL <= 0 {
		return errors.New("EmailVerification VerificationTTL must be > 0")
	}
	if c.EmailVerification.ResendCooldown <= 0 {
		return errors.New("EmailVerification ResendCooldown must be > 0")
	}

	// Login challenge
	if c.LoginChallenge.Digits < 6 || c.LoginChallenge.Digits > 10 {
		return errors.New("LoginChallenge Digits must be between 6 and 10")
	}
	if c.LoginChallenge.ChallengeTTL <= 0 {
		return errors.New("LoginChallenge ChallengeTTL must be > 0")
	}
	if c.LoginChallenge.ResendCooldown <= 0 {
		return errors.New("LoginChallenge ResendCooldown must be > 0")
	}

	// Password reset
	if c.PasswordReset.TokenBytes < 20 {
		return errors.New("PasswordReset TokenBytes must be >= 20")
	}
	if c.PasswordReset.ResetTTL <= 0 {
		return errors.New("PasswordReset ResetTTL must be > 0")
	}
	if c.PasswordReset.DailyQuota < 1 {
		return errors.New("PasswordReset DailyQuota must be >= 1")
	}

	return nil
}
