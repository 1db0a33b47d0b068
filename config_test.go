package authcore

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidatesWithKeys(t *testing.T) {
	cfg := defaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestDefaultConfigDurations(t *testing.T) {
	cfg := defaultConfig()

	if cfg.EmailVerification.VerificationTTL != 15*time.Minute {
		t.Fatalf("unexpected verification TTL %v", cfg.EmailVerification.VerificationTTL)
	}
	if cfg.EmailVerification.ResendCooldown != 60*time.Second {
		t.Fatalf("unexpected verification cooldown %v", cfg.EmailVerification.ResendCooldown)
	}
	if cfg.LoginChallenge.ChallengeTTL != 5*time.Minute {
		t.Fatalf("unexpected challenge TTL %v", cfg.LoginChallenge.ChallengeTTL)
	}
	if cfg.PasswordReset.ResetTTL != 15*time.Minute {
		t.Fatalf("unexpected reset TTL %v", cfg.PasswordReset.ResetTTL)
	}
	if cfg.PasswordReset.DailyQuota != 2 {
		t.Fatalf("unexpected daily quota %d", cfg.PasswordReset.DailyQuota)
	}
	if cfg.JWT.AccessTTL != time.Hour {
		t.Fatalf("unexpected access TTL %v", cfg.JWT.AccessTTL)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	base := func() Config {
		cfg := defaultConfig()
		cfg.JWT.SigningMethod = "hs256"
		cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(cfg *Config)
		wantSub string
	}{
		{"zero access ttl", func(cfg *Config) { cfg.JWT.AccessTTL = 0 }, "AccessTTL"},
		{"bad signing method", func(cfg *Config) { cfg.JWT.SigningMethod = "none" }, "signing method"},
		{"ed25519 without keys", func(cfg *Config) { cfg.JWT.SigningMethod = "ed25519"; cfg.JWT.PrivateKey = nil }, "ed25519"},
		{"low password memory", func(cfg *Config) { cfg.Password.Memory = 1024 }, "Memory"},
		{"short verification token", func(cfg *Config) { cfg.EmailVerification.TokenBytes = 8 }, "TokenBytes"},
		{"zero verification ttl", func(cfg *Config) { cfg.EmailVerification.VerificationTTL = 0 }, "VerificationTTL"},
		{"zero verification cooldown", func(cfg *Config) { cfg.EmailVerification.ResendCooldown = 0 }, "ResendCooldown"},
		{"challenge digits", func(cfg *Config) { cfg.LoginChallenge.Digits = 4 }, "Digits"},
		{"zero challenge ttl", func(cfg *Config) { cfg.LoginChallenge.ChallengeTTL = 0 }, "ChallengeTTL"},
		{"short reset token", func(cfg *Config) { cfg.PasswordReset.TokenBytes = 8 }, "TokenBytes"},
		{"zero reset ttl", func(cfg *Config) { cfg.PasswordReset.ResetTTL = 0 }, "ResetTTL"},
		{"zero quota", func(cfg *Config) { cfg.PasswordReset.DailyQuota = 0 }, "DailyQuota"},
	}

	for _, tc := range cases {
		cfg := base()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantSub) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.wantSub, err)
		}
	}
}

func TestBuilderRequirements(t *testing.T) {
	cfg := lifecycleTestConfig()
	repo := newMemoryRepository()
	dispatcher := &recorderDispatcher{}

	if _, err := New().WithConfig(cfg).WithDispatcher(dispatcher).Build(); err == nil {
		t.Fatal("expected error for missing user repository")
	}
	if _, err := New().WithConfig(cfg).WithUserRepository(repo).Build(); err == nil {
		t.Fatal("expected error for missing dispatcher")
	}

	b := New().WithConfig(cfg).WithUserRepository(repo).WithDispatcher(dispatcher)
	if _, err := b.Build(); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on builder reuse")
	}
}

func TestBuilderClonesKeys(t *testing.T) {
	cfg := lifecycleTestConfig()
	key := append([]byte(nil), cfg.JWT.PrivateKey...)

	b := New().WithConfig(cfg).
		WithUserRepository(newMemoryRepository()).
		WithDispatcher(&recorderDispatcher{})

	// Mutating the caller's key after WithConfig must not affect the engine.
	copy(cfg.JWT.PrivateKey, []byte("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"))

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if string(engine.config.JWT.PrivateKey) != string(key) {
		t.Fatal("expected builder to clone the signing key")
	}
}
