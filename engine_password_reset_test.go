package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func requestReset(t *testing.T, engine *Engine, dispatcher *recorderDispatcher, identity string) string {
	t.Helper()

	if err := engine.RequestPasswordReset(context.Background(), identity); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	msg := dispatcher.last(t)
	if msg.Kind != NotifyPasswordReset {
		t.Fatalf("expected reset notification, got %q", msg.Kind)
	}
	return msg.Code
}

func TestRequestPasswordResetStoresToken(t *testing.T) {
	engine, repo, dispatcher, clock := newLifecycleEngine(t, nil)

	registerTestAccount(t, engine, repo, "alice@example.com")
	token := requestReset(t, engine, dispatcher, "alice@example.com")

	acct := repo.get(t, "alice@example.com")
	if acct.PasswordResetToken == nil || acct.PasswordResetExpiry == nil {
		t.Fatal("expected reset token and expiry to be set together")
	}
	if *acct.PasswordResetToken != token {
		t.Fatal("dispatched token does not match stored token")
	}
	wantExpiry := clock.Now().Add(engine.config.PasswordReset.ResetTTL)
	if !acct.PasswordResetExpiry.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, *acct.PasswordResetExpiry)
	}
}

func TestRequestPasswordResetUnknownIdentityUniform(t *testing.T) {
	engine, _, dispatcher, _ := newLifecycleEngine(t, nil)

	if err := engine.RequestPasswordReset(context.Background(), "nobody@example.com"); err != nil {
		t.Fatalf("expected uniform success for unknown identity, got %v", err)
	}
	if dispatcher.count() != 0 {
		t.Fatal("unknown identity must not trigger a dispatch")
	}
}

func TestRedeemPasswordResetSuccess(t *testing.T) {
	engine, repo, dispatcher, _ := newLifecycleEngine(t, nil)
	ctx := context.Background()

	registerTestAccount(t, engine, repo, "alice@example.com")
	verifyTestAccount(t, engine, repo, "alice@example.com")
	token := requestReset(t, engine, dispatcher, "alice@example.com")

	if err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "brand-new-password-456"); err != nil {
		t.Fatalf("RedeemPasswordReset failed: %v", err)
	}

	acct := repo.get(t, "alice@example.com")
	if acct.PasswordResetToken != nil || acct.PasswordResetExpiry != nil {
		t.Fatal("expected reset pair to be cleared after redemption")
	}
	if len(acct.PasswordResetHistory) != 1 {
		t.Fatalf("expected one history entry, got %d", len(acct.PasswordResetHistory))
	}
	if msg := dispatcher.last(t); msg.Kind != NotifyPasswordChanged {
		t.Fatalf("expected changed confirmation, got %q", msg.Kind)
	}

	// Old password stops working, new one logs in.
	if err := engine.Login(ctx, "alice@example.com", "correct-password-123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if err := engine.Login(ctx, "alice@example.com", "brand-new-password-456"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestRedeemPasswordResetInvalidOrExpiredToken(t *testing.T) {
	engine, repo, dispatcher, clock := newLifecycleEngine(t, nil)
	ctx := context.Background()

	registerTestAccount(t, engine, repo, "alice@example.com")
	token := requestReset(t, engine, dispatcher, "alice@example.com")

	wrongErr := engine.RedeemPasswordReset(ctx, "alice@example.com", "wrong-token-abcdefghijklmnop", "brand-new-password-456")
	if !errors.Is(wrongErr, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid for wrong token, got %v", wrongErr)
	}

	clock.Advance(engine.config.PasswordReset.ResetTTL)
	expiredErr := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "brand-new-password-456")
	if !errors.Is(expiredErr, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid at token expiry, got %v", expiredErr)
	}
	if wrongErr.Error() != expiredErr.Error() {
		t.Fatalf("expected identical messages, got %q vs %q", wrongErr, expiredErr)
	}

	unknownErr := engine.RedeemPasswordReset(ctx, "nobody@example.com", token, "brand-new-password-456")
	if !errors.Is(unknownErr, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid for unknown identity, got %v", unknownErr)
	}
}

func TestRedeemPasswordResetRejectsReuse(t *testing.T) {
	engine, repo, dispatcher, _ := newLifecycleEngine(t, nil)
	ctx := context.Background()

	registerTestAccount(t, engine, repo, "alice@example.com")
	token := requestReset(t, engine, dispatcher, "alice@example.com")

	if err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "correct-password-123"); !errors.Is(err, ErrPasswordReuse) {
		t.Fatalf("expected ErrPasswordReuse, got %v", err)
	}

	// The rejection consumed nothing; the token still redeems.
	if err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "brand-new-password-456"); err != nil {
		t.Fatalf("redeem after reuse rejection failed: %v", err)
	}
}

func TestResetDailyQuota(t *testing.T) {
	engine, repo, dispatcher, clock := newLifecycleEngine(t, nil)
	ctx := context.Background()

	registerTestAccount(t, engine, repo, "alice@example.com")

	token := requestReset(t, engine, dispatcher, "alice@example.com")
	if err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "second-password-456"); err != nil {
		t.Fatalf("first redemption failed: %v", err)
	}

	clock.Advance(time.Hour)
	token = requestReset(t, engine, dispatcher, "alice@example.com")
	if err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "third-password-789"); err != nil {
		t.Fatalf("second redemption failed: %v", err)
	}

	// A third same-day attempt is rate limited regardless of token validity.
	clock.Advance(time.Hour)
	token = requestReset(t, engine, dispatcher, "alice@example.com")
	err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "fourth-password-000")
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) || !errors.Is(err, ErrResetQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if cooldown.Remaining <= 0 || cooldown.Remaining > 24*time.Hour {
		t.Fatalf("implausible remaining wait %v", cooldown.Remaining)
	}

	// Past local midnight the window resets, but the token has expired
	// by then; a fresh one redeems.
	clock.Advance(cooldown.Remaining)
	token = requestReset(t, engine, dispatcher, "alice@example.com")
	if err := engine.RedeemPasswordReset(ctx, "alice@example.com", token, "fourth-password-000"); err != nil {
		t.Fatalf("redemption in new window failed: %v", err)
	}

	acct := repo.get(t, "alice@example.com")
	if len(acct.PasswordResetHistory) != 1 {
		t.Fatalf("expected history pruned to current day, got %d entries", len(acct.PasswordResetHistory))
	}
}

func TestResetQuotaUTCWindow(t *testing.T) {
	engine, _, _, _ := newLifecycleEngine(t, func(cfg *Config) {
		cfg.PasswordReset.QuotaUTC = true
	})

	at := time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC)
	start, end := engine.resetDayBounds(at)
	if !start.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected UTC window start %v", start)
	}
	if !end.Equal(time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected UTC window end %v", end)
	}
}
