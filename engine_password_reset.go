package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/raymandgroup/authcore/internal"
	"github.com/raymandgroup/authcore/password"
)

// RequestPasswordReset describes the requestpasswordreset operation and its observable behavior.
//
// RequestPasswordReset stores a fresh opaque reset token for the
// account and dispatches it. The response is uniform regardless of
// account existence: an unknown identity burns a token generation and a
// small jittered delay, dispatches nothing, and still reports success,
// so the endpoint cannot be used to probe for registered emails.
func (e *Engine) RequestPasswordReset(ctx context.Context, identity string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" {
		return ErrValidation
	}

	var (
		token     string
		expiresIn = e.config.PasswordReset.ResetTTL
	)

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		fresh, genErr := internal.NewOpaqueToken(e.config.PasswordReset.TokenBytes)
		if genErr != nil {
			return ErrStoreUnavailable
		}
		token = fresh

		expiry := e.now().Add(expiresIn)
		acct.PasswordResetToken = &token
		acct.PasswordResetExpiry = &expiry
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			if _, genErr := internal.NewOpaqueToken(e.config.PasswordReset.TokenBytes); genErr != nil {
				return ErrStoreUnavailable
			}
			if delayErr := sleepEnumerationDelay(ctx); delayErr != nil {
				return delayErr
			}
			e.metricInc(MetricResetRequest)
			return nil
		}
		return err
	}

	e.metricInc(MetricResetRequest)

	return e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyPasswordReset,
		Code:        token,
		ExpiresIn:   expiresIn,
	})
}

// RedeemPasswordReset describes the redeempasswordreset operation and its observable behavior.
//
// RedeemPasswordReset consumes an outstanding reset token and installs
// the new credential. The daily quota is checked before token validity,
// so a third same-day attempt is rate limited regardless of the token.
// Wrong and expired tokens both return ErrCodeInvalid, as does an
// unknown identity. A new password equal to the current one returns
// ErrPasswordReuse even with a fully valid token.
func (e *Engine) RedeemPasswordReset(ctx context.Context, identity, token, newSecret string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" || token == "" || newSecret == "" {
		return ErrValidation
	}

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		now := e.now()
		dayStart, dayEnd := e.resetDayBounds(now)

		completed := 0
		for _, at := range acct.PasswordResetHistory {
			if !at.Before(dayStart) && at.Before(dayEnd) {
				completed++
			}
		}
		if completed >= e.config.PasswordReset.DailyQuota {
			e.metricInc(MetricResetQuotaExceeded)
			return &CooldownError{Reason: ErrResetQuotaExceeded, Remaining: dayEnd.Sub(now)}
		}

		if !codeMatches(token, acct.PasswordResetToken, acct.PasswordResetExpiry, now) {
			return ErrCodeInvalid
		}

		same, verifyErr := e.passwordHash.Verify(newSecret, acct.CredentialHash)
		if verifyErr != nil {
			if errors.Is(verifyErr, password.ErrCorruptCredential) {
				return verifyErr
			}
			return ErrStoreUnavailable
		}
		if same {
			return ErrPasswordReuse
		}

		hash, hashErr := e.passwordHash.Hash(newSecret)
		if hashErr != nil {
			return ErrValidation
		}

		acct.CredentialHash = hash
		acct.PasswordResetToken = nil
		acct.PasswordResetExpiry = nil

		// History only drives the daily quota; entries from previous
		// days are pruned on write.
		history := make([]time.Time, 0, completed+1)
		for _, at := range acct.PasswordResetHistory {
			if !at.Before(dayStart) && at.Before(dayEnd) {
				history = append(history, at)
			}
		}
		acct.PasswordResetHistory = append(history, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricResetFailure)
			return ErrCodeInvalid
		}
		if errors.Is(err, ErrCodeInvalid) || errors.Is(err, ErrPasswordReuse) {
			e.metricInc(MetricResetFailure)
		}
		return err
	}

	e.metricInc(MetricResetSuccess)

	return e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyPasswordChanged,
	})
}

// resetDayBounds returns the start and end of the quota window that
// contains now: midnight-to-midnight in either the server's local zone
// or UTC, per config.
func (e *Engine) resetDayBounds(now time.Time) (time.Time, time.Time) {
	if e.config.PasswordReset.QuotaUTC {
		now = now.UTC()
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}
