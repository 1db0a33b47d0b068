package authcore

import (
	"context"
	"errors"

	"github.com/raymandgroup/authcore/internal"
)

// VerifyEmail describes the verifyemail operation and its observable behavior.
//
// VerifyEmail promotes an unverified account to verified when the
// supplied code matches the outstanding verification code and the code
// has not expired. Wrong and expired codes both return ErrCodeInvalid.
// Verifying an already-verified account returns ErrAlreadyVerified and
// dispatches nothing.
func (e *Engine) VerifyEmail(ctx context.Context, identity, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" || code == "" {
		return ErrValidation
	}

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		if acct.Verified {
			return ErrAlreadyVerified
		}
		if !codeMatches(code, acct.EmailVerificationCode, acct.EmailVerificationExpiry, e.now()) {
			return ErrCodeInvalid
		}

		acct.Verified = true
		acct.EmailVerificationCode = nil
		acct.EmailVerificationExpiry = nil
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyVerified) {
			e.metricInc(MetricVerificationFailure)
		}
		return err
	}

	e.metricInc(MetricVerificationSuccess)

	return e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyEmailVerified,
	})
}

// ResendVerification describes the resendverification operation and its observable behavior.
//
// ResendVerification regenerates the verification code for an
// unverified account, subject to the resend cooldown. A call inside the
// cooldown window returns a *CooldownError with the remaining wait and
// mutates nothing. The cooldown stamp is checked and written in the
// same compare-and-set cycle, so two concurrent resends cannot both
// pass it.
func (e *Engine) ResendVerification(ctx context.Context, identity string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" {
		return ErrValidation
	}

	var (
		code      string
		expiresIn = e.config.EmailVerification.VerificationTTL
	)

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		if acct.Verified {
			return ErrAlreadyVerified
		}

		now := e.now()
		if remaining := remainingCooldown(acct.LastVerificationResendAt, e.config.EmailVerification.ResendCooldown, now); remaining > 0 {
			e.metricInc(MetricRateLimitHit)
			return &CooldownError{Reason: ErrResendRateLimited, Remaining: remaining}
		}

		fresh, genErr := internal.NewOpaqueToken(e.config.EmailVerification.TokenBytes)
		if genErr != nil {
			return ErrStoreUnavailable
		}
		code = fresh

		expiry := now.Add(expiresIn)
		acct.EmailVerificationCode = &code
		acct.EmailVerificationExpiry = &expiry
		acct.LastVerificationResendAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricVerificationResend)

	return e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyVerifyEmail,
		Code:        code,
		ExpiresIn:   expiresIn,
	})
}
