package authcore

import (
	"context"
	"errors"

	"github.com/raymandgroup/authcore/internal"
	"github.com/raymandgroup/authcore/password"
)

// Login describes the login operation and its observable behavior.
//
// Login is the first login step: it checks the credential against the
// stored hash and, for a verified account with no unexpired challenge
// outstanding, stores a fresh numeric challenge and dispatches it. An
// unknown identity and a wrong password both return
// ErrInvalidCredentials. An unexpired challenge already outstanding
// returns a *CooldownError wrapping ErrChallengeOutstanding with the
// time until that challenge expires.
func (e *Engine) Login(ctx context.Context, identity, secret string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" || secret == "" {
		return ErrValidation
	}

	var (
		code      string
		expiresIn = e.config.LoginChallenge.ChallengeTTL
	)

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		ok, verifyErr := e.passwordHash.Verify(secret, acct.CredentialHash)
		if verifyErr != nil {
			if errors.Is(verifyErr, password.ErrCorruptCredential) {
				return verifyErr
			}
			return ErrStoreUnavailable
		}
		if !ok {
			return ErrInvalidCredentials
		}
		if !acct.Verified {
			return ErrAccountUnverified
		}

		now := e.now()
		if acct.LoginChallengeCode != nil && acct.LoginChallengeExpiry != nil && now.Before(*acct.LoginChallengeExpiry) {
			e.metricInc(MetricRateLimitHit)
			return &CooldownError{
				Reason:    ErrChallengeOutstanding,
				Remaining: acct.LoginChallengeExpiry.Sub(now),
			}
		}

		fresh, genErr := internal.NewNumericChallenge(e.config.LoginChallenge.Digits)
		if genErr != nil {
			return ErrStoreUnavailable
		}
		code = fresh

		expiry := now.Add(expiresIn)
		acct.LoginChallengeCode = &code
		acct.LoginChallengeExpiry = &expiry
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			return ErrInvalidCredentials
		}
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAccountUnverified) {
			e.metricInc(MetricLoginFailure)
		}
		return err
	}

	e.metricInc(MetricLoginChallengeIssued)

	return e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyLoginChallenge,
		Code:        code,
		ExpiresIn:   expiresIn,
	})
}

// ConfirmLogin describes the confirmlogin operation and its observable behavior.
//
// ConfirmLogin is the second login step: when the supplied code matches
// the outstanding unexpired challenge, the challenge is cleared and a
// signed bearer token is issued. Wrong, expired, and missing challenges
// all return ErrCodeInvalid, as does an unknown identity.
func (e *Engine) ConfirmLogin(ctx context.Context, identity, code string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if identity == "" || code == "" {
		return nil, ErrValidation
	}
	if len(code) != e.config.LoginChallenge.Digits || !isNumericString(code) {
		e.metricInc(MetricLoginFailure)
		return nil, ErrCodeInvalid
	}

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		if !codeMatches(code, acct.LoginChallengeCode, acct.LoginChallengeExpiry, e.now()) {
			return ErrCodeInvalid
		}

		acct.LoginChallengeCode = nil
		acct.LoginChallengeExpiry = nil
		acct.LastChallengeResendAt = nil
		return nil
	})
	if err != nil {
		e.metricInc(MetricLoginFailure)
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, err
	}

	token, err := e.jwtManager.CreateAccess(acct.ID, acct.Identity)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricLoginSuccess)
	return &LoginResult{
		AccountID:   acct.ID,
		Identity:    acct.Identity,
		AccessToken: token,
		ExpiresIn:   e.jwtManager.AccessTTL(),
	}, nil
}

// ResendChallenge describes the resendchallenge operation and its observable behavior.
//
// ResendChallenge regenerates the login challenge subject to the resend
// cooldown. The cooldown stamp is checked and written in the same
// compare-and-set cycle as the new code.
func (e *Engine) ResendChallenge(ctx context.Context, identity string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if identity == "" {
		return ErrValidation
	}

	var (
		code      string
		expiresIn = e.config.LoginChallenge.ChallengeTTL
	)

	acct, err := e.mutateAccount(ctx, identity, func(acct *Account) error {
		now := e.now()
		if remaining := remainingCooldown(acct.LastChallengeResendAt, e.config.LoginChallenge.ResendCooldown, now); remaining > 0 {
			e.metricInc(MetricRateLimitHit)
			return &CooldownError{Reason: ErrResendRateLimited, Remaining: remaining}
		}

		fresh, genErr := internal.NewNumericChallenge(e.config.LoginChallenge.Digits)
		if genErr != nil {
			return ErrStoreUnavailable
		}
		code = fresh

		expiry := now.Add(expiresIn)
		acct.LoginChallengeCode = &code
		acct.LoginChallengeExpiry = &expiry
		acct.LastChallengeResendAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	e.metricInc(MetricLoginChallengeResend)

	return e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyLoginChallenge,
		Code:        code,
		ExpiresIn:   expiresIn,
	})
}
