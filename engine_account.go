package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/raymandgroup/authcore/internal"
)

// Register describes the register operation and its observable behavior.
//
// Register creates an unverified account with a hashed credential and a
// fresh verification code, then dispatches the verify-email message.
// A duplicate identity returns an *AccountExistsError carrying whether
// the existing account is already verified. When dispatch fails after
// the account was persisted, the result is returned together with a
// *DeliveryError; the stored code stays valid and ResendVerification is
// the recovery path.
func (e *Engine) Register(ctx context.Context, identity, displayName, secret string) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	identity = strings.TrimSpace(identity)
	if identity == "" || !strings.Contains(identity, "@") || secret == "" {
		return nil, ErrValidation
	}

	hash, err := e.passwordHash.Hash(secret)
	if err != nil {
		return nil, ErrValidation
	}

	code, err := internal.NewOpaqueToken(e.config.EmailVerification.TokenBytes)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	now := e.now()
	expiry := now.Add(e.config.EmailVerification.VerificationTTL)

	acct := &Account{
		ID:                      uuid.NewString(),
		Identity:                identity,
		DisplayName:             strings.TrimSpace(displayName),
		CredentialHash:          hash,
		Verified:                false,
		EmailVerificationCode:   &code,
		EmailVerificationExpiry: &expiry,
		CreatedAt:               now,
	}

	if err := e.users.Create(ctx, acct); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			verified := false
			if existing, findErr := e.users.FindByIdentity(ctx, identity); findErr == nil {
				verified = existing.Verified
			}
			return nil, &AccountExistsError{Identity: identity, Verified: verified}
		}
		return nil, ErrStoreUnavailable
	}

	e.metricInc(MetricRegisterSuccess)
	result := &RegisterResult{AccountID: acct.ID, Identity: acct.Identity}

	if err := e.dispatch(ctx, Notification{
		Recipient:   acct.Identity,
		DisplayName: acct.DisplayName,
		Kind:        NotifyVerifyEmail,
		Code:        code,
		ExpiresIn:   e.config.EmailVerification.VerificationTTL,
	}); err != nil {
		return result, err
	}

	return result, nil
}

// Profile describes the profile operation and its observable behavior.
//
// Profile resolves a bearer token to the account's non-secret fields.
// It is the engine-side of the guarded profile endpoint.
func (e *Engine) Profile(ctx context.Context, token string) (*Account, error) {
	acct, err := e.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	// Never hand credential or outstanding codes past the guard.
	out := acct.Clone()
	out.CredentialHash = ""
	out.EmailVerificationCode = nil
	out.LoginChallengeCode = nil
	out.PasswordResetToken = nil
	return out, nil
}
