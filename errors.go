package authcore

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation is an exported constant or variable used by the lifecycle engine.
	ErrValidation = errors.New("invalid input")
	// ErrUserNotFound is an exported constant or variable used by the lifecycle engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is an exported constant or variable used by the lifecycle engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is an exported constant or variable used by the lifecycle engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnverified is an exported constant or variable used by the lifecycle engine.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrAlreadyVerified is an exported constant or variable used by the lifecycle engine.
	ErrAlreadyVerified = errors.New("account already verified")
	// ErrChallengeOutstanding is an exported constant or variable used by the lifecycle engine.
	ErrChallengeOutstanding = errors.New("login challenge already outstanding")
	// ErrCodeInvalid is an exported constant or variable used by the lifecycle engine.
	ErrCodeInvalid = errors.New("code invalid or expired")
	// ErrResendRateLimited is an exported constant or variable used by the lifecycle engine.
	ErrResendRateLimited = errors.New("resend rate limited")
	// ErrPasswordReuse is an exported constant or variable used by the lifecycle engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrResetQuotaExceeded is an exported constant or variable used by the lifecycle engine.
	ErrResetQuotaExceeded = errors.New("password reset daily quota exceeded")
	// ErrDeliveryFailed is an exported constant or variable used by the lifecycle engine.
	ErrDeliveryFailed = errors.New("notification delivery failed")
	// ErrTokenInvalid is an exported constant or variable used by the lifecycle engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrVersionConflict is an exported constant or variable used by the lifecycle engine.
	ErrVersionConflict = errors.New("account version conflict")
	// ErrStoreUnavailable is an exported constant or variable used by the lifecycle engine.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the lifecycle engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// CooldownError defines a public type used by authcore APIs.
//
// CooldownError wraps a rate-limit sentinel (ErrResendRateLimited,
// ErrChallengeOutstanding, or ErrResetQuotaExceeded) together with the
// wait the caller must observe before retrying. errors.Is matches the
// wrapped sentinel.
type CooldownError struct {
	Reason    error
	Remaining time.Duration
}

// Error describes the error operation and its observable behavior.
func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v: retry in %s", e.Reason, e.Remaining.Round(time.Second))
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *CooldownError) Unwrap() error {
	return e.Reason
}

// AccountExistsError defines a public type used by authcore APIs.
//
// AccountExistsError reports a duplicate registration and whether the
// existing account has already verified its email, so callers can route
// to login versus verify. errors.Is matches ErrAccountExists.
type AccountExistsError struct {
	Identity string
	Verified bool
}

// Error describes the error operation and its observable behavior.
func (e *AccountExistsError) Error() string {
	return ErrAccountExists.Error()
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *AccountExistsError) Unwrap() error {
	return ErrAccountExists
}

// DeliveryError defines a public type used by authcore APIs.
//
// DeliveryError reports a dispatch failure that happened after account
// state was already persisted. The stored code remains valid; resend is
// the recovery path. errors.Is matches ErrDeliveryFailed and the
// transport error.
type DeliveryError struct {
	Kind NotificationKind
	Err  error
}

// Error describes the error operation and its observable behavior.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %q failed: %v", e.Kind, e.Err)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Err}
}
