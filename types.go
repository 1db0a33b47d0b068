package authcore

import (
	"context"
	"time"
)

// Account defines a public type used by authcore APIs.
//
// Account is the sole persisted entity of the lifecycle engine. Optional
// code/expiry fields are nil while no code of that flow is outstanding;
// each code and its expiry are always set or cleared together.
type Account struct {
	ID             string
	Identity       string
	DisplayName    string
	CredentialHash string
	Verified       bool

	EmailVerificationCode    *string
	EmailVerificationExpiry  *time.Time
	LastVerificationResendAt *time.Time

	LoginChallengeCode    *string
	LoginChallengeExpiry  *time.Time
	LastChallengeResendAt *time.Time

	PasswordResetToken   *string
	PasswordResetExpiry  *time.Time
	PasswordResetHistory []time.Time

	CreatedAt time.Time

	// Version is the optimistic-concurrency counter. Repositories
	// increment it on every successful Update and reject writes whose
	// Version does not match the stored one with ErrVersionConflict.
	Version uint64
}

// Clone describes the clone operation and its observable behavior.
//
// Clone returns a deep copy so repository adapters and tests can hand out
// snapshots without aliasing the optional fields.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.EmailVerificationCode = cloneStringPtr(a.EmailVerificationCode)
	out.EmailVerificationExpiry = cloneTimePtr(a.EmailVerificationExpiry)
	out.LastVerificationResendAt = cloneTimePtr(a.LastVerificationResendAt)
	out.LoginChallengeCode = cloneStringPtr(a.LoginChallengeCode)
	out.LoginChallengeExpiry = cloneTimePtr(a.LoginChallengeExpiry)
	out.LastChallengeResendAt = cloneTimePtr(a.LastChallengeResendAt)
	out.PasswordResetToken = cloneStringPtr(a.PasswordResetToken)
	out.PasswordResetExpiry = cloneTimePtr(a.PasswordResetExpiry)
	if len(a.PasswordResetHistory) > 0 {
		out.PasswordResetHistory = make([]time.Time, len(a.PasswordResetHistory))
		copy(out.PasswordResetHistory, a.PasswordResetHistory)
	}
	return &out
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// UserRepository defines a public type used by authcore APIs.
//
// UserRepository is the storage boundary of the engine. Implementations
// must make Update a per-account compare-and-set on Account.Version:
// a write against a stale Version returns ErrVersionConflict and leaves
// the stored record untouched. FindByIdentity and FindByID return
// ErrUserNotFound when no account matches; Create returns
// ErrAccountExists when the identity is already taken.
type UserRepository interface {
	FindByIdentity(ctx context.Context, identity string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
}

// NotificationKind defines a public type used by authcore APIs.
//
// NotificationKind selects the template a dispatcher renders for an
// outbound message.
type NotificationKind string

const (
	// NotifyVerifyEmail is an exported constant or variable used by the lifecycle engine.
	NotifyVerifyEmail NotificationKind = "verify_email"
	// NotifyEmailVerified is an exported constant or variable used by the lifecycle engine.
	NotifyEmailVerified NotificationKind = "email_verified"
	// NotifyLoginChallenge is an exported constant or variable used by the lifecycle engine.
	NotifyLoginChallenge NotificationKind = "login_challenge"
	// NotifyPasswordReset is an exported constant or variable used by the lifecycle engine.
	NotifyPasswordReset NotificationKind = "password_reset"
	// NotifyPasswordChanged is an exported constant or variable used by the lifecycle engine.
	NotifyPasswordChanged NotificationKind = "password_changed"
	// NotifyContactOwner is an exported constant or variable used by the lifecycle engine.
	NotifyContactOwner NotificationKind = "contact_owner"
	// NotifyContactAck is an exported constant or variable used by the lifecycle engine.
	NotifyContactAck NotificationKind = "contact_ack"
	// NotifyCooperationAdmin is an exported constant or variable used by the lifecycle engine.
	NotifyCooperationAdmin NotificationKind = "cooperation_admin"
	// NotifyCooperationAck is an exported constant or variable used by the lifecycle engine.
	NotifyCooperationAck NotificationKind = "cooperation_ack"
)

// Notification defines a public type used by authcore APIs.
//
// Notification carries everything a dispatcher needs to render and send
// one message. Code holds the verification code, login challenge, or
// reset token depending on Kind; Data carries free-form template fields
// for the contact and cooperation forms.
type Notification struct {
	Recipient   string
	DisplayName string
	Kind        NotificationKind
	Code        string
	ExpiresIn   time.Duration
	Data        map[string]string
}

// NotificationDispatcher defines a public type used by authcore APIs.
//
// NotificationDispatcher is the delivery boundary. Send is called only
// after the engine has persisted any state the message refers to; a
// returned error propagates as a DeliveryError and is never retried by
// the engine.
type NotificationDispatcher interface {
	Send(ctx context.Context, msg Notification) error
}

// RegisterResult defines a public type used by authcore APIs.
//
// RegisterResult reports the outcome of a successful registration.
type RegisterResult struct {
	AccountID string
	Identity  string
}

// LoginResult defines a public type used by authcore APIs.
//
// LoginResult reports the outcome of the second login step: the signed
// bearer token and its lifetime.
type LoginResult struct {
	AccountID   string
	Identity    string
	AccessToken string
	ExpiresIn   time.Duration
}
