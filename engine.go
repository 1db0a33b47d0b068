package authcore

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"time"

	"github.com/raymandgroup/authcore/internal"
	"github.com/raymandgroup/authcore/jwt"
	"github.com/raymandgroup/authcore/password"
)

// casRetries bounds how many times an operation re-reads and re-applies
// its guards after a version conflict before giving up.
const casRetries = 4

// Engine defines a public type used by authcore APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config       Config
	users        UserRepository
	dispatcher   NotificationDispatcher
	passwordHash *password.Argon2
	jwtManager   *jwt.Manager
	metrics      *Metrics

	// now is time.Now in production; tests substitute a fixed clock to
	// exercise expiry boundaries deterministically.
	now func() time.Time
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.dispatcher != nil &&
		e.passwordHash != nil && e.jwtManager != nil && e.now != nil
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate is the access-guard core: it verifies the bearer token's
// signature and expiry, then resolves the subject to the current account
// snapshot. A bad token returns ErrTokenInvalid; a token whose account
// no longer exists returns ErrUserNotFound.
func (e *Engine) Authenticate(ctx context.Context, token string) (*Account, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims, err := e.jwtManager.ParseAccess(token)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	acct, err := e.users.FindByID(ctx, claims.UID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrStoreUnavailable
	}
	return acct, nil
}

// mutateAccount runs a guarded read-modify-write against one account.
// fn applies the guards and the mutation to a fresh snapshot; when the
// write loses the version race the whole cycle re-runs so guards are
// re-evaluated against current state, never a stale read.
func (e *Engine) mutateAccount(
	ctx context.Context,
	identity string,
	fn func(acct *Account) error,
) (*Account, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		acct, err := e.users.FindByIdentity(ctx, identity)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, ErrStoreUnavailable
		}

		if err := fn(acct); err != nil {
			return nil, err
		}

		if err := e.users.Update(ctx, acct); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return nil, ErrStoreUnavailable
		}
		return acct, nil
	}
	return nil, ErrStoreUnavailable
}

// dispatch sends msg after the state it refers to has been persisted.
// A transport failure is wrapped as a DeliveryError; the engine never
// retries, the stored code stays valid and resend is the recovery path.
func (e *Engine) dispatch(ctx context.Context, msg Notification) error {
	if err := e.dispatcher.Send(ctx, msg); err != nil {
		e.metricInc(MetricDeliveryFailure)
		return &DeliveryError{Kind: msg.Kind, Err: err}
	}
	return nil
}

// codeMatches reports whether a supplied code matches the stored
// code/expiry pair. An absent pair or an expiry at or before now counts
// as no match; the equality check runs in constant time over fixed-size
// digests.
func codeMatches(supplied string, stored *string, expiry *time.Time, now time.Time) bool {
	if supplied == "" || stored == nil || expiry == nil {
		return false
	}
	if !now.Before(*expiry) {
		return false
	}

	suppliedHash := internal.HashToken(supplied)
	storedHash := internal.HashToken(*stored)
	return subtle.ConstantTimeCompare(suppliedHash[:], storedHash[:]) == 1
}

// remainingCooldown returns how long the caller must still wait, or
// zero when the cooldown has elapsed or was never started.
func remainingCooldown(last *time.Time, cooldown time.Duration, now time.Time) time.Duration {
	if last == nil {
		return 0
	}
	elapsed := now.Sub(*last)
	if elapsed >= cooldown {
		return 0
	}
	return cooldown - elapsed
}

// sleepEnumerationDelay jitters unknown-identity request paths so their
// latency is indistinguishable from the real work, within 20-40ms.
func sleepEnumerationDelay(ctx context.Context) error {
	minMs := int64(20)
	maxMs := int64(40)
	span := maxMs - minMs + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return err
	}

	delay := time.Duration(minMs+n.Int64()) * time.Millisecond
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isNumericString(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}
