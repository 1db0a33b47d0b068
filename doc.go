// Package authcore implements the account lifecycle engine behind the
// raymand auth service: registration, email verification, two-factor
// email-code login, and password reset with a daily quota.
//
// The engine is a state machine over a single persisted Account record.
// Every transition is guarded: time-boxed codes, resend cooldowns, and
// the reset quota are all checked before any mutation, and a failed
// guard leaves the account untouched. Expiry is enforced lazily at
// check time; a code whose expiry has passed is treated as absent.
//
// Storage and delivery stay behind interfaces. Accounts are read and
// written through a UserRepository whose Update is a compare-and-set on
// Account.Version, so two concurrent resends for the same account
// cannot both pass a cooldown check against a stale read. Outbound
// email goes through a NotificationDispatcher; the engine dispatches
// only after state is persisted and never retries delivery itself. A
// failed dispatch surfaces as a DeliveryError and the stored code stays
// valid, so a resend is the recovery path.
//
// Construct an Engine through the Builder:
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithUserRepository(repo).
//		WithDispatcher(mailer).
//		Build()
//
// After Build the Engine is safe for concurrent use. The HTTP surface
// lives in the httpapi package, repository adapters under repo/, and
// the SMTP dispatcher in mailer.
package authcore
