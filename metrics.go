package authcore

import "sync/atomic"

// MetricID defines a public type used by authcore APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricRegisterSuccess is an exported constant or variable used by the lifecycle engine.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate is an exported constant or variable used by the lifecycle engine.
	MetricRegisterDuplicate
	// MetricVerificationSuccess is an exported constant or variable used by the lifecycle engine.
	MetricVerificationSuccess
	// MetricVerificationFailure is an exported constant or variable used by the lifecycle engine.
	MetricVerificationFailure
	// MetricVerificationResend is an exported constant or variable used by the lifecycle engine.
	MetricVerificationResend
	// MetricLoginChallengeIssued is an exported constant or variable used by the lifecycle engine.
	MetricLoginChallengeIssued
	// MetricLoginChallengeResend is an exported constant or variable used by the lifecycle engine.
	MetricLoginChallengeResend
	// MetricLoginSuccess is an exported constant or variable used by the lifecycle engine.
	MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the lifecycle engine.
	MetricLoginFailure
	// MetricResetRequest is an exported constant or variable used by the lifecycle engine.
	MetricResetRequest
	// MetricResetSuccess is an exported constant or variable used by the lifecycle engine.
	MetricResetSuccess
	// MetricResetFailure is an exported constant or variable used by the lifecycle engine.
	MetricResetFailure
	// MetricResetQuotaExceeded is an exported constant or variable used by the lifecycle engine.
	MetricResetQuotaExceeded
	// MetricRateLimitHit is an exported constant or variable used by the lifecycle engine.
	MetricRateLimitHit
	// MetricDeliveryFailure is an exported constant or variable used by the lifecycle engine.
	MetricDeliveryFailure
	metricIDCount
)

// MetricDef defines a public type used by authcore APIs.
//
// MetricDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricDef struct {
	ID   MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the lifecycle engine.
var CounterDefs = []MetricDef{
	{MetricRegisterSuccess, "authcore_register_success_total", "Accounts created."},
	{MetricRegisterDuplicate, "authcore_register_duplicate_total", "Registrations rejected for an existing identity."},
	{MetricVerificationSuccess, "authcore_verification_success_total", "Email verifications accepted."},
	{MetricVerificationFailure, "authcore_verification_failure_total", "Email verifications rejected."},
	{MetricVerificationResend, "authcore_verification_resend_total", "Verification codes reissued."},
	{MetricLoginChallengeIssued, "authcore_login_challenge_issued_total", "Login challenges issued."},
	{MetricLoginChallengeResend, "authcore_login_challenge_resend_total", "Login challenges reissued."},
	{MetricLoginSuccess, "authcore_login_success_total", "Logins completed."},
	{MetricLoginFailure, "authcore_login_failure_total", "Logins rejected."},
	{MetricResetRequest, "authcore_reset_request_total", "Password reset tokens requested."},
	{MetricResetSuccess, "authcore_reset_success_total", "Password resets completed."},
	{MetricResetFailure, "authcore_reset_failure_total", "Password resets rejected."},
	{MetricResetQuotaExceeded, "authcore_reset_quota_exceeded_total", "Password resets refused by the daily quota."},
	{MetricRateLimitHit, "authcore_rate_limit_hit_total", "Requests refused by a cooldown."},
	{MetricDeliveryFailure, "authcore_delivery_failure_total", "Notification dispatches that failed after persistence."},
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by authcore APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by authcore APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics may return an error when input validation, dependency calls, or security checks fail.
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
