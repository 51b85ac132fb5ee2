package authkit

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that produced a full session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins that failed for any reason.
	MetricLoginFailure
	// MetricLoginDenied counts logins the backend explicitly denied.
	MetricLoginDenied
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts failed registrations.
	MetricRegisterFailure
	// MetricRefreshSuccess counts refresh operations that produced new tokens.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh operations that forced a logout.
	MetricRefreshFailure
	// MetricRefreshShared counts callers that joined an in-flight refresh
	// instead of starting their own.
	MetricRefreshShared
	// MetricRefreshNoToken counts refresh calls short-circuited because no
	// refresh token was stored.
	MetricRefreshNoToken
	// MetricCheckAuthSuccess counts checks that ended authenticated.
	MetricCheckAuthSuccess
	// MetricCheckAuthFailure counts checks that ended unauthenticated.
	MetricCheckAuthFailure
	// MetricCheckAuthShortCircuit counts checks answered from local state.
	MetricCheckAuthShortCircuit
	// MetricCheckAuthShared counts callers that joined an in-flight check.
	MetricCheckAuthShared
	// MetricLogout counts local logouts.
	MetricLogout
	// MetricRemoteLogoutSignal counts logouts applied because another
	// session signaled one.
	MetricRemoteLogoutSignal
	// MetricStatusRefreshFailure counts best-effort status refreshes that
	// failed (and were swallowed).
	MetricStatusRefreshFailure
	// MetricStaleResultDiscarded counts async results dropped because a
	// logout superseded them.
	MetricStaleResultDiscarded
	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricLoginSuccess:          "login_success",
	MetricLoginFailure:          "login_failure",
	MetricLoginDenied:           "login_denied",
	MetricRegisterSuccess:       "register_success",
	MetricRegisterFailure:       "register_failure",
	MetricRefreshSuccess:        "refresh_success",
	MetricRefreshFailure:        "refresh_failure",
	MetricRefreshShared:         "refresh_shared",
	MetricRefreshNoToken:        "refresh_no_token",
	MetricCheckAuthSuccess:      "check_auth_success",
	MetricCheckAuthFailure:      "check_auth_failure",
	MetricCheckAuthShortCircuit: "check_auth_short_circuit",
	MetricCheckAuthShared:       "check_auth_shared",
	MetricLogout:                "logout",
	MetricRemoteLogoutSignal:    "remote_logout_signal",
	MetricStatusRefreshFailure:  "status_refresh_failure",
	MetricStaleResultDiscarded:  "stale_result_discarded",
}

func (id MetricID) String() string {
	if id < metricIDCount {
		return metricNames[id]
	}
	return "unknown"
}

const cacheLineSize = 64

type paddedCounter struct {
	value atomic.Uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the Manager's atomic counters. All operations are no-ops
// when disabled.
type Metrics struct {
	enabled  bool
	counters []paddedCounter
}

// NewMetrics creates a [Metrics] instance per the given config.
func NewMetrics(cfg MetricsConfig) *Metrics {
	m := &Metrics{enabled: cfg.Enabled}
	if cfg.Enabled {
		m.counters = make([]paddedCounter, metricIDCount)
	}
	return m
}

// Inc bumps one counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || int(id) >= len(m.counters) {
		return
	}
	m.counters[id].value.Add(1)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricIDCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].value.Load()
	}
	return snap
}
