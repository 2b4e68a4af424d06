package authcore

import "github.com/modernwms/authcore/internal/metrics"

// MetricID indexes a single engine counter or histogram. See the Metric*
// constants for the defined slots.
type MetricID = metrics.MetricID

// MetricsSnapshot is a point-in-time copy of every engine instrument.
type MetricsSnapshot = metrics.Snapshot

// Counter and histogram slots exposed through [Engine.MetricsSnapshot].
const (
	MetricLoginSuccess             = metrics.MetricLoginSuccess
	MetricLoginFailure             = metrics.MetricLoginFailure
	MetricRefreshSuccess           = metrics.MetricRefreshSuccess
	MetricRefreshFailure           = metrics.MetricRefreshFailure
	MetricRefreshReuseDetected     = metrics.MetricRefreshReuseDetected
	MetricAuthorizeDenied          = metrics.MetricAuthorizeDenied
	MetricTokenExpired             = metrics.MetricTokenExpired
	MetricSessionCreated           = metrics.MetricSessionCreated
	MetricSessionInvalidated       = metrics.MetricSessionInvalidated
	MetricLogout                   = metrics.MetricLogout
	MetricLogoutAll                = metrics.MetricLogoutAll
	MetricPasswordChangeSuccess    = metrics.MetricPasswordChangeSuccess
	MetricPasswordChangeInvalidOld = metrics.MetricPasswordChangeInvalidOld
	MetricLegacyHashUpgraded       = metrics.MetricLegacyHashUpgraded
	MetricValidateLatency          = metrics.MetricValidateLatency
)
