// Package metrics provides the Prometheus metrics exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "freshcart"

// Label values for Flow.
const (
	FlowShopPrimary   = "shop_primary"
	FlowShopSecondary = "shop_secondary"
	FlowShopOTP       = "shop_otp"
	FlowCustomer      = "customer"
	FlowGoogle        = "google"
)

var (
	// LoginAttemptsTotal counts login steps by flow and outcome.
	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login steps by flow and outcome.",
		},
		[]string{"flow", "outcome"},
	)

	// LockoutsTotal counts lock events by scope (device, account, customer).
	LockoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Temporary locks applied, by scope.",
		},
		[]string{"scope"},
	)

	// BlocksTotal counts terminal blocks by scope and reason.
	BlocksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_total",
			Help:      "Terminal blocks applied, by scope and reason.",
		},
		[]string{"scope", "reason"},
	)

	// TokenRotationsTotal counts refresh rotations by principal and result.
	TokenRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_rotations_total",
			Help:      "Refresh token rotations by principal and result.",
		},
		[]string{"principal", "result"},
	)

	// EmailFailuresTotal counts notification emails that could not be sent.
	EmailFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_failures_total",
			Help:      "Notification emails that failed to send, by kind.",
		},
		[]string{"kind"},
	)

	// IPCheckDurationSeconds is reputation lookup latency.
	IPCheckDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ip_check_duration_seconds",
			Help:      "IP reputation lookup duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)
