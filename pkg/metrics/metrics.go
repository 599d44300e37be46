package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by method (password|refresh|google|facebook) and result.
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tramdoc_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"method", "result"},
	)

	// Registrations counts accounts created by origin (LOCAL|GOOGLE|FACEBOOK).
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tramdoc_registrations_total",
			Help: "Total number of accounts created",
		},
		[]string{"origin"},
	)

	// OTPIssued counts password reset codes generated.
	OTPIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tramdoc_otp_issued_total",
			Help: "Total number of password reset codes issued",
		},
	)

	// OTPRedemptions counts reset code checks by stage (verify|reset) and result.
	OTPRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tramdoc_otp_redemptions_total",
			Help: "Total number of password reset code checks",
		},
		[]string{"stage", "result"},
	)

	// OAuthResolutions counts provider logins by provider and linking outcome.
	OAuthResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tramdoc_oauth_resolutions_total",
			Help: "Total number of OAuth account resolutions",
		},
		[]string{"provider", "outcome"},
	)

	// EmailDeliveries counts outbound email by kind (otp|welcome) and result.
	EmailDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tramdoc_email_deliveries_total",
			Help: "Total number of outbound emails",
		},
		[]string{"kind", "result"},
	)

	// PurgedResetCodes counts expired reset codes removed by maintenance.
	PurgedResetCodes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tramdoc_purged_reset_codes_total",
			Help: "Total number of expired password reset codes purged",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tramdoc_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
