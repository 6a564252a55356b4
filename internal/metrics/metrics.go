// Package metrics registers the Prometheus counters exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreatedTotal counts successfully created orders (one per
	// checkout, regardless of seat count).
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	// SeatConflictsTotal counts bookings rejected because a requested
	// seat was taken between query and commit.
	SeatConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seat_conflicts_total",
		Help: "Total number of bookings lost to a seat race",
	})

	// ReconciliationsTotal counts applied gateway events by outcome:
	// confirmed, cancelled, noop.
	ReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Total number of gateway status events reconciled",
	}, []string{"outcome"})

	// TicketsExpiredTotal counts tickets cancelled by lazy expiry or the
	// background sweep.
	TicketsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_expired_total",
		Help: "Total number of tickets cancelled past their payment deadline",
	})

	// OTPIssuedTotal counts issued verification codes (initial and resend).
	OTPIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otp_issued_total",
		Help: "Total number of OTP codes issued",
	})

	// OTPVerifiedTotal counts successful account verifications.
	OTPVerifiedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "otp_verified_total",
		Help: "Total number of accounts verified",
	})
)
