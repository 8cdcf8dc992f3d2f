// Package metrics exposes the round counters scraped by Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Reasons a fulfilment is rejected.
const (
	RejectUnknownRequest = "unknown_request"
	RejectNoWords        = "no_words"
	RejectSelection      = "selection"
	RejectTransfer       = "transfer"
)

var (
	entriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raffle_entries_total",
		Help: "Total accepted entries",
	})

	roundsClosedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raffle_rounds_closed_total",
		Help: "Total rounds closed for winner selection",
	})

	winnersPickedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raffle_winners_picked_total",
		Help: "Total rounds paid out to a winner",
	})

	fulfillRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raffle_fulfill_rejected_total",
			Help: "Total rejected randomness fulfilments by reason",
		},
		[]string{"reason"},
	)

	payoutFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raffle_payout_failures_total",
		Help: "Total payouts that could not be transferred",
	})

	pool = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raffle_pool",
		Help: "Value collected in the current round",
	})

	fulfillDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raffle_fulfill_duration_ms",
		Help:    "Time from round close to winner payout in milliseconds",
		Buckets: prometheus.ExponentialBuckets(5, 2, 12),
	})
)

func RecordEntry(currentPool decimal.Decimal) {
	entriesTotal.Inc()
	pool.Set(currentPool.InexactFloat64())
}

func RecordRoundClosed() {
	roundsClosedTotal.Inc()
}

// RecordWinnerPicked counts a payout. closedAt is when the round was closed.
func RecordWinnerPicked(closedAt time.Time) {
	winnersPickedTotal.Inc()
	pool.Set(0)
	fulfillDuration.Observe(float64(time.Since(closedAt).Milliseconds()))
}

func RecordFulfillRejected(reason string) {
	fulfillRejectedTotal.WithLabelValues(reason).Inc()
	if reason == RejectTransfer {
		payoutFailuresTotal.Inc()
	}
}

// SetPool reports the pool after a restore.
func SetPool(currentPool decimal.Decimal) {
	pool.Set(currentPool.InexactFloat64())
}
