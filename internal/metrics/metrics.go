package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wabulk_outcomes_total",
			Help: "Per-recipient outcomes by status",
		},
		[]string{"status"}, // sent|not_found|failed
	)

	SendDelaySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wabulk_send_delay_seconds",
			Help:    "Randomized pause between two recipients",
			Buckets: prometheus.LinearBuckets(0, 1, 16),
		},
	)

	AttemptSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wabulk_attempt_seconds",
			Help:    "Time spent opening and sending per recipient",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		},
		[]string{"status"},
	)

	RecipientsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wabulk_recipients_pending",
			Help: "Recipients of the current run not processed yet",
		},
	)

	CooldownsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wabulk_cooldowns_total",
			Help: "Pauses taken after a streak of unsuccessful sends",
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		OutcomesTotal,
		SendDelaySeconds,
		AttemptSeconds,
		RecipientsPending,
		CooldownsTotal,
	)
}
