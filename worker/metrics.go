package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeworker_cycles_total",
			Help: "Total number of processing cycles by the state they ended in",
		},
		[]string{"state"},
	)

	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judgeworker_cycle_duration_seconds",
			Help:    "Duration of cycles that leased a message",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"state"},
	)

	QueueLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "judgeworker_queue_latency_seconds",
			Help:    "Time from enqueue until a cycle leased the message",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
		},
	)

	JudgeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeworker_judge_calls_total",
			Help: "Test cases dispatched to the judging engine",
		},
		[]string{"mode"},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeworker_verdicts_total",
			Help: "Persisted verdicts by result",
		},
		[]string{"result"},
	)

	StatsNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "judgeworker_stats_notifications_total",
			Help: "Stats notifications by outcome",
		},
		[]string{"outcome"}, // "sent", "failed"
	)
)
