package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricInterpreterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_interpreter_requests_total",
		Help: "Voice command interpreter requests by outcome status",
	}, []string{"status"})

	metricInterpreterLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kiosk_interpreter_latency_ms",
		Help:    "Round trip latency of process-voice-command (ms)",
		Buckets: prometheus.ExponentialBuckets(25, 1.8, 10),
	})
)
