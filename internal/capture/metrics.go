package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_capture_commands_total",
		Help: "Listening commands sent to the capture service",
	}, []string{"type"})

	metricUtterances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_capture_utterances_total",
		Help: "Final transcripts delivered to the conversation",
	})

	metricDuplicateUtterances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_capture_duplicate_utterances_total",
		Help: "Final transcripts dropped because their utterance id was already delivered",
	})

	gaugeConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_capture_connected",
		Help: "1 while a capture service is connected",
	})
)
