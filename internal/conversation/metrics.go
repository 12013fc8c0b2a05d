package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_state_transitions_total",
		Help: "Conversation state transitions",
	}, []string{"from", "to"})

	metricVoiceIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_voice_ignored_total",
		Help: "Recognized utterances dropped before reaching the interpreter",
	}, []string{"reason"}) // blank, in_flight

	metricVoiceInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_voice_requests_in_flight",
		Help: "1 while an interpreter round trip is pending",
	})

	metricOrdersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_orders_completed_total",
		Help: "Orders finalized, by how they were completed",
	}, []string{"source"}) // voice, touch

	metricTimersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_conversation_timers_fired_total",
		Help: "Auto-advance timers that fired against their owning state",
	}, []string{"state"})
)
