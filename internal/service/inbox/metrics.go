package inbox

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/lead"
)

var (
	handoffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgi_inbox_handoffs_total",
			Help: "Bot to agent handoffs (take) and agent to bot returns (release).",
		},
		[]string{"action"},
	)
	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgi_inbox_status_transitions_total",
			Help: "Lead status transitions applied.",
		},
		[]string{"from", "to"},
	)
	messagesStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgi_inbox_messages_total",
			Help: "Messages appended to conversation timelines.",
		},
		[]string{"direction", "sender"},
	)
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgi_inbox_deliveries_total",
			Help: "Outbound delivery results reported by the WhatsApp bridge.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(handoffs, statusTransitions, messagesStored, deliveries)
}

func observeTransition(from, to lead.Status) {
	statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func observeMessage(direction lead.Direction, sender lead.SenderKind) {
	messagesStored.WithLabelValues(string(direction), string(sender)).Inc()
}
