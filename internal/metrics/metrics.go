package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fairyring_monitor"

var (
	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_received_total",
		Help:      "Event stream frames carrying a result, by monitor.",
	}, []string{"monitor"})

	MessagesMalformed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_malformed_total",
		Help:      "Event stream results skipped because an expected key was missing.",
	}, []string{"monitor"})

	AlertsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_sent_total",
		Help:      "Alerts delivered, by sink.",
	}, []string{"sink"})

	AlertsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_failed_total",
		Help:      "Alerts a sink failed to deliver, by sink.",
	}, []string{"sink"})

	AlertsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_dropped_total",
		Help:      "Alerts dropped because the queue was full or closed.",
	})
)

func init() {
	prometheus.MustRegister(MessagesReceived, MessagesMalformed, AlertsSent, AlertsFailed, AlertsDropped)
}
