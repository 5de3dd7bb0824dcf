package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the IPC client. A single Metrics
// value is shared across the successive Connection instances of one player;
// all Record methods are safe to call on a nil receiver so a Connection
// without metrics attached pays nothing.
type Metrics struct {
	connectAttempts prometheus.Counter
	connectFailures prometheus.Counter
	disconnects     prometheus.Counter

	requestsSent     *prometheus.CounterVec // by command name
	responsesMatched prometheus.Counter
	responsesDropped prometheus.Counter

	eventsReceived *prometheus.CounterVec // by event name
	malformedLines prometheus.Counter
	listenerPanics prometheus.Counter
}

// NewMetrics creates a metrics instance registered with the default
// registry. Call it once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		connectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_connect_attempts_total",
			Help: "Total number of connection attempts to the player",
		}),
		connectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_connect_failures_total",
			Help: "Total number of failed connection attempts",
		}),
		disconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_disconnects_total",
			Help: "Total number of detected connection losses",
		}),
		requestsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpvremote_requests_sent_total",
				Help: "Total number of IPC requests written to the player",
			},
			[]string{"command"},
		),
		responsesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_responses_matched_total",
			Help: "Total number of responses matched to a pending request",
		}),
		responsesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_responses_dropped_total",
			Help: "Total number of responses with no matching pending request",
		}),
		eventsReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mpvremote_events_received_total",
				Help: "Total number of events decoded from the player",
			},
			[]string{"event"},
		),
		malformedLines: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_malformed_lines_total",
			Help: "Total number of inbound lines that failed to decode",
		}),
		listenerPanics: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mpvremote_listener_panics_total",
			Help: "Total number of recovered event listener panics",
		}),
	}
}

func (m *Metrics) RecordConnectAttempt() {
	if m != nil {
		m.connectAttempts.Inc()
	}
}

func (m *Metrics) RecordConnectFailure() {
	if m != nil {
		m.connectFailures.Inc()
	}
}

func (m *Metrics) RecordDisconnect() {
	if m != nil {
		m.disconnects.Inc()
	}
}

func (m *Metrics) RecordRequestSent(command string) {
	if m != nil {
		m.requestsSent.WithLabelValues(command).Inc()
	}
}

func (m *Metrics) RecordResponseMatched() {
	if m != nil {
		m.responsesMatched.Inc()
	}
}

func (m *Metrics) RecordResponseDropped() {
	if m != nil {
		m.responsesDropped.Inc()
	}
}

func (m *Metrics) RecordEventReceived(event string) {
	if m != nil {
		m.eventsReceived.WithLabelValues(event).Inc()
	}
}

func (m *Metrics) RecordMalformedLine() {
	if m != nil {
		m.malformedLines.Inc()
	}
}

func (m *Metrics) RecordListenerPanic() {
	if m != nil {
		m.listenerPanics.Inc()
	}
}
