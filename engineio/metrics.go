package engineio

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for an Engine.IO server and the
// broadcast layer built on it. All methods are safe on a nil receiver.
type Metrics struct {
	sessionsActive   *prometheus.GaugeVec
	sessionsClosed   *prometheus.CounterVec
	pollsHeld        prometheus.Gauge
	packetsSent      prometheus.Counter
	packetsReceived  *prometheus.CounterVec
	payloadsRejected prometheus.Counter
	broadcasts       *prometheus.CounterVec
	recipients       prometheus.Histogram
}

// NewMetrics registers the collectors on registry under namespace.
// A nil registry falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer, namespace string) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		sessionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engineio",
			Name:      "sessions_active",
			Help:      "Number of open Engine.IO sessions",
		}, []string{"transport"}),

		sessionsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engineio",
			Name:      "sessions_closed_total",
			Help:      "Total number of closed sessions by reason",
		}, []string{"reason"}),

		pollsHeld: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engineio",
			Name:      "polls_held",
			Help:      "Number of long-poll GET requests currently held open",
		}),

		packetsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engineio",
			Name:      "packets_sent_total",
			Help:      "Total number of packets delivered to clients",
		}),

		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engineio",
			Name:      "packets_received_total",
			Help:      "Total number of packets received from clients by type",
		}, []string{"type"}),

		payloadsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engineio",
			Name:      "payloads_rejected_total",
			Help:      "Total number of POST bodies rejected for exceeding the payload limit",
		}),

		broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total number of broadcast events by event name",
		}, []string{"event"}),

		recipients: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_recipients",
			Help:      "Number of local sessions reached by one broadcast",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
	}
}

func (m *Metrics) sessionOpened(transport string) {
	if m != nil {
		m.sessionsActive.WithLabelValues(transport).Inc()
	}
}

func (m *Metrics) sessionClosed(transport, reason string) {
	if m != nil {
		m.sessionsActive.WithLabelValues(transport).Dec()
		m.sessionsClosed.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) pollStarted() {
	if m != nil {
		m.pollsHeld.Inc()
	}
}

func (m *Metrics) pollFinished() {
	if m != nil {
		m.pollsHeld.Dec()
	}
}

func (m *Metrics) sent(n int) {
	if m != nil {
		m.packetsSent.Add(float64(n))
	}
}

func (m *Metrics) received(t PacketType) {
	if m != nil {
		m.packetsReceived.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) payloadRejected() {
	if m != nil {
		m.payloadsRejected.Inc()
	}
}

// ObserveBroadcast records one broadcast of event.
func (m *Metrics) ObserveBroadcast(event string) {
	if m != nil {
		m.broadcasts.WithLabelValues(event).Inc()
	}
}

// ObserveRecipients records how many local sessions one broadcast reached.
func (m *Metrics) ObserveRecipients(n int) {
	if m != nil {
		m.recipients.Observe(float64(n))
	}
}
