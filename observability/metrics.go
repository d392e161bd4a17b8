package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "collab_gateway"

// Metrics gathers the collectors of one gateway process.
type Metrics struct {
	Connections       prometheus.Gauge
	HandshakeFailures *prometheus.CounterVec
	EventsHandled     *prometheus.CounterVec
	MalformedEvents   prometheus.Counter
	SinkDropped       prometheus.Counter

	QuotaDecisions   *prometheus.CounterVec
	QuotaStoreErrors prometheus.Counter

	FabricPublished     prometheus.Counter
	FabricReceived      prometheus.Counter
	FabricDropped       prometheus.Counter
	FabricDecodeErrors  prometheus.Counter
	PresenceStoreErrors prometheus.Counter

	ProcessCPU        prometheus.Gauge
	ProcessRSS        prometheus.Gauge
	ProcessGoroutines prometheus.Gauge
	QueueLength       *prometheus.GaugeVec
	QueueCapacity     *prometheus.GaugeVec
	WorkerRestarts    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg.
// Tests pass a fresh prometheus.NewRegistry() to stay isolated.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Open websocket connections.",
		}),
		HandshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "handshake_failures_total",
			Help: "Refused handshakes by reason.",
		}, []string{"reason"}),
		EventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_handled_total",
			Help: "Inbound events processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		MalformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "malformed_events_total",
			Help: "Inbound frames that could not be decoded.",
		}),
		SinkDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_dropped_total",
			Help: "Outbound events dropped because a client send buffer was full.",
		}),
		QuotaDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "quota_decisions_total",
			Help: "Quota ledger decisions by class and outcome.",
		}, []string{"class", "outcome"}),
		QuotaStoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "quota_store_errors_total",
			Help: "Quota checks that failed open because the store did not answer.",
		}),
		FabricPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fabric_published_total",
			Help: "Envelopes published to the broadcast fabric.",
		}),
		FabricReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fabric_received_total",
			Help: "Envelopes received from other processes.",
		}),
		FabricDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fabric_dropped_total",
			Help: "Envelopes dropped because the publish queue was full or the transport failed.",
		}),
		FabricDecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fabric_decode_errors_total",
			Help: "Envelopes received that could not be decoded.",
		}),
		PresenceStoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "presence_store_errors_total",
			Help: "Presence updates served from local counts because the store failed.",
		}),
		ProcessCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_cpu_percent",
			Help: "CPU usage of the gateway process.",
		}),
		ProcessRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_rss_bytes",
			Help: "Resident memory of the gateway process.",
		}),
		ProcessGoroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "process_goroutines",
			Help: "Live goroutines of the gateway process.",
		}),
		QueueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_length",
			Help: "Sampled length of internal queues.",
		}, []string{"queue"}),
		QueueCapacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_capacity",
			Help: "Capacity of internal queues.",
		}, []string{"queue"}),
		WorkerRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "worker_restarts_total",
			Help: "Restarts of background workers after a panic or an error.",
		}, []string{"worker"}),
	}
	reg.MustRegister(
		m.Connections, m.HandshakeFailures, m.EventsHandled, m.MalformedEvents, m.SinkDropped,
		m.QuotaDecisions, m.QuotaStoreErrors,
		m.FabricPublished, m.FabricReceived, m.FabricDropped, m.FabricDecodeErrors, m.PresenceStoreErrors,
		m.ProcessCPU, m.ProcessRSS, m.ProcessGoroutines,
		m.QueueLength, m.QueueCapacity, m.WorkerRestarts,
	)
	return m
}
