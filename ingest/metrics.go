package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for a Deserializer. A nil
// *Metrics disables instrumentation entirely; every method is a safe no-op
// on a nil receiver.
type Metrics struct {
	decoded         *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	schemasEvolved  prometheus.Counter
	rewinds         prometheus.Counter
	deserializeTime prometheus.Histogram
}

// NewMetrics constructs Metrics and registers them with registry. Passing a
// nil registry disables metrics: callers get back a nil *Metrics that every
// recording method tolerates.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &Metrics{
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventschema",
			Subsystem: "ingest",
			Name:      "events_decoded_total",
			Help:      "Total number of events successfully deserialized, by project.",
		}, []string{"project"}),

		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eventschema",
			Subsystem: "ingest",
			Name:      "events_rejected_total",
			Help:      "Total number of events rejected, by error kind.",
		}, []string{"reason"}),

		schemasEvolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventschema",
			Subsystem: "ingest",
			Name:      "schema_evolutions_total",
			Help:      "Total number of createOrGetCollectionField calls that added at least one field.",
		}),

		rewinds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventschema",
			Subsystem: "ingest",
			Name:      "parser_rewinds_total",
			Help:      "Total number of events where properties arrived before project/collection, requiring a rewind.",
		}),

		deserializeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventschema",
			Subsystem: "ingest",
			Name:      "deserialize_duration_seconds",
			Help:      "Time to deserialize one event end to end.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.decoded, m.rejected, m.schemasEvolved, m.rewinds, m.deserializeTime} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) recordDecoded(project string) {
	if m == nil {
		return
	}
	m.decoded.WithLabelValues(project).Inc()
}

func (m *Metrics) recordRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordSchemaEvolved() {
	if m == nil {
		return
	}
	m.schemasEvolved.Inc()
}

func (m *Metrics) recordRewind() {
	if m == nil {
		return
	}
	m.rewinds.Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.deserializeTime.Observe(d.Seconds())
}
