// Package metrics provides driven.Recorder implementations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
)

// Ensure the recorders implement the interface.
var (
	_ driven.Recorder = (*Prometheus)(nil)
	_ driven.Recorder = Nop{}
)

const (
	namespace = "ragkit"
	subsystem = "knowledge"
)

// Prometheus records measurements as Prometheus collectors.
type Prometheus struct {
	retrievalTime  *prometheus.HistogramVec
	retrievalHits  *prometheus.HistogramVec
	failOpen       *prometheus.CounterVec
	inconsistent   *prometheus.CounterVec
	ingestionTime  *prometheus.HistogramVec
	ingestedChunks *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		retrievalTime: newHistogramVec("retrieval_duration_seconds",
			"Latency of retrieve calls.", prometheus.DefBuckets),
		retrievalHits: newHistogramVec("retrieval_hits",
			"Chunks returned per retrieve call.", []float64{0, 1, 2, 3, 5, 10, 20}),
		failOpen: newCounterVec("retrieval_fail_open_total",
			"Retrieve calls that degraded to no context.", "reason"),
		inconsistent: newCounterVec("inconsistent_chunks_total",
			"Index entries with no chunk record.", ""),
		ingestionTime: newHistogramVec("ingestion_duration_seconds",
			"Latency of document ingestion.", prometheus.ExponentialBuckets(0.05, 2, 12)),
		ingestedChunks: newCounterVec("ingested_chunks_total",
			"Chunk windows processed by ingestion.", "outcome"),
	}

	for _, c := range []prometheus.Collector{
		p.retrievalTime, p.retrievalHits, p.failOpen,
		p.inconsistent, p.ingestionTime, p.ingestedChunks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func newHistogramVec(name, help string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, nil)
}

func newCounterVec(name, help, label string) *prometheus.CounterVec {
	var labels []string
	if label != "" {
		labels = []string{label}
	}
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

// ObserveRetrieval records one retrieve call.
func (p *Prometheus) ObserveRetrieval(_ string, elapsed time.Duration, hits int) {
	p.retrievalTime.WithLabelValues().Observe(elapsed.Seconds())
	p.retrievalHits.WithLabelValues().Observe(float64(hits))
}

// RetrievalFailOpen records a degraded retrieve call.
func (p *Prometheus) RetrievalFailOpen(_ string, reason string) {
	p.failOpen.WithLabelValues(reason).Inc()
}

// InconsistentChunk records a dangling index entry.
func (p *Prometheus) InconsistentChunk(_ string) {
	p.inconsistent.WithLabelValues().Inc()
}

// ObserveIngestion records one document ingestion.
func (p *Prometheus) ObserveIngestion(_ string, elapsed time.Duration, chunks, failed int) {
	p.ingestionTime.WithLabelValues().Observe(elapsed.Seconds())
	p.ingestedChunks.WithLabelValues("stored").Add(float64(chunks))
	p.ingestedChunks.WithLabelValues("failed").Add(float64(failed))
}

// Nop discards every measurement.
type Nop struct{}

// ObserveRetrieval does nothing.
func (Nop) ObserveRetrieval(string, time.Duration, int) {}

// RetrievalFailOpen does nothing.
func (Nop) RetrievalFailOpen(string, string) {}

// InconsistentChunk does nothing.
func (Nop) InconsistentChunk(string) {}

// ObserveIngestion does nothing.
func (Nop) ObserveIngestion(string, time.Duration, int, int) {}
