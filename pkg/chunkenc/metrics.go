package chunkenc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments chain execution. A nil *Metrics is valid and records
// nothing, so chains without a registry pay no cost.
type Metrics struct {
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	encodedBytes prometheus.Counter
	decodedBytes prometheus.Counter
}

// NewMetrics builds and registers chain metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "zarrlite_codec_operations_total",
			Help: "Total number of codec stage executions.",
		}, []string{"codec", "op", "status"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zarrlite_codec_duration_seconds",
			Help:    "Time spent in one codec stage execution.",
			Buckets: prometheus.DefBuckets,
		}, []string{"codec", "op"}),
		encodedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zarrlite_chain_encoded_bytes_total",
			Help: "Total bytes produced by chain encodes.",
		}),
		decodedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zarrlite_chain_decoded_bytes_total",
			Help: "Total bytes consumed by chain decodes.",
		}),
	}
}

func (m *Metrics) observe(codec, op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.operations.WithLabelValues(codec, op, status).Inc()
	m.duration.WithLabelValues(codec, op).Observe(duration.Seconds())
}

func (m *Metrics) addEncodedBytes(n int) {
	if m == nil {
		return
	}
	m.encodedBytes.Add(float64(n))
}

func (m *Metrics) addDecodedBytes(n int) {
	if m == nil {
		return
	}
	m.decodedBytes.Add(float64(n))
}
