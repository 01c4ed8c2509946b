package dataset

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the annotator's Prometheus counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	ItemsTotal        *prometheus.CounterVec
	BackoffSleepTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_annotator_requests_total",
			Help: "Annotation requests by model and HTTP status (0 = no response)",
		}, []string{"model", "status"}),
		ItemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_annotator_items_total",
			Help: "Processed videos by outcome",
		}, []string{"outcome"}), // succeeded, skipped, failed
		BackoffSleepTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "frames_annotator_backoff_sleep_seconds_total",
			Help: "Seconds spent sleeping between retries",
		}),
	}
}

func (m *Metrics) IncRequest(model string, status int) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(model, strconv.Itoa(status)).Inc()
}

func (m *Metrics) IncItem(status OutcomeStatus) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) AddBackoff(d time.Duration) {
	if m == nil {
		return
	}
	m.BackoffSleepTotal.Add(d.Seconds())
}

// WriteTextfile dumps the registry in the text exposition format for a node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
