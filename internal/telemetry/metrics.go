package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "component"

// Metrics is a per-run registry; a batch run has no scrape endpoint, so the
// registry is written out as a textfile at the end instead.
type Metrics struct {
	reg *prometheus.Registry

	RowsRead    prometheus.Counter
	RowsWritten prometheus.Counter
	Duration    prometheus.Gauge
	LastSuccess prometheus.Gauge
	Failures    *prometheus.CounterVec
}

func New(runID string) *Metrics {
	labels := prometheus.Labels{"run_id": runID}
	m := &Metrics{reg: prometheus.NewRegistry()}

	m.RowsRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rows_read_total",
		Help: "Rows read from the input table.", ConstLabels: labels,
	})
	m.RowsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rows_written_total",
		Help: "Rows written to the output table.", ConstLabels: labels,
	})
	m.Duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "run_duration_seconds",
		Help: "Wall time of the last run.", ConstLabels: labels,
	})
	m.LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "last_success_timestamp_seconds",
		Help: "Unix time of the last successful run.", ConstLabels: labels,
	})
	m.Failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "failures_total",
		Help: "Failed runs by error kind.", ConstLabels: labels,
	}, []string{"kind"})

	m.reg.MustRegister(m.RowsRead, m.RowsWritten, m.Duration, m.LastSuccess, m.Failures)
	return m
}

func (m *Metrics) ObserveRun(read, written int, started, finished time.Time) {
	m.RowsRead.Add(float64(read))
	m.RowsWritten.Add(float64(written))
	m.Duration.Set(finished.Sub(started).Seconds())
	m.LastSuccess.Set(float64(finished.Unix()))
}

func (m *Metrics) ObserveFailure(kind string) { m.Failures.WithLabelValues(kind).Inc() }

// WriteTextfile dumps the registry in the text exposition format. An empty
// path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
