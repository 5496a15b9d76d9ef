package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the run counters
type Metrics struct {
	registry *prometheus.Registry

	FilesTotal       prometheus.Counter
	FileErrorsTotal  prometheus.Counter
	RecordsTotal     prometheus.Counter
	DecodeErrorTotal prometheus.Counter
	FindingsTotal    *prometheus.CounterVec
}

// NewMetrics creates the counters on a private registry labeled with runID
func NewMetrics(runID string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"run_id": runID}

	return &Metrics{
		registry: reg,
		FilesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "ferret_evtx_files_total",
			Help:        "Total number of event log files opened",
			ConstLabels: labels,
		}),
		FileErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "ferret_evtx_file_errors_total",
			Help:        "Total number of event log files that could not be read",
			ConstLabels: labels,
		}),
		RecordsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "ferret_evtx_records_total",
			Help:        "Total number of event records decoded",
			ConstLabels: labels,
		}),
		DecodeErrorTotal: factory.NewCounter(prometheus.CounterOpts{
			Name:        "ferret_evtx_decode_errors_total",
			Help:        "Total number of event records that failed to decode",
			ConstLabels: labels,
		}),
		FindingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "ferret_evtx_findings_total",
			Help:        "Total number of findings by headline",
			ConstLabels: labels,
		}, []string{"headline"}),
	}
}

// Gatherer exposes the underlying registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes every counter to path in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
