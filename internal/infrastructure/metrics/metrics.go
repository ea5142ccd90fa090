package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "buildingdata"

// Import outcome labels.
const (
	StatusOK      = "ok"
	StatusAborted = "aborted"
)

// Metrics holds the service's collectors.
type Metrics struct {
	ImportsTotal      *prometheus.CounterVec
	ImportDuration    prometheus.Histogram
	SourcesRead       prometheus.Counter
	Buildings         prometheus.Gauge
	DroppedBuildings  *prometheus.CounterVec
	ImportWarnings    *prometheus.CounterVec
	LastImportSuccess prometheus.Gauge

	HandoffFailures *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// ImportStats describes one finished import job.
type ImportStats struct {
	Status    string
	Duration  time.Duration
	Sources   int
	Buildings int

	// Dropped counts dropped buildings by reason.
	Dropped map[string]int

	// Warnings counts warnings by kind.
	Warnings map[string]int
}

// New creates the collectors and registers them on reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Import runs by outcome.",
		}, []string{"status"}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		SourcesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "sources_total",
			Help:      "Source files handed to the importer.",
		}),
		Buildings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dataset",
			Name:      "buildings",
			Help:      "Buildings in the currently served dataset.",
		}),
		DroppedBuildings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "dropped_buildings_total",
			Help:      "Buildings or sources dropped by reason.",
		}, []string{"reason"}),
		ImportWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "warnings_total",
			Help:      "Import warnings by kind.",
		}, []string{"kind"}),
		LastImportSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful import.",
		}),
		HandoffFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handoff",
			Name:      "failures_total",
			Help:      "Failed hand-offs by sink.",
		}, []string{"sink"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.ImportsTotal,
		m.ImportDuration,
		m.SourcesRead,
		m.Buildings,
		m.DroppedBuildings,
		m.ImportWarnings,
		m.LastImportSuccess,
		m.HandoffFailures,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// RecordImport updates the import collectors for one finished run.
// The buildings gauge only moves on success: an aborted run keeps the
// previous dataset in service.
func (m *Metrics) RecordImport(s ImportStats) {
	if m == nil {
		return
	}

	m.ImportsTotal.WithLabelValues(s.Status).Inc()
	m.ImportDuration.Observe(s.Duration.Seconds())
	m.SourcesRead.Add(float64(s.Sources))

	for reason, n := range s.Dropped {
		m.DroppedBuildings.WithLabelValues(reason).Add(float64(n))
	}
	for kind, n := range s.Warnings {
		m.ImportWarnings.WithLabelValues(kind).Add(float64(n))
	}

	if s.Status == StatusOK {
		m.Buildings.Set(float64(s.Buildings))
		m.LastImportSuccess.SetToCurrentTime()
	}
}

// RecordHandoffFailure counts a failed hand-off to sink (mqtt, influxdb, snapshot).
func (m *Metrics) RecordHandoffFailure(sink string) {
	if m == nil {
		return
	}
	m.HandoffFailures.WithLabelValues(sink).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
