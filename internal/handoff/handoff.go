package handoff

import (
	"context"
	"time"

	"github.com/nerrad567/building-data/internal/dataset"
	"github.com/nerrad567/building-data/internal/history"
	"github.com/nerrad567/building-data/internal/importer"
	"github.com/nerrad567/building-data/internal/infrastructure/metrics"
	"github.com/nerrad567/building-data/internal/infrastructure/mqtt"
)

// Sink names used in logs and metrics.
const (
	SinkMQTT     = "mqtt"
	SinkInfluxDB = "influxdb"
	SinkSnapshot = "snapshot"
)

// Publisher is the MQTT surface the hand-off needs. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// SeriesWriter is the InfluxDB surface the hand-off needs.
// *influxdb.Client satisfies it.
type SeriesWriter interface {
	WriteDataset(d dataset.Dataset, runID string) int
}

// Logger is the logging surface the hand-off needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Sinks selects the hand-off targets. Nil or empty fields are skipped.
type Sinks struct {
	MQTT         Publisher
	InfluxDB     SeriesWriter
	SnapshotPath string
}

// SummaryMessage is the payload published on the import summary topic.
type SummaryMessage struct {
	RunID      string           `json:"run_id"`
	Origin     string           `json:"origin"`
	FinishedAt time.Time        `json:"finished_at"`
	Buildings  []string         `json:"buildings"`
	Summary    importer.Summary `json:"summary"`
}

// Report lists what a Deliver call achieved.
type Report struct {
	Points   int
	Snapshot string
	Errors   map[string]error
}

// Handoff delivers finished imports to the configured sinks.
type Handoff struct {
	sinks   Sinks
	metrics *metrics.Metrics
	logger  Logger
}

// New creates a Handoff. m may be nil.
func New(sinks Sinks, m *metrics.Metrics, logger Logger) *Handoff {
	return &Handoff{sinks: sinks, metrics: m, logger: logger}
}

// Deliver hands the run's dataset to every configured sink.
func (h *Handoff) Deliver(ctx context.Context, run history.Run, d dataset.Dataset) Report {
	report := Report{Errors: map[string]error{}}
	runID := run.ID.String()

	if h.sinks.MQTT != nil {
		if err := h.publish(run, d); err != nil {
			h.fail(&report, SinkMQTT, runID, err)
		}
	}

	if h.sinks.InfluxDB != nil && ctx.Err() == nil {
		report.Points = h.sinks.InfluxDB.WriteDataset(d, runID)
		h.logger.Info("dataset written to influxdb", "run_id", runID, "points", report.Points)
	}

	if h.sinks.SnapshotPath != "" && ctx.Err() == nil {
		if err := WriteSnapshot(h.sinks.SnapshotPath, d); err != nil {
			h.fail(&report, SinkSnapshot, runID, err)
		} else {
			report.Snapshot = h.sinks.SnapshotPath
			h.logger.Info("snapshot written", "run_id", runID, "path", h.sinks.SnapshotPath)
		}
	}

	return report
}

func (h *Handoff) publish(run history.Run, d dataset.Dataset) error {
	names := d.Names()
	msg := SummaryMessage{
		RunID:      run.ID.String(),
		Origin:     run.Origin,
		FinishedAt: run.FinishedAt,
		Buildings:  names,
		Summary:    run.Summary,
	}
	if err := h.sinks.MQTT.PublishJSON(mqtt.Topics{}.ImportSummary(), msg, true); err != nil {
		return err
	}
	return h.sinks.MQTT.PublishJSON(mqtt.Topics{}.Buildings(), names, true)
}

func (h *Handoff) fail(report *Report, sink, runID string, err error) {
	report.Errors[sink] = err
	h.metrics.RecordHandoffFailure(sink)
	h.logger.Warn("hand-off failed", "sink", sink, "run_id", runID, "error", err)
}
