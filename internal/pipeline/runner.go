package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"github.com/nerrad567/building-data/internal/dataset"
	"github.com/nerrad567/building-data/internal/handoff"
	"github.com/nerrad567/building-data/internal/history"
	"github.com/nerrad567/building-data/internal/importer"
	"github.com/nerrad567/building-data/internal/infrastructure/metrics"
)

// Importer runs one import job over the configured source directory.
// *importer.Importer satisfies it.
type Importer interface {
	ImportDir(ctx context.Context) (*importer.Result, error)
}

// Recorder persists finished runs. *history.Repository satisfies it.
type Recorder interface {
	Save(ctx context.Context, run history.Run) error
}

// Deliverer hands a finished dataset to downstream sinks.
// *handoff.Handoff satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, run history.Run, d dataset.Dataset) handoff.Report
}

// Logger is the logging surface the runner needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Deps holds the runner's collaborators. Recorder, Deliverer and Metrics
// are optional.
type Deps struct {
	Importer  Importer
	Store     *dataset.Store
	Recorder  Recorder
	Deliverer Deliverer
	Metrics   *metrics.Metrics
	Logger    Logger
}

// Runner executes import jobs one at a time.
type Runner struct {
	deps    Deps
	running sync.Mutex
	trigger chan string
}

// New creates a Runner.
func New(deps Deps) *Runner {
	return &Runner{
		deps:    deps,
		trigger: make(chan string, 1),
	}
}

// Run executes one import job and returns its recorded run.
//
// The served dataset is swapped only when the import succeeds. The history
// and hand-off are best effort: their failures are logged, not returned.
//
// Returns:
//   - history.Run: the run record, also for aborted imports
//   - error: ErrImportRunning if a job is in progress, or the import error
func (r *Runner) Run(ctx context.Context, origin string) (history.Run, error) {
	if !r.running.TryLock() {
		return history.Run{}, ErrImportRunning
	}
	defer r.running.Unlock()

	run := history.NewRun(origin, time.Now())
	log := r.deps.Logger

	result, err := r.deps.Importer.ImportDir(ctx)
	if err != nil {
		run = run.Finish(importer.Summary{Dropped: []importer.Drop{}, Warnings: []importer.Warning{}}, 0, err)
		log.Error("import aborted", "run_id", run.ID, "origin", origin, "error", err)
		r.record(ctx, run)
		return run, err
	}

	run = run.Finish(result.Summary, len(result.Sources), nil)
	r.deps.Store.Swap(result.Dataset, run.ID.String())
	log.Info("dataset swapped",
		"run_id", run.ID,
		"origin", origin,
		"buildings", len(result.Dataset),
		"duration", run.Duration(),
	)

	r.record(ctx, run)
	if r.deps.Deliverer != nil {
		r.deps.Deliverer.Deliver(ctx, run, result.Dataset)
	}
	return run, nil
}

// record saves the run and updates the metrics.
func (r *Runner) record(ctx context.Context, run history.Run) {
	status := metrics.StatusOK
	if run.Status() == history.StatusAborted {
		status = metrics.StatusAborted
	}
	dropped := make(map[string]int)
	for _, d := range run.Summary.Dropped {
		dropped[d.Reason]++
	}
	r.deps.Metrics.RecordImport(metrics.ImportStats{
		Status:    status,
		Duration:  run.Duration(),
		Sources:   run.Sources,
		Buildings: run.Summary.Imported,
		Dropped:   dropped,
		Warnings:  run.Summary.WarningsByKind(),
	})

	if r.deps.Recorder == nil {
		return
	}
	// The run is recorded even when the job's context was cancelled.
	if err := r.deps.Recorder.Save(context.WithoutCancel(ctx), run); err != nil {
		r.deps.Logger.Warn("recording import run failed", "run_id", run.ID, "error", err)
	}
}

// Trigger requests an asynchronous job, picked up by Loop. It reports
// false when a request is already pending.
func (r *Runner) Trigger(origin string) bool {
	select {
	case r.trigger <- origin:
		return true
	default:
		return false
	}
}

// Loop runs triggered jobs, and a job every interval when interval > 0,
// until ctx is cancelled.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		var origin string
		select {
		case <-ctx.Done():
			return
		case <-tick:
			origin = history.OriginInterval
		case origin = <-r.trigger:
		}

		if _, err := r.Run(ctx, origin); errors.Is(err, ErrImportRunning) {
			r.deps.Logger.Warn("import skipped", "origin", origin, "error", err)
		}
	}
}

// HandleRequest is an MQTT message handler that triggers a job.
func (r *Runner) HandleRequest(_ string, _ []byte) error {
	if !r.Trigger(history.OriginMQTT) {
		r.deps.Logger.Info("import request ignored, one is already pending")
	}
	return nil
}

// WarmStart serves the snapshot at path until the first import finishes.
// A missing snapshot is not an error.
func (r *Runner) WarmStart(path string) error {
	if path == "" {
		return nil
	}
	d, err := handoff.ReadSnapshot(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	r.deps.Store.Swap(d, "snapshot")
	r.deps.Logger.Info("serving snapshot", "path", path, "buildings", len(d))
	return nil
}
