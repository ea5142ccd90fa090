package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/building-data/internal/importer"
)

// Origins describe what started a run.
const (
	OriginStartup  = "startup"
	OriginInterval = "interval"
	OriginAPI      = "api"
	OriginMQTT     = "mqtt"
	OriginCLI      = "cli"
)

// Run statuses.
const (
	StatusOK      = "ok"
	StatusAborted = "aborted"
)

// Run is one recorded import job.
type Run struct {
	ID         uuid.UUID        `json:"id"`
	Origin     string           `json:"origin"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Sources    int              `json:"sources"`
	Summary    importer.Summary `json:"summary"`
	Error      string           `json:"error,omitempty"`
}

// NewRun starts a run record with a fresh ID.
func NewRun(origin string, started time.Time) Run {
	return Run{
		ID:        uuid.New(),
		Origin:    origin,
		StartedAt: started.UTC(),
	}
}

// Finish stamps the finish time and outcome onto the run.
// A non-nil err marks the run aborted.
func (r Run) Finish(summary importer.Summary, sources int, err error) Run {
	r.FinishedAt = time.Now().UTC()
	r.Summary = summary
	r.Sources = sources
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Status reports "ok" or "aborted".
func (r Run) Status() string {
	if r.Error != "" {
		return StatusAborted
	}
	return StatusOK
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
