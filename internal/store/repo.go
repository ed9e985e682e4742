package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run lookup matches nothing.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when a run ID prefix matches more than one run.
var ErrAmbiguous = errors.New("ambiguous run id prefix")

// QueryOpts configures list queries.
type QueryOpts struct {
	Limit int // max results (0 = unlimited)
}

// RunData describes a batch run when it starts.
type RunData struct {
	Source   string
	Sheet    string
	Provider string
	Model    string
	Rows     int
}

// Run is a recorded batch run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in progress or was interrupted
	RunData
	Succeeded int
	Failed    int
}

// Finished reports whether the run completed.
func (r Run) Finished() bool { return !r.FinishedAt.IsZero() }

// RunRepo records batch runs.
type RunRepo interface {
	// StartRun inserts a new run and returns its generated ID.
	StartRun(ctx context.Context, data RunData) (string, error)

	// FinishRun stamps the run as completed with its final counts.
	FinishRun(ctx context.Context, id string, succeeded, failed int) error

	// ListRuns returns runs, newest first.
	ListRuns(ctx context.Context, opts QueryOpts) ([]Run, error)

	// GetRun looks a run up by full ID or unique ID prefix.
	GetRun(ctx context.Context, idOrPrefix string) (*Run, error)
}

// RowEventData captures a single model call made for a row.
type RowEventData struct {
	RunID        string
	Row          int
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// RowEvent is a stored RowEventData.
type RowEvent struct {
	ID        int64
	Timestamp time.Time
	RowEventData
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to row events.
type EventRepo interface {
	// AppendRowEvent records a model call.
	AppendRowEvent(ctx context.Context, data RowEventData) error

	// RowEvents returns the events of a run ordered by row.
	RowEvents(ctx context.Context, runID string) ([]RowEvent, error)

	// UsageByModel aggregates all recorded calls per model.
	UsageByModel(ctx context.Context) ([]ModelUsage, error)
}
