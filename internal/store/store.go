// Package store persists a local history of pipeline runs so extractions
// and model applications can be audited later.
package store

import (
	"context"
	"time"
)

// RunStatus tracks a run through its lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary holds the countable outcome of a run. All fields are
// optional; commands fill in what applies to them.
type RunSummary struct {
	Edges           int      `json:"edges,omitempty"`
	QualityCount    int      `json:"quality_count,omitempty"`
	Accuracy        *float64 `json:"accuracy,omitempty"`
	ROCAUC          *float64 `json:"roc_auc,omitempty"`
	ModelPath       string   `json:"model_path,omitempty"`
	OutputPath      string   `json:"output_path,omitempty"`
	Features        []string `json:"features,omitempty"`
	DurationSeconds float64  `json:"duration_seconds,omitempty"`
}

// Run is one recorded pipeline invocation.
type Run struct {
	ID         string
	Command    string
	Region     string
	Source     string
	Adapter    string
	Status     RunStatus
	Summary    *RunSummary
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	Command string
	Region  string
	Status  RunStatus
	Limit   int
	Offset  int
}

// Store records pipeline runs.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, command, region, source, adapter string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary *RunSummary) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	Close() error
}
